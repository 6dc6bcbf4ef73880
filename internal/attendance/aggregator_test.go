package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scan(id, student string, direction Direction, ts time.Time) RawRecord {
	return RawRecord{ID: id, StudentID: student, Direction: direction, Timestamp: ts}
}

func onDay(day int, clock string) time.Time {
	c := MustParseClock(clock)
	return time.Date(2024, time.March, day, c.Hour(), c.Minute(), 0, 0, time.UTC)
}

func TestEnhancePreservesOrderAndIdentity(t *testing.T) {
	records := []RawRecord{
		scan("3", "stu-2", DirectionOut, at("15:30")),
		scan("1", "stu-1", DirectionIn, at("08:45")),
		scan("2", "stu-1", DirectionIn, time.Time{}),
		scan("4", "stu-3", Direction("SIDEWAYS"), at("10:00")),
	}
	enhanced := Enhance(records, testPolicy())
	require.Len(t, enhanced, len(records))
	for i := range records {
		assert.Equal(t, records[i], enhanced[i].Raw())
	}
	assert.Equal(t, StatusAfterHours, enhanced[0].StatusType)
	assert.Equal(t, StatusLate, enhanced[1].StatusType)
	assert.Equal(t, StatusNormal, enhanced[2].StatusType)
	assert.Equal(t, StatusNormal, enhanced[3].StatusType)
}

func TestEnhanceEmpty(t *testing.T) {
	assert.Empty(t, Enhance(nil, testPolicy()))
}

func TestEnhanceIdempotent(t *testing.T) {
	records := []RawRecord{
		scan("1", "stu-1", DirectionIn, at("07:40")),
		scan("2", "stu-1", DirectionOut, at("13:10")),
		scan("3", "stu-2", DirectionIn, at("08:20")),
	}
	first := Enhance(records, testPolicy())
	second := Enhance(Raws(first), testPolicy())
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Status(), second[i].Status())
	}
}

func TestSummarizeDayScenario(t *testing.T) {
	summary := SummarizeDay([]RawRecord{
		scan("1", "stu-1", DirectionIn, at("08:10")),
		scan("2", "stu-1", DirectionOut, at("15:10")),
	}, testPolicy())

	assert.True(t, summary.Present)
	require.NotNil(t, summary.TotalDuration)
	assert.Equal(t, "7h 0m", *summary.TotalDuration)
	require.NotNil(t, summary.DurationMinutes)
	assert.Equal(t, 420, *summary.DurationMinutes)
	require.NotNil(t, summary.ArrivalStatus)
	assert.Equal(t, StatusOnTime, summary.ArrivalStatus.StatusType)
	require.NotNil(t, summary.DepartureStatus)
	assert.Equal(t, StatusAfterHours, summary.DepartureStatus.StatusType)
	assert.Equal(t, 1, summary.CheckInCount)
	assert.Equal(t, 1, summary.CheckOutCount)
	assert.Equal(t, "stu-1", summary.StudentID)
	assert.Equal(t, "2024-03-04", summary.Date)
}

func TestSummarizeDaySelectsExtremesRegardlessOfOrder(t *testing.T) {
	summary := SummarizeDay([]RawRecord{
		scan("1", "stu-1", DirectionOut, at("12:00")),
		scan("2", "stu-1", DirectionIn, at("09:05")),
		scan("3", "stu-1", DirectionOut, at("16:20")),
		scan("4", "stu-1", DirectionIn, at("07:50")),
		scan("5", "stu-1", DirectionOut, at("14:10")),
	}, testPolicy())

	require.NotNil(t, summary.FirstCheckIn)
	assert.Equal(t, at("07:50"), *summary.FirstCheckIn)
	require.NotNil(t, summary.LastCheckOut)
	assert.Equal(t, at("16:20"), *summary.LastCheckOut)
	assert.Equal(t, StatusEarlyArrival, summary.ArrivalStatus.StatusType)
	assert.Equal(t, StatusAfterHours, summary.DepartureStatus.StatusType)
	assert.Equal(t, "8h 30m", *summary.TotalDuration)
	assert.Equal(t, 2, summary.CheckInCount)
	assert.Equal(t, 3, summary.CheckOutCount)
}

func TestSummarizeDayFloorsDuration(t *testing.T) {
	in := at("08:00").Add(40 * time.Second)
	out := at("09:15").Add(10 * time.Second)
	summary := SummarizeDay([]RawRecord{
		scan("1", "stu-1", DirectionIn, in),
		scan("2", "stu-1", DirectionOut, out),
	}, testPolicy())
	require.NotNil(t, summary.TotalDuration)
	assert.Equal(t, "1h 14m", *summary.TotalDuration)
}

func TestSummarizeDayMissingSides(t *testing.T) {
	onlyIn := SummarizeDay([]RawRecord{scan("1", "stu-1", DirectionIn, at("08:40"))}, testPolicy())
	assert.True(t, onlyIn.Present)
	assert.Nil(t, onlyIn.LastCheckOut)
	assert.Nil(t, onlyIn.DepartureStatus)
	assert.Nil(t, onlyIn.TotalDuration)
	assert.Equal(t, StatusLate, onlyIn.ArrivalStatus.StatusType)

	onlyOut := SummarizeDay([]RawRecord{scan("1", "stu-1", DirectionOut, at("13:00"))}, testPolicy())
	assert.False(t, onlyOut.Present)
	assert.Nil(t, onlyOut.FirstCheckIn)
	assert.Nil(t, onlyOut.ArrivalStatus)
	assert.Nil(t, onlyOut.TotalDuration)
	assert.Equal(t, StatusEarlyDeparture, onlyOut.DepartureStatus.StatusType)

	empty := SummarizeDay(nil, testPolicy())
	assert.False(t, empty.Present)
	assert.Zero(t, empty.CheckInCount)
	assert.Nil(t, empty.TotalDuration)
}

func TestSummarizeDaySkipsUnusableRecords(t *testing.T) {
	summary := SummarizeDay([]RawRecord{
		scan("1", "stu-1", DirectionIn, time.Time{}),
		scan("2", "stu-1", Direction(""), at("07:00")),
		scan("3", "stu-1", DirectionIn, at("08:20")),
	}, testPolicy())
	assert.Equal(t, 1, summary.CheckInCount)
	assert.Equal(t, at("08:20"), *summary.FirstCheckIn)
}

func TestSummarizeDayCheckoutBeforeCheckinIsAnomaly(t *testing.T) {
	summary := SummarizeDay([]RawRecord{
		scan("1", "stu-1", DirectionOut, at("07:30")),
		scan("2", "stu-1", DirectionIn, at("08:10")),
	}, testPolicy())
	assert.True(t, summary.Present)
	assert.True(t, summary.DurationAnomaly)
	assert.Nil(t, summary.TotalDuration)
	assert.Nil(t, summary.DurationMinutes)
	assert.NotNil(t, summary.ArrivalStatus)
	assert.NotNil(t, summary.DepartureStatus)
}

func TestSummarizeDayWithoutPolicy(t *testing.T) {
	summary := SummarizeDay([]RawRecord{
		scan("1", "stu-1", DirectionIn, at("08:10")),
		scan("2", "stu-1", DirectionOut, at("15:10")),
	}, nil)
	assert.Equal(t, StatusNormal, summary.ArrivalStatus.StatusType)
	assert.Equal(t, StatusNormal, summary.DepartureStatus.StatusType)
	assert.Equal(t, "7h 0m", *summary.TotalDuration)
}

func TestSummarizePeriodEmpty(t *testing.T) {
	summary := SummarizePeriod(nil)
	assert.Equal(t, 0, summary.PunctualityRate)
	assert.Equal(t, 0, summary.Total)
}

func TestSummarizePeriodCounts(t *testing.T) {
	records := Enhance([]RawRecord{
		scan("1", "stu-1", DirectionIn, at("08:10")),
		scan("2", "stu-2", DirectionIn, at("08:45")),
		scan("3", "stu-3", DirectionIn, at("07:30")),
		scan("4", "stu-1", DirectionOut, at("13:00")),
		scan("5", "stu-2", DirectionOut, at("14:30")),
		scan("6", "stu-3", DirectionOut, at("15:30")),
		scan("7", "stu-4", DirectionIn, time.Time{}),
	}, testPolicy())

	summary := SummarizePeriod(records)
	assert.Equal(t, 6, summary.Total)
	assert.Equal(t, 1, summary.OnTime)
	assert.Equal(t, 1, summary.Late)
	assert.Equal(t, 1, summary.EarlyDeparture)
	assert.Equal(t, 1, summary.EarlyArrival)
	assert.Equal(t, 1, summary.NormalDeparture)
	assert.Equal(t, 1, summary.AfterHours)
	assert.Equal(t, 3, summary.CheckIns)
	assert.Equal(t, 3, summary.CheckOuts)
	assert.Equal(t, 33, summary.PunctualityRate)
}

func TestSummarizePeriodOnlyCheckouts(t *testing.T) {
	records := Enhance([]RawRecord{
		scan("1", "stu-1", DirectionOut, at("15:10")),
	}, testPolicy())
	summary := SummarizePeriod(records)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 0, summary.PunctualityRate)
}

func TestSummarizePeriodRounding(t *testing.T) {
	records := Enhance([]RawRecord{
		scan("1", "stu-1", DirectionIn, at("08:10")),
		scan("2", "stu-2", DirectionIn, at("08:20")),
		scan("3", "stu-3", DirectionIn, at("09:00")),
	}, testPolicy())
	assert.Equal(t, 67, SummarizePeriod(records).PunctualityRate)
}

func TestBucketByStudentDay(t *testing.T) {
	records := []RawRecord{
		scan("1", "stu-2", DirectionIn, onDay(5, "08:00")),
		scan("2", "stu-1", DirectionIn, onDay(5, "08:05")),
		scan("3", "stu-1", DirectionIn, onDay(4, "08:10")),
		scan("4", "stu-1", DirectionOut, onDay(4, "15:00")),
		scan("5", "stu-1", DirectionOut, time.Time{}),
	}
	buckets := BucketByStudentDay(records)
	require.Len(t, buckets, 3)
	assert.Equal(t, "2024-03-04", buckets[0].Date)
	assert.Equal(t, "stu-1", buckets[0].StudentID)
	require.Len(t, buckets[0].Records, 2)
	assert.Equal(t, "3", buckets[0].Records[0].ID)
	assert.Equal(t, "2024-03-05", buckets[1].Date)
	assert.Equal(t, "stu-1", buckets[1].StudentID)
	assert.Equal(t, "stu-2", buckets[2].StudentID)
}

func TestSummarizeDays(t *testing.T) {
	summaries := SummarizeDays([]RawRecord{
		scan("1", "stu-1", DirectionIn, onDay(4, "08:10")),
		scan("2", "stu-1", DirectionOut, onDay(4, "15:10")),
		scan("3", "stu-1", DirectionIn, onDay(5, "09:10")),
	}, testPolicy())
	require.Len(t, summaries, 2)
	assert.Equal(t, "2024-03-04", summaries[0].Date)
	assert.Equal(t, "7h 0m", *summaries[0].TotalDuration)
	assert.Equal(t, "2024-03-05", summaries[1].Date)
	assert.Equal(t, StatusLate, summaries[1].ArrivalStatus.StatusType)
	assert.Nil(t, summaries[1].TotalDuration)
}
