package attendance

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// DateLayout is the calendar-day key used for day buckets.
const DateLayout = "2006-01-02"

// RawRecord is one fingerprint scan as supplied by a record source.
type RawRecord struct {
	ID        string    `json:"id,omitempty"`
	StudentID string    `json:"studentId"`
	Direction Direction `json:"direction"`
	Timestamp time.Time `json:"timestamp"`
}

// usable reports whether the record can take part in day/period aggregation.
func (r RawRecord) usable() bool {
	return !r.Timestamp.IsZero() && r.Direction.Valid()
}

// EnhancedRecord is a RawRecord with its classification attached.
type EnhancedRecord struct {
	RawRecord
	StatusLabel string     `json:"statusLabel"`
	StatusType  StatusType `json:"statusType"`
	Message     *string    `json:"message"`
	TimeOfDay   string     `json:"timeOfDay"`
}

// Status returns the classification fields as a StatusResult.
func (e EnhancedRecord) Status() StatusResult {
	return StatusResult{
		Direction:   e.Direction,
		StatusLabel: e.StatusLabel,
		StatusType:  e.StatusType,
		Message:     e.Message,
		TimeOfDay:   e.TimeOfDay,
	}
}

// Raw strips the classification fields.
func (e EnhancedRecord) Raw() RawRecord {
	return e.RawRecord
}

// DaySummary describes one student's attendance on one calendar day.
type DaySummary struct {
	StudentID       string        `json:"studentId,omitempty"`
	Date            string        `json:"date,omitempty"`
	Present         bool          `json:"present"`
	FirstCheckIn    *time.Time    `json:"firstCheckIn"`
	LastCheckOut    *time.Time    `json:"lastCheckOut"`
	ArrivalStatus   *StatusResult `json:"arrivalStatus"`
	DepartureStatus *StatusResult `json:"departureStatus"`
	TotalDuration   *string       `json:"totalDuration"`
	DurationMinutes *int          `json:"durationMinutes"`
	DurationAnomaly bool          `json:"durationAnomaly,omitempty"`
	CheckInCount    int           `json:"checkInCount"`
	CheckOutCount   int           `json:"checkOutCount"`
}

// PeriodSummary aggregates statuses over an arbitrary record set.
type PeriodSummary struct {
	Total           int `json:"total"`
	OnTime          int `json:"onTime"`
	Late            int `json:"late"`
	EarlyDeparture  int `json:"earlyDeparture"`
	PunctualityRate int `json:"punctualityRate"`

	CheckIns        int `json:"checkIns"`
	CheckOuts       int `json:"checkOuts"`
	EarlyArrival    int `json:"earlyArrival"`
	NormalDeparture int `json:"normalDeparture"`
	AfterHours      int `json:"afterHours"`
}

// DayBucket holds one student's scans for one calendar day.
type DayBucket struct {
	StudentID string
	Date      string
	Records   []RawRecord
}

// Enhance classifies every record, preserving length and order.
func Enhance(records []RawRecord, policy *TimePolicy) []EnhancedRecord {
	out := make([]EnhancedRecord, len(records))
	for i, record := range records {
		status := Classify(record.Timestamp, record.Direction, policy)
		out[i] = EnhancedRecord{
			RawRecord:   record,
			StatusLabel: status.StatusLabel,
			StatusType:  status.StatusType,
			Message:     status.Message,
			TimeOfDay:   status.TimeOfDay,
		}
	}
	return out
}

// Raws strips classification fields from a slice of enhanced records.
func Raws(records []EnhancedRecord) []RawRecord {
	out := make([]RawRecord, len(records))
	for i, record := range records {
		out[i] = record.RawRecord
	}
	return out
}

// SummarizeDay folds one student-day of scans into a DaySummary. The caller
// pre-filters to a single student and date; ordering is not assumed.
func SummarizeDay(records []RawRecord, policy *TimePolicy) DaySummary {
	var (
		summary  DaySummary
		firstIn  *time.Time
		lastOut  *time.Time
		keyFound bool
	)
	for i := range records {
		record := records[i]
		if !record.usable() {
			continue
		}
		if !keyFound {
			summary.StudentID = record.StudentID
			summary.Date = record.Timestamp.Format(DateLayout)
			keyFound = true
		}
		ts := record.Timestamp
		switch record.Direction {
		case DirectionIn:
			summary.CheckInCount++
			if firstIn == nil || ts.Before(*firstIn) {
				firstIn = &ts
			}
		case DirectionOut:
			summary.CheckOutCount++
			if lastOut == nil || ts.After(*lastOut) {
				lastOut = &ts
			}
		}
	}

	summary.Present = summary.CheckInCount > 0
	summary.FirstCheckIn = firstIn
	summary.LastCheckOut = lastOut
	if firstIn != nil {
		status := Classify(*firstIn, DirectionIn, policy)
		summary.ArrivalStatus = &status
	}
	if lastOut != nil {
		status := Classify(*lastOut, DirectionOut, policy)
		summary.DepartureStatus = &status
	}
	if firstIn != nil && lastOut != nil {
		// A check-out before the first check-in is a data anomaly; no duration is reported.
		if lastOut.Before(*firstIn) {
			summary.DurationAnomaly = true
		} else {
			minutes := int(lastOut.Sub(*firstIn) / time.Minute)
			formatted := FormatDuration(minutes)
			summary.DurationMinutes = &minutes
			summary.TotalDuration = &formatted
		}
	}
	return summary
}

// FormatDuration renders whole minutes as "{h}h {m}m".
func FormatDuration(minutes int) string {
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// SummarizePeriod counts statuses across records. Records without a usable
// timestamp or direction are skipped; the punctuality rate is the rounded
// percentage of check-ins that are on time, 0 when there are none.
func SummarizePeriod(records []EnhancedRecord) PeriodSummary {
	var summary PeriodSummary
	for _, record := range records {
		if !record.usable() {
			continue
		}
		summary.Total++
		if record.Direction == DirectionIn {
			summary.CheckIns++
		} else {
			summary.CheckOuts++
		}
		switch record.StatusType {
		case StatusOnTime:
			summary.OnTime++
		case StatusLate:
			summary.Late++
		case StatusEarlyDeparture:
			summary.EarlyDeparture++
		case StatusEarlyArrival:
			summary.EarlyArrival++
		case StatusNormalDeparture:
			summary.NormalDeparture++
		case StatusAfterHours:
			summary.AfterHours++
		}
	}
	if summary.CheckIns > 0 {
		summary.PunctualityRate = int(math.Round(float64(summary.OnTime) / float64(summary.CheckIns) * 100))
	}
	return summary
}

// BucketByStudentDay groups usable records by student and wall-clock date.
// Buckets are ordered by date, then student; records keep their input order.
func BucketByStudentDay(records []RawRecord) []DayBucket {
	type key struct{ student, date string }
	index := make(map[key]int)
	buckets := make([]DayBucket, 0)
	for _, record := range records {
		if !record.usable() {
			continue
		}
		k := key{student: record.StudentID, date: record.Timestamp.Format(DateLayout)}
		pos, ok := index[k]
		if !ok {
			pos = len(buckets)
			index[k] = pos
			buckets = append(buckets, DayBucket{StudentID: k.student, Date: k.date})
		}
		buckets[pos].Records = append(buckets[pos].Records, record)
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].Date != buckets[j].Date {
			return buckets[i].Date < buckets[j].Date
		}
		return buckets[i].StudentID < buckets[j].StudentID
	})
	return buckets
}

// SummarizeDays buckets records per student-day and summarises each bucket.
func SummarizeDays(records []RawRecord, policy *TimePolicy) []DaySummary {
	buckets := BucketByStudentDay(records)
	out := make([]DaySummary, 0, len(buckets))
	for _, bucket := range buckets {
		summary := SummarizeDay(bucket.Records, policy)
		summary.StudentID = bucket.StudentID
		summary.Date = bucket.Date
		out = append(out, summary)
	}
	return out
}
