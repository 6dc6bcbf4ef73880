package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scan-attendance/internal/attendance"
	"github.com/noah-isme/sma-scan-attendance/internal/dto"
	"github.com/noah-isme/sma-scan-attendance/internal/models"
	appErrors "github.com/noah-isme/sma-scan-attendance/pkg/errors"
)

func newScanServiceForTest(store *scanStoreStub) (*ScanService, *MetricsService) {
	metrics := NewMetricsService()
	policies := &policyGetterStub{resolved: &models.ResolvedPolicy{SchoolID: "sch-1", Source: models.PolicySourceSchool, Policy: testTimePolicy()}}
	return NewScanService(store, policies, metrics, nil, zap.NewNop(), ScanServiceConfig{MaxRangeDays: 31}), metrics
}

func TestScanServiceIngest(t *testing.T) {
	store := &scanStoreStub{dupes: 1}
	svc, metrics := newScanServiceForTest(store)
	device := "gate-1"
	result, err := svc.Ingest(context.Background(), "sch-1", dto.IngestScansRequest{Scans: []dto.ScanPayload{
		{StudentID: "stu-1", Direction: "IN", Timestamp: "2024-03-04T07:55:00", DeviceID: &device},
		{StudentID: "stu-1", Direction: "IN", Timestamp: "2024-03-04T07:55:00"},
		{StudentID: "", Direction: "IN", Timestamp: "2024-03-04T07:55:00"},
		{StudentID: "stu-2", Direction: "LEFT", Timestamp: "2024-03-04T07:55:00"},
		{StudentID: "stu-3", Direction: "OUT", Timestamp: ""},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Accepted)
	assert.Equal(t, 1, result.Duplicates)
	require.Len(t, result.Rejected, 3)
	assert.Equal(t, 2, result.Rejected[0].Index)
	assert.Equal(t, "stu-2", result.Rejected[1].StudentID)
	assert.Contains(t, result.Rejected[2].Reason, "missing timestamp")

	require.Len(t, store.inserted, 2)
	assert.Equal(t, "sch-1", store.inserted[0].SchoolID)
	assert.Equal(t, "IN", store.inserted[0].Direction)
	assert.Equal(t, time.Date(2024, 3, 4, 7, 55, 0, 0, time.UTC), store.inserted[0].ScanTime)
	require.NotNil(t, store.inserted[0].DeviceID)

	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.scansIngested.WithLabelValues("rejected")))
}

func TestScanServiceIngestValidation(t *testing.T) {
	store := &scanStoreStub{}
	svc, _ := newScanServiceForTest(store)

	_, err := svc.Ingest(context.Background(), " ", dto.IngestScansRequest{Scans: []dto.ScanPayload{{StudentID: "stu-1"}}})
	assert.Equal(t, http.StatusBadRequest, appErrorStatus(t, err))

	_, err = svc.Ingest(context.Background(), "sch-1", dto.IngestScansRequest{})
	assert.Equal(t, http.StatusBadRequest, appErrorStatus(t, err))

	store.insertErr = errors.New("db down")
	_, err = svc.Ingest(context.Background(), "sch-1", dto.IngestScansRequest{Scans: []dto.ScanPayload{{StudentID: "stu-1", Direction: "IN", Timestamp: "1709538900"}}})
	assert.Equal(t, http.StatusInternalServerError, appErrorStatus(t, err))
}

func TestScanServiceList(t *testing.T) {
	store := exportScans()
	svc, _ := newScanServiceForTest(store)
	from := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	views, pagination, meta, err := svc.List(context.Background(), dto.ScanListQuery{
		SchoolID: "sch-1",
		From:     &from,
		To:       &to,
		PageSize: 2,
	})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, 3, pagination.TotalCount)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, models.PolicySourceSchool, meta.PolicySource)
	assert.Equal(t, attendance.StatusOnTime, views[0].StatusType)
	assert.Equal(t, "08:10", views[0].TimeOfDay)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), *store.filters[0].DateTo)
}

func TestScanServiceListDefaultsAndValidation(t *testing.T) {
	store := exportScans()
	svc, _ := newScanServiceForTest(store)

	_, pagination, _, err := svc.List(context.Background(), dto.ScanListQuery{SchoolID: "sch-1", PageSize: 9000})
	require.NoError(t, err)
	assert.Equal(t, 100, pagination.PageSize)
	assert.Equal(t, 6, pagination.TotalCount)

	_, _, _, err = svc.List(context.Background(), dto.ScanListQuery{})
	assert.Equal(t, http.StatusBadRequest, appErrorStatus(t, err))

	_, _, _, err = svc.List(context.Background(), dto.ScanListQuery{SchoolID: "sch-1", Direction: "UP"})
	assert.Equal(t, http.StatusBadRequest, appErrorStatus(t, err))

	later := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, _, _, err = svc.List(context.Background(), dto.ScanListQuery{SchoolID: "sch-1", From: &later, To: &earlier})
	assert.Equal(t, http.StatusBadRequest, appErrorStatus(t, err))

	tooLate := earlier.AddDate(0, 0, 31)
	_, _, _, err = svc.List(context.Background(), dto.ScanListQuery{SchoolID: "sch-1", From: &earlier, To: &tooLate})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrRangeTooWide.Code, appErr.Code)

	lastDay := earlier.AddDate(0, 0, 30)
	_, _, _, err = svc.List(context.Background(), dto.ScanListQuery{SchoolID: "sch-1", From: &earlier, To: &lastDay})
	assert.NoError(t, err)
}
