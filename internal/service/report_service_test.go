package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scan-attendance/internal/dto"
	"github.com/noah-isme/sma-scan-attendance/internal/models"
	"github.com/noah-isme/sma-scan-attendance/internal/repository"
	appErrors "github.com/noah-isme/sma-scan-attendance/pkg/errors"
	"github.com/noah-isme/sma-scan-attendance/pkg/jobs"
	"github.com/noah-isme/sma-scan-attendance/pkg/storage"
)

type reportRepoStub struct {
	mu       sync.Mutex
	jobs     map[string]*models.ReportJob
	finished []models.ReportJob
	listErr  error

	// processingErr fails every transition to PROCESSING.
	processingErr error
}

func newReportRepoStub() *reportRepoStub {
	return &reportRepoStub{jobs: map[string]*models.ReportJob{}}
}

func (r *reportRepoStub) Create(_ context.Context, job *models.ReportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *reportRepoStub) GetByID(_ context.Context, id string) (*models.ReportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (r *reportRepoStub) Update(_ context.Context, id string, params repository.UpdateReportJobParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if r.processingErr != nil && params.Status != nil && *params.Status == models.ReportStatusProcessing {
		return r.processingErr
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *reportRepoStub) ListPending(_ context.Context, _ int) ([]models.ReportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var pending []models.ReportJob
	for _, job := range r.jobs {
		if !job.Status.Terminal() {
			pending = append(pending, *job)
		}
	}
	return pending, nil
}

func (r *reportRepoStub) ListFinishedBefore(_ context.Context, _ time.Time, _ int) ([]models.ReportJob, error) {
	return r.finished, nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type exportFilesStub struct {
	claims   storage.DownloadClaims
	parseErr error
	deleted  []string
	cleaned  int
}

func (e *exportFilesStub) ParseToken(string, bool) (storage.DownloadClaims, error) {
	return e.claims, e.parseErr
}

func (e *exportFilesStub) Open(string) (*os.File, error) {
	return nil, os.ErrNotExist
}

func (e *exportFilesStub) Delete(relPath string) error {
	e.deleted = append(e.deleted, relPath)
	return nil
}

func (e *exportFilesStub) Cleanup(time.Duration) ([]string, error) {
	e.cleaned++
	return nil, nil
}

func newReportServiceForTest(files exportFiles) (*ReportService, *reportRepoStub, *queueStub) {
	repo := newReportRepoStub()
	queue := &queueStub{}
	svc := NewReportService(repo, queue, files, nil, zap.NewNop(), ReportServiceConfig{
		ResultTTL:       time.Hour,
		CleanupInterval: time.Hour,
		MaxRangeDays:    31,
	})
	return svc, repo, queue
}

func validReportRequest() dto.ReportRequest {
	return dto.ReportRequest{SchoolID: "sch-1", From: "2024-03-01", To: "2024-03-31", Format: models.ReportFormatCSV}
}

func appErrorStatus(t *testing.T, err error) int {
	t.Helper()
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected app error, got %v", err)
	return appErr.Status
}

func TestReportServiceCreateJob(t *testing.T) {
	svc, repo, queue := newReportServiceForTest(&exportFilesStub{})
	resp, err := svc.CreateJob(context.Background(), validReportRequest(), "ops")
	require.NoError(t, err)
	require.NotEmpty(t, resp.ID)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypeReport, queue.jobs[0].Type)
	stored := repo.jobs[resp.ID]
	require.NotNil(t, stored)
	assert.Equal(t, models.ReportTypeDailySummary, stored.Params.Type)
	assert.Equal(t, "ops", stored.CreatedBy)
}

func TestReportServiceCreateJobValidation(t *testing.T) {
	svc, _, queue := newReportServiceForTest(&exportFilesStub{})
	cases := map[string]struct {
		mutate func(*dto.ReportRequest)
		status int
	}{
		"missing school":  {func(r *dto.ReportRequest) { r.SchoolID = "" }, http.StatusBadRequest},
		"bad date":        {func(r *dto.ReportRequest) { r.From = "01/03/2024" }, http.StatusBadRequest},
		"bad format":      {func(r *dto.ReportRequest) { r.Format = "docx" }, http.StatusBadRequest},
		"unknown type":    {func(r *dto.ReportRequest) { r.Type = "grades" }, http.StatusBadRequest},
		"reversed range":  {func(r *dto.ReportRequest) { r.From, r.To = r.To, r.From }, http.StatusBadRequest},
		"range too large": {func(r *dto.ReportRequest) { r.To = "2024-04-01" }, http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := validReportRequest()
			tc.mutate(&req)
			_, err := svc.CreateJob(context.Background(), req, "ops")
			require.Error(t, err)
			assert.Equal(t, tc.status, appErrorStatus(t, err))
		})
	}
	assert.Empty(t, queue.jobs)
}

func TestReportServiceCreateJobRangeCode(t *testing.T) {
	svc, _, _ := newReportServiceForTest(&exportFilesStub{})
	req := validReportRequest()
	req.To = "2024-05-01"
	_, err := svc.CreateJob(context.Background(), req, "")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrRangeTooWide.Code, appErr.Code)
}

func TestReportServiceCreateJobEnqueueFailure(t *testing.T) {
	svc, repo, queue := newReportServiceForTest(&exportFilesStub{})
	queue.err = errors.New("queue full")
	_, err := svc.CreateJob(context.Background(), validReportRequest(), "ops")
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, appErrorStatus(t, err))
	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ReportStatusFailed, job.Status)
		assert.NotNil(t, job.FinishedAt)
	}
}

func TestReportServiceGetStatus(t *testing.T) {
	svc, repo, _ := newReportServiceForTest(&exportFilesStub{})
	msg := "boom"
	repo.jobs["job-1"] = &models.ReportJob{
		ID:           "job-1",
		SchoolID:     "sch-1",
		Params:       models.ReportJobParams{Format: models.ReportFormatPDF},
		Status:       models.ReportStatusFailed,
		Progress:     100,
		ErrorMessage: &msg,
	}
	resp, err := svc.GetStatus(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFailed, resp.Status)
	assert.Equal(t, models.ReportFormatPDF, resp.Format)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "boom", *resp.Error)

	_, err = svc.GetStatus(context.Background(), "missing")
	assert.Equal(t, http.StatusNotFound, appErrorStatus(t, err))
}

func TestReportServiceResolveDownload(t *testing.T) {
	exporter := newExportServiceForTest(t, exportScans())
	svc, repo, _ := newReportServiceForTest(exporter)
	job := &models.ReportJob{
		ID:       "job-dl",
		SchoolID: "sch-1",
		Params:   models.ReportJobParams{From: "2024-03-04", To: "2024-03-04", Format: models.ReportFormatCSV},
		Status:   models.ReportStatusFinished,
	}
	repo.jobs[job.ID] = job
	result, err := exporter.Generate(context.Background(), job)
	require.NoError(t, err)
	job.ResultURL = &result.URL

	download, err := svc.ResolveDownload(context.Background(), result.Token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "daily-summary_2024-03-04_2024-03-04_20240306_100000.csv", download.Filename)
	assert.Equal(t, models.ReportFormatCSV, download.Format)

	_, err = svc.ResolveDownload(context.Background(), result.Token+"x")
	assert.Equal(t, http.StatusForbidden, appErrorStatus(t, err))

	other := "/api/v1/export/other"
	job.ResultURL = &other
	_, err = svc.ResolveDownload(context.Background(), result.Token)
	assert.Equal(t, http.StatusForbidden, appErrorStatus(t, err))
}

func TestReportServiceResolveDownloadExpired(t *testing.T) {
	svc, _, _ := newReportServiceForTest(&exportFilesStub{parseErr: storage.ErrTokenExpired})
	_, err := svc.ResolveDownload(context.Background(), "token")
	assert.Equal(t, http.StatusGone, appErrorStatus(t, err))
}

func TestReportServiceResolveDownloadMissingFile(t *testing.T) {
	files := &exportFilesStub{claims: storage.DownloadClaims{ReportID: "job-1", Path: "sch-1/a.csv"}}
	svc, repo, _ := newReportServiceForTest(files)
	url := "/api/v1/export/token"
	repo.jobs["job-1"] = &models.ReportJob{ID: "job-1", Status: models.ReportStatusFinished, ResultURL: &url}
	_, err := svc.ResolveDownload(context.Background(), "token")
	assert.Equal(t, http.StatusGone, appErrorStatus(t, err))
}

func TestReportServiceRecoverPendingJobs(t *testing.T) {
	svc, repo, queue := newReportServiceForTest(&exportFilesStub{})
	repo.jobs["a"] = &models.ReportJob{ID: "a", Status: models.ReportStatusQueued}
	repo.jobs["b"] = &models.ReportJob{ID: "b", Status: models.ReportStatusProcessing}
	repo.jobs["c"] = &models.ReportJob{ID: "c", Status: models.ReportStatusFinished}

	assert.Equal(t, 2, svc.RecoverPendingJobs(context.Background()))
	assert.Len(t, queue.jobs, 2)

	repo.listErr = errors.New("db down")
	assert.Zero(t, svc.RecoverPendingJobs(context.Background()))
}

func TestReportServiceCleanupExpired(t *testing.T) {
	files := &exportFilesStub{claims: storage.DownloadClaims{ReportID: "a", Path: "sch-1/a.csv"}}
	svc, repo, _ := newReportServiceForTest(files)
	url := "/api/v1/export/tok"
	finishedAt := time.Now().Add(-2 * time.Hour)
	repo.finished = []models.ReportJob{
		{ID: "a", ResultURL: &url, FinishedAt: &finishedAt},
		{ID: "b", FinishedAt: &finishedAt},
	}
	svc.cleanupExpired(context.Background())
	assert.Equal(t, []string{"sch-1/a.csv"}, files.deleted)
	assert.Equal(t, 1, files.cleaned)
}

type exportStub struct {
	result *ExportResult
	err    error
}

func (e exportStub) Generate(context.Context, *models.ReportJob) (*ExportResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

type reportMetricsStub struct {
	statuses []models.ReportStatus
}

func (m *reportMetricsStub) RecordReportJob(_ models.ReportFormat, status models.ReportStatus, _ time.Duration) {
	m.statuses = append(m.statuses, status)
}

func queuedJobRepo() *reportRepoStub {
	repo := newReportRepoStub()
	repo.jobs["job-1"] = &models.ReportJob{
		ID:       "job-1",
		SchoolID: "sch-1",
		Params:   models.ReportJobParams{From: "2024-03-01", To: "2024-03-02", Format: models.ReportFormatCSV},
		Status:   models.ReportStatusQueued,
	}
	return repo
}

func TestReportWorkerHandleSuccess(t *testing.T) {
	repo := queuedJobRepo()
	metrics := &reportMetricsStub{}
	worker := NewReportWorker(repo, exportStub{result: &ExportResult{URL: "/api/v1/export/token", Rows: 2}}, metrics, 3, zap.NewNop())

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1}))
	job := repo.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFinished, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.ResultURL)
	assert.Equal(t, "/api/v1/export/token", *job.ResultURL)
	assert.NotNil(t, job.FinishedAt)
	assert.Equal(t, []models.ReportStatus{models.ReportStatusFinished}, metrics.statuses)
}

func TestReportWorkerHandleRetryThenFail(t *testing.T) {
	repo := queuedJobRepo()
	metrics := &reportMetricsStub{}
	worker := NewReportWorker(repo, exportStub{err: errors.New("boom")}, metrics, 2, zap.NewNop())

	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1}))
	assert.Equal(t, models.ReportStatusQueued, repo.jobs["job-1"].Status)
	assert.Empty(t, metrics.statuses)

	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2}))
	job := repo.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "boom", *job.ErrorMessage)
	assert.Equal(t, []models.ReportStatus{models.ReportStatusFailed}, metrics.statuses)
}

func TestReportWorkerSkipsTerminalJobs(t *testing.T) {
	repo := queuedJobRepo()
	repo.jobs["job-1"].Status = models.ReportStatusFinished
	worker := NewReportWorker(repo, exportStub{err: errors.New("should not run")}, nil, 3, nil)
	assert.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1}))
	worker.Exhausted(context.Background(), jobs.Job{ID: "job-1", Attempt: 4}, errors.New("boom"))
	assert.Equal(t, models.ReportStatusFinished, repo.jobs["job-1"].Status)
	assert.Nil(t, repo.jobs["job-1"].ErrorMessage)
}

func TestReportWorkerExhaustedMarksJobFailed(t *testing.T) {
	repo := queuedJobRepo()
	repo.processingErr = errors.New("db unavailable")
	metrics := &reportMetricsStub{}
	worker := NewReportWorker(repo, exportStub{err: errors.New("should not run")}, metrics, 2, zap.NewNop())

	for attempt := 1; attempt <= 3; attempt++ {
		err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: attempt})
		require.ErrorIs(t, err, repo.processingErr)
	}
	assert.Equal(t, models.ReportStatusQueued, repo.jobs["job-1"].Status)

	worker.Exhausted(context.Background(), jobs.Job{ID: "job-1", Attempt: 3}, repo.processingErr)
	job := repo.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFailed, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "db unavailable", *job.ErrorMessage)
	assert.NotNil(t, job.FinishedAt)
	assert.Equal(t, []models.ReportStatus{models.ReportStatusFailed}, metrics.statuses)

	worker.Exhausted(context.Background(), jobs.Job{ID: "missing"}, nil)
}
