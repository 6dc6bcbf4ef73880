package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-scan-attendance/internal/attendance"
	"github.com/noah-isme/sma-scan-attendance/internal/models"
	"github.com/noah-isme/sma-scan-attendance/pkg/export"
	"github.com/noah-isme/sma-scan-attendance/pkg/storage"
)

var dailySummaryHeaders = []string{"Date", "Student", "First In", "Arrival", "Last Out", "Departure", "Duration", "Present"}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	Rows         int
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	scans    scanLister
	policies schoolPolicyGetter
	storage  fileStorage
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
	now      func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(scans scanLister, policies schoolPolicyGetter, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		scans:    scans,
		policies: policies,
		storage:  storage,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Generate builds the dataset for the job, renders it and stores the file
// behind a signed download URL.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	format, err := export.ParseFormat(string(job.Params.Format))
	if err != nil {
		return nil, err
	}
	renderer, err := export.RendererFor(format)
	if err != nil {
		return nil, err
	}
	dataset, title, err := s.buildDailySummaryDataset(ctx, job)
	if err != nil {
		return nil, err
	}
	payload, err := renderer.Render(dataset, title)
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job, format), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Params.Format,
		Rows:         len(dataset.Rows),
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (storage.DownloadClaims, error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob, format export.Format) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s/%s_%s_%s_%s.%s",
		sanitizeFilename(job.SchoolID),
		models.ReportTypeDailySummary,
		sanitizeFilename(job.Params.From),
		sanitizeFilename(job.Params.To),
		timestamp,
		format.Extension(),
	)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDailySummaryDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	from, err := time.Parse(attendance.DateLayout, job.Params.From)
	if err != nil {
		return export.Dataset{}, "", fmt.Errorf("report from date: %w", err)
	}
	to, err := time.Parse(attendance.DateLayout, job.Params.To)
	if err != nil {
		return export.Dataset{}, "", fmt.Errorf("report to date: %w", err)
	}
	end := to.AddDate(0, 0, 1)

	resolved, err := s.policies.Get(ctx, job.SchoolID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	filter := models.ScanFilter{SchoolID: job.SchoolID, DateFrom: &from, DateTo: &end}
	if job.Params.StudentID != nil {
		filter.StudentID = *job.Params.StudentID
	}
	rows, err := s.scans.ListAll(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", err
	}

	summaries := attendance.SummarizeDays(models.ScanRecords(rows), resolved.Policy)
	dataRows := make([]map[string]string, 0, len(summaries))
	for _, day := range summaries {
		dataRows = append(dataRows, dailySummaryRow(day))
	}
	title := fmt.Sprintf("Daily Attendance %s %s to %s", job.SchoolID, job.Params.From, job.Params.To)
	return export.Dataset{Headers: dailySummaryHeaders, Rows: dataRows}, title, nil
}

func dailySummaryRow(day attendance.DaySummary) map[string]string {
	row := map[string]string{
		"Date":    day.Date,
		"Student": day.StudentID,
		"Present": "No",
	}
	if day.Present {
		row["Present"] = "Yes"
	}
	if day.FirstCheckIn != nil {
		row["First In"] = attendance.ClockOf(*day.FirstCheckIn).String()
	}
	if day.ArrivalStatus != nil {
		row["Arrival"] = day.ArrivalStatus.StatusLabel
	}
	if day.LastCheckOut != nil {
		row["Last Out"] = attendance.ClockOf(*day.LastCheckOut).String()
	}
	if day.DepartureStatus != nil {
		row["Departure"] = day.DepartureStatus.StatusLabel
	}
	switch {
	case day.TotalDuration != nil:
		row["Duration"] = *day.TotalDuration
	case day.DurationAnomaly:
		row["Duration"] = "check-out before check-in"
	}
	return row
}
