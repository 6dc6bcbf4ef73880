package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scan-attendance/internal/attendance"
	"github.com/noah-isme/sma-scan-attendance/internal/dto"
	"github.com/noah-isme/sma-scan-attendance/internal/models"
	appErrors "github.com/noah-isme/sma-scan-attendance/pkg/errors"
)

type scanStore interface {
	List(ctx context.Context, filter models.ScanFilter) ([]models.ScanRecord, int, error)
	BulkInsert(ctx context.Context, scans []models.ScanRecord) (inserted int, duplicates int, err error)
}

type schoolPolicyGetter interface {
	Get(ctx context.Context, schoolID string) (*models.ResolvedPolicy, error)
}

// ScanServiceConfig bounds scan list queries.
type ScanServiceConfig struct {
	MaxRangeDays int
}

// ScanService ingests and lists stored scanner events.
type ScanService struct {
	repo      scanStore
	policies  schoolPolicyGetter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ScanServiceConfig
}

// NewScanService constructs the scan service.
func NewScanService(repo scanStore, policies schoolPolicyGetter, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ScanServiceConfig) *ScanService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = 31
	}
	return &ScanService{repo: repo, policies: policies, metrics: metrics, validator: validate, logger: logger, cfg: cfg}
}

// Ingest stores the well-formed scans of a batch. Items without a student,
// a known direction or a parseable timestamp are returned as rejections and
// do not fail the batch.
func (s *ScanService) Ingest(ctx context.Context, schoolID string, req dto.IngestScansRequest) (*models.ScanIngestResult, error) {
	if strings.TrimSpace(schoolID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schoolId is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "scans must contain between 1 and 5000 items")
	}

	result := &models.ScanIngestResult{Rejected: []models.ScanRejection{}}
	accepted := make([]models.ScanRecord, 0, len(req.Scans))
	for i, payload := range req.Scans {
		if payload.StudentID == "" {
			result.Rejected = append(result.Rejected, models.ScanRejection{Index: i, Reason: "missing student id"})
			continue
		}
		record, err := payload.ToRaw()
		if err != nil {
			result.Rejected = append(result.Rejected, models.ScanRejection{Index: i, StudentID: payload.StudentID, Reason: err.Error()})
			continue
		}
		accepted = append(accepted, models.ScanRecord{
			SchoolID:  schoolID,
			StudentID: record.StudentID,
			Direction: string(record.Direction),
			ScanTime:  record.Timestamp,
			DeviceID:  payload.DeviceID,
		})
	}

	inserted, duplicates, err := s.repo.BulkInsert(ctx, accepted)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store scans")
	}
	result.Accepted = inserted
	result.Duplicates = duplicates
	s.metrics.RecordIngest(inserted, duplicates, len(result.Rejected))
	s.logger.Info("scans ingested",
		zap.String("school_id", schoolID),
		zap.Int("accepted", inserted),
		zap.Int("duplicates", duplicates),
		zap.Int("rejected", len(result.Rejected)),
	)
	return result, nil
}

// List returns a page of stored scans classified with the school's policy.
func (s *ScanService) List(ctx context.Context, query dto.ScanListQuery) ([]dto.ScanView, *models.Pagination, *ClassificationMeta, error) {
	if query.SchoolID == "" {
		return nil, nil, nil, appErrors.Clone(appErrors.ErrValidation, "schoolId is required")
	}
	if query.Direction != "" {
		if _, ok := attendance.ParseDirection(query.Direction); !ok {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrValidation, "direction must be IN or OUT")
		}
	}
	if query.From != nil && query.To != nil {
		if err := checkDateRange(*query.From, *query.To, s.cfg.MaxRangeDays); err != nil {
			return nil, nil, nil, err
		}
	}
	resolved, err := s.policies.Get(ctx, query.SchoolID)
	if err != nil {
		return nil, nil, nil, err
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 || size > 500 {
		size = 100
	}
	filter := models.ScanFilter{
		SchoolID:  query.SchoolID,
		StudentID: query.StudentID,
		Direction: query.Direction,
		DateFrom:  query.From,
		Page:      page,
		PageSize:  size,
		SortOrder: query.SortOrder,
	}
	if query.To != nil {
		end := startOfDay(*query.To).AddDate(0, 0, 1)
		filter.DateTo = &end
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scans")
	}

	enhanced := attendance.Enhance(models.ScanRecords(rows), resolved.Policy)
	views := make([]dto.ScanView, len(rows))
	for i := range rows {
		views[i] = dto.ScanView{EnhancedRecord: enhanced[i], DeviceID: rows[i].DeviceID}
	}
	return views, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, &ClassificationMeta{PolicySource: resolved.Source}, nil
}
