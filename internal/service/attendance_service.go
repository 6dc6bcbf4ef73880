package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scan-attendance/internal/attendance"
	"github.com/noah-isme/sma-scan-attendance/internal/dto"
	"github.com/noah-isme/sma-scan-attendance/internal/models"
	appErrors "github.com/noah-isme/sma-scan-attendance/pkg/errors"
)

type policyResolver interface {
	Get(ctx context.Context, schoolID string) (*models.ResolvedPolicy, error)
	ParseInput(input dto.PolicyInput) (*attendance.TimePolicy, error)
}

type scanLister interface {
	ListAll(ctx context.Context, filter models.ScanFilter) ([]models.ScanRecord, error)
}

// AttendanceServiceConfig bounds stored-scan queries.
type AttendanceServiceConfig struct {
	MaxRangeDays int
}

// ClassificationMeta describes how a classification request was served.
type ClassificationMeta struct {
	PolicySource models.PolicySource   `json:"policySource"`
	Issues       []models.ScanRejection `json:"issues,omitempty"`
}

// AttendanceService applies time policies to scan records.
type AttendanceService struct {
	policies  policyResolver
	scans     scanLister
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AttendanceServiceConfig
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(policies policyResolver, scans scanLister, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg AttendanceServiceConfig) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	RegisterClockValidation(validate)
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = 31
	}
	return &AttendanceService{policies: policies, scans: scans, metrics: metrics, validator: validate, logger: logger, cfg: cfg}
}

// ResolvePolicy picks the inline policy when given, otherwise the school's.
func (s *AttendanceService) ResolvePolicy(ctx context.Context, inline *dto.PolicyInput, schoolID string) (*attendance.TimePolicy, models.PolicySource, error) {
	if inline != nil {
		policy, err := s.policies.ParseInput(*inline)
		if err != nil {
			return nil, "", err
		}
		return policy, models.PolicySourceInline, nil
	}
	if schoolID == "" {
		return nil, models.PolicySourceNone, nil
	}
	resolved, err := s.policies.Get(ctx, schoolID)
	if err != nil {
		return nil, "", err
	}
	return resolved.Policy, resolved.Source, nil
}

// Classify classifies a single scan.
func (s *AttendanceService) Classify(ctx context.Context, req dto.ClassifyRequest) (*attendance.StatusResult, *ClassificationMeta, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classify request")
	}
	ts, err := dto.ParseTimestamp(req.Timestamp)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	policy, source, err := s.ResolvePolicy(ctx, req.Policy, req.SchoolID)
	if err != nil {
		return nil, nil, err
	}
	direction, _ := attendance.ParseDirection(req.Direction)
	result := attendance.Classify(ts, direction, policy)
	s.metrics.RecordClassification(result)
	return &result, &ClassificationMeta{PolicySource: source}, nil
}

// Enhance classifies every record, preserving order and length.
func (s *AttendanceService) Enhance(ctx context.Context, req dto.RecordsRequest) ([]attendance.EnhancedRecord, *ClassificationMeta, error) {
	records, meta, policy, err := s.prepare(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	return s.enhance(records, policy), meta, nil
}

// SummarizeDay summarises the records as one student's day.
func (s *AttendanceService) SummarizeDay(ctx context.Context, req dto.RecordsRequest) (*attendance.DaySummary, *ClassificationMeta, error) {
	records, meta, policy, err := s.prepare(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	summary := attendance.SummarizeDay(records, policy)
	return &summary, meta, nil
}

// SummarizePeriod classifies the records and counts their statuses.
func (s *AttendanceService) SummarizePeriod(ctx context.Context, req dto.RecordsRequest) (*attendance.PeriodSummary, *ClassificationMeta, error) {
	records, meta, policy, err := s.prepare(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	summary := attendance.SummarizePeriod(s.enhance(records, policy))
	return &summary, meta, nil
}

// DailySummaries loads stored scans for an inclusive date range and
// summarises each student-day, along with a period summary of all scans.
func (s *AttendanceService) DailySummaries(ctx context.Context, query dto.DailySummaryQuery) (*dto.DailySummaryResponse, *ClassificationMeta, error) {
	if query.SchoolID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "schoolId is required")
	}
	if err := s.checkRange(query.From, query.To); err != nil {
		return nil, nil, err
	}
	policy, source, err := s.ResolvePolicy(ctx, nil, query.SchoolID)
	if err != nil {
		return nil, nil, err
	}

	from := startOfDay(query.From)
	to := startOfDay(query.To).AddDate(0, 0, 1)
	rows, err := s.scans.ListAll(ctx, models.ScanFilter{
		SchoolID:  query.SchoolID,
		StudentID: query.StudentID,
		DateFrom:  &from,
		DateTo:    &to,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scans")
	}

	records := models.ScanRecords(rows)
	days := attendance.SummarizeDays(records, policy)
	if days == nil {
		days = []attendance.DaySummary{}
	}
	s.logger.Debug("daily summaries computed",
		zap.String("school_id", query.SchoolID),
		zap.Int("scans", len(records)),
		zap.Int("days", len(days)),
	)
	return &dto.DailySummaryResponse{
		Days:   days,
		Period: attendance.SummarizePeriod(s.enhance(records, policy)),
	}, &ClassificationMeta{PolicySource: source}, nil
}

// Statuses lists every status type with its presentation.
func (s *AttendanceService) Statuses() []dto.StatusDescriptor {
	out := make([]dto.StatusDescriptor, 0, len(attendance.StatusTypes))
	for _, status := range attendance.StatusTypes {
		p := status.Presentation()
		out = append(out, dto.StatusDescriptor{StatusType: status, Style: p.Style, Icon: p.Icon})
	}
	return out
}

func (s *AttendanceService) prepare(ctx context.Context, req dto.RecordsRequest) ([]attendance.RawRecord, *ClassificationMeta, *attendance.TimePolicy, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("records must contain at most %d items", dto.MaxRecordsPerRequest))
	}
	policy, source, err := s.ResolvePolicy(ctx, req.Policy, req.SchoolID)
	if err != nil {
		return nil, nil, nil, err
	}
	records, issues := dto.RawRecords(req.Records)
	return records, &ClassificationMeta{PolicySource: source, Issues: issues}, policy, nil
}

func (s *AttendanceService) enhance(records []attendance.RawRecord, policy *attendance.TimePolicy) []attendance.EnhancedRecord {
	enhanced := attendance.Enhance(records, policy)
	for i := range enhanced {
		s.metrics.RecordClassification(enhanced[i].Status())
	}
	return enhanced
}

func (s *AttendanceService) checkRange(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return appErrors.Clone(appErrors.ErrValidation, "from and to are required")
	}
	return checkDateRange(from, to, s.cfg.MaxRangeDays)
}

// checkDateRange bounds an inclusive day range to maxDays.
func checkDateRange(from, to time.Time, maxDays int) error {
	if to.Before(from) {
		return appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	days := int(startOfDay(to).Sub(startOfDay(from)).Hours()/24) + 1
	if days > maxDays {
		return appErrors.Clone(appErrors.ErrRangeTooWide, fmt.Sprintf("range covers %d days, maximum is %d", days, maxDays))
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
