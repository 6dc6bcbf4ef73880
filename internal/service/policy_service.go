package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scan-attendance/internal/attendance"
	"github.com/noah-isme/sma-scan-attendance/internal/dto"
	"github.com/noah-isme/sma-scan-attendance/internal/models"
	appErrors "github.com/noah-isme/sma-scan-attendance/pkg/errors"
)

type policyRepository interface {
	FindBySchool(ctx context.Context, schoolID string) (*models.SchoolTimePolicy, error)
	Upsert(ctx context.Context, policy *models.SchoolTimePolicy) error
}

type policyCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Invalidate(ctx context.Context, pattern string) error
}

// PolicyServiceConfig controls caching and the fallback policy.
type PolicyServiceConfig struct {
	CacheTTL time.Duration
	// Default applies to schools without a stored policy. Nil disables it.
	Default *attendance.TimePolicy
}

// PolicyService resolves and maintains per-school time policies.
type PolicyService struct {
	repo      policyRepository
	cache     policyCache
	validator *validator.Validate
	logger    *zap.Logger
	cfg       PolicyServiceConfig
}

// NewPolicyService constructs the service and registers the clock validator.
func NewPolicyService(repo policyRepository, cache policyCache, validate *validator.Validate, logger *zap.Logger, cfg PolicyServiceConfig) *PolicyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &PolicyService{repo: repo, cache: cache, validator: validate, logger: logger, cfg: cfg}
	RegisterClockValidation(svc.validator)
	return svc
}

// RegisterClockValidation adds the "clock" tag accepting HH:MM or HH:MM:SS.
func RegisterClockValidation(v *validator.Validate) {
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := attendance.ParseClock(fl.Field().String())
		return err == nil
	})
}

// Get resolves the policy for a school: cache, then the store, then the
// configured default. A school with none of these resolves to
// PolicySourceNone and a nil policy.
func (s *PolicyService) Get(ctx context.Context, schoolID string) (*models.ResolvedPolicy, error) {
	if schoolID == "" {
		return s.fallback(schoolID), nil
	}
	key := PolicyCacheKey(schoolID)
	if s.cache != nil {
		var cached models.ResolvedPolicy
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	resolved, err := s.load(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, resolved, s.cfg.CacheTTL)
	}
	return resolved, nil
}

func (s *PolicyService) load(ctx context.Context, schoolID string) (*models.ResolvedPolicy, error) {
	row, err := s.repo.FindBySchool(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.fallback(schoolID), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time policy")
	}
	policy, err := row.TimePolicy()
	if err != nil {
		s.logger.Warn("stored time policy unreadable, using fallback",
			zap.String("school_id", schoolID),
			zap.Error(err),
		)
		return s.fallback(schoolID), nil
	}
	updatedAt := row.UpdatedAt
	return &models.ResolvedPolicy{
		SchoolID:  schoolID,
		Source:    models.PolicySourceSchool,
		Policy:    policy,
		UpdatedAt: &updatedAt,
	}, nil
}

func (s *PolicyService) fallback(schoolID string) *models.ResolvedPolicy {
	if s.cfg.Default == nil {
		return &models.ResolvedPolicy{SchoolID: schoolID, Source: models.PolicySourceNone}
	}
	policy := *s.cfg.Default
	return &models.ResolvedPolicy{SchoolID: schoolID, Source: models.PolicySourceDefault, Policy: &policy}
}

// Update validates and stores a school's policy, then drops its cache entry.
func (s *PolicyService) Update(ctx context.Context, schoolID string, req dto.UpdatePolicyRequest, actor string) (*models.ResolvedPolicy, error) {
	if schoolID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schoolId is required")
	}
	policy, err := s.ParseInput(req.PolicyInput)
	if err != nil {
		return nil, err
	}

	row := models.NewSchoolTimePolicy(schoolID, *policy)
	if actor != "" {
		row.UpdatedBy = &actor
	}
	if err := s.repo.Upsert(ctx, &row); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save time policy")
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, PolicyCacheKey(schoolID)); err != nil {
			s.logger.Warn("policy cache invalidation failed", zap.String("school_id", schoolID), zap.Error(err))
		}
	}
	s.logger.Info("time policy updated",
		zap.String("school_id", schoolID),
		zap.String("actor", actor),
		zap.Stringer("school_start", policy.SchoolStartTime),
		zap.Stringer("school_end", policy.SchoolEndTime),
	)

	updatedAt := row.UpdatedAt
	return &models.ResolvedPolicy{SchoolID: schoolID, Source: models.PolicySourceSchool, Policy: policy, UpdatedAt: &updatedAt}, nil
}

// ResetCache drops every cached policy. Run at startup so entries resolved
// against a previous default policy do not outlive a configuration change.
func (s *PolicyService) ResetCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, policyCachePrefix+"*")
}

// ParseInput validates field syntax and ordering of a submitted policy.
func (s *PolicyService) ParseInput(input dto.PolicyInput) (*attendance.TimePolicy, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "policy times must be HH:MM")
	}
	policy, err := input.Parse()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if err := policy.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidPolicy.Code, appErrors.ErrInvalidPolicy.Status, err.Error())
	}
	return policy, nil
}
