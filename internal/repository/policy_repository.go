package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scan-attendance/internal/models"
)

// PolicyRepository persists per-school time policies.
type PolicyRepository struct {
	db *sqlx.DB
}

// NewPolicyRepository constructs the repository.
func NewPolicyRepository(db *sqlx.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

// FindBySchool fetches the stored policy for a school. A missing row surfaces
// as sql.ErrNoRows.
func (r *PolicyRepository) FindBySchool(ctx context.Context, schoolID string) (*models.SchoolTimePolicy, error) {
	const query = `SELECT school_id, school_start_time, school_end_time, late_arrival_threshold,
       early_departure_threshold, updated_by, updated_at
FROM school_time_policies WHERE school_id = $1`
	var policy models.SchoolTimePolicy
	if err := r.db.GetContext(ctx, &policy, query, schoolID); err != nil {
		return nil, err
	}
	return &policy, nil
}

// Upsert inserts or replaces the policy for its school.
func (r *PolicyRepository) Upsert(ctx context.Context, policy *models.SchoolTimePolicy) error {
	const query = `INSERT INTO school_time_policies (school_id, school_start_time, school_end_time,
       late_arrival_threshold, early_departure_threshold, updated_by, updated_at)
VALUES (:school_id, :school_start_time, :school_end_time, :late_arrival_threshold,
        :early_departure_threshold, :updated_by, :updated_at)
ON CONFLICT (school_id)
DO UPDATE SET school_start_time = EXCLUDED.school_start_time, school_end_time = EXCLUDED.school_end_time,
              late_arrival_threshold = EXCLUDED.late_arrival_threshold,
              early_departure_threshold = EXCLUDED.early_departure_threshold,
              updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	policy.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, query, policy); err != nil {
		return fmt.Errorf("upsert school time policy: %w", err)
	}
	return nil
}
