package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scan-attendance/internal/models"
)

const scanColumns = "id, school_id, student_id, direction, scan_time, device_id, created_at"

// ScanRepository handles persistence for raw scanner events.
type ScanRepository struct {
	db *sqlx.DB
}

// NewScanRepository constructs the repository.
func NewScanRepository(db *sqlx.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

func buildScanWhere(filter models.ScanFilter) (string, []interface{}) {
	where := []string{"school_id = $1"}
	args := []interface{}{filter.SchoolID}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Direction != "" {
		where = append(where, fmt.Sprintf("direction = $%d", len(args)+1))
		args = append(args, strings.ToUpper(filter.Direction))
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("scan_time >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("scan_time < $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	return strings.Join(where, " AND "), args
}

func scanOrder(raw string) string {
	order := strings.ToUpper(raw)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	return order
}

// List returns one page of scans matching the filter together with the total count.
func (r *ScanRepository) List(ctx context.Context, filter models.ScanFilter) ([]models.ScanRecord, int, error) {
	whereClause, args := buildScanWhere(filter)
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 100
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM attendance_scans WHERE %s
        ORDER BY scan_time %s, id ASC
        LIMIT %d OFFSET %d`, scanColumns, whereClause, scanOrder(filter.SortOrder), size, offset)

	var rows []models.ScanRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance scans: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM attendance_scans WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance scans: %w", err)
	}
	return rows, total, nil
}

// ListAll returns every scan matching the filter ordered by time. Pagination
// fields are ignored.
func (r *ScanRepository) ListAll(ctx context.Context, filter models.ScanFilter) ([]models.ScanRecord, error) {
	whereClause, args := buildScanWhere(filter)
	query := fmt.Sprintf(`SELECT %s FROM attendance_scans WHERE %s ORDER BY scan_time ASC, id ASC`, scanColumns, whereClause)

	var rows []models.ScanRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list all attendance scans: %w", err)
	}
	return rows, nil
}

// BulkInsert stores scans in a single transaction. Exact duplicates of an
// existing event are skipped and counted rather than failing the batch.
func (r *ScanRepository) BulkInsert(ctx context.Context, scans []models.ScanRecord) (inserted int, duplicates int, err error) {
	if len(scans) == 0 {
		return 0, 0, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin bulk attendance scans: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO attendance_scans (id, school_id, student_id, direction, scan_time, device_id, created_at)
VALUES (:id, :school_id, :student_id, :direction, :scan_time, :device_id, :created_at)
ON CONFLICT (school_id, student_id, direction, scan_time) DO NOTHING`
	now := time.Now().UTC()
	for i := range scans {
		if scans[i].ID == "" {
			scans[i].ID = uuid.NewString()
		}
		if scans[i].CreatedAt.IsZero() {
			scans[i].CreatedAt = now
		}
		res, err := tx.NamedExecContext(ctx, query, scans[i])
		if err != nil {
			return 0, 0, fmt.Errorf("insert attendance scan: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, 0, fmt.Errorf("insert attendance scan rows affected: %w", err)
		}
		if affected == 0 {
			duplicates++
			continue
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit bulk attendance scans: %w", err)
	}
	commit = true
	return inserted, duplicates, nil
}
