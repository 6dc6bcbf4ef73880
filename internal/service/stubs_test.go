package service

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/noah-isme/sma-scan-attendance/internal/attendance"
	"github.com/noah-isme/sma-scan-attendance/internal/models"
)

func testTimePolicy() *attendance.TimePolicy {
	policy, err := attendance.ParsePolicy("08:00", "15:00", "08:30", "14:00")
	if err != nil {
		panic(err)
	}
	return policy
}

func scanAt(id, school, student, direction, day, clock string) models.ScanRecord {
	ts, err := time.Parse("2006-01-02 15:04", day+" "+clock)
	if err != nil {
		panic(err)
	}
	return models.ScanRecord{ID: id, SchoolID: school, StudentID: student, Direction: direction, ScanTime: ts}
}

// scanStoreStub keeps scans in memory and applies the filter fields the
// services rely on.
type scanStoreStub struct {
	rows      []models.ScanRecord
	inserted  []models.ScanRecord
	listErr   error
	insertErr error
	dupes     int
	filters   []models.ScanFilter
}

func (s *scanStoreStub) match(filter models.ScanFilter) []models.ScanRecord {
	var out []models.ScanRecord
	for _, row := range s.rows {
		if filter.SchoolID != "" && row.SchoolID != filter.SchoolID {
			continue
		}
		if filter.StudentID != "" && row.StudentID != filter.StudentID {
			continue
		}
		if filter.Direction != "" && row.Direction != filter.Direction {
			continue
		}
		if filter.DateFrom != nil && row.ScanTime.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && !row.ScanTime.Before(*filter.DateTo) {
			continue
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScanTime.Before(out[j].ScanTime) })
	return out
}

func (s *scanStoreStub) List(_ context.Context, filter models.ScanFilter) ([]models.ScanRecord, int, error) {
	s.filters = append(s.filters, filter)
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	all := s.match(filter)
	start := (filter.Page - 1) * filter.PageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + filter.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (s *scanStoreStub) ListAll(_ context.Context, filter models.ScanFilter) ([]models.ScanRecord, error) {
	s.filters = append(s.filters, filter)
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.match(filter), nil
}

func (s *scanStoreStub) BulkInsert(_ context.Context, scans []models.ScanRecord) (int, int, error) {
	if s.insertErr != nil {
		return 0, 0, s.insertErr
	}
	s.inserted = append(s.inserted, scans...)
	return len(scans) - s.dupes, s.dupes, nil
}

type policyGetterStub struct {
	resolved *models.ResolvedPolicy
	err      error
	calls    int
}

func (p *policyGetterStub) Get(_ context.Context, schoolID string) (*models.ResolvedPolicy, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if p.resolved == nil {
		return &models.ResolvedPolicy{SchoolID: schoolID, Source: models.PolicySourceNone}, nil
	}
	return p.resolved, nil
}

type policyRepoStub struct {
	rows     map[string]*models.SchoolTimePolicy
	findErr  error
	finds    int
	upserted []models.SchoolTimePolicy
}

func newPolicyRepoStub() *policyRepoStub {
	return &policyRepoStub{rows: map[string]*models.SchoolTimePolicy{}}
}

func (r *policyRepoStub) FindBySchool(_ context.Context, schoolID string) (*models.SchoolTimePolicy, error) {
	r.finds++
	if r.findErr != nil {
		return nil, r.findErr
	}
	row, ok := r.rows[schoolID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return row, nil
}

func (r *policyRepoStub) Upsert(_ context.Context, policy *models.SchoolTimePolicy) error {
	policy.UpdatedAt = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	r.upserted = append(r.upserted, *policy)
	copied := *policy
	r.rows[policy.SchoolID] = &copied
	return nil
}
