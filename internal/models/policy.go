package models

import (
	"time"

	"github.com/noah-isme/sma-scan-attendance/internal/attendance"
)

// SchoolTimePolicy is the stored per-school policy row. Times are HH:MM text.
type SchoolTimePolicy struct {
	SchoolID                string    `db:"school_id" json:"schoolId"`
	SchoolStartTime         string    `db:"school_start_time" json:"schoolStartTime"`
	SchoolEndTime           string    `db:"school_end_time" json:"schoolEndTime"`
	LateArrivalThreshold    string    `db:"late_arrival_threshold" json:"lateArrivalThreshold"`
	EarlyDepartureThreshold string    `db:"early_departure_threshold" json:"earlyDepartureThreshold"`
	UpdatedBy               *string   `db:"updated_by" json:"updatedBy,omitempty"`
	UpdatedAt               time.Time `db:"updated_at" json:"updatedAt"`
}

// TimePolicy parses the stored clock strings.
func (p SchoolTimePolicy) TimePolicy() (*attendance.TimePolicy, error) {
	return attendance.ParsePolicy(p.SchoolStartTime, p.SchoolEndTime, p.LateArrivalThreshold, p.EarlyDepartureThreshold)
}

// NewSchoolTimePolicy renders a parsed policy back into its stored form.
func NewSchoolTimePolicy(schoolID string, policy attendance.TimePolicy) SchoolTimePolicy {
	return SchoolTimePolicy{
		SchoolID:                schoolID,
		SchoolStartTime:         policy.SchoolStartTime.String(),
		SchoolEndTime:           policy.SchoolEndTime.String(),
		LateArrivalThreshold:    policy.LateArrivalThreshold.String(),
		EarlyDepartureThreshold: policy.EarlyDepartureThreshold.String(),
	}
}

// PolicySource tells callers where a resolved policy came from.
type PolicySource string

const (
	PolicySourceInline  PolicySource = "inline"
	PolicySourceSchool  PolicySource = "school"
	PolicySourceDefault PolicySource = "default"
	PolicySourceNone    PolicySource = "none"
)

// ResolvedPolicy is a policy lookup result. Policy is nil for PolicySourceNone.
type ResolvedPolicy struct {
	SchoolID  string                 `json:"schoolId"`
	Source    PolicySource           `json:"source"`
	Policy    *attendance.TimePolicy `json:"policy"`
	UpdatedAt *time.Time             `json:"updatedAt,omitempty"`
}
