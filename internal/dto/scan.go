package dto

import (
	"time"

	"github.com/noah-isme/sma-scan-attendance/internal/attendance"
)

// IngestScansRequest is the body of POST /schools/:schoolId/scans.
type IngestScansRequest struct {
	Scans []ScanPayload `json:"scans" validate:"required,min=1,max=5000"`
}

// ScanListQuery captures GET /schools/:schoolId/scans filters.
type ScanListQuery struct {
	SchoolID  string
	StudentID string
	Direction string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortOrder string
}

// ScanView is a stored scan with its classification applied.
type ScanView struct {
	attendance.EnhancedRecord
	DeviceID *string `json:"deviceId,omitempty"`
}
