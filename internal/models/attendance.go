package models

import (
	"time"

	"github.com/noah-isme/sma-scan-attendance/internal/attendance"
)

// ScanRecord is a persisted scanner event.
type ScanRecord struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"schoolId"`
	StudentID string    `db:"student_id" json:"studentId"`
	Direction string    `db:"direction" json:"direction"`
	ScanTime  time.Time `db:"scan_time" json:"scanTime"`
	DeviceID  *string   `db:"device_id" json:"deviceId,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ToRaw converts the row into the classifier's input record.
func (s ScanRecord) ToRaw() attendance.RawRecord {
	direction, _ := attendance.ParseDirection(s.Direction)
	return attendance.RawRecord{
		ID:        s.ID,
		StudentID: s.StudentID,
		Direction: direction,
		Timestamp: s.ScanTime,
	}
}

// ScanRecords converts a slice of rows preserving order.
func ScanRecords(rows []ScanRecord) []attendance.RawRecord {
	out := make([]attendance.RawRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].ToRaw()
	}
	return out
}

// ScanFilter defines scan query filters.
type ScanFilter struct {
	SchoolID  string
	StudentID string
	Direction string
	DateFrom  *time.Time
	// DateTo is exclusive.
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortOrder string
}

// ScanRejection reports an ingested item that could not be stored.
type ScanRejection struct {
	Index     int    `json:"index"`
	StudentID string `json:"studentId,omitempty"`
	Reason    string `json:"reason"`
}

// ScanIngestResult summarises a bulk ingest call.
type ScanIngestResult struct {
	Accepted   int             `json:"accepted"`
	Duplicates int             `json:"duplicates"`
	Rejected   []ScanRejection `json:"rejected"`
}
