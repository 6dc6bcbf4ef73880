package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/sma-scan-attendance/internal/attendance"
	"github.com/noah-isme/sma-scan-attendance/internal/models"
)

var (
	idKeys        = []string{"id", "scanId", "scan_id"}
	studentKeys   = []string{"studentId", "student_id", "studentID", "student"}
	directionKeys = []string{"direction", "type", "scanType", "scan_type"}
	timestampKeys = []string{"timestamp", "scanTime", "scan_time", "time", "scannedAt", "scanned_at"}
	deviceKeys    = []string{"deviceId", "device_id"}
)

// timestampLayouts are tried in order; layouts without an offset keep the
// wall clock as given.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ScanPayload is a scan as submitted by a client or scanner device. Field
// names vary between scanner firmware, so several aliases are accepted.
type ScanPayload struct {
	ID        string  `json:"id,omitempty"`
	StudentID string  `json:"studentId"`
	Direction string  `json:"direction"`
	Timestamp string  `json:"timestamp"`
	DeviceID  *string `json:"deviceId,omitempty"`
}

// UnmarshalJSON accepts any of the known field aliases. Numeric timestamps
// are treated as Unix seconds, or milliseconds when large enough.
func (p *ScanPayload) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*p = ScanPayload{
		ID:        pickString(fields, idKeys),
		StudentID: pickString(fields, studentKeys),
		Direction: pickString(fields, directionKeys),
		Timestamp: pickString(fields, timestampKeys),
	}
	if device := pickString(fields, deviceKeys); device != "" {
		p.DeviceID = &device
	}
	return nil
}

func pickString(fields map[string]json.RawMessage, keys []string) string {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.TrimSpace(s)
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String()
		}
	}
	return ""
}

// ParseTimestamp parses the accepted timestamp encodings. An empty string
// yields the zero time.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}

// ToRaw converts the payload into a classifier record. Unknown directions
// become the empty direction and unparseable timestamps the zero time, which
// the classifier treats as missing; err reports what was dropped.
func (p ScanPayload) ToRaw() (attendance.RawRecord, error) {
	record := attendance.RawRecord{ID: p.ID, StudentID: p.StudentID}
	var problems []string
	if direction, ok := attendance.ParseDirection(p.Direction); ok {
		record.Direction = direction
	} else {
		problems = append(problems, fmt.Sprintf("unknown direction %q", p.Direction))
	}
	ts, err := ParseTimestamp(p.Timestamp)
	switch {
	case err != nil:
		problems = append(problems, err.Error())
	case ts.IsZero():
		problems = append(problems, "missing timestamp")
	default:
		record.Timestamp = ts
	}
	if len(problems) > 0 {
		return record, fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return record, nil
}

// RawRecords converts payloads preserving order and length. Items that
// could not be fully converted are reported alongside.
func RawRecords(payloads []ScanPayload) ([]attendance.RawRecord, []models.ScanRejection) {
	records := make([]attendance.RawRecord, len(payloads))
	var issues []models.ScanRejection
	for i, payload := range payloads {
		record, err := payload.ToRaw()
		records[i] = record
		if err != nil {
			issues = append(issues, models.ScanRejection{Index: i, StudentID: payload.StudentID, Reason: err.Error()})
		}
	}
	return records, issues
}

// PolicyInput is a policy supplied inline or as an update body.
type PolicyInput struct {
	SchoolStartTime         string `json:"schoolStartTime" validate:"required,clock"`
	SchoolEndTime           string `json:"schoolEndTime" validate:"required,clock"`
	LateArrivalThreshold    string `json:"lateArrivalThreshold" validate:"required,clock"`
	EarlyDepartureThreshold string `json:"earlyDepartureThreshold" validate:"required,clock"`
}

// Parse converts the input into a policy without checking ordering.
func (p PolicyInput) Parse() (*attendance.TimePolicy, error) {
	return attendance.ParsePolicy(p.SchoolStartTime, p.SchoolEndTime, p.LateArrivalThreshold, p.EarlyDepartureThreshold)
}

// ClassifyRequest is the body of POST /attendance/classify. Policy wins over
// SchoolID when both are present.
type ClassifyRequest struct {
	Timestamp string       `json:"timestamp"`
	Direction string       `json:"direction"`
	Policy    *PolicyInput `json:"policy,omitempty" validate:"omitempty"`
	SchoolID  string       `json:"schoolId,omitempty" validate:"omitempty,max=64"`
}

// MaxRecordsPerRequest caps the records accepted by one enhance or summary call.
const MaxRecordsPerRequest = 20000

// RecordsRequest is the body shared by the enhance and summary endpoints.
type RecordsRequest struct {
	Records  []ScanPayload `json:"records" validate:"max=20000"`
	Policy   *PolicyInput  `json:"policy,omitempty" validate:"omitempty"`
	SchoolID string        `json:"schoolId,omitempty" validate:"omitempty,max=64"`
}

// DailySummaryQuery captures GET /schools/:schoolId/attendance/daily filters.
type DailySummaryQuery struct {
	SchoolID  string
	StudentID string
	From      time.Time
	To        time.Time
}

// DailySummaryResponse pairs per student-day summaries with their period roll-up.
type DailySummaryResponse struct {
	Days   []attendance.DaySummary  `json:"days"`
	Period attendance.PeriodSummary `json:"period"`
}

// StatusDescriptor describes one status type for clients.
type StatusDescriptor struct {
	StatusType attendance.StatusType `json:"statusType"`
	Style      string                `json:"style"`
	Icon       string                `json:"icon"`
}
