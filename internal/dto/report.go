package dto

import "github.com/noah-isme/sma-scan-attendance/internal/models"

// ReportRequest captures POST /reports payload. From and To are inclusive
// YYYY-MM-DD dates.
type ReportRequest struct {
	SchoolID  string              `json:"schoolId" validate:"required,max=64"`
	Type      models.ReportType   `json:"type"`
	From      string              `json:"from" validate:"required,datetime=2006-01-02"`
	To        string              `json:"to" validate:"required,datetime=2006-01-02"`
	StudentID *string             `json:"studentId,omitempty" validate:"omitempty,max=64"`
	Format    models.ReportFormat `json:"format" validate:"required,oneof=csv pdf xlsx"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	SchoolID  string              `json:"schoolId"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	Format    models.ReportFormat `json:"format"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
