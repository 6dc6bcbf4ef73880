package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scan-attendance/internal/attendance"
	"github.com/noah-isme/sma-scan-attendance/internal/dto"
	"github.com/noah-isme/sma-scan-attendance/internal/service"
	appErrors "github.com/noah-isme/sma-scan-attendance/pkg/errors"
	"github.com/noah-isme/sma-scan-attendance/pkg/response"
)

type attendanceService interface {
	Classify(ctx context.Context, req dto.ClassifyRequest) (*attendance.StatusResult, *service.ClassificationMeta, error)
	Enhance(ctx context.Context, req dto.RecordsRequest) ([]attendance.EnhancedRecord, *service.ClassificationMeta, error)
	SummarizeDay(ctx context.Context, req dto.RecordsRequest) (*attendance.DaySummary, *service.ClassificationMeta, error)
	SummarizePeriod(ctx context.Context, req dto.RecordsRequest) (*attendance.PeriodSummary, *service.ClassificationMeta, error)
	DailySummaries(ctx context.Context, query dto.DailySummaryQuery) (*dto.DailySummaryResponse, *service.ClassificationMeta, error)
	Statuses() []dto.StatusDescriptor
}

// AttendanceHandler exposes the classification and summary endpoints.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(service attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// Classify godoc
// @Summary Classify a single scan
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.ClassifyRequest true "Scan and policy"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /attendance/classify [post]
func (h *AttendanceHandler) Classify(c *gin.Context) {
	var req dto.ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid classify payload"))
		return
	}
	result, meta, err := h.service.Classify(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, metaMap(meta))
}

// Enhance godoc
// @Summary Classify a batch of scans
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.RecordsRequest true "Scans and policy"
// @Success 200 {object} response.Envelope
// @Router /attendance/enhance [post]
func (h *AttendanceHandler) Enhance(c *gin.Context) {
	req, ok := bindRecords(c)
	if !ok {
		return
	}
	records, meta, err := h.service.Enhance(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil, metaMap(meta))
}

// SummarizeDay godoc
// @Summary Summarise one student's day
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.RecordsRequest true "Scans and policy"
// @Success 200 {object} response.Envelope
// @Router /attendance/summary/day [post]
func (h *AttendanceHandler) SummarizeDay(c *gin.Context) {
	req, ok := bindRecords(c)
	if !ok {
		return
	}
	summary, meta, err := h.service.SummarizeDay(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, metaMap(meta))
}

// SummarizePeriod godoc
// @Summary Count statuses over a set of scans
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.RecordsRequest true "Scans and policy"
// @Success 200 {object} response.Envelope
// @Router /attendance/summary/period [post]
func (h *AttendanceHandler) SummarizePeriod(c *gin.Context) {
	req, ok := bindRecords(c)
	if !ok {
		return
	}
	summary, meta, err := h.service.SummarizePeriod(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, metaMap(meta))
}

// Daily godoc
// @Summary Daily summaries from stored scans
// @Tags Attendance
// @Produce json
// @Param schoolId path string true "School ID"
// @Param from query string true "From date (YYYY-MM-DD)"
// @Param to query string true "To date (YYYY-MM-DD)"
// @Param studentId query string false "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schools/{schoolId}/attendance/daily [get]
func (h *AttendanceHandler) Daily(c *gin.Context) {
	from, err := parseDateParam(c.Query("from"))
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseDateParam(c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if from == nil || to == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from and to are required"))
		return
	}
	query := dto.DailySummaryQuery{
		SchoolID:  c.Param("schoolId"),
		StudentID: c.Query("studentId"),
		From:      *from,
		To:        *to,
	}
	result, meta, err := h.service.DailySummaries(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	extra := metaMap(meta)
	extra["period"] = result.Period
	response.JSON(c, http.StatusOK, result.Days, nil, extra)
}

// Statuses godoc
// @Summary List status types and their presentation
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/statuses [get]
func (h *AttendanceHandler) Statuses(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Statuses(), nil)
}

func bindRecords(c *gin.Context) (dto.RecordsRequest, bool) {
	var req dto.RecordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid records payload"))
		return req, false
	}
	return req, true
}

func metaMap(meta *service.ClassificationMeta) map[string]interface{} {
	out := map[string]interface{}{}
	if meta == nil {
		return out
	}
	out["policySource"] = meta.PolicySource
	if len(meta.Issues) > 0 {
		out["issues"] = meta.Issues
	}
	return out
}
