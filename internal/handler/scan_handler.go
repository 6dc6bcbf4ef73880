package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scan-attendance/internal/dto"
	"github.com/noah-isme/sma-scan-attendance/internal/models"
	"github.com/noah-isme/sma-scan-attendance/internal/service"
	appErrors "github.com/noah-isme/sma-scan-attendance/pkg/errors"
	"github.com/noah-isme/sma-scan-attendance/pkg/response"
)

type scanService interface {
	Ingest(ctx context.Context, schoolID string, req dto.IngestScansRequest) (*models.ScanIngestResult, error)
	List(ctx context.Context, query dto.ScanListQuery) ([]dto.ScanView, *models.Pagination, *service.ClassificationMeta, error)
}

// ScanHandler exposes scan ingest and listing.
type ScanHandler struct {
	service scanService
}

// NewScanHandler constructs the handler.
func NewScanHandler(service scanService) *ScanHandler {
	return &ScanHandler{service: service}
}

// Ingest godoc
// @Summary Store a batch of scanner events
// @Tags Scans
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body dto.IngestScansRequest true "Scans"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schools/{schoolId}/scans [post]
func (h *ScanHandler) Ingest(c *gin.Context) {
	var req dto.IngestScansRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid scans payload"))
		return
	}
	result, err := h.service.Ingest(c.Request.Context(), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List stored scans with their classification
// @Tags Scans
// @Produce json
// @Param schoolId path string true "School ID"
// @Param studentId query string false "Student ID"
// @Param direction query string false "IN or OUT"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD), inclusive"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sortOrder query string false "Sort order (asc/desc)"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/scans [get]
func (h *ScanHandler) List(c *gin.Context) {
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
	query := dto.ScanListQuery{
		SchoolID:  c.Param("schoolId"),
		StudentID: c.Query("studentId"),
		Direction: c.Query("direction"),
		From:      from,
		To:        to,
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "limit", 100),
		SortOrder: c.Query("sortOrder"),
	}
	views, pagination, meta, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, pagination, metaMap(meta))
}
