package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scan-attendance/internal/dto"
	"github.com/noah-isme/sma-scan-attendance/internal/models"
	appErrors "github.com/noah-isme/sma-scan-attendance/pkg/errors"
	"github.com/noah-isme/sma-scan-attendance/pkg/response"
)

// ActorHeader optionally names the operator behind a write request.
const ActorHeader = "X-Actor"

type policyService interface {
	Get(ctx context.Context, schoolID string) (*models.ResolvedPolicy, error)
	Update(ctx context.Context, schoolID string, req dto.UpdatePolicyRequest, actor string) (*models.ResolvedPolicy, error)
}

// PolicyHandler exposes per-school time policy endpoints.
type PolicyHandler struct {
	service policyService
}

// NewPolicyHandler constructs the handler.
func NewPolicyHandler(service policyService) *PolicyHandler {
	return &PolicyHandler{service: service}
}

// Get godoc
// @Summary Resolve a school's time policy
// @Tags Policies
// @Produce json
// @Param schoolId path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/policy [get]
func (h *PolicyHandler) Get(c *gin.Context) {
	resolved, err := h.service.Get(c.Request.Context(), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resolved, nil)
}

// Update godoc
// @Summary Replace a school's time policy
// @Tags Policies
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body dto.UpdatePolicyRequest true "Policy"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /schools/{schoolId}/policy [put]
func (h *PolicyHandler) Update(c *gin.Context) {
	var req dto.UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid policy payload"))
		return
	}
	resolved, err := h.service.Update(c.Request.Context(), c.Param("schoolId"), req, c.GetHeader(ActorHeader))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resolved, nil)
}
