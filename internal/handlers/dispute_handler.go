package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/weddia/escrow-api/internal/middleware"
	"github.com/weddia/escrow-api/internal/services"
)

type DisputeHandler struct {
	disputeService *services.DisputeService
}

func NewDisputeHandler(disputeService *services.DisputeService) *DisputeHandler {
	return &DisputeHandler{disputeService: disputeService}
}

// @Summary Open Dispute
// @Description Open a dispute and freeze the escrow account
// @Tags Disputes
// @Accept json
// @Produce json
// @Param body body services.CreateDisputeInput true "Dispute data"
// @Success 201 {object} models.Dispute
// @Failure 409 {object} map[string]interface{}
// @Security BearerAuth
// @Router /disputes [post]
func (h *DisputeHandler) Create(c *gin.Context) {
	var input services.CreateDisputeInput
	if !bindJSON(c, &input) {
		return
	}

	dispute, err := h.disputeService.Create(c.Request.Context(), input, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, dispute)
}

// @Summary List Disputes
// @Description Get a paginated list of disputes
// @Tags Disputes
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /disputes [get]
func (h *DisputeHandler) Index(c *gin.Context) {
	page, perPage := pagination(c)
	disputes, total, err := h.disputeService.List(c.Request.Context(), c.Query("status"), perPage, (page-1)*perPage)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"disputes": disputes,
		"pagination": gin.H{
			"page":     page,
			"per_page": perPage,
			"total":    total,
		},
	})
}

// @Summary Get Dispute
// @Description Get a dispute by ID
// @Tags Disputes
// @Produce json
// @Param id path int true "Dispute ID"
// @Success 200 {object} models.Dispute
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /disputes/{id} [get]
func (h *DisputeHandler) Show(c *gin.Context) {
	dispute, err := h.disputeService.FindByID(c.Request.Context(), paramID(c, "id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, dispute)
}

// @Summary Mark Dispute Under Review
// @Description Move an open dispute to under review (admin only)
// @Tags Disputes
// @Produce json
// @Param id path int true "Dispute ID"
// @Success 200 {object} models.Dispute
// @Failure 403 {object} map[string]interface{}
// @Security BearerAuth
// @Router /disputes/{id}/review [post]
func (h *DisputeHandler) MarkUnderReview(c *gin.Context) {
	dispute, err := h.disputeService.MarkUnderReview(c.Request.Context(), paramID(c, "id"), currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, dispute)
}

// @Summary Resolve Dispute
// @Description Arbitrate an active dispute (admin only)
// @Tags Disputes
// @Accept json
// @Produce json
// @Param id path int true "Dispute ID"
// @Param body body services.ResolveDisputeInput true "Resolution"
// @Success 200 {object} models.Dispute
// @Failure 403 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /disputes/{id}/resolve [post]
func (h *DisputeHandler) Resolve(c *gin.Context) {
	var input services.ResolveDisputeInput
	if !bindJSON(c, &input) {
		return
	}

	dispute, err := h.disputeService.Resolve(c.Request.Context(), paramID(c, "id"), input, currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, dispute)
}

// @Summary Close Dispute
// @Description Withdraw an active dispute without moving funds
// @Tags Disputes
// @Produce json
// @Param id path int true "Dispute ID"
// @Success 200 {object} models.Dispute
// @Failure 409 {object} map[string]interface{}
// @Security BearerAuth
// @Router /disputes/{id}/close [post]
func (h *DisputeHandler) Close(c *gin.Context) {
	dispute, err := h.disputeService.Close(c.Request.Context(), paramID(c, "id"), currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, dispute)
}
