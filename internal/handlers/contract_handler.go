package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weddia/escrow-api/internal/middleware"
	"github.com/weddia/escrow-api/internal/models"
	"github.com/weddia/escrow-api/internal/services"
)

type ContractHandler struct {
	contractService *services.ContractService
	documentService *services.DocumentService
}

func NewContractHandler(contractService *services.ContractService, documentService *services.DocumentService) *ContractHandler {
	return &ContractHandler{contractService: contractService, documentService: documentService}
}

type signRequest struct {
	Signature string `json:"signature" binding:"required"`
}

type milestoneStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type previewRequest struct {
	CancellationDate time.Time `json:"cancellation_date" binding:"required"`
}

type templateRequest struct {
	Name string `json:"name" binding:"required"`
	Body string `json:"body" binding:"required"`
}

type generateRequest struct {
	TemplateID uint              `json:"template_id" binding:"required"`
	Variables  map[string]string `json:"variables"`
}

// @Summary Create Contract
// @Description Create a draft contract with its milestone schedule
// @Tags Contracts
// @Accept json
// @Produce json
// @Param body body services.CreateContractInput true "Contract data"
// @Success 201 {object} models.ContractResponse
// @Failure 400 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts [post]
func (h *ContractHandler) Create(c *gin.Context) {
	var input services.CreateContractInput
	if !bindJSON(c, &input) {
		return
	}

	contract, err := h.contractService.CreateWithMilestones(c.Request.Context(), input, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, contract.ToResponse())
}

// @Summary List Contracts
// @Description Get a paginated list of contracts
// @Tags Contracts
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts [get]
func (h *ContractHandler) Index(c *gin.Context) {
	page, perPage := pagination(c)
	contracts, total, err := h.contractService.List(c.Request.Context(), c.Query("status"), perPage, (page-1)*perPage)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.ContractResponse, 0, len(contracts))
	for _, contract := range contracts {
		responses = append(responses, contract.ToResponse())
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"contracts": responses,
		"pagination": gin.H{
			"page":     page,
			"per_page": perPage,
			"total":    total,
		},
	})
}

// @Summary Get Contract
// @Description Get a contract with its milestones
// @Tags Contracts
// @Produce json
// @Param id path int true "Contract ID"
// @Success 200 {object} models.ContractResponse
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{id} [get]
func (h *ContractHandler) Show(c *gin.Context) {
	contract, err := h.contractService.FindByID(c.Request.Context(), paramID(c, "id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, contract.ToResponse())
}

// @Summary Get Contract by Booking
// @Description Get the contract attached to a booking
// @Tags Contracts
// @Produce json
// @Param booking_id path int true "Booking ID"
// @Success 200 {object} models.ContractResponse
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /bookings/{booking_id}/contract [get]
func (h *ContractHandler) ShowByBooking(c *gin.Context) {
	contract, err := h.contractService.FindByBookingID(c.Request.Context(), paramID(c, "booking_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, contract.ToResponse())
}

// @Summary Generate Contract Body
// @Description Render a contract template with the supplied variables
// @Tags Contracts
// @Accept json
// @Produce json
// @Param body body generateRequest true "Template and variables"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/generate [post]
func (h *ContractHandler) Generate(c *gin.Context) {
	var req generateRequest
	if !bindJSON(c, &req) {
		return
	}

	body, err := h.contractService.GenerateFromTemplate(c.Request.Context(), req.TemplateID, req.Variables)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"body": body})
}

// @Summary Sign Contract
// @Description Record the current user's signature on a contract
// @Tags Contracts
// @Accept json
// @Produce json
// @Param id path int true "Contract ID"
// @Param body body signRequest true "Signature"
// @Success 200 {object} models.ContractResponse
// @Failure 403 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{id}/sign [post]
func (h *ContractHandler) Sign(c *gin.Context) {
	var req signRequest
	if !bindJSON(c, &req) {
		return
	}

	contract, err := h.contractService.Sign(c.Request.Context(), paramID(c, "id"), middleware.GetUserID(c), req.Signature, c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, contract.ToResponse())
}

// @Summary Cancel Contract
// @Description Cancel a contract
// @Tags Contracts
// @Produce json
// @Param id path int true "Contract ID"
// @Success 200 {object} models.ContractResponse
// @Failure 409 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{id}/cancel [post]
func (h *ContractHandler) Cancel(c *gin.Context) {
	contract, err := h.contractService.Cancel(c.Request.Context(), paramID(c, "id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, contract.ToResponse())
}

// @Summary Refund Preview
// @Description Compute the cancellation proration without mutating anything
// @Tags Contracts
// @Accept json
// @Produce json
// @Param id path int true "Contract ID"
// @Param body body previewRequest true "Cancellation date"
// @Success 200 {object} models.RefundBreakdown
// @Security BearerAuth
// @Router /contracts/{id}/refund-preview [post]
func (h *ContractHandler) RefundPreview(c *gin.Context) {
	var req previewRequest
	if !bindJSON(c, &req) {
		return
	}

	breakdown, err := h.contractService.RefundPreview(c.Request.Context(), paramID(c, "id"), req.CancellationDate)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, breakdown)
}

// @Summary Update Milestone Status
// @Description Move a milestone through pending, verified and completed
// @Tags Contracts
// @Accept json
// @Produce json
// @Param id path int true "Contract ID"
// @Param milestone_id path int true "Milestone ID"
// @Param body body milestoneStatusRequest true "New status"
// @Success 200 {object} models.ContractMilestone
// @Failure 409 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{id}/milestones/{milestone_id} [patch]
func (h *ContractHandler) UpdateMilestone(c *gin.Context) {
	var req milestoneStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	milestone, err := h.contractService.UpdateMilestoneStatus(
		c.Request.Context(), paramID(c, "id"), paramID(c, "milestone_id"), req.Status, currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, milestone)
}

// @Summary Download Contract PDF
// @Description Render the contract document as a PDF
// @Tags Contracts
// @Produce application/pdf
// @Param id path int true "Contract ID"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /contracts/{id}/pdf [get]
func (h *ContractHandler) DownloadPDF(c *gin.Context) {
	data, filename, err := h.documentService.ContractPDF(c.Request.Context(), paramID(c, "id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", data)
}

// @Summary Create Contract Template
// @Description Persist a reusable contract body with {{placeholder}} variables
// @Tags Contracts
// @Accept json
// @Produce json
// @Param body body templateRequest true "Template"
// @Success 201 {object} models.ContractTemplate
// @Security BearerAuth
// @Router /contracts/templates [post]
func (h *ContractHandler) CreateTemplate(c *gin.Context) {
	var req templateRequest
	if !bindJSON(c, &req) {
		return
	}

	template := &models.ContractTemplate{Name: req.Name, Body: req.Body}
	if err := h.contractService.CreateTemplate(c.Request.Context(), template); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, template)
}
