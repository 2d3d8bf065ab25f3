package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/weddia/escrow-api/internal/middleware"
	"github.com/weddia/escrow-api/internal/models"
	"github.com/weddia/escrow-api/internal/services"
)

type EscrowHandler struct {
	escrowService *services.EscrowService
}

func NewEscrowHandler(escrowService *services.EscrowService) *EscrowHandler {
	return &EscrowHandler{escrowService: escrowService}
}

type fundRequest struct {
	PaymentRef string `json:"payment_ref" binding:"required"`
}

type movementRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Notes  string  `json:"notes"`
}

type holdRequest struct {
	Hold bool `json:"hold"`
}

func currentActor(c *gin.Context) *models.User {
	return &models.User{
		ID:   middleware.GetUserID(c),
		Role: middleware.GetUserRole(c),
	}
}

// @Summary Create Escrow Account
// @Description Open a pending escrow account for a booking
// @Tags Escrows
// @Accept json
// @Produce json
// @Param body body services.CreateEscrowInput true "Escrow data"
// @Success 201 {object} models.EscrowAccountResponse
// @Failure 400 {object} map[string]interface{}
// @Security BearerAuth
// @Router /escrows [post]
func (h *EscrowHandler) Create(c *gin.Context) {
	var input services.CreateEscrowInput
	if !bindJSON(c, &input) {
		return
	}

	account, err := h.escrowService.Create(c.Request.Context(), input, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, account.ToResponse())
}

// @Summary List Escrow Accounts
// @Description Get a paginated list of escrow accounts
// @Tags Escrows
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /escrows [get]
func (h *EscrowHandler) Index(c *gin.Context) {
	page, perPage := pagination(c)
	accounts, total, err := h.escrowService.List(c.Request.Context(), c.Query("status"), perPage, (page-1)*perPage)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.EscrowAccountResponse, 0, len(accounts))
	for _, account := range accounts {
		responses = append(responses, account.ToResponse())
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"escrows": responses,
		"pagination": gin.H{
			"page":     page,
			"per_page": perPage,
			"total":    total,
		},
	})
}

// @Summary Get Escrow Account
// @Description Get an escrow account with its transaction history
// @Tags Escrows
// @Produce json
// @Param id path int true "Escrow Account ID"
// @Success 200 {object} models.EscrowAccountResponse
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /escrows/{id} [get]
func (h *EscrowHandler) Show(c *gin.Context) {
	account, err := h.escrowService.FindByID(c.Request.Context(), paramID(c, "id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, account.ToResponse())
}

// @Summary Get Escrow Account by Booking
// @Description Get the escrow account attached to a booking
// @Tags Escrows
// @Produce json
// @Param booking_id path int true "Booking ID"
// @Success 200 {object} models.EscrowAccountResponse
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /bookings/{booking_id}/escrow [get]
func (h *EscrowHandler) ShowByBooking(c *gin.Context) {
	account, err := h.escrowService.FindByBookingID(c.Request.Context(), paramID(c, "booking_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, account.ToResponse())
}

// @Summary Fund Escrow Account
// @Description Verify a payment with the gateway and mark the account funded
// @Tags Escrows
// @Accept json
// @Produce json
// @Param id path int true "Escrow Account ID"
// @Param body body fundRequest true "Payment reference"
// @Success 200 {object} models.EscrowAccountResponse
// @Failure 409 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Security BearerAuth
// @Router /escrows/{id}/fund [post]
func (h *EscrowHandler) Fund(c *gin.Context) {
	var req fundRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.escrowService.Fund(c.Request.Context(), paramID(c, "id"), req.PaymentRef, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, account.ToResponse())
}

// @Summary Release Funds
// @Description Release part of the held balance to the vendor
// @Tags Escrows
// @Accept json
// @Produce json
// @Param id path int true "Escrow Account ID"
// @Param body body movementRequest true "Amount"
// @Success 200 {object} models.EscrowAccountResponse
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /escrows/{id}/release [post]
func (h *EscrowHandler) Release(c *gin.Context) {
	var req movementRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.escrowService.Release(c.Request.Context(), paramID(c, "id"), req.Amount, req.Notes, currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, account.ToResponse())
}

// @Summary Refund Funds
// @Description Return part of the held balance to the customer
// @Tags Escrows
// @Accept json
// @Produce json
// @Param id path int true "Escrow Account ID"
// @Param body body movementRequest true "Amount"
// @Success 200 {object} models.EscrowAccountResponse
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /escrows/{id}/refund [post]
func (h *EscrowHandler) Refund(c *gin.Context) {
	var req movementRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.escrowService.Refund(c.Request.Context(), paramID(c, "id"), req.Amount, req.Notes, currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, account.ToResponse())
}

// @Summary Set Manual Hold
// @Description Exempt an account from the auto-release sweep
// @Tags Escrows
// @Accept json
// @Produce json
// @Param id path int true "Escrow Account ID"
// @Param body body holdRequest true "Hold flag"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /escrows/{id}/hold [post]
func (h *EscrowHandler) SetHold(c *gin.Context) {
	var req holdRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.escrowService.SetManualHold(c.Request.Context(), paramID(c, "id"), req.Hold, middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"hold": req.Hold})
}

// @Summary List Escrow Transactions
// @Description Get the append-only transaction log for an account
// @Tags Escrows
// @Produce json
// @Param id path int true "Escrow Account ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /escrows/{id}/transactions [get]
func (h *EscrowHandler) Transactions(c *gin.Context) {
	entries, err := h.escrowService.Transactions(c.Request.Context(), paramID(c, "id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"transactions": entries})
}

// @Summary Verify Ledger
// @Description Cross-check stored amounts against the transaction log
// @Tags Escrows
// @Produce json
// @Param id path int true "Escrow Account ID"
// @Success 200 {object} services.LedgerReport
// @Security BearerAuth
// @Router /escrows/{id}/verify [get]
func (h *EscrowHandler) VerifyLedger(c *gin.Context) {
	report, err := h.escrowService.VerifyLedger(c.Request.Context(), paramID(c, "id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, report)
}

func paramID(c *gin.Context, name string) uint {
	id, _ := strconv.ParseUint(c.Param(name), 10, 32)
	return uint(id)
}

func queryID(c *gin.Context, name string) uint {
	id, _ := strconv.ParseUint(c.Query(name), 10, 32)
	return uint(id)
}

func pagination(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}
