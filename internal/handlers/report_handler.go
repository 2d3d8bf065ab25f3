package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/weddia/escrow-api/internal/services"
)

type ReportHandler struct {
	escrowService   *services.EscrowService
	exportService   *services.ExportService
	auditService    *services.AuditService
	documentService *services.DocumentService
}

func NewReportHandler(escrowService *services.EscrowService, exportService *services.ExportService, auditService *services.AuditService, documentService *services.DocumentService) *ReportHandler {
	return &ReportHandler{
		escrowService:   escrowService,
		exportService:   exportService,
		auditService:    auditService,
		documentService: documentService,
	}
}

// @Summary Export Transactions CSV
// @Description Download the escrow transaction ledger as CSV
// @Tags Reports
// @Produce text/csv
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /reports/transactions/csv [get]
func (h *ReportHandler) TransactionsCSV(c *gin.Context) {
	page, perPage := pagination(c)
	data, filename, err := h.exportService.ExportTransactionsCSV(c.Request.Context(), perPage, (page-1)*perPage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", data)
}

// @Summary Export Transactions XLSX
// @Description Download the escrow transaction ledger as XLSX
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /reports/transactions/xlsx [get]
func (h *ReportHandler) TransactionsXLSX(c *gin.Context) {
	page, perPage := pagination(c)
	data, filename, err := h.exportService.ExportTransactionsXLSX(c.Request.Context(), perPage, (page-1)*perPage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// @Summary Export Account Statement XLSX
// @Description Download one account's statement as XLSX
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path int true "Escrow Account ID"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /reports/escrows/{id}/statement/xlsx [get]
func (h *ReportHandler) StatementXLSX(c *gin.Context) {
	data, filename, err := h.exportService.ExportAccountStatementXLSX(c.Request.Context(), paramID(c, "id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// @Summary Export Account Statement PDF
// @Description Download one account's statement as PDF
// @Tags Reports
// @Produce application/pdf
// @Param id path int true "Escrow Account ID"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /reports/escrows/{id}/statement/pdf [get]
func (h *ReportHandler) StatementPDF(c *gin.Context) {
	data, filename, err := h.documentService.EscrowStatementPDF(c.Request.Context(), paramID(c, "id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", data)
}

// @Summary Audit Trail
// @Description Get the audit trail for an entity
// @Tags Reports
// @Produce json
// @Param entity query string true "Entity name"
// @Param entity_id query int true "Entity ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /reports/audit [get]
func (h *ReportHandler) AuditTrail(c *gin.Context) {
	entity := c.Query("entity")
	if entity == "" {
		respondSuccess(c, http.StatusOK, gin.H{"entries": []any{}})
		return
	}
	entries, err := h.auditService.Trail(c.Request.Context(), entity, queryID(c, "entity_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"entries": entries})
}
