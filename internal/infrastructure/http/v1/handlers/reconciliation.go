package handlers

import (
	"github.com/gin-gonic/gin"

	"tesoreria/internal/domain/reconciliation"
	"tesoreria/internal/infrastructure/http/v1/dto"
	"tesoreria/internal/infrastructure/storage/postgres"
)

// ReconciliationHandler handles bank reconciliation endpoints. All
// routes hang off one account: /accounts/:id/reconciliation/...
type ReconciliationHandler struct {
	*BaseHandler
	service *reconciliation.Service
}

// NewReconciliationHandler creates a new reconciliation handler.
func NewReconciliationHandler(base *BaseHandler, service *reconciliation.Service) *ReconciliationHandler {
	return &ReconciliationHandler{
		BaseHandler: base,
		service:     service,
	}
}

// ImportMovements handles POST /accounts/:id/movements - load statement
// lines for the account.
func (h *ReconciliationHandler) ImportMovements(c *gin.Context) {
	accountID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.ImportMovementsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	movements := req.ToEntities(accountID)
	if err := h.service.ImportMovements(c.Request.Context(), movements); err != nil {
		h.Error(c, err)
		return
	}

	h.RecordAudit(c, "account", accountID, postgres.AuditActionUpdate, map[string]any{"imported": len(movements)})
	h.Created(c, gin.H{"imported": len(movements)})
}

// Match handles POST /accounts/:id/reconciliation - run the matcher and
// return the summary. Running twice over the same data returns the same
// summary.
func (h *ReconciliationHandler) Match(c *gin.Context) {
	accountID, ok := h.ParseID(c)
	if !ok {
		return
	}

	rec, err := h.service.MatchAccount(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.RecordAudit(c, "account", accountID, postgres.AuditActionReconcile, map[string]any{
		"matched":           rec.MatchedCount,
		"pending_movements": rec.PendingMovements,
		"pending_payments":  rec.PendingPayments,
		"diferencia":        rec.Diferencia,
	})
	h.OK(c, rec)
}

// History handles GET /accounts/:id/reconciliation - past runs, newest
// first.
func (h *ReconciliationHandler) History(c *gin.Context) {
	accountID, ok := h.ParseID(c)
	if !ok {
		return
	}

	runs, err := h.service.History(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, runs)
}

// Unmatch handles POST /accounts/:id/reconciliation/reset - clear all
// flags and headers so matching can start over.
func (h *ReconciliationHandler) Unmatch(c *gin.Context) {
	accountID, ok := h.ParseID(c)
	if !ok {
		return
	}

	if err := h.service.UnmatchAll(c.Request.Context(), accountID); err != nil {
		h.Error(c, err)
		return
	}

	h.RecordAudit(c, "account", accountID, postgres.AuditActionUpdate, map[string]any{"reconciliation_reset": true})
	h.Success(c, "reconciliation reset")
}
