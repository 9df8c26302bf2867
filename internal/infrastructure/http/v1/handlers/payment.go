package handlers

import (
	"github.com/gin-gonic/gin"

	"tesoreria/internal/core/apperror"
	"tesoreria/internal/domain/payments"
	"tesoreria/internal/infrastructure/http/v1/dto"
	"tesoreria/internal/infrastructure/storage/postgres"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	*BaseHandler
	service *payments.Service
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(base *BaseHandler, service *payments.Service) *PaymentHandler {
	return &PaymentHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST - record a payment and apply it to its targets
// atomically. Send X-Idempotency-Key to make retries safe.
func (h *PaymentHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreatePaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	draft, err := req.ToEntity()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid target id").WithDetail("error", err.Error()))
		return
	}

	if err := h.service.Apply(ctx, draft); err != nil {
		h.Error(c, err)
		return
	}

	h.RecordAudit(c, "payment", draft.ID, postgres.AuditActionApply, map[string]any{
		"number":       draft.Number,
		"total":        draft.TotalAmount,
		"applied":      draft.AppliedAmount,
		"applications": len(draft.Applications),
	})
	h.Created(c, draft)
}

// Get handles GET /:id - retrieve a payment with applications.
func (h *PaymentHandler) Get(c *gin.Context) {
	paymentID, ok := h.ParseID(c)
	if !ok {
		return
	}

	payment, err := h.service.GetByID(c.Request.Context(), paymentID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, payment)
}

// List handles GET - list payments with filtering.
func (h *PaymentHandler) List(c *gin.Context) {
	var req dto.ListPaymentsRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filter, err := req.ToFilter()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid filter id").WithDetail("error", err.Error()))
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result))
}

// Void handles POST /:id/void - reverse all applications and restore
// target balances.
func (h *PaymentHandler) Void(c *gin.Context) {
	paymentID, ok := h.ParseID(c)
	if !ok {
		return
	}

	if err := h.service.Void(c.Request.Context(), paymentID); err != nil {
		h.Error(c, err)
		return
	}

	h.RecordAudit(c, "payment", paymentID, postgres.AuditActionVoid, nil)
	h.Success(c, "payment voided")
}
