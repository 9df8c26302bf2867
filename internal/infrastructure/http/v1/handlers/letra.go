package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"tesoreria/internal/domain/documents/letra"
	"tesoreria/internal/infrastructure/http/v1/dto"
	"tesoreria/internal/infrastructure/storage/postgres"
)

// LetraHandler handles HTTP requests for installment notes.
type LetraHandler struct {
	*BaseHandler
	service *letra.Service
}

// NewLetraHandler creates a new letra handler.
func NewLetraHandler(base *BaseHandler, service *letra.Service) *LetraHandler {
	return &LetraHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Split handles POST /invoices/:id/split - exchange an invoice into
// equal installment notes.
func (h *LetraHandler) Split(c *gin.Context) {
	invoiceID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.SplitInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	notes, err := h.service.Split(c.Request.Context(), invoiceID, req.Count, req.IntervalDays)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.RecordAudit(c, "invoice", invoiceID, postgres.AuditActionSplit, map[string]any{
		"count":         req.Count,
		"interval_days": req.IntervalDays,
	})
	h.Created(c, notes)
}

// Get handles GET /:id - retrieve a note.
func (h *LetraHandler) Get(c *gin.Context) {
	noteID, ok := h.ParseID(c)
	if !ok {
		return
	}

	note, err := h.service.GetByID(c.Request.Context(), noteID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, note)
}

// List handles GET - list notes with filtering.
func (h *LetraHandler) List(c *gin.Context) {
	var req dto.ListLetrasRequest
	if !h.BindQuery(c, &req) {
		return
	}

	result, err := h.service.List(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result))
}

// ListByInvoice handles GET /invoices/:id/letras - all notes of one
// invoice in sequence order.
func (h *LetraHandler) ListByInvoice(c *gin.Context) {
	invoiceID, ok := h.ParseID(c)
	if !ok {
		return
	}

	notes, err := h.service.ListByInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, notes)
}

// Protest handles POST /:id/protest - mark an unpaid note as protested.
func (h *LetraHandler) Protest(c *gin.Context) {
	noteID, ok := h.ParseID(c)
	if !ok {
		return
	}

	if err := h.service.Protest(c.Request.Context(), noteID); err != nil {
		h.Error(c, err)
		return
	}

	h.RecordAudit(c, "letra", noteID, postgres.AuditActionUpdate, map[string]any{"state": "protested"})
	h.Success(c, "note protested")
}

// Overdue handles GET /overdue - notes past due date with balance.
func (h *LetraHandler) Overdue(c *gin.Context) {
	notes, err := h.service.Overdue(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, notes)
}
