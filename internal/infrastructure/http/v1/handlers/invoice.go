package handlers

import (
	"github.com/gin-gonic/gin"

	"tesoreria/internal/domain/documents/invoice"
	"tesoreria/internal/infrastructure/http/v1/dto"
	"tesoreria/internal/infrastructure/storage/postgres"
)

// InvoiceHandler handles HTTP requests for one invoice kind. The same
// handler serves invoices, purchase orders and expenses; the kind is
// fixed per route group.
type InvoiceHandler struct {
	*BaseHandler
	service *invoice.Service
	kind    invoice.Kind
}

// NewInvoiceHandler creates a handler bound to one document kind.
func NewInvoiceHandler(base *BaseHandler, service *invoice.Service, kind invoice.Kind) *InvoiceHandler {
	return &InvoiceHandler{
		BaseHandler: base,
		service:     service,
		kind:        kind,
	}
}

// Create handles POST - create a document with computed totals.
func (h *InvoiceHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc := req.ToEntity(h.kind)
	if err := h.service.Create(ctx, doc); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, doc)
}

// Get handles GET /:id - retrieve a document with lines.
func (h *InvoiceHandler) Get(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// List handles GET - list documents of this kind with filtering.
func (h *InvoiceHandler) List(c *gin.Context) {
	var req dto.ListInvoicesRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filter := req.ToFilter()
	if filter.Kind == nil {
		kind := h.kind
		filter.Kind = &kind
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result))
}

// Void handles POST /:id/void - annul a document without payments.
func (h *InvoiceHandler) Void(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}

	if err := h.service.Void(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}

	h.RecordAudit(c, string(h.kind), docID, postgres.AuditActionVoid, nil)
	h.Success(c, "document voided")
}

// CreateInvoice handles POST /:id/invoice - turn a purchase order into
// an invoice copying lines and tax policy.
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	orderID, ok := h.ParseID(c)
	if !ok {
		return
	}

	doc, err := h.service.CreateFromPurchaseOrder(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, doc)
}
