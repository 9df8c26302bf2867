package handlers

import (
	"github.com/gin-gonic/gin"

	"tesoreria/internal/domain/catalogs/account"
	"tesoreria/internal/infrastructure/http/v1/dto"
	"tesoreria/internal/infrastructure/storage/postgres"
)

// AccountHandler handles HTTP requests for financial accounts.
type AccountHandler struct {
	*BaseHandler
	service *account.Service
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(base *BaseHandler, service *account.Service) *AccountHandler {
	return &AccountHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST - create a bank or cash account.
func (h *AccountHandler) Create(c *gin.Context) {
	var req dto.CreateAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	acc := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), acc); err != nil {
		h.Error(c, err)
		return
	}

	h.RecordAudit(c, "account", acc.ID, postgres.AuditActionCreate, map[string]any{
		"code": acc.Code,
		"type": acc.Type,
	})
	h.Created(c, acc)
}

// Get handles GET /:id - retrieve an account.
func (h *AccountHandler) Get(c *gin.Context) {
	accountID, ok := h.ParseID(c)
	if !ok {
		return
	}

	acc, err := h.service.GetByID(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, acc)
}

// List handles GET - list accounts with filtering.
func (h *AccountHandler) List(c *gin.Context) {
	var req dto.ListAccountsRequest
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

// Recalculate handles POST /:id/recalculate - rebuild the cached
// balance from opening balance plus all recorded payments.
func (h *AccountHandler) Recalculate(c *gin.Context) {
	accountID, ok := h.ParseID(c)
	if !ok {
		return
	}

	balance, err := h.service.Recalculate(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.RecordAudit(c, "account", accountID, postgres.AuditActionUpdate, map[string]any{"recalculated_balance": balance})
	h.OK(c, dto.RecalculateResponse{
		AccountID: accountID.String(),
		Balance:   balance,
	})
}
