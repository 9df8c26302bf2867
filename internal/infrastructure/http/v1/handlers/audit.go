package handlers

import (
	"github.com/gin-gonic/gin"

	"tesoreria/internal/core/apperror"
	"tesoreria/internal/core/id"
	"tesoreria/internal/infrastructure/storage/postgres"
)

const auditHistoryLimit = 100

// AuditHandler exposes the per-entity audit trail.
type AuditHandler struct {
	*BaseHandler
	service *postgres.AuditService
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, service *postgres.AuditService) *AuditHandler {
	return &AuditHandler{
		BaseHandler: base,
		service:     service,
	}
}

// History handles GET /audit/:entity_type/:id - newest entries first.
func (h *AuditHandler) History(c *gin.Context) {
	entityType := c.Param("entity_type")
	if entityType == "" {
		h.Error(c, apperror.NewValidation("entity type is required"))
		return
	}

	entityID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	entries, err := h.service.GetEntityHistory(c.Request.Context(), entityType, entityID, auditHistoryLimit)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"entries": entries})
}
