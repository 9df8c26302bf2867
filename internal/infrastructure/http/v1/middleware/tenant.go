package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tesoreria/internal/core/apperror"
	"tesoreria/internal/core/tenant"
	"tesoreria/internal/infrastructure/storage/postgres"
)

// TenantHeader is the HTTP header for tenant identification.
const TenantHeader = "X-Tenant-ID"

// Tenant middleware resolves the company from the X-Tenant-ID header and
// injects the tenant handle, pool and TxManager into the request context.
// All companies share one schema; the storage layer turns the handle into
// a predicate on every statement, so this middleware MUST run before any
// database operation.
func Tenant(pool *postgres.Pool, txManager *postgres.TxManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawTenantID := c.GetHeader(TenantHeader)
		if rawTenantID == "" {
			_ = c.Error(
				apperror.NewValidation("tenant is required").
					WithDetail("header", TenantHeader),
			)
			c.Abort()
			return
		}

		tenantUUID, err := uuid.Parse(rawTenantID)
		if err != nil {
			_ = c.Error(
				apperror.NewValidation("invalid tenant id").
					WithDetail("header", TenantHeader).
					WithDetail("value", rawTenantID),
			)
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		ctx = tenant.WithPool(ctx, pool.Unwrap())
		ctx = tenant.WithTxManager(ctx, txManager)
		ctx = tenant.WithTenant(ctx, &tenant.Tenant{ID: tenantUUID})

		c.Request = c.Request.WithContext(ctx)
		c.Set("tenant_id", tenantUUID.String())

		c.Next()
	}
}
