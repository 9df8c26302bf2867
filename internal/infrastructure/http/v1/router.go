// Package v1 provides HTTP API version 1.
package v1

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"tesoreria/internal/core/correlativo"
	"tesoreria/internal/domain"
	"tesoreria/internal/domain/auth"
	"tesoreria/internal/domain/catalogs/account"
	"tesoreria/internal/domain/documents/invoice"
	"tesoreria/internal/domain/documents/letra"
	"tesoreria/internal/domain/payments"
	"tesoreria/internal/domain/reconciliation"
	"tesoreria/internal/domain/tax"
	"tesoreria/internal/infrastructure/http/v1/handlers"
	"tesoreria/internal/infrastructure/http/v1/middleware"
	"tesoreria/internal/infrastructure/storage/postgres"
	"tesoreria/internal/infrastructure/storage/postgres/auth_repo"
	"tesoreria/internal/infrastructure/storage/postgres/catalog_repo"
	"tesoreria/internal/infrastructure/storage/postgres/document_repo"
	"tesoreria/internal/infrastructure/storage/postgres/recon_repo"
	"tesoreria/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the shared database pool; all tenants share one schema.
	Pool *postgres.Pool

	// TxManager manages transactions over the shared pool.
	TxManager *postgres.TxManager

	// Logger for request logging.
	Logger *logger.Logger

	// JWTService issues and validates tokens.
	JWTService *auth.JWTService

	// Numbers generates correlativo document numbers.
	Numbers correlativo.Generator

	// IdempotencyTTL is how long completed keys are replayable.
	// Zero disables the idempotency middleware.
	IdempotencyTTL time.Duration
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth, no tenant required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	auditService, err := postgres.NewAuditService(cfg.TxManager)
	if err != nil {
		cfg.Logger.Warnw("audit service disabled", "error", err)
		auditService = nil
	}
	baseHandler := handlers.NewBaseHandler(auditService)

	apiV1 := router.Group("/api/v1")
	{
		registerAuthRoutes(apiV1, cfg, baseHandler)

		// Protected endpoints: tenant first, then JWT.
		protected := apiV1.Group("")
		protected.Use(middleware.Tenant(cfg.Pool, cfg.TxManager))
		protected.Use(middleware.Auth(cfg.JWTService))

		if cfg.IdempotencyTTL > 0 {
			store := postgres.NewIdempotencyStore(cfg.TxManager, cfg.IdempotencyTTL)
			protected.Use(middleware.Idempotency(store))
		}

		registerDocumentRoutes(protected, cfg, baseHandler, auditService)
		registerPaymentRoutes(protected, cfg, baseHandler)
		registerAccountRoutes(protected, cfg, baseHandler)

		if auditService != nil {
			auditHandler := handlers.NewAuditHandler(baseHandler, auditService)
			protected.GET("/audit/:entity_type/:id", auditHandler.History)
		}
	}

	return router
}

// registerAuthRoutes registers authentication endpoints.
func registerAuthRoutes(rg *gin.RouterGroup, cfg RouterConfig, baseHandler *handlers.BaseHandler) {
	userRepo := auth_repo.NewUserRepo()
	service := auth.NewService(userRepo, cfg.TxManager, cfg.JWTService, auth.DefaultServiceConfig())

	authHandler := handlers.NewAuthHandler(baseHandler, service)

	// Public endpoints still need the tenant for DB access.
	authGroup := rg.Group("/auth")
	authGroup.Use(middleware.Tenant(cfg.Pool, cfg.TxManager))

	authGroup.POST("/login", authHandler.Login)

	// Registration is admin-only.
	register := authGroup.Group("")
	register.Use(middleware.Auth(cfg.JWTService))
	register.Use(middleware.RequireAdmin())
	register.POST("/register", authHandler.Register)
}

// registerDocumentRoutes registers invoice, purchase order, expense and
// letra endpoints.
func registerDocumentRoutes(rg *gin.RouterGroup, cfg RouterConfig, baseHandler *handlers.BaseHandler, audit *postgres.AuditService) {
	docs := rg.Group("/documents")

	invoiceRepo := document_repo.NewInvoiceRepo()
	letraRepo := document_repo.NewLetraRepo()

	calculator := tax.NewDefaultCalculator()
	invoiceService := invoice.NewService(invoiceRepo, calculator, cfg.Numbers, cfg.TxManager)
	letraService := letra.NewService(letraRepo, invoiceRepo, cfg.Numbers, cfg.TxManager)

	if audit != nil {
		invoiceService.Hooks().On(domain.AfterCreate, func(ctx context.Context, doc *invoice.Invoice) error {
			return audit.LogChange(ctx, string(doc.Kind), doc.ID, postgres.AuditActionCreate, map[string]any{
				"number": doc.Number,
				"total":  doc.Total,
				"state":  doc.State,
			})
		})
	}

	letraHandler := handlers.NewLetraHandler(baseHandler, letraService)

	// --- INVOICES ---
	{
		handler := handlers.NewInvoiceHandler(baseHandler, invoiceService, invoice.KindInvoice)
		group := docs.Group("/invoices")
		group.POST("", handler.Create)
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)
		group.POST("/:id/void", handler.Void)

		// Exchange into installment notes
		group.POST("/:id/split", letraHandler.Split)
		group.GET("/:id/letras", letraHandler.ListByInvoice)
	}

	// --- PURCHASE ORDERS ---
	{
		handler := handlers.NewInvoiceHandler(baseHandler, invoiceService, invoice.KindPurchaseOrder)
		group := docs.Group("/purchase-orders")
		group.POST("", handler.Create)
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)
		group.POST("/:id/void", handler.Void)
		group.POST("/:id/invoice", handler.CreateInvoice)
	}

	// --- EXPENSES ---
	{
		handler := handlers.NewInvoiceHandler(baseHandler, invoiceService, invoice.KindExpense)
		group := docs.Group("/expenses")
		group.POST("", handler.Create)
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)
		group.POST("/:id/void", handler.Void)
	}

	// --- LETRAS ---
	{
		group := docs.Group("/letras")
		group.GET("", letraHandler.List)
		group.GET("/overdue", letraHandler.Overdue)
		group.GET("/:id", letraHandler.Get)
		group.POST("/:id/protest", letraHandler.Protest)
	}
}

// registerPaymentRoutes registers payment endpoints.
func registerPaymentRoutes(rg *gin.RouterGroup, cfg RouterConfig, baseHandler *handlers.BaseHandler) {
	paymentRepo := document_repo.NewPaymentRepo()
	invoiceRepo := document_repo.NewInvoiceRepo()
	letraRepo := document_repo.NewLetraRepo()
	accountRepo := catalog_repo.NewAccountRepo()

	accountService := account.NewService(accountRepo, paymentRepo, cfg.TxManager)
	paymentService := payments.NewService(paymentRepo, invoiceRepo, letraRepo, accountService, cfg.Numbers, cfg.TxManager)

	handler := handlers.NewPaymentHandler(baseHandler, paymentService)

	group := rg.Group("/payments")
	group.POST("", handler.Create)
	group.GET("", handler.List)
	group.GET("/:id", handler.Get)
	group.POST("/:id/void", handler.Void)
}

// registerAccountRoutes registers account and reconciliation endpoints.
func registerAccountRoutes(rg *gin.RouterGroup, cfg RouterConfig, baseHandler *handlers.BaseHandler) {
	accountRepo := catalog_repo.NewAccountRepo()
	paymentRepo := document_repo.NewPaymentRepo()
	movementRepo := recon_repo.NewMovementRepo()
	recRepo := recon_repo.NewReconciliationRepo()

	accountService := account.NewService(accountRepo, paymentRepo, cfg.TxManager)
	reconService := reconciliation.NewService(movementRepo, recRepo, paymentRepo, cfg.TxManager)

	accountHandler := handlers.NewAccountHandler(baseHandler, accountService)
	reconHandler := handlers.NewReconciliationHandler(baseHandler, reconService)

	group := rg.Group("/accounts")
	group.POST("", accountHandler.Create)
	group.GET("", accountHandler.List)
	group.GET("/:id", accountHandler.Get)
	group.POST("/:id/recalculate", accountHandler.Recalculate)

	group.POST("/:id/movements", reconHandler.ImportMovements)
	group.POST("/:id/reconciliation", reconHandler.Match)
	group.GET("/:id/reconciliation", reconHandler.History)
	group.POST("/:id/reconciliation/reset", reconHandler.Unmatch)
}
