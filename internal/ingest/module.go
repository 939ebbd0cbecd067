package ingest

import (
	"leadinbox_backend/internal/events"
	apphttp "leadinbox_backend/internal/http"
	"leadinbox_backend/platform/config"
	"leadinbox_backend/platform/logger"
	"leadinbox_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the ingest bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
	service *Service
}

// NewModule wires the ingest pipeline. The port implementations in deps
// bridge the customers, messaging, lead-state and responder contexts.
func NewModule(pool *pgxpool.Pool, deps Deps, engineCfg config.EngineConfig, respCfg config.ResponderConfig, bus events.Bus, log *logger.Logger, val *validator.Validator) *Module {
	repo := NewRepository(pool)
	svc := NewService(pool, deps, engineCfg, respCfg, bus, log)
	h := NewHandler(svc, repo, val)

	return &Module{
		handler: h,
		repo:    repo,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "ingest"
}

// Service exposes the pipeline for in-process callers.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts ingest routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Adapter intake authenticates with channel-bound API keys.
	intake := ctx.Ingest.Group("")
	intake.Use(APIKeyAuthMiddleware(m.repo))
	intake.POST("/events", m.handler.HandleEvent)
	intake.POST("/receipts", m.handler.HandleReceipt)

	// Operator operations ride the shared service-token middleware.
	ctx.Protected.POST("/customers/resolve", m.handler.HandleResolveCustomer)
	ctx.Protected.POST("/customers/:customerID/transitions", m.handler.HandleApplyTransition)
	ctx.Protected.POST("/messages", m.handler.HandleRecordMessage)
	ctx.Protected.PATCH("/messages/status", m.handler.HandleUpdateStatus)

	// API key management endpoints (admin only)
	keysGroup := ctx.Admin.Group("/ingest/keys")
	keysGroup.POST("", m.handler.HandleCreateAPIKey)
	keysGroup.GET("", m.handler.HandleListAPIKeys)
	keysGroup.DELETE("/:keyId", m.handler.HandleRevokeAPIKey)
}

var _ apphttp.Module = (*Module)(nil)
