// Package exports serves consistent CSV snapshots of the engine's tables.
// Every download runs inside a single repeatable-read transaction, so the
// rows of one file all describe the same moment. Downloads are authorized
// by short-lived signed tokens minted through the operator API.
package exports

import (
	apphttp "leadinbox_backend/internal/http"
	"leadinbox_backend/platform/config"
	"leadinbox_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the exports bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	cfg     config.ExportConfig
}

// NewModule creates and initializes the exports module.
func NewModule(pool *pgxpool.Pool, cfg config.ExportConfig, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	handler := NewHandler(repo, cfg, log)

	return &Module{
		handler: handler,
		cfg:     cfg,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "exports"
}

// RegisterRoutes mounts export routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	downloads := ctx.V1.Group("/exports")
	downloads.Use(TokenAuthMiddleware(m.cfg))
	downloads.GET("/customers.csv", m.handler.ExportCustomersCSV)
	downloads.GET("/messages.csv", m.handler.ExportMessagesCSV)
	downloads.GET("/conversations.csv", m.handler.ExportConversationsCSV)
	downloads.GET("/lead-activities.csv", m.handler.ExportActivitiesCSV)

	ctx.Admin.POST("/exports/tokens", m.handler.HandleMintToken)
}

var _ apphttp.Module = (*Module)(nil)
