// Package leadstate provides the lead-state bounded context module: the
// qualification state machine, the scoring policy, and the append-only
// audit ledger.
package leadstate

import (
	apphttp "leadinbox_backend/internal/http"
	"leadinbox_backend/internal/leadstate/domain"
	"leadinbox_backend/internal/leadstate/handler"
	"leadinbox_backend/internal/leadstate/repository"
	"leadinbox_backend/internal/leadstate/service"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the lead-state context. Passing a nil policy selects
// the default rule table.
func NewModule(pool *pgxpool.Pool, policy domain.Policy) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, policy)
	h := handler.New(svc)

	return &Module{handler: h, service: svc}
}

func (m *Module) Name() string {
	return "leadstate"
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

var _ apphttp.Module = (*Module)(nil)
