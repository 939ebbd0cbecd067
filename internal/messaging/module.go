// Package messaging provides the messaging bounded context module:
// message recording with cross-channel dedup, delivery receipts, and the
// per-customer conversation rollup.
package messaging

import (
	apphttp "leadinbox_backend/internal/http"
	"leadinbox_backend/internal/messaging/handler"
	"leadinbox_backend/internal/messaging/repository"
	"leadinbox_backend/internal/messaging/service"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	h := handler.New(svc)

	return &Module{handler: h, service: svc}
}

func (m *Module) Name() string {
	return "messaging"
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

var _ apphttp.Module = (*Module)(nil)
