// Package customers provides the customers bounded context module:
// channel identity resolution and the customer profile surface.
package customers

import (
	"leadinbox_backend/internal/customers/handler"
	"leadinbox_backend/internal/customers/repository"
	"leadinbox_backend/internal/customers/service"
	apphttp "leadinbox_backend/internal/http"
	"leadinbox_backend/platform/config"
	"leadinbox_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, cfg config.EngineConfig, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

func (m *Module) Name() string {
	return "customers"
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

var _ apphttp.Module = (*Module)(nil)
