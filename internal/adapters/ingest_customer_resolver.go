package adapters

import (
	"context"

	"github.com/jackc/pgx/v5"

	customersrepo "leadinbox_backend/internal/customers/repository"
	customersservice "leadinbox_backend/internal/customers/service"
	"leadinbox_backend/internal/ingest/ports"
)

// IngestCustomerResolver adapts the customers service for the ingest pipeline.
type IngestCustomerResolver struct {
	customers *customersservice.Service
}

// NewIngestCustomerResolver creates a new customer resolver adapter.
func NewIngestCustomerResolver(customers *customersservice.Service) *IngestCustomerResolver {
	return &IngestCustomerResolver{customers: customers}
}

// ResolveIn resolves a channel identity inside the pipeline's transaction.
func (a *IngestCustomerResolver) ResolveIn(ctx context.Context, tx pgx.Tx, p ports.ResolveParams) (ports.ResolvedCustomer, error) {
	resolution, err := a.customers.ResolveIn(ctx, tx, customersservice.ResolveInput{
		Channel:    p.Channel,
		ExternalID: p.ExternalID,
		Hints: customersrepo.ProfileHints{
			Name:   p.Name,
			Locale: p.Locale,
			Region: p.Region,
			Phone:  p.Phone,
		},
	})
	if err != nil {
		return ports.ResolvedCustomer{}, err
	}
	return ports.ResolvedCustomer{
		ID:      resolution.CustomerID,
		Created: resolution.Created,
	}, nil
}

// Compile-time check.
var _ ports.CustomerResolver = (*IngestCustomerResolver)(nil)
