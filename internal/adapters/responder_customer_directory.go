package adapters

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	customersservice "leadinbox_backend/internal/customers/service"
	"leadinbox_backend/internal/responder/ports"
)

// ResponderCustomerDirectory adapts the customers service for the responder's
// addressing lookups.
type ResponderCustomerDirectory struct {
	customers *customersservice.Service
}

// NewResponderCustomerDirectory creates a new customer directory adapter.
func NewResponderCustomerDirectory(customers *customersservice.Service) *ResponderCustomerDirectory {
	return &ResponderCustomerDirectory{customers: customers}
}

// Contact returns the customer's channel-native address. A customer without
// an identity on the channel cannot be replied to there.
func (a *ResponderCustomerDirectory) Contact(ctx context.Context, customerID uuid.UUID, channel string) (ports.Contact, error) {
	customer, identities, err := a.customers.GetCustomer(ctx, customerID)
	if err != nil {
		return ports.Contact{}, err
	}

	for _, identity := range identities {
		if identity.Channel == channel {
			return ports.Contact{
				Name:    customer.Name,
				Address: identity.ExternalID,
			}, nil
		}
	}
	return ports.Contact{}, fmt.Errorf("customer %s has no identity on channel %s", customerID, channel)
}

// Compile-time check.
var _ ports.CustomerDirectory = (*ResponderCustomerDirectory)(nil)
