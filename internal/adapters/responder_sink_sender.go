package adapters

import (
	"context"

	"leadinbox_backend/internal/outbound"
	"leadinbox_backend/internal/responder/ports"
)

// ResponderSinkSender adapts the delivery-sink client for the responder.
type ResponderSinkSender struct {
	client *outbound.Client
}

// NewResponderSinkSender creates a new sink sender adapter. A nil client is
// allowed; sends are then absorbed by the client itself.
func NewResponderSinkSender(client *outbound.Client) *ResponderSinkSender {
	return &ResponderSinkSender{client: client}
}

// Send delivers the reply through the sink.
func (a *ResponderSinkSender) Send(ctx context.Context, out ports.Outbound) error {
	return a.client.SendMessage(ctx, out.Channel, out.To, out.Text)
}

// Compile-time check.
var _ ports.Sender = (*ResponderSinkSender)(nil)
