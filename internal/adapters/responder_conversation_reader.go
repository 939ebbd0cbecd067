package adapters

import (
	"context"

	"github.com/google/uuid"

	messagingdomain "leadinbox_backend/internal/messaging/domain"
	messagingservice "leadinbox_backend/internal/messaging/service"
	"leadinbox_backend/internal/responder/ports"
)

// ResponderConversationReader adapts the messaging service for the
// responder's prompt context.
type ResponderConversationReader struct {
	messaging *messagingservice.Service
}

// NewResponderConversationReader creates a new conversation reader adapter.
func NewResponderConversationReader(messaging *messagingservice.Service) *ResponderConversationReader {
	return &ResponderConversationReader{messaging: messaging}
}

// RecentTurns returns the customer's most recent messages as turns, oldest
// first. The messaging service lists newest first, so the window is reversed.
func (a *ResponderConversationReader) RecentTurns(ctx context.Context, customerID uuid.UUID, limit int) ([]ports.Turn, error) {
	messages, err := a.messaging.ListMessages(ctx, customerID, limit, 0)
	if err != nil {
		return nil, err
	}

	turns := make([]ports.Turn, len(messages))
	for i, msg := range messages {
		turns[len(messages)-1-i] = ports.Turn{
			Inbound: msg.Direction == messagingdomain.DirectionInbound,
			Text:    msg.Body,
		}
	}
	return turns, nil
}

// Compile-time check.
var _ ports.ConversationReader = (*ResponderConversationReader)(nil)
