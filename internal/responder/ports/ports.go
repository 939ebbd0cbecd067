// Package ports defines the interfaces the responder requires from the rest
// of the system. The responder only knows about the data it needs, formatted
// the way it wants; implementations live in internal/adapters and the
// composition root wires them in.
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Turn is one exchange in a conversation, oldest first when listed.
type Turn struct {
	Inbound bool
	Text    string
}

// GenerateRequest carries the context a reply generator works from.
type GenerateRequest struct {
	CustomerName *string
	Channel      string
	History      []Turn
}

// GeneratedReply is the generator's output. ModelID identifies whatever
// produced the text and is stored on the outbound message.
type GeneratedReply struct {
	Text    string
	ModelID string
}

// Generator produces an automated reply for a conversation. Implementations
// must be safe for concurrent use; the worker calls them from multiple
// handler goroutines.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (GeneratedReply, error)
}

// Outbound is a reply ready to leave the system. To is the channel-native
// address of the customer (phone number for phone-backed channels).
type Outbound struct {
	Channel string
	To      string
	Text    string
}

// Sender delivers an outbound reply over a channel gateway.
type Sender interface {
	Send(ctx context.Context, out Outbound) error
}

// Contact is the addressing information needed to reply to a customer on a
// given channel.
type Contact struct {
	Name    *string
	Address string
}

// CustomerDirectory looks up how to address a customer on a channel.
type CustomerDirectory interface {
	Contact(ctx context.Context, customerID uuid.UUID, channel string) (Contact, error)
}

// ConversationReader loads recent conversation turns for prompt context,
// oldest first.
type ConversationReader interface {
	RecentTurns(ctx context.Context, customerID uuid.UUID, limit int) ([]Turn, error)
}

// AutomatedReply is an outbound automated message to be recorded through the
// normal message recorder, so it shows up in the conversation like any other
// message.
type AutomatedReply struct {
	CustomerID uuid.UUID
	Channel    string
	Body       string
	ModelID    string
	LatencyMs  int64
	OccurredAt time.Time
}

// OutboundRecorder persists an automated reply as a regular outbound message.
type OutboundRecorder interface {
	RecordAutomated(ctx context.Context, reply AutomatedReply) (uuid.UUID, error)
}
