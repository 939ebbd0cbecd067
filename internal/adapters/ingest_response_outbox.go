package adapters

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"leadinbox_backend/internal/ingest/ports"
	responderservice "leadinbox_backend/internal/responder/service"
)

// IngestResponseOutbox adapts the responder service for the ingest pipeline,
// so a queued reply commits atomically with the message that triggered it.
type IngestResponseOutbox struct {
	responder *responderservice.Service
}

// NewIngestResponseOutbox creates a new response outbox adapter.
func NewIngestResponseOutbox(responder *responderservice.Service) *IngestResponseOutbox {
	return &IngestResponseOutbox{responder: responder}
}

// EnqueueIn inserts a pending response row inside the pipeline's transaction.
func (a *IngestResponseOutbox) EnqueueIn(ctx context.Context, tx pgx.Tx, customerID, messageID uuid.UUID, channel string, runAt time.Time) (uuid.UUID, error) {
	return a.responder.EnqueueIn(ctx, tx, responderservice.EnqueueParams{
		CustomerID:       customerID,
		TriggerMessageID: messageID,
		Channel:          channel,
		RunAt:            runAt,
	})
}

// Compile-time check.
var _ ports.ResponseOutbox = (*IngestResponseOutbox)(nil)
