package adapters

import (
	"context"

	"github.com/jackc/pgx/v5"

	"leadinbox_backend/internal/ingest/ports"
	messagingservice "leadinbox_backend/internal/messaging/service"
)

// IngestConversationRecorder adapts the messaging service for the ingest
// pipeline.
type IngestConversationRecorder struct {
	messaging *messagingservice.Service
}

// NewIngestConversationRecorder creates a new conversation recorder adapter.
func NewIngestConversationRecorder(messaging *messagingservice.Service) *IngestConversationRecorder {
	return &IngestConversationRecorder{messaging: messaging}
}

// RecordIn stores a message inside the pipeline's transaction.
func (a *IngestConversationRecorder) RecordIn(ctx context.Context, tx pgx.Tx, p ports.RecordParams) (ports.RecordedMessage, error) {
	result, err := a.messaging.RecordIn(ctx, tx, messagingservice.RecordInput{
		CustomerID:        p.CustomerID,
		Channel:           p.Channel,
		ExternalID:        p.ChannelMessageID,
		Direction:         p.Direction,
		Status:            p.Status,
		Body:              p.Body,
		Automated:         p.Automated,
		ModelID:           p.ModelID,
		ResponseLatencyMs: p.LatencyMs,
		OccurredAt:        p.OccurredAt,
	})
	if err != nil {
		return ports.RecordedMessage{}, err
	}

	msg := result.Message
	return ports.RecordedMessage{
		ID:               msg.ID,
		CustomerID:       msg.CustomerID,
		Channel:          msg.Channel,
		ChannelMessageID: msg.ExternalID,
		Direction:        msg.Direction,
		Status:           msg.Status,
		Body:             msg.Body,
		Automated:        msg.Automated,
		OccurredAt:       msg.OccurredAt,
		CreatedAt:        msg.CreatedAt,
		Duplicate:        result.Duplicate,
	}, nil
}

// UpdateStatusIn applies a delivery receipt inside the pipeline's transaction.
func (a *IngestConversationRecorder) UpdateStatusIn(ctx context.Context, tx pgx.Tx, p ports.StatusParams) (ports.StatusOutcome, error) {
	result, err := a.messaging.UpdateStatusIn(ctx, tx, messagingservice.StatusUpdateInput{
		Channel:    p.Channel,
		ExternalID: p.ChannelMessageID,
		Status:     p.Status,
		At:         p.At,
	})
	if err != nil {
		return ports.StatusOutcome{}, err
	}
	return ports.StatusOutcome{
		MessageID:  result.MessageID,
		CustomerID: result.CustomerID,
		Status:     result.Status,
		Applied:    result.Applied,
	}, nil
}

// Compile-time check.
var _ ports.ConversationRecorder = (*IngestConversationRecorder)(nil)
