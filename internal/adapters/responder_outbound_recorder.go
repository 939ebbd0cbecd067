package adapters

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	messagingdomain "leadinbox_backend/internal/messaging/domain"
	messagingservice "leadinbox_backend/internal/messaging/service"
	"leadinbox_backend/internal/responder/ports"
	"leadinbox_backend/platform/config"
	"leadinbox_backend/platform/db"
)

// ResponderOutboundRecorder adapts the messaging service for the responder
// worker. It runs its own transaction; the worker has no pipeline transaction
// to join. Automated outbound messages never move the lead state, so no
// transition runs here.
type ResponderOutboundRecorder struct {
	pool      *pgxpool.Pool
	messaging *messagingservice.Service
	attempts  int
}

// NewResponderOutboundRecorder creates a new outbound recorder adapter.
func NewResponderOutboundRecorder(pool *pgxpool.Pool, messaging *messagingservice.Service, cfg config.EngineConfig) *ResponderOutboundRecorder {
	attempts := 1
	if cfg != nil {
		attempts = cfg.GetTxAttempts()
	}
	return &ResponderOutboundRecorder{pool: pool, messaging: messaging, attempts: attempts}
}

// RecordAutomated stores the reply as a regular outbound message.
func (a *ResponderOutboundRecorder) RecordAutomated(ctx context.Context, reply ports.AutomatedReply) (uuid.UUID, error) {
	var messageID uuid.UUID

	err := db.InTx(ctx, a.pool, a.attempts, func(tx pgx.Tx) error {
		modelID := reply.ModelID
		latency := reply.LatencyMs
		result, err := a.messaging.RecordIn(ctx, tx, messagingservice.RecordInput{
			CustomerID:        reply.CustomerID,
			Channel:           reply.Channel,
			Direction:         messagingdomain.DirectionOutbound,
			Status:            messagingdomain.StatusSent,
			Body:              reply.Body,
			Automated:         true,
			ModelID:           &modelID,
			ResponseLatencyMs: &latency,
			OccurredAt:        reply.OccurredAt,
		})
		if err != nil {
			return err
		}
		messageID = result.Message.ID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return messageID, nil
}

// Compile-time check.
var _ ports.OutboundRecorder = (*ResponderOutboundRecorder)(nil)
