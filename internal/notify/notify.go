// Package notify pushes lead-state changes to an operator-configured
// webhook. It subscribes to the event bus; nothing here runs inside the
// ingest transaction.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"leadinbox_backend/internal/events"
	"leadinbox_backend/platform/config"
	"leadinbox_backend/platform/logger"
)

// LeadChangeNotice is the webhook payload for one stage or label change.
type LeadChangeNotice struct {
	CustomerID  uuid.UUID `json:"customerId"`
	ActivityID  uuid.UUID `json:"activityId"`
	Trigger     string    `json:"trigger"`
	StageBefore string    `json:"stageBefore"`
	StageAfter  string    `json:"stageAfter"`
	LabelBefore string    `json:"labelBefore"`
	LabelAfter  string    `json:"labelAfter"`
	Score       int       `json:"score"`
	ChangedAt   time.Time `json:"changedAt"`
}

// Sender delivers a notice to the configured destination.
type Sender interface {
	Send(ctx context.Context, notice LeadChangeNotice) error
}

// Module listens for lead-state changes and forwards the meaningful ones.
type Module struct {
	sender  Sender
	enabled bool
	log     *logger.Logger
}

// New creates the notify module.
func New(sender Sender, cfg config.NotifyConfig, log *logger.Logger) *Module {
	return &Module{
		sender:  sender,
		enabled: cfg.IsNotifyEnabled(),
		log:     log,
	}
}

// RegisterHandlers subscribes the module to the events it cares about.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadStateChanged{}.EventName(), m)
	m.log.Info("notify module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadStateChanged:
		return m.handleLeadStateChanged(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

// handleLeadStateChanged forwards stage and label movements. Score-only
// changes stay quiet; they happen on nearly every inbound message.
func (m *Module) handleLeadStateChanged(ctx context.Context, e events.LeadStateChanged) error {
	if !m.enabled || m.sender == nil {
		return nil
	}
	if e.StageBefore == e.StageAfter && e.LabelBefore == e.LabelAfter {
		return nil
	}

	notice := LeadChangeNotice{
		CustomerID:  e.CustomerID,
		ActivityID:  e.ActivityID,
		Trigger:     e.Trigger,
		StageBefore: e.StageBefore,
		StageAfter:  e.StageAfter,
		LabelBefore: e.LabelBefore,
		LabelAfter:  e.LabelAfter,
		Score:       e.Score,
		ChangedAt:   e.Timestamp,
	}
	if err := m.sender.Send(ctx, notice); err != nil {
		m.log.Error("lead change webhook failed",
			"customerId", e.CustomerID,
			"stage", e.StageAfter,
			"error", err,
		)
		return err
	}
	return nil
}

// Compile-time check.
var _ events.Handler = (*Module)(nil)
