// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadinbox_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Customer Domain Events
// =============================================================================

// CustomerCreated is published when identity resolution creates a new customer.
type CustomerCreated struct {
	BaseEvent
	CustomerID uuid.UUID `json:"customerId"`
	Channel    string    `json:"channel"`
	ExternalID string    `json:"externalId"`
}

func (e CustomerCreated) EventName() string { return "customers.created" }

// =============================================================================
// Messaging Domain Events
// =============================================================================

// MessageRecorded is published after a new message row is committed.
// Replays of an already-recorded message do not publish it.
type MessageRecorded struct {
	BaseEvent
	CustomerID uuid.UUID `json:"customerId"`
	MessageID  uuid.UUID `json:"messageId"`
	Channel    string    `json:"channel"`
	Direction  string    `json:"direction"`
	Automated  bool      `json:"automated"`
}

func (e MessageRecorded) EventName() string { return "messages.recorded" }

// MessageStatusChanged is published when a delivery receipt advances a
// message's status.
type MessageStatusChanged struct {
	BaseEvent
	CustomerID uuid.UUID `json:"customerId"`
	MessageID  uuid.UUID `json:"messageId"`
	Channel    string    `json:"channel"`
	Status     string    `json:"status"`
}

func (e MessageStatusChanged) EventName() string { return "messages.status_changed" }

// =============================================================================
// Lead-State Domain Events
// =============================================================================

// LeadStateChanged is published after a lead-state transition is committed.
type LeadStateChanged struct {
	BaseEvent
	CustomerID  uuid.UUID `json:"customerId"`
	ActivityID  uuid.UUID `json:"activityId"`
	Trigger     string    `json:"trigger"`
	StageBefore string    `json:"stageBefore"`
	StageAfter  string    `json:"stageAfter"`
	LabelBefore string    `json:"labelBefore"`
	LabelAfter  string    `json:"labelAfter"`
	ScoreDelta  int       `json:"scoreDelta"`
	Score       int       `json:"score"`
}

func (e LeadStateChanged) EventName() string { return "leadstate.changed" }

// =============================================================================
// Responder Domain Events
// =============================================================================

// ResponseRecorded is published when the automated-response worker has
// recorded an outbound reply.
type ResponseRecorded struct {
	BaseEvent
	CustomerID uuid.UUID `json:"customerId"`
	MessageID  uuid.UUID `json:"messageId"`
	OutboxID   uuid.UUID `json:"outboxId"`
	ModelID    string    `json:"modelId"`
	LatencyMs  int64     `json:"latencyMs"`
}

func (e ResponseRecorded) EventName() string { return "responder.response_recorded" }
