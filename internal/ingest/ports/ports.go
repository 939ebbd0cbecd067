// Package ports defines the interfaces the ingest pipeline requires from the
// customers, messaging, leadstate and responder contexts. The pipeline only
// knows about the data it needs, formatted the way it wants; implementations
// live in internal/adapters and are wired by the composition root.
//
// Every method that takes a pgx.Tx runs inside the pipeline's per-event
// transaction, so one normalized event commits or rolls back as a whole.
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ResolveParams struct {
	Channel    string
	ExternalID string
	Name       *string
	Locale     *string
	Region     *string
	Phone      *string
}

type ResolvedCustomer struct {
	ID      uuid.UUID
	Created bool
}

// CustomerResolver maps a (channel, external id) identity to exactly one
// customer, creating the customer on first contact.
type CustomerResolver interface {
	ResolveIn(ctx context.Context, tx pgx.Tx, p ResolveParams) (ResolvedCustomer, error)
}

type RecordParams struct {
	CustomerID       uuid.UUID
	Channel          string
	ChannelMessageID *string
	Direction        string
	Status           string
	Body             string
	Automated        bool
	ModelID          *string
	LatencyMs        *int64
	OccurredAt       time.Time
}

type RecordedMessage struct {
	ID               uuid.UUID
	CustomerID       uuid.UUID
	Channel          string
	ChannelMessageID *string
	Direction        string
	Status           string
	Body             string
	Automated        bool
	OccurredAt       time.Time
	CreatedAt        time.Time
	Duplicate        bool
}

type StatusParams struct {
	Channel          string
	ChannelMessageID string
	Status           string
	At               time.Time
}

type StatusOutcome struct {
	MessageID  uuid.UUID
	CustomerID uuid.UUID
	Status     string
	Applied    bool
}

// ConversationRecorder stores messages (with redelivery detection) and
// applies delivery receipts. A redelivered message comes back with
// Duplicate=true and the originally stored fields.
type ConversationRecorder interface {
	RecordIn(ctx context.Context, tx pgx.Tx, p RecordParams) (RecordedMessage, error)
	UpdateStatusIn(ctx context.Context, tx pgx.Tx, p StatusParams) (StatusOutcome, error)
}

type MessageSignal struct {
	Channel    string
	Inbound    bool
	Automated  bool
	OccurredAt time.Time
}

type ManualEdit struct {
	Stage *string
	Label *string
	Score *int
	Note  string
}

// TransitionOutcome reports where the lead state landed. When nothing
// changed, Applied is false, ActivityID is uuid.Nil and the before/after
// pairs are equal.
type TransitionOutcome struct {
	Applied     bool
	ActivityID  uuid.UUID
	Trigger     string
	StageBefore string
	Stage       string
	LabelBefore string
	Label       string
	Score       int
	ScoreDelta  int
}

// LeadTransitioner folds signals into the lead state machine. No-op signals
// append nothing to the audit history.
type LeadTransitioner interface {
	ApplyMessageIn(ctx context.Context, tx pgx.Tx, customerID uuid.UUID, sig MessageSignal) (TransitionOutcome, error)
	ApplyManualIn(ctx context.Context, tx pgx.Tx, customerID uuid.UUID, edit ManualEdit) (TransitionOutcome, error)
}

// ResponseOutbox queues an automated reply in the same transaction as the
// inbound message that triggered it.
type ResponseOutbox interface {
	EnqueueIn(ctx context.Context, tx pgx.Tx, customerID, messageID uuid.UUID, channel string, runAt time.Time) (uuid.UUID, error)
}
