package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxStore defines the interface for response-outbox persistence.
// The service depends on this abstraction so the dispatch flow can be
// exercised against an in-memory store in tests.
type OutboxStore interface {
	InsertIn(ctx context.Context, q DBTX, p InsertParams) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (Record, error)
	ClaimDue(ctx context.Context, limit int) ([]Record, error)
	MarkPending(ctx context.Context, id uuid.UUID, lastError *string) error
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	Reschedule(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error
}

// Ensure Repository implements OutboxStore
var _ OutboxStore = (*Repository)(nil)
