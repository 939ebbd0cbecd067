package exports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CustomerRow is one customer line in the snapshot export.
type CustomerRow struct {
	ID            uuid.UUID
	Name          *string
	Locale        *string
	Region        *string
	Phone         *string
	Stage         string
	Label         string
	Type          string
	Score         int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastSeenAt    time.Time
	LastMessageAt *time.Time
}

// MessageRow is one message line in the snapshot export.
type MessageRow struct {
	ID                uuid.UUID
	CustomerID        uuid.UUID
	Channel           string
	ExternalID        *string
	Direction         string
	Status            string
	Body              string
	Automated         bool
	ModelID           *string
	ResponseLatencyMs *int64
	OccurredAt        time.Time
	CreatedAt         time.Time
	DeliveredAt       *time.Time
	ReadAt            *time.Time
}

// ConversationRow is one conversation rollup line in the snapshot export.
type ConversationRow struct {
	ID              uuid.UUID
	CustomerID      uuid.UUID
	IsActive        bool
	MessageCount    int
	LastMessageText *string
	LastMessageAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ActivityRow is one audit ledger line in the snapshot export.
type ActivityRow struct {
	ID           uuid.UUID
	CustomerID   uuid.UUID
	ActivityType string
	Description  string
	StageBefore  string
	StageAfter   string
	LabelBefore  string
	LabelAfter   string
	ScoreDelta   int
	CreatedAt    time.Time
}

// Repository reads snapshot exports straight off the pool.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Snapshot runs fn inside a repeatable-read read-only transaction. Every
// query issued through the transaction sees the same database state.
func (r *Repository) Snapshot(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// StreamCustomers emits customers created in [from, to] in insertion order,
// calling fn once per row.
func (r *Repository) StreamCustomers(ctx context.Context, tx pgx.Tx, from, to time.Time, limit int, fn func(CustomerRow) error) error {
	rows, err := tx.Query(ctx, `
		SELECT id, name, locale, region, phone, stage, label, customer_type, score,
			created_at, updated_at, last_seen_at, last_message_at
		FROM customers
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at, id
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var row CustomerRow
		if err := rows.Scan(
			&row.ID, &row.Name, &row.Locale, &row.Region, &row.Phone,
			&row.Stage, &row.Label, &row.Type, &row.Score,
			&row.CreatedAt, &row.UpdatedAt, &row.LastSeenAt, &row.LastMessageAt,
		); err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return rows.Err()
}

// StreamMessages emits messages stored in [from, to] in insertion order,
// calling fn once per row.
func (r *Repository) StreamMessages(ctx context.Context, tx pgx.Tx, from, to time.Time, limit int, fn func(MessageRow) error) error {
	rows, err := tx.Query(ctx, `
		SELECT id, customer_id, channel, external_id, direction, status, body,
			is_automated, model_id, response_latency_ms, occurred_at, created_at, delivered_at, read_at
		FROM messages
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at, id
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var row MessageRow
		if err := rows.Scan(
			&row.ID, &row.CustomerID, &row.Channel, &row.ExternalID, &row.Direction,
			&row.Status, &row.Body, &row.Automated, &row.ModelID, &row.ResponseLatencyMs,
			&row.OccurredAt, &row.CreatedAt, &row.DeliveredAt, &row.ReadAt,
		); err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return rows.Err()
}

// StreamConversations emits conversation rollups created in [from, to],
// calling fn once per row.
func (r *Repository) StreamConversations(ctx context.Context, tx pgx.Tx, from, to time.Time, limit int, fn func(ConversationRow) error) error {
	rows, err := tx.Query(ctx, `
		SELECT id, customer_id, is_active, message_count, last_message_text, last_message_at,
			created_at, updated_at
		FROM conversations
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at, id
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var row ConversationRow
		if err := rows.Scan(
			&row.ID, &row.CustomerID, &row.IsActive, &row.MessageCount,
			&row.LastMessageText, &row.LastMessageAt, &row.CreatedAt, &row.UpdatedAt,
		); err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return rows.Err()
}

// StreamActivities emits audit ledger entries appended in [from, to] in
// ledger order, calling fn once per row.
func (r *Repository) StreamActivities(ctx context.Context, tx pgx.Tx, from, to time.Time, limit int, fn func(ActivityRow) error) error {
	rows, err := tx.Query(ctx, `
		SELECT id, customer_id, activity_type, description,
			stage_before, stage_after, label_before, label_after, score_delta, created_at
		FROM lead_activities
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at, id
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var row ActivityRow
		if err := rows.Scan(
			&row.ID, &row.CustomerID, &row.ActivityType, &row.Description,
			&row.StageBefore, &row.StageAfter, &row.LabelBefore, &row.LabelAfter,
			&row.ScoreDelta, &row.CreatedAt,
		); err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return rows.Err()
}
