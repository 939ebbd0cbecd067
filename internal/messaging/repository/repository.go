package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound             = errors.New("message not found")
	ErrConversationNotFound = errors.New("conversation not found")
)

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Message struct {
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

type Conversation struct {
	ID              uuid.UUID
	CustomerID      uuid.UUID
	IsActive        bool
	MessageCount    int
	LastMessageText *string
	LastMessageAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type InsertParams struct {
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
}

const messageColumns = `id, customer_id, channel, external_id, direction, status, body,
		is_automated, model_id, response_latency_ms, occurred_at, created_at, delivered_at, read_at`

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	err := row.Scan(
		&m.ID,
		&m.CustomerID,
		&m.Channel,
		&m.ExternalID,
		&m.Direction,
		&m.Status,
		&m.Body,
		&m.Automated,
		&m.ModelID,
		&m.ResponseLatencyMs,
		&m.OccurredAt,
		&m.CreatedAt,
		&m.DeliveredAt,
		&m.ReadAt,
	)
	return m, err
}

// Insert stores a message. The partial unique index on
// (channel, external_id) makes redelivered channel messages no-ops; in that
// case the previously stored row is returned with inserted=false. Rows
// without a channel-native id never conflict and always insert.
func (r *Repository) Insert(ctx context.Context, q DBTX, params InsertParams) (Message, bool, error) {
	message, err := scanMessage(q.QueryRow(ctx, `
		INSERT INTO messages (customer_id, channel, external_id, direction, status, body,
			is_automated, model_id, response_latency_ms, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (channel, external_id) WHERE external_id IS NOT NULL DO NOTHING
		RETURNING `+messageColumns+`
	`, params.CustomerID, params.Channel, params.ExternalID, params.Direction, params.Status,
		params.Body, params.Automated, params.ModelID, params.ResponseLatencyMs, params.OccurredAt))
	if err == nil {
		return message, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Message{}, false, err
	}

	// Conflict arm: only reachable with a native id present.
	existing, err := r.GetByDedupKey(ctx, q, params.Channel, *params.ExternalID)
	if err != nil {
		return Message{}, false, err
	}
	return existing, false, nil
}

func (r *Repository) GetByDedupKey(ctx context.Context, q DBTX, channel, externalID string) (Message, error) {
	message, err := scanMessage(q.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE channel = $1 AND external_id = $2
	`, channel, externalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	return message, err
}

func (r *Repository) GetByID(ctx context.Context, messageID uuid.UUID) (Message, error) {
	message, err := scanMessage(r.pool.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE id = $1
	`, messageID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	return message, err
}

type StatusRow struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Status     string
}

// GetStatusForUpdate reads the delivery status of a message by its dedup
// key, locking the row for the rest of the transaction.
func (r *Repository) GetStatusForUpdate(ctx context.Context, q DBTX, channel, externalID string) (StatusRow, error) {
	var row StatusRow
	err := q.QueryRow(ctx, `
		SELECT id, customer_id, status
		FROM messages
		WHERE channel = $1 AND external_id = $2
		FOR UPDATE
	`, channel, externalID).Scan(&row.ID, &row.CustomerID, &row.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return StatusRow{}, ErrNotFound
	}
	return row, err
}

// SetStatus moves a message to a new delivery status and stamps the
// matching channel-reported timestamp once.
func (r *Repository) SetStatus(ctx context.Context, q DBTX, messageID uuid.UUID, status string, at time.Time) error {
	_, err := q.Exec(ctx, `
		UPDATE messages
		SET status = $2,
		    delivered_at = CASE WHEN $2 = 'DELIVERED' THEN COALESCE(delivered_at, $3) ELSE delivered_at END,
		    read_at      = CASE WHEN $2 = 'READ' THEN COALESCE(read_at, $3) ELSE read_at END
		WHERE id = $1
	`, messageID, status, at)
	return err
}

// UpsertConversation creates the customer's single conversation on first
// contact and keeps its rollup columns current afterwards.
func (r *Repository) UpsertConversation(ctx context.Context, q DBTX, customerID uuid.UUID, lastMessageText string, lastMessageAt time.Time) error {
	_, err := q.Exec(ctx, `
		INSERT INTO conversations (customer_id, is_active, message_count, last_message_text, last_message_at)
		VALUES ($1, true, 1, $2, $3)
		ON CONFLICT (customer_id) DO UPDATE
		SET message_count     = conversations.message_count + 1,
		    last_message_text = EXCLUDED.last_message_text,
		    last_message_at   = EXCLUDED.last_message_at,
		    is_active         = true,
		    updated_at        = now()
	`, customerID, lastMessageText, lastMessageAt)
	return err
}

// BumpCustomerLastMessage keeps the denormalized last-message timestamp on
// the customer row in step with the message insert.
func (r *Repository) BumpCustomerLastMessage(ctx context.Context, q DBTX, customerID uuid.UUID, at time.Time) error {
	_, err := q.Exec(ctx, `
		UPDATE customers
		SET last_message_at = $2, last_seen_at = GREATEST(last_seen_at, $2), updated_at = now()
		WHERE id = $1
	`, customerID, at)
	return err
}

func (r *Repository) GetConversation(ctx context.Context, customerID uuid.UUID) (Conversation, error) {
	var conv Conversation
	err := r.pool.QueryRow(ctx, `
		SELECT id, customer_id, is_active, message_count, last_message_text, last_message_at, created_at, updated_at
		FROM conversations
		WHERE customer_id = $1
	`, customerID).Scan(
		&conv.ID,
		&conv.CustomerID,
		&conv.IsActive,
		&conv.MessageCount,
		&conv.LastMessageText,
		&conv.LastMessageAt,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

func (r *Repository) CountMessages(ctx context.Context, customerID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages WHERE customer_id = $1
	`, customerID).Scan(&count)
	return count, err
}

func (r *Repository) ListMessages(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE customer_id = $1
		ORDER BY occurred_at DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`, customerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Message, 0)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, message)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return items, nil
}
