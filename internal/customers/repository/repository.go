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

var ErrNotFound = errors.New("customer not found")

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

type Customer struct {
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

type Identity struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Channel    string
	ExternalID string
	CreatedAt  time.Time
}

type ProfileHints struct {
	Name   *string
	Locale *string
	Region *string
	Phone  *string
}

func (h ProfileHints) Empty() bool {
	return h.Name == nil && h.Locale == nil && h.Region == nil && h.Phone == nil
}

type CreateCustomerParams struct {
	Channel    string
	ExternalID string
	Stage      string
	Label      string
	Type       string
	Score      int
	Hints      ProfileHints
}

const customerColumns = `id, name, locale, region, phone, stage, label, customer_type, score,
		created_at, updated_at, last_seen_at, last_message_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Locale,
		&c.Region,
		&c.Phone,
		&c.Stage,
		&c.Label,
		&c.Type,
		&c.Score,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.LastSeenAt,
		&c.LastMessageAt,
	)
	return c, err
}

// LookupIdentity maps a channel-scoped external user id to the internal
// customer id.
func (r *Repository) LookupIdentity(ctx context.Context, q DBTX, channel, externalID string) (uuid.UUID, error) {
	var customerID uuid.UUID
	err := q.QueryRow(ctx, `
		SELECT customer_id
		FROM customer_identities
		WHERE channel = $1 AND external_id = $2
	`, channel, externalID).Scan(&customerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.UUID{}, ErrNotFound
	}
	return customerID, err
}

// CreateWithIdentity inserts a customer row together with its first channel
// identity. A concurrent insert of the same (channel, external_id) surfaces
// as a unique violation; callers re-read the winner.
func (r *Repository) CreateWithIdentity(ctx context.Context, q DBTX, params CreateCustomerParams) (Customer, error) {
	customer, err := scanCustomer(q.QueryRow(ctx, `
		INSERT INTO customers (name, locale, region, phone, stage, label, customer_type, score, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING `+customerColumns+`
	`, params.Hints.Name, params.Hints.Locale, params.Hints.Region, params.Hints.Phone,
		params.Stage, params.Label, params.Type, params.Score))
	if err != nil {
		return Customer{}, err
	}

	if _, err := q.Exec(ctx, `
		INSERT INTO customer_identities (customer_id, channel, external_id)
		VALUES ($1, $2, $3)
	`, customer.ID, params.Channel, params.ExternalID); err != nil {
		return Customer{}, err
	}

	return customer, nil
}

// AttachIdentity links an additional channel identity to an existing
// customer. The customer keeps at most one identity per channel.
func (r *Repository) AttachIdentity(ctx context.Context, q DBTX, customerID uuid.UUID, channel, externalID string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO customer_identities (customer_id, channel, external_id)
		VALUES ($1, $2, $3)
	`, customerID, channel, externalID)
	return err
}

func (r *Repository) TouchLastSeen(ctx context.Context, q DBTX, customerID uuid.UUID) error {
	tag, err := q.Exec(ctx, `
		UPDATE customers
		SET last_seen_at = now(), updated_at = now()
		WHERE id = $1
	`, customerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyProfileHints fills empty profile fields from adapter-supplied hints.
// Fields the customer already has are never overwritten.
func (r *Repository) ApplyProfileHints(ctx context.Context, q DBTX, customerID uuid.UUID, hints ProfileHints) error {
	if hints.Empty() {
		return nil
	}
	_, err := q.Exec(ctx, `
		UPDATE customers
		SET name   = COALESCE(name, $2),
		    locale = COALESCE(locale, $3),
		    region = COALESCE(region, $4),
		    phone  = COALESCE(phone, $5),
		    updated_at = now()
		WHERE id = $1
	`, customerID, hints.Name, hints.Locale, hints.Region, hints.Phone)
	return err
}

func (r *Repository) GetByID(ctx context.Context, customerID uuid.UUID) (Customer, error) {
	customer, err := scanCustomer(r.pool.QueryRow(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE id = $1
	`, customerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return customer, err
}

func (r *Repository) ListIdentities(ctx context.Context, customerID uuid.UUID) ([]Identity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, customer_id, channel, external_id, created_at
		FROM customer_identities
		WHERE customer_id = $1
		ORDER BY created_at ASC
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Identity, 0)
	for rows.Next() {
		var item Identity
		if err := rows.Scan(&item.ID, &item.CustomerID, &item.Channel, &item.ExternalID, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return items, nil
}

type ProfileUpdate struct {
	Name   *string
	Locale *string
	Region *string
	Phone  *string
	Type   *string
}

// UpdateProfile sets the provided profile fields, keeping the rest.
// Lead state (stage, label, score) is out of reach here on purpose; it
// only moves through the lead state machine.
func (r *Repository) UpdateProfile(ctx context.Context, customerID uuid.UUID, update ProfileUpdate) (Customer, error) {
	customer, err := scanCustomer(r.pool.QueryRow(ctx, `
		UPDATE customers
		SET name          = COALESCE($2, name),
		    locale        = COALESCE($3, locale),
		    region        = COALESCE($4, region),
		    phone         = COALESCE($5, phone),
		    customer_type = COALESCE($6, customer_type),
		    updated_at    = now()
		WHERE id = $1
		RETURNING `+customerColumns+`
	`, customerID, update.Name, update.Locale, update.Region, update.Phone, update.Type))
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return customer, err
}
