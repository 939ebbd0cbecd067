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

// Activity is one append-only audit ledger entry.
type Activity struct {
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

// StateRow is the lead-state triple read off the customer row.
type StateRow struct {
	CustomerID uuid.UUID
	Stage      string
	Label      string
	Score      int
}

const activityColumns = `id, customer_id, activity_type, description,
		stage_before, stage_after, label_before, label_after, score_delta, created_at`

func scanActivity(row pgx.Row) (Activity, error) {
	var a Activity
	err := row.Scan(
		&a.ID,
		&a.CustomerID,
		&a.ActivityType,
		&a.Description,
		&a.StageBefore,
		&a.StageAfter,
		&a.LabelBefore,
		&a.LabelAfter,
		&a.ScoreDelta,
		&a.CreatedAt,
	)
	return a, err
}

// GetStateForUpdate reads the customer's lead state, locking the row so
// the transition and its audit append commit against a stable base.
func (r *Repository) GetStateForUpdate(ctx context.Context, q DBTX, customerID uuid.UUID) (StateRow, error) {
	var row StateRow
	err := q.QueryRow(ctx, `
		SELECT id, stage, label, score
		FROM customers
		WHERE id = $1
		FOR UPDATE
	`, customerID).Scan(&row.CustomerID, &row.Stage, &row.Label, &row.Score)
	if errors.Is(err, pgx.ErrNoRows) {
		return StateRow{}, ErrNotFound
	}
	return row, err
}

// UpdateState writes the transitioned lead state. It never runs without a
// matching InsertActivity in the same transaction.
func (r *Repository) UpdateState(ctx context.Context, q DBTX, customerID uuid.UUID, stage, label string, score int) error {
	tag, err := q.Exec(ctx, `
		UPDATE customers
		SET stage = $2, label = $3, score = $4, updated_at = now()
		WHERE id = $1
	`, customerID, stage, label, score)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type InsertActivityParams struct {
	CustomerID   uuid.UUID
	ActivityType string
	Description  string
	StageBefore  string
	StageAfter   string
	LabelBefore  string
	LabelAfter   string
	ScoreDelta   int
}

func (r *Repository) InsertActivity(ctx context.Context, q DBTX, params InsertActivityParams) (Activity, error) {
	return scanActivity(q.QueryRow(ctx, `
		INSERT INTO lead_activities (customer_id, activity_type, description,
			stage_before, stage_after, label_before, label_after, score_delta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+activityColumns+`
	`, params.CustomerID, params.ActivityType, params.Description,
		params.StageBefore, params.StageAfter, params.LabelBefore, params.LabelAfter, params.ScoreDelta))
}

// CountScoredMessagesSince counts the scored inbound-message entries after
// the cutoff, which is how the burst cap looks back.
func (r *Repository) CountScoredMessagesSince(ctx context.Context, q DBTX, customerID uuid.UUID, activityType string, since time.Time) (int, error) {
	var count int
	err := q.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM lead_activities
		WHERE customer_id = $1 AND activity_type = $2 AND score_delta > 0 AND created_at > $3
	`, customerID, activityType, since).Scan(&count)
	return count, err
}

// ListActivities pages through a customer's ledger oldest first. The
// (created_at, id) ordering keeps entries stable between pages.
func (r *Repository) ListActivities(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+activityColumns+`
		FROM lead_activities
		WHERE customer_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`, customerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Activity, 0)
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, activity)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return items, nil
}

// Snapshot reads the customer state and its complete ordered history in
// one repeatable-read transaction so the fold check sees a consistent
// pair.
func (r *Repository) Snapshot(ctx context.Context, customerID uuid.UUID) (StateRow, []Activity, error) {
	var state StateRow
	var activities []Activity

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return StateRow{}, nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	err = tx.QueryRow(ctx, `
		SELECT id, stage, label, score
		FROM customers
		WHERE id = $1
	`, customerID).Scan(&state.CustomerID, &state.Stage, &state.Label, &state.Score)
	if errors.Is(err, pgx.ErrNoRows) {
		err = ErrNotFound
		return StateRow{}, nil, err
	}
	if err != nil {
		return StateRow{}, nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT `+activityColumns+`
		FROM lead_activities
		WHERE customer_id = $1
		ORDER BY created_at ASC, id ASC
	`, customerID)
	if err != nil {
		return StateRow{}, nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var activity Activity
		activity, err = scanActivity(rows)
		if err != nil {
			return StateRow{}, nil, err
		}
		activities = append(activities, activity)
	}
	if err = rows.Err(); err != nil {
		return StateRow{}, nil, err
	}
	rows.Close()

	if err = tx.Commit(ctx); err != nil {
		return StateRow{}, nil, err
	}

	return state, activities, nil
}
