package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const createDraft = `
INSERT INTO drafts (id, name, settings, mode, order_ranks, started, paused, deadline_remaining, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
`

type CreateDraftParams struct {
	ID                uuid.UUID
	Name              string
	Settings          json.RawMessage
	Mode              string
	OrderRanks        pqtype.NullRawMessage
	Started           bool
	Paused            bool
	DeadlineRemaining int32
	CreatedAt         time.Time
}

func (q *Queries) CreateDraft(ctx context.Context, arg CreateDraftParams) error {
	_, err := q.db.ExecContext(ctx, createDraft,
		arg.ID,
		arg.Name,
		arg.Settings,
		arg.Mode,
		arg.OrderRanks,
		arg.Started,
		arg.Paused,
		arg.DeadlineRemaining,
		arg.CreatedAt,
	)
	return err
}

const updateDraftState = `
UPDATE drafts
SET mode = $2,
    order_ranks = $3,
    started = $4,
    paused = $5,
    deadline_remaining = $6,
    updated_at = now()
WHERE id = $1
`

type UpdateDraftStateParams struct {
	ID                uuid.UUID
	Mode              string
	OrderRanks        pqtype.NullRawMessage
	Started           bool
	Paused            bool
	DeadlineRemaining int32
}

func (q *Queries) UpdateDraftState(ctx context.Context, arg UpdateDraftStateParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateDraftState,
		arg.ID,
		arg.Mode,
		arg.OrderRanks,
		arg.Started,
		arg.Paused,
		arg.DeadlineRemaining,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const draftColumns = `id, name, settings, mode, order_ranks, started, paused, deadline_remaining, created_at, updated_at`

func scanDraft(row interface{ Scan(...interface{}) error }) (Draft, error) {
	var i Draft
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Settings,
		&i.Mode,
		&i.OrderRanks,
		&i.Started,
		&i.Paused,
		&i.DeadlineRemaining,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getDraft = `SELECT ` + draftColumns + ` FROM drafts WHERE id = $1`

func (q *Queries) GetDraft(ctx context.Context, id uuid.UUID) (Draft, error) {
	return scanDraft(q.db.QueryRowContext(ctx, getDraft, id))
}

const listDrafts = `SELECT ` + draftColumns + ` FROM drafts ORDER BY created_at`

func (q *Queries) ListDrafts(ctx context.Context) ([]Draft, error) {
	rows, err := q.db.QueryContext(ctx, listDrafts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Draft
	for rows.Next() {
		i, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
