package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const insertOutboxEvent = `
INSERT INTO draft_outbox (id, draft_id, event_type, payload, created_at)
VALUES ($1, $2, $3, $4, $5)
`

type InsertOutboxEventParams struct {
	ID        uuid.UUID
	DraftID   uuid.UUID
	EventType string
	Payload   json.RawMessage
	CreatedAt time.Time
}

func (q *Queries) InsertOutboxEvent(ctx context.Context, arg InsertOutboxEventParams) error {
	_, err := q.db.ExecContext(ctx, insertOutboxEvent,
		arg.ID,
		arg.DraftID,
		arg.EventType,
		arg.Payload,
		arg.CreatedAt,
	)
	return err
}

const fetchUnsentOutbox = `
SELECT id, draft_id, event_type, payload, created_at, sent_at
FROM draft_outbox
WHERE sent_at IS NULL
ORDER BY created_at
LIMIT $1
FOR UPDATE SKIP LOCKED
`

func (q *Queries) FetchUnsentOutbox(ctx context.Context, limit int32) ([]DraftOutbox, error) {
	rows, err := q.db.QueryContext(ctx, fetchUnsentOutbox, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DraftOutbox
	for rows.Next() {
		var i DraftOutbox
		if err := rows.Scan(
			&i.ID,
			&i.DraftID,
			&i.EventType,
			&i.Payload,
			&i.CreatedAt,
			&i.SentAt,
		); err != nil {
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

const fetchOutboxByID = `
SELECT id, draft_id, event_type, payload, created_at, sent_at
FROM draft_outbox
WHERE id = $1 AND sent_at IS NULL
`

func (q *Queries) FetchOutboxByID(ctx context.Context, id uuid.UUID) (DraftOutbox, error) {
	row := q.db.QueryRowContext(ctx, fetchOutboxByID, id)
	var i DraftOutbox
	err := row.Scan(
		&i.ID,
		&i.DraftID,
		&i.EventType,
		&i.Payload,
		&i.CreatedAt,
		&i.SentAt,
	)
	return i, err
}

const markOutboxSent = `
UPDATE draft_outbox
SET sent_at = now()
WHERE id = ANY($1::uuid[])
`

func (q *Queries) MarkOutboxSent(ctx context.Context, ids []uuid.UUID) error {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	_, err := q.db.ExecContext(ctx, markOutboxSent, pq.Array(strs))
	return err
}

const countUnsentOutbox = `
SELECT COUNT(*) FROM draft_outbox WHERE sent_at IS NULL
`

func (q *Queries) CountUnsentOutbox(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countUnsentOutbox)
	var count int64
	err := row.Scan(&count)
	return count, err
}
