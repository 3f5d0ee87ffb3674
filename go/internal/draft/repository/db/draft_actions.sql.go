package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const insertDraftAction = `
INSERT INTO draft_actions (draft_id, sequence, round, participant_id, kind, item_id, forced)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type InsertDraftActionParams struct {
	DraftID       uuid.UUID
	Sequence      int32
	Round         int32
	ParticipantID uuid.UUID
	Kind          string
	ItemID        sql.NullInt64
	Forced        bool
}

func (q *Queries) InsertDraftAction(ctx context.Context, arg InsertDraftActionParams) error {
	_, err := q.db.ExecContext(ctx, insertDraftAction,
		arg.DraftID,
		arg.Sequence,
		arg.Round,
		arg.ParticipantID,
		arg.Kind,
		arg.ItemID,
		arg.Forced,
	)
	return err
}

const listDraftActions = `
SELECT draft_id, sequence, round, participant_id, kind, item_id, forced, created_at
FROM draft_actions
WHERE draft_id = $1
ORDER BY sequence
`

func (q *Queries) ListDraftActions(ctx context.Context, draftID uuid.UUID) ([]DraftAction, error) {
	rows, err := q.db.QueryContext(ctx, listDraftActions, draftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DraftAction
	for rows.Next() {
		var i DraftAction
		if err := rows.Scan(
			&i.DraftID,
			&i.Sequence,
			&i.Round,
			&i.ParticipantID,
			&i.Kind,
			&i.ItemID,
			&i.Forced,
			&i.CreatedAt,
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
