package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/budgetdraft/go/internal/catalog"
	"github.com/mcdev12/budgetdraft/go/internal/draft/orchestrator"
	"github.com/mcdev12/budgetdraft/go/internal/draft/repository/db"
	"github.com/mcdev12/budgetdraft/go/internal/models"
	"github.com/mcdev12/budgetdraft/go/internal/sqlutil"
)

//go:embed schema.sql
var schema string

// Repository stores drafts, their ledgers and outbox events in Postgres.
type Repository struct {
	db      *sql.DB
	queries *db.Queries
}

func NewRepository(database *sql.DB) *Repository {
	return &Repository{
		db:      database,
		queries: db.New(database),
	}
}

// Migrate creates the draft tables if they do not exist
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply draft schema: %w", err)
	}
	return nil
}

func (r *Repository) CreateDraft(ctx context.Context, d orchestrator.Draft) error {
	params, err := createDraftParams(d)
	if err != nil {
		return err
	}
	if err := r.queries.CreateDraft(ctx, params); err != nil {
		return fmt.Errorf("failed to create draft: %w", err)
	}
	return nil
}

// Record writes the draft state, the appended action and its outbox events in
// one transaction.
func (r *Repository) Record(ctx context.Context, t orchestrator.Transition) error {
	stateParams, err := updateDraftStateParams(t.DraftID, t.State)
	if err != nil {
		return err
	}

	return sqlutil.Run(ctx, r.db, r.queries.WithTx, func(q *db.Queries) error {
		n, err := q.UpdateDraftState(ctx, stateParams)
		if err != nil {
			return fmt.Errorf("failed to update draft state: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", orchestrator.ErrDraftNotFound, t.DraftID)
		}

		if t.Action != nil {
			if err := q.InsertDraftAction(ctx, insertDraftActionParams(t.DraftID, *t.Action)); err != nil {
				return fmt.Errorf("failed to insert draft action %d: %w", t.Action.Sequence, err)
			}
		}

		for _, ev := range t.Events {
			err := q.InsertOutboxEvent(ctx, db.InsertOutboxEventParams{
				ID:        ev.EventID,
				DraftID:   ev.DraftID,
				EventType: string(ev.EventType),
				Payload:   ev.Payload,
				CreatedAt: ev.Timestamp,
			})
			if err != nil {
				return fmt.Errorf("failed to insert %s outbox event: %w", ev.EventType, err)
			}
		}
		return nil
	})
}

// LoadDraft reads one draft with its full ledger
func (r *Repository) LoadDraft(ctx context.Context, id uuid.UUID) (orchestrator.Draft, error) {
	row, err := r.queries.GetDraft(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return orchestrator.Draft{}, fmt.Errorf("%w: %s", orchestrator.ErrDraftNotFound, id)
		}
		return orchestrator.Draft{}, fmt.Errorf("failed to get draft: %w", err)
	}
	return r.withActions(ctx, row)
}

// ListDrafts reads every stored draft with its full ledger, oldest first
func (r *Repository) ListDrafts(ctx context.Context) ([]orchestrator.Draft, error) {
	rows, err := r.queries.ListDrafts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	drafts := make([]orchestrator.Draft, 0, len(rows))
	for _, row := range rows {
		d, err := r.withActions(ctx, row)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

func (r *Repository) withActions(ctx context.Context, row db.Draft) (orchestrator.Draft, error) {
	d, err := draftFromRow(row)
	if err != nil {
		return orchestrator.Draft{}, err
	}
	actions, err := r.queries.ListDraftActions(ctx, row.ID)
	if err != nil {
		return orchestrator.Draft{}, fmt.Errorf("failed to list actions for draft %s: %w", row.ID, err)
	}
	d.State.Actions = make([]models.DraftAction, len(actions))
	for i, a := range actions {
		d.State.Actions[i] = actionFromRow(a)
	}
	return d, nil
}

// LoadCatalog reads the catalog table. Rows that fail validation are logged
// and skipped, the same way the CSV loader treats bad records.
func (r *Repository) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	rows, err := r.queries.ListCatalogItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog items: %w", err)
	}

	items := make([]models.Item, 0, len(rows))
	for _, row := range rows {
		item, err := itemFromRow(row)
		if err != nil {
			log.Warn().Err(err).Int64("item_id", row.ID).Msg("skipping catalog item")
			continue
		}
		items = append(items, item)
	}

	cat, err := catalog.New(items)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}
	return cat, nil
}
