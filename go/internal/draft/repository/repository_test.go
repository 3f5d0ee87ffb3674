package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/budgetdraft/go/internal/draft/events"
	"github.com/mcdev12/budgetdraft/go/internal/draft/orchestrator"
	"github.com/mcdev12/budgetdraft/go/internal/models"
)

// openTestDB connects to the database named by DRAFT_TEST_DATABASE_URL or
// skips the test.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("DRAFT_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("DRAFT_TEST_DATABASE_URL not set")
	}
	database, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestRepository_RecordAndLoad(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	repo := NewRepository(database)
	require.NoError(t, repo.Migrate(ctx))

	d := testDraft()
	require.NoError(t, repo.CreateDraft(ctx, d))
	t.Cleanup(func() { database.Exec(`DELETE FROM drafts WHERE id = $1`, d.ID) })

	ben := d.Settings.Participants[1].ID
	item := models.ItemID(4)
	action := models.DraftAction{Sequence: 1, Round: 1, ParticipantID: ben, Kind: models.ActionKindPick, ItemID: &item}
	ev, err := events.New(d.ID, events.TypePickMade, time.Now(), events.PickMadePayload{Sequence: 1, ItemID: item})
	require.NoError(t, err)

	st := d.State
	st.DeadlineRemaining = 45
	require.NoError(t, repo.Record(ctx, orchestrator.Transition{
		DraftID: d.ID,
		State:   st,
		Action:  &action,
		Events:  []events.Envelope{ev},
	}))

	loaded, err := repo.LoadDraft(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, loaded.State.Actions, 1)
	assert.Equal(t, action, loaded.State.Actions[0])
	assert.Equal(t, d.State.Order, loaded.State.Order)

	// a second pick of the same item violates the ledger index and rolls back
	dup := action
	dup.Sequence = 2
	err = repo.Record(ctx, orchestrator.Transition{DraftID: d.ID, State: st, Action: &dup})
	assert.Error(t, err)

	loaded, err = repo.LoadDraft(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.State.Actions, 1)
}

func TestRepository_UnknownDraft(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	repo := NewRepository(database)
	require.NoError(t, repo.Migrate(ctx))

	_, err := repo.LoadDraft(ctx, uuid.New())
	assert.ErrorIs(t, err, orchestrator.ErrDraftNotFound)

	err = repo.Record(ctx, orchestrator.Transition{DraftID: uuid.New()})
	assert.ErrorIs(t, err, orchestrator.ErrDraftNotFound)
}
