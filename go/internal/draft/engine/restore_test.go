package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/budgetdraft/go/internal/draft/ledger"
	"github.com/mcdev12/budgetdraft/go/internal/models"
)

func playSnakeDraft(t *testing.T) (*Engine, Config) {
	t.Helper()
	ps := participants(3)
	cfg := Config{Participants: ps, Budget: decimal.NewFromInt(50), TurnSeconds: 30, Mode: models.DraftModeSnake}
	e, err := New(cfg, testCatalog(t))
	require.NoError(t, err)

	_, err = e.SetOrder(map[uuid.UUID]int{ps[0].ID: 2, ps[1].ID: 3, ps[2].ID: 1})
	require.NoError(t, err)
	_, err = e.Start()
	require.NoError(t, err)

	for _, id := range []models.ItemID{5, 1, 0, 2, 4, 6} {
		current := e.Turn().CurrentParticipantID
		if id == 0 {
			_, err = e.Skip(current)
		} else {
			_, err = e.Pick(current, id)
		}
		require.NoError(t, err)
	}
	for i := 0; i < 7; i++ {
		e.Tick()
	}
	return e, cfg
}

func TestRestore_RebuildsIdenticalSnapshot(t *testing.T) {
	e, cfg := playSnakeDraft(t)

	restored, err := Restore(cfg, e.catalog, e.State())
	require.NoError(t, err)

	assert.Equal(t, e.Snapshot(), restored.Snapshot())
	assert.Equal(t, 23, restored.Turn().DeadlineRemaining)
}

func TestRestore_NotStarted(t *testing.T) {
	ps := participants(2)
	cfg := Config{Participants: ps, Budget: decimal.NewFromInt(10)}

	e, err := Restore(cfg, testCatalog(t), State{Mode: models.DraftModeSnake})
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusNotStarted, e.Turn().Status)
	assert.Equal(t, models.DraftModeSnake, e.Snapshot().Mode)

	_, err = Restore(cfg, testCatalog(t), State{Actions: []models.DraftAction{
		{Sequence: 1, ParticipantID: ps[0].ID, Kind: models.ActionKindSkip},
	}})
	assert.ErrorIs(t, err, ledger.ErrCorruptLedger)
}

func TestRestore_RejectsOutOfTurnAction(t *testing.T) {
	ps := participants(2)
	cfg := Config{Participants: ps, Budget: decimal.NewFromInt(10)}

	_, err := Restore(cfg, testCatalog(t), State{Started: true, Actions: []models.DraftAction{
		{Sequence: 1, ParticipantID: ps[1].ID, Kind: models.ActionKindSkip},
	}})
	assert.ErrorIs(t, err, ledger.ErrCorruptLedger)
}

func TestRestore_RejectsLedgerBreakingLimits(t *testing.T) {
	gk := func(seq int, id models.ItemID, p uuid.UUID) models.DraftAction {
		return models.DraftAction{Sequence: seq, ParticipantID: p, Kind: models.ActionKindPick, ItemID: &id}
	}
	tests := []struct {
		name  string
		rules Rules
	}{
		{"roster cap", Rules{Cap: 1}},
		{"quota", Rules{Cap: 15, Quotas: map[models.Category]int{models.CategoryGK: 1}}},
		{"quota override", Rules{Overrides: map[uuid.UUID]Override{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := participants(1)
			if tt.rules.Overrides != nil {
				tt.rules.Overrides[ps[0].ID] = Override{Quotas: map[models.Category]int{models.CategoryGK: 1}}
			}
			cfg := Config{Participants: ps, Budget: decimal.NewFromInt(50), Limits: tt.rules}

			_, err := Restore(cfg, testCatalog(t), State{Started: true, Actions: []models.DraftAction{
				gk(1, 2, ps[0].ID),
				gk(2, 3, ps[0].ID),
			}})
			assert.ErrorIs(t, err, ledger.ErrCorruptLedger)

			// the first pick alone is within every limit
			e, err := Restore(cfg, testCatalog(t), State{Started: true, Actions: []models.DraftAction{
				gk(1, 2, ps[0].ID),
			}})
			require.NoError(t, err)
			assert.Len(t, e.Actions(), 1)
		})
	}
}

func TestRewind_ReplaysPrefix(t *testing.T) {
	e, _ := playSnakeDraft(t)
	before := e.Snapshot()

	rewound, err := e.Rewind(2)
	require.NoError(t, err)

	assert.Len(t, rewound.Actions(), 2)
	assert.Equal(t, e.Actions()[:2], rewound.Actions())
	assert.Equal(t, 30, rewound.Turn().DeadlineRemaining)
	assert.Equal(t, before, e.Snapshot())

	// item 2 was picked fourth in the original history and is free again
	third := rewound.Turn().CurrentParticipantID
	_, err = rewound.Pick(third, 2)
	assert.NoError(t, err)

	_, err = e.Rewind(7)
	assert.Error(t, err)

	empty, err := e.Rewind(0)
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusInProgress, empty.Turn().Status)
	assert.Len(t, empty.Snapshot().Available, 8)
}
