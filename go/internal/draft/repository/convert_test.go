package repository

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/budgetdraft/go/internal/draft/engine"
	"github.com/mcdev12/budgetdraft/go/internal/draft/orchestrator"
	"github.com/mcdev12/budgetdraft/go/internal/draft/repository/db"
	"github.com/mcdev12/budgetdraft/go/internal/models"
)

func testDraft() orchestrator.Draft {
	ana, ben := uuid.New(), uuid.New()
	return orchestrator.Draft{
		ID: uuid.New(),
		Settings: orchestrator.Settings{
			Name:         "office league",
			Participants: []models.Participant{{ID: ana, DisplayName: "Ana"}, {ID: ben, DisplayName: "Ben"}},
			Budget:       decimal.NewFromInt(100),
			TurnSeconds:  45,
			Mode:         models.DraftModeSnake,
			Rules: engine.Rules{
				Cap:       15,
				Quotas:    map[models.Category]int{models.CategoryGK: 2},
				Overrides: map[uuid.UUID]engine.Override{ben: {RosterCap: 12}},
			},
		},
		State: engine.State{
			Mode:              models.DraftModeSnake,
			Order:             map[uuid.UUID]int{ana: 2, ben: 1},
			Started:           true,
			DeadlineRemaining: 45,
		},
		CreatedAt: time.Date(2025, 8, 1, 18, 0, 0, 0, time.UTC),
	}
}

func TestDraftRowRoundTrip(t *testing.T) {
	d := testDraft()

	params, err := createDraftParams(d)
	require.NoError(t, err)
	assert.Equal(t, "office league", params.Name)
	assert.True(t, params.OrderRanks.Valid)

	row := db.Draft{
		ID:                params.ID,
		Name:              params.Name,
		Settings:          params.Settings,
		Mode:              params.Mode,
		OrderRanks:        params.OrderRanks,
		Started:           params.Started,
		Paused:            params.Paused,
		DeadlineRemaining: params.DeadlineRemaining,
		CreatedAt:         d.CreatedAt,
	}
	got, err := draftFromRow(row)
	require.NoError(t, err)

	assert.Equal(t, d.State.Order, got.State.Order)
	assert.Equal(t, d.Settings.Rules, got.Settings.Rules)
	assert.True(t, d.Settings.Budget.Equal(got.Settings.Budget))
	assert.Equal(t, d.Settings.Participants, got.Settings.Participants)
	assert.Equal(t, 45, got.State.DeadlineRemaining)
}

func TestDraftFromRow_NullOrder(t *testing.T) {
	settings, err := json.Marshal(orchestrator.Settings{Name: "x"})
	require.NoError(t, err)

	got, err := draftFromRow(db.Draft{ID: uuid.New(), Settings: settings, Mode: "LINEAR"})
	require.NoError(t, err)
	assert.Nil(t, got.State.Order)

	_, err = draftFromRow(db.Draft{ID: uuid.New(), Settings: settings, Mode: "RANDOM"})
	assert.Error(t, err)
}

func TestActionRowRoundTrip(t *testing.T) {
	draftID := uuid.New()
	item := models.ItemID(17)
	pick := models.DraftAction{Sequence: 3, Round: 2, ParticipantID: uuid.New(), Kind: models.ActionKindPick, ItemID: &item}
	skip := models.DraftAction{Sequence: 4, Round: 2, ParticipantID: uuid.New(), Kind: models.ActionKindSkip, Forced: true}

	for _, a := range []models.DraftAction{pick, skip} {
		p := insertDraftActionParams(draftID, a)
		got := actionFromRow(db.DraftAction{
			DraftID:       p.DraftID,
			Sequence:      p.Sequence,
			Round:         p.Round,
			ParticipantID: p.ParticipantID,
			Kind:          p.Kind,
			ItemID:        p.ItemID,
			Forced:        p.Forced,
		})
		assert.Equal(t, a, got)
	}
}

func TestItemFromRow(t *testing.T) {
	item, err := itemFromRow(db.CatalogItem{ID: 9, Name: "Rice", Category: "MID", Grade: "A+", Price: decimal.RequireFromString("7.5")})
	require.NoError(t, err)
	assert.Equal(t, models.CategoryMID, item.Category)
	assert.Equal(t, models.GradeAPlus, item.Grade)

	_, err = itemFromRow(db.CatalogItem{ID: 10, Name: "Nobody", Category: "COACH", Grade: "A", Price: decimal.Zero})
	assert.Error(t, err)
}
