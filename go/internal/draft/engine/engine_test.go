package engine

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/budgetdraft/go/internal/catalog"
	"github.com/mcdev12/budgetdraft/go/internal/draft/ledger"
	"github.com/mcdev12/budgetdraft/go/internal/models"
)

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]models.Item{
		{ID: 1, Name: "Salah", Category: models.CategoryMID, Grade: models.GradeAPlus, Price: price("12.0")},
		{ID: 2, Name: "Alisson", Category: models.CategoryGK, Grade: models.GradeA, Price: price("5.5")},
		{ID: 3, Name: "Raya", Category: models.CategoryGK, Grade: models.GradeB, Price: price("5.0")},
		{ID: 4, Name: "Saliba", Category: models.CategoryDEF, Grade: models.GradeA, Price: price("6.0")},
		{ID: 5, Name: "Haaland", Category: models.CategoryFWD, Grade: models.GradeAPlus, Price: price("21.5")},
		{ID: 6, Name: "Isak", Category: models.CategoryFWD, Grade: models.GradeA, Price: price("15.0")},
		{ID: 7, Name: "Gabriel", Category: models.CategoryDEF, Grade: models.GradeB, Price: price("4.5")},
		{ID: 8, Name: "Palmer", Category: models.CategoryMID, Grade: models.GradeA, Price: price("10.5")},
	})
	require.NoError(t, err)
	return c
}

func participants(n int) []models.Participant {
	names := []string{"Ana", "Ben", "Cleo", "Dev", "Eli", "Fay"}
	out := make([]models.Participant, n)
	for i := range out {
		out[i] = models.Participant{ID: uuid.New(), DisplayName: names[i]}
	}
	return out
}

func newEngine(t *testing.T, cfg Config) (*Engine, []models.Participant) {
	t.Helper()
	if cfg.Participants == nil {
		cfg.Participants = participants(4)
	}
	if cfg.Budget.IsZero() {
		cfg.Budget = decimal.NewFromInt(100)
	}
	e, err := New(cfg, testCatalog(t))
	require.NoError(t, err)
	return e, cfg.Participants
}

func requireRejection(t *testing.T, err error, code RejectionCode) *Rejection {
	t.Helper()
	r, ok := AsRejection(err)
	require.True(t, ok, "expected rejection %s, got %v", code, err)
	require.Equal(t, code, r.Code)
	return r
}

func TestNew_RejectsBadConfig(t *testing.T) {
	cat := testCatalog(t)
	ps := participants(2)

	_, err := New(Config{Budget: decimal.NewFromInt(100)}, cat)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{Participants: ps, Budget: decimal.NewFromInt(-1)}, cat)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{Participants: []models.Participant{ps[0], ps[0]}, Budget: decimal.NewFromInt(100)}, cat)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{Participants: ps, Budget: decimal.NewFromInt(100), Mode: "RANDOM"}, cat)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{Participants: ps, Budget: decimal.NewFromInt(100)}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEngine_PickUpdatesBudgetAndPassesTurn(t *testing.T) {
	e, ps := newEngine(t, Config{Mode: models.DraftModeLinear})

	_, err := e.Start()
	require.NoError(t, err)
	assert.Equal(t, ps[0].ID, e.Turn().CurrentParticipantID)

	res, err := e.Pick(ps[0].ID, 1)
	require.NoError(t, err)
	require.NotNil(t, res.Action)
	assert.Equal(t, 1, res.Action.Sequence)
	assert.Equal(t, ps[1].ID, res.Turn.CurrentParticipantID)

	first, _ := e.Participant(ps[0].ID)
	assert.True(t, first.BudgetRemaining.Equal(price("88.0")))
	assert.True(t, first.Spend.Equal(price("12.0")))

	_, err = e.Pick(ps[1].ID, 1)
	requireRejection(t, err, CodeItemUnavailable)
	assert.Equal(t, 1, len(e.Actions()))
}

func TestEngine_QuotaExceededLeavesStateUnchanged(t *testing.T) {
	rules := Rules{Cap: 15, Quotas: map[models.Category]int{models.CategoryGK: 1}}
	ps := participants(1)
	e, _ := newEngine(t, Config{Participants: ps, Limits: rules})
	_, err := e.Start()
	require.NoError(t, err)

	_, err = e.Pick(ps[0].ID, 2)
	require.NoError(t, err)
	before, _ := e.Participant(ps[0].ID)

	_, err = e.Pick(ps[0].ID, 3)
	r := requireRejection(t, err, CodeQuotaExceeded)
	assert.Equal(t, 1, r.Limit)

	after, _ := e.Participant(ps[0].ID)
	assert.Equal(t, before, after)
	assert.Len(t, e.Actions(), 1)
}

func TestEngine_InsufficientBudgetCarriesShortfall(t *testing.T) {
	ps := participants(1)
	e, _ := newEngine(t, Config{Participants: ps, Budget: decimal.NewFromInt(20)})
	_, err := e.Start()
	require.NoError(t, err)

	_, err = e.Pick(ps[0].ID, 5)
	r := requireRejection(t, err, CodeInsufficientBudget)
	require.NotNil(t, r.Shortfall)
	assert.True(t, r.Shortfall.Equal(price("1.5")), "shortfall %s", r.Shortfall)

	body, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"shortfall":"1.5"`)
}

func TestRejection_OmitsUnsetDetails(t *testing.T) {
	ps := participants(2)
	e, _ := newEngine(t, Config{Participants: ps})
	_, err := e.Start()
	require.NoError(t, err)

	_, err = e.Pick(ps[1].ID, 1)
	r := requireRejection(t, err, CodeNotYourTurn)
	assert.Nil(t, r.Shortfall)

	body, err := json.Marshal(r)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "shortfall")
	assert.NotContains(t, string(body), "limit")
}

func TestEngine_RosterFull(t *testing.T) {
	ps := participants(1)
	e, _ := newEngine(t, Config{Participants: ps, Limits: Rules{Cap: 1}})
	_, err := e.Start()
	require.NoError(t, err)

	_, err = e.Pick(ps[0].ID, 1)
	require.NoError(t, err)

	_, err = e.Pick(ps[0].ID, 2)
	r := requireRejection(t, err, CodeRosterFull)
	assert.Equal(t, 1, r.Limit)

	// unknown item still reports the full roster first
	_, err = e.Pick(ps[0].ID, 99)
	requireRejection(t, err, CodeRosterFull)

	_, err = e.Skip(ps[0].ID)
	assert.NoError(t, err)
}

func TestEngine_ValidationOrder(t *testing.T) {
	ps := participants(2)
	e, _ := newEngine(t, Config{Participants: ps, Budget: decimal.NewFromInt(5)})

	_, err := e.Pick(ps[1].ID, 99)
	requireRejection(t, err, CodeNotStarted)

	_, err = e.Skip(ps[0].ID)
	requireRejection(t, err, CodeNotStarted)

	_, err = e.Start()
	require.NoError(t, err)

	_, err = e.Pick(ps[1].ID, 99)
	requireRejection(t, err, CodeNotYourTurn)

	_, err = e.Pick(uuid.New(), 1)
	requireRejection(t, err, CodeNotYourTurn)

	_, err = e.Pick(ps[0].ID, 99)
	requireRejection(t, err, CodeItemUnavailable)

	_, err = e.Pick(ps[0].ID, 1)
	requireRejection(t, err, CodeInsufficientBudget)

	assert.Error(t, e.CanPick(ps[0].ID, 1))
	assert.NoError(t, e.CanPick(ps[0].ID, 7))
	assert.Empty(t, e.Actions())
}

func TestEngine_SetOrderAndModeOnlyBeforeStart(t *testing.T) {
	e, ps := newEngine(t, Config{})

	_, err := e.SetOrder(map[uuid.UUID]int{ps[0].ID: 1, ps[1].ID: 1, ps[2].ID: 3, ps[3].ID: 4})
	requireRejection(t, err, CodeInvalidOrder)

	_, err = e.SetOrder(map[uuid.UUID]int{ps[0].ID: 1, ps[1].ID: 2, ps[2].ID: 3})
	requireRejection(t, err, CodeInvalidOrder)

	_, err = e.SetOrder(map[uuid.UUID]int{ps[0].ID: 1, ps[1].ID: 2, ps[2].ID: 3, uuid.New(): 4})
	requireRejection(t, err, CodeInvalidOrder)

	_, err = e.SetOrder(map[uuid.UUID]int{ps[0].ID: 4, ps[1].ID: 3, ps[2].ID: 2, ps[3].ID: 1})
	require.NoError(t, err)
	// a second call replaces the whole order
	_, err = e.SetOrder(map[uuid.UUID]int{ps[0].ID: 2, ps[1].ID: 3, ps[2].ID: 4, ps[3].ID: 1})
	require.NoError(t, err)

	_, err = e.SetMode(models.DraftModeSnake)
	require.NoError(t, err)

	_, err = e.Start()
	require.NoError(t, err)
	assert.Equal(t, ps[3].ID, e.Turn().CurrentParticipantID)
	assert.Equal(t, 1, e.Turn().Round)

	_, err = e.Start()
	requireRejection(t, err, CodeDraftAlreadyStarted)
	_, err = e.SetMode(models.DraftModeLinear)
	requireRejection(t, err, CodeDraftAlreadyStarted)
	_, err = e.SetOrder(map[uuid.UUID]int{ps[0].ID: 1, ps[1].ID: 2, ps[2].ID: 3, ps[3].ID: 4})
	requireRejection(t, err, CodeDraftAlreadyStarted)

	assert.Equal(t, models.DraftModeSnake, e.Snapshot().Mode)
}

func TestEngine_LinearRotation(t *testing.T) {
	e, ps := newEngine(t, Config{Mode: models.DraftModeLinear})
	_, err := e.SetOrder(map[uuid.UUID]int{ps[0].ID: 3, ps[1].ID: 1, ps[2].ID: 4, ps[3].ID: 2})
	require.NoError(t, err)
	_, err = e.Start()
	require.NoError(t, err)

	var got []uuid.UUID
	for i := 0; i < 8; i++ {
		current := e.Turn().CurrentParticipantID
		got = append(got, current)
		_, err := e.Skip(current)
		require.NoError(t, err)
	}

	round := []uuid.UUID{ps[1].ID, ps[3].ID, ps[0].ID, ps[2].ID}
	assert.Equal(t, append(round, round...), got)
	assert.Equal(t, 3, e.Turn().Round)
}

func TestEngine_SnakeRotationOverThreeRounds(t *testing.T) {
	e, ps := newEngine(t, Config{Mode: models.DraftModeSnake})
	_, err := e.Start()
	require.NoError(t, err)

	var ranks, rounds []int
	for i := 0; i < 12; i++ {
		turn := e.Turn()
		view, ok := e.Participant(turn.CurrentParticipantID)
		require.True(t, ok)
		ranks = append(ranks, view.Rank)
		rounds = append(rounds, turn.Round)
		_, err := e.Skip(turn.CurrentParticipantID)
		require.NoError(t, err)
	}

	assert.Equal(t, []int{1, 2, 3, 4, 4, 3, 2, 1, 1, 2, 3, 4}, ranks)
	assert.Equal(t, []int{1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3}, rounds)
	assert.Len(t, ps, 4)
}

func TestEngine_TickForcesExactlyOneSkip(t *testing.T) {
	e, ps := newEngine(t, Config{TurnSeconds: 60})
	_, err := e.Start()
	require.NoError(t, err)

	var forced []models.DraftAction
	for i := 0; i < 60; i++ {
		if res := e.Tick(); res.Action != nil {
			forced = append(forced, *res.Action)
		}
	}

	require.Len(t, forced, 1)
	assert.Equal(t, ps[0].ID, forced[0].ParticipantID)
	assert.Equal(t, models.ActionKindSkip, forced[0].Kind)
	assert.True(t, forced[0].Forced)
	assert.Equal(t, ps[1].ID, e.Turn().CurrentParticipantID)
	assert.Equal(t, 60, e.Turn().DeadlineRemaining)
	assert.Len(t, e.Actions(), 1)
}

func TestEngine_TickIsNoopWhenPausedOrNotStarted(t *testing.T) {
	e, _ := newEngine(t, Config{TurnSeconds: 3})

	for i := 0; i < 5; i++ {
		assert.Nil(t, e.Tick().Action)
	}
	_, err := e.Pause()
	requireRejection(t, err, CodeNotStarted)

	_, err = e.Start()
	require.NoError(t, err)
	e.Tick()
	assert.Equal(t, 2, e.Turn().DeadlineRemaining)

	res, err := e.Pause()
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusPaused, res.Turn.Status)
	for i := 0; i < 10; i++ {
		assert.Nil(t, e.Tick().Action)
	}
	assert.Equal(t, 2, e.Turn().DeadlineRemaining)

	_, err = e.Resume()
	require.NoError(t, err)
	e.Tick()
	res = e.Tick()
	assert.NotNil(t, res.Action)
	assert.Equal(t, models.DraftStatusInProgress, res.Turn.Status)
}

func TestEngine_PickResetsDeadline(t *testing.T) {
	e, ps := newEngine(t, Config{TurnSeconds: 10})
	_, err := e.Start()
	require.NoError(t, err)

	for i := 0; i < 9; i++ {
		e.Tick()
	}
	res, err := e.Pick(ps[0].ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Turn.DeadlineRemaining)

	assert.Nil(t, e.Tick().Action)
	assert.Equal(t, ps[1].ID, e.Turn().CurrentParticipantID)
}

func TestEngine_PicksAllowedWhilePaused(t *testing.T) {
	e, ps := newEngine(t, Config{})
	_, err := e.Start()
	require.NoError(t, err)
	_, err = e.Pause()
	require.NoError(t, err)

	res, err := e.Pick(ps[0].ID, 4)
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusPaused, res.Turn.Status)
}

func TestEngine_InvariantsHoldAcrossDraft(t *testing.T) {
	rules := Rules{Cap: 3, Quotas: map[models.Category]int{models.CategoryGK: 1, models.CategoryFWD: 1}}
	e, ps := newEngine(t, Config{Mode: models.DraftModeSnake, Limits: rules, Budget: decimal.NewFromInt(30)})
	_, err := e.Start()
	require.NoError(t, err)

	// every participant tries every item in catalog order each turn
	for turn := 0; turn < 16; turn++ {
		current := e.Turn().CurrentParticipantID
		picked := false
		for id := models.ItemID(1); id <= 8; id++ {
			if _, err := e.Pick(current, id); err == nil {
				picked = true
				break
			}
		}
		if !picked {
			_, err := e.Skip(current)
			require.NoError(t, err)
		}
	}

	seen := make(map[models.ItemID]bool)
	for _, p := range e.Participants() {
		total := decimal.Zero
		counts := make(map[models.Category]int)
		for _, item := range p.Roster {
			assert.False(t, seen[item.ID], "item %d owned twice", item.ID)
			seen[item.ID] = true
			total = total.Add(item.Price)
			counts[item.Category]++
		}
		assert.True(t, total.Equal(p.Spend))
		assert.True(t, p.BudgetRemaining.Equal(p.InitialBudget.Sub(p.Spend)))
		assert.Equal(t, counts, p.QuotaUsed)
		assert.LessOrEqual(t, len(p.Roster), p.RosterCap)
		for cat, limit := range p.QuotaLimits {
			assert.LessOrEqual(t, p.QuotaUsed[cat], limit)
		}
	}
	assert.Len(t, ps, 4)
}

func TestEngine_ReplayReproducesParticipants(t *testing.T) {
	e, ps := newEngine(t, Config{Mode: models.DraftModeSnake})
	_, err := e.Start()
	require.NoError(t, err)

	picks := []models.ItemID{1, 2, 0, 4, 5, 0, 7, 8}
	for _, id := range picks {
		current := e.Turn().CurrentParticipantID
		if id == 0 {
			e.Skip(current)
			continue
		}
		_, err := e.Pick(current, id)
		require.NoError(t, err)
	}

	state, err := ledger.Replay(e.Actions(), e.catalog, ps, decimal.NewFromInt(100))
	require.NoError(t, err)
	for i, h := range state.Holdings {
		view := e.Participants()[i]
		assert.True(t, h.Spend.Equal(view.Spend))
		assert.True(t, h.BudgetRemaining.Equal(view.BudgetRemaining))
		require.Len(t, h.Roster, len(view.Roster))
		for j, item := range h.Roster {
			assert.Equal(t, view.Roster[j], *item)
		}
	}
}

func TestEngine_SnapshotIsDetached(t *testing.T) {
	e, ps := newEngine(t, Config{})
	_, err := e.Start()
	require.NoError(t, err)
	_, err = e.Pick(ps[0].ID, 1)
	require.NoError(t, err)

	snap := e.Snapshot()
	assert.Len(t, snap.Available, 7)
	var available []models.ItemID
	for _, item := range snap.Available {
		available = append(available, item.ID)
	}
	assert.Equal(t, []models.ItemID{5, 2, 4, 6, 8, 3, 7}, available, "best grade first")
	assert.Equal(t, ps[1].ID, snap.CurrentParticipantID)

	snap.Participants[0].Roster[0].Name = "changed"
	snap.Participants[0].QuotaUsed[models.CategoryMID] = 9
	snap.Ledger[0].Kind = models.ActionKindSkip

	again := e.Snapshot()
	assert.Equal(t, "Salah", again.Participants[0].Roster[0].Name)
	assert.Equal(t, 1, again.Participants[0].QuotaUsed[models.CategoryMID])
	assert.Equal(t, models.ActionKindPick, again.Ledger[0].Kind)
}
