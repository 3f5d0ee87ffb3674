// Package engine implements the draft turn engine: a single-writer state
// machine that validates picks and skips against budgets and quotas, rotates
// turns in linear or snake order and keeps the append-only draft ledger.
//
// An Engine is not safe for concurrent use. Callers serialise intents and
// clock ticks, see the orchestrator package.
package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mcdev12/budgetdraft/go/internal/catalog"
	"github.com/mcdev12/budgetdraft/go/internal/draft/ledger"
	"github.com/mcdev12/budgetdraft/go/internal/models"
)

// ErrInvalidConfig is returned by New for unusable session settings.
var ErrInvalidConfig = errors.New("invalid draft config")

// Config is fixed for the lifetime of a draft.
type Config struct {
	Participants []models.Participant
	Budget       decimal.Decimal
	TurnSeconds  int
	Mode         models.DraftMode
	Limits       Limits
}

// Result is the minimal state delta reported for an accepted intent.
type Result struct {
	Turn models.TurnState `json:"turn"`
	// Action is the ledger entry appended by the intent, if any
	Action *models.DraftAction `json:"action,omitempty"`
}

type Engine struct {
	cfg       Config
	catalog   *catalog.Catalog
	validator validator
	sched     *scheduler
	ledger    *ledger.Ledger
	holdings  []*ledger.Holdings
	slots     map[uuid.UUID]int
	owners    map[models.ItemID]uuid.UUID
}

// New creates an engine in the NOT_STARTED state with the identity base order.
func New(cfg Config, cat *catalog.Catalog) (*Engine, error) {
	if cat == nil {
		return nil, fmt.Errorf("%w: catalog is required", ErrInvalidConfig)
	}
	if len(cfg.Participants) == 0 {
		return nil, fmt.Errorf("%w: at least one participant is required", ErrInvalidConfig)
	}
	if cfg.Budget.IsNegative() {
		return nil, fmt.Errorf("%w: budget must not be negative", ErrInvalidConfig)
	}
	if cfg.TurnSeconds < 0 {
		return nil, fmt.Errorf("%w: turn seconds must not be negative", ErrInvalidConfig)
	}
	if cfg.TurnSeconds == 0 {
		cfg.TurnSeconds = DefaultTurnSeconds
	}
	if cfg.Mode == "" {
		cfg.Mode = models.DraftModeLinear
	}
	if _, err := models.ParseDraftMode(string(cfg.Mode)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.Participants = append([]models.Participant(nil), cfg.Participants...)
	if cfg.Limits == nil {
		cfg.Limits = DefaultRules()
	}
	if rules, ok := cfg.Limits.(Rules); ok {
		if err := rules.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	e := &Engine{
		cfg:       cfg,
		catalog:   cat,
		validator: validator{catalog: cat, limits: cfg.Limits},
		sched:     newScheduler(len(cfg.Participants), cfg.TurnSeconds, cfg.Mode),
		ledger:    ledger.New(len(cfg.Participants)),
		holdings:  make([]*ledger.Holdings, len(cfg.Participants)),
		slots:     make(map[uuid.UUID]int, len(cfg.Participants)),
		owners:    make(map[models.ItemID]uuid.UUID),
	}
	for i, p := range cfg.Participants {
		if p.ID == uuid.Nil {
			return nil, fmt.Errorf("%w: participant %d has no id", ErrInvalidConfig, i)
		}
		if _, dup := e.slots[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate participant %s", ErrInvalidConfig, p.ID)
		}
		e.slots[p.ID] = i
		e.holdings[i] = ledger.NewHoldings(p.ID, cfg.Budget)
	}
	return e, nil
}

// Start begins the draft and puts rank 1 on the clock.
func (e *Engine) Start() (Result, error) {
	if err := e.sched.start(); err != nil {
		return Result{}, err
	}
	return Result{Turn: e.Turn()}, nil
}

// SetMode chooses the sequencing policy. Only allowed before the draft starts.
func (e *Engine) SetMode(mode models.DraftMode) (Result, error) {
	if _, err := models.ParseDraftMode(string(mode)); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := e.sched.setMode(mode); err != nil {
		return Result{}, err
	}
	return Result{Turn: e.Turn()}, nil
}

// SetOrder replaces the base order. ranks must assign every participant a
// distinct rank in 1..N.
func (e *Engine) SetOrder(ranks map[uuid.UUID]int) (Result, error) {
	if e.sched.started {
		return Result{}, reject(CodeDraftAlreadyStarted, "order can only be changed before the draft starts")
	}
	if len(ranks) != len(e.cfg.Participants) {
		return Result{}, reject(CodeInvalidOrder, "expected ranks for %d participants, got %d", len(e.cfg.Participants), len(ranks))
	}
	bySlot := make([]int, len(e.cfg.Participants))
	for id, rank := range ranks {
		slot, ok := e.slots[id]
		if !ok {
			return Result{}, reject(CodeInvalidOrder, "unknown participant %s", id)
		}
		bySlot[slot] = rank
	}
	if err := e.sched.setRanks(bySlot); err != nil {
		return Result{}, err
	}
	return Result{Turn: e.Turn()}, nil
}

// Pick acquires itemID for the participant on the clock.
func (e *Engine) Pick(participantID uuid.UUID, itemID models.ItemID) (Result, error) {
	h, err := e.onTheClock(participantID)
	if err != nil {
		return Result{}, err
	}
	item, err := e.validator.canPick(e.sched.started, h, itemID, e.owners)
	if err != nil {
		return Result{}, err
	}
	id := item.ID
	action := e.apply(h, models.DraftAction{
		ParticipantID: participantID,
		Kind:          models.ActionKindPick,
		ItemID:        &id,
	}, item)
	return Result{Turn: e.Turn(), Action: &action}, nil
}

// Skip passes the turn of the participant on the clock.
func (e *Engine) Skip(participantID uuid.UUID) (Result, error) {
	h, err := e.onTheClock(participantID)
	if err != nil {
		return Result{}, err
	}
	if err := e.validator.canSkip(e.sched.started); err != nil {
		return Result{}, err
	}
	action := e.apply(h, models.DraftAction{
		ParticipantID: participantID,
		Kind:          models.ActionKindSkip,
	}, nil)
	return Result{Turn: e.Turn(), Action: &action}, nil
}

// CanPick reports whether Pick would currently be accepted, without changing anything.
func (e *Engine) CanPick(participantID uuid.UUID, itemID models.ItemID) error {
	h, err := e.onTheClock(participantID)
	if err != nil {
		return err
	}
	_, err = e.validator.canPick(e.sched.started, h, itemID, e.owners)
	return err
}

// Tick advances the countdown by one unit. When the deadline runs out the
// participant on the clock is skipped and the returned Result carries the
// forced action.
func (e *Engine) Tick() Result {
	if !e.sched.tick() {
		return Result{Turn: e.Turn()}
	}
	h := e.holdings[e.sched.current]
	action := e.apply(h, models.DraftAction{
		ParticipantID: h.ParticipantID,
		Kind:          models.ActionKindSkip,
		Forced:        true,
	}, nil)
	return Result{Turn: e.Turn(), Action: &action}
}

// Pause freezes the countdown. Picks and skips stay legal while paused.
func (e *Engine) Pause() (Result, error) {
	if err := e.sched.pause(); err != nil {
		return Result{}, err
	}
	return Result{Turn: e.Turn()}, nil
}

// Resume restarts the countdown where it was paused.
func (e *Engine) Resume() (Result, error) {
	if err := e.sched.resume(); err != nil {
		return Result{}, err
	}
	return Result{Turn: e.Turn()}, nil
}

// Turn returns the current turn state
func (e *Engine) Turn() models.TurnState {
	turn := models.TurnState{
		Round:             e.sched.round,
		DeadlineRemaining: e.sched.deadline,
		Status:            e.sched.status(),
	}
	if e.sched.started {
		turn.CurrentParticipantID = e.cfg.Participants[e.sched.current].ID
	}
	return turn
}

func (e *Engine) onTheClock(participantID uuid.UUID) (*ledger.Holdings, error) {
	if !e.sched.started {
		return nil, reject(CodeNotStarted, "draft has not started")
	}
	current := e.holdings[e.sched.current]
	if current.ParticipantID != participantID {
		return nil, reject(CodeNotYourTurn, "it is %s's turn", e.cfg.Participants[e.sched.current].DisplayName)
	}
	return current, nil
}

// apply commits a validated action. Nothing here may fail.
func (e *Engine) apply(h *ledger.Holdings, action models.DraftAction, item *models.Item) models.DraftAction {
	action.Sequence = e.ledger.Len() + 1
	action.Round = e.ledger.RoundOf(action.Sequence)

	h.Apply(action, item)
	if item != nil {
		e.owners[item.ID] = h.ParticipantID
	}
	seq := e.ledger.Append(action)
	committed, ok := e.ledger.At(seq)
	if !ok || seq != action.Sequence {
		panic(fmt.Sprintf("engine: ledger assigned sequence %d, expected %d", seq, action.Sequence))
	}
	e.sched.advance(e.ledger.Len())
	return committed
}
