// Package orchestrator runs live drafts. Each draft lives in a Room that owns
// its engine, serialises intents with clock ticks, records accepted
// transitions and fans the resulting events out to connected clients.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/mcdev12/budgetdraft/go/internal/catalog"
	"github.com/mcdev12/budgetdraft/go/internal/draft/engine"
	"github.com/mcdev12/budgetdraft/go/internal/draft/events"
	"github.com/mcdev12/budgetdraft/go/internal/models"
)

// DefaultTickInterval is how often a room's countdown advances
const DefaultTickInterval = time.Second

// ErrDraftNotFound is returned for unknown draft IDs
var ErrDraftNotFound = errors.New("draft not found")

// Settings are fixed when a draft is created.
type Settings struct {
	Name         string               `json:"name"`
	Participants []models.Participant `json:"participants"`
	Budget       decimal.Decimal      `json:"budget"`
	TurnSeconds  int                  `json:"turn_seconds"`
	Mode         models.DraftMode     `json:"mode"`
	Rules        engine.Rules         `json:"rules"`
}

func (s Settings) engineConfig() engine.Config {
	return engine.Config{
		Participants: s.Participants,
		Budget:       s.Budget,
		TurnSeconds:  s.TurnSeconds,
		Mode:         s.Mode,
		Limits:       s.Rules,
	}
}

// Draft is the persisted form of a room
type Draft struct {
	ID        uuid.UUID    `json:"id"`
	Settings  Settings     `json:"settings"`
	State     engine.State `json:"state"`
	CreatedAt time.Time    `json:"created_at"`
}

// Engine rebuilds the draft's engine by replaying its ledger against cat
func (d Draft) Engine(cat *catalog.Catalog) (*engine.Engine, error) {
	return engine.Restore(d.Settings.engineConfig(), cat, d.State)
}

// Transition is one accepted change to a draft. State carries the draft's
// settings-independent fields; its Actions are left empty and Action, when
// set, is the single ledger entry appended by the transition.
type Transition struct {
	DraftID uuid.UUID
	State   engine.State
	Action  *models.DraftAction
	Events  []events.Envelope
}

// Journal persists drafts and their transitions
type Journal interface {
	CreateDraft(ctx context.Context, d Draft) error
	Record(ctx context.Context, t Transition) error
	ListDrafts(ctx context.Context) ([]Draft, error)
}

// Broadcaster delivers events to clients watching a draft
type Broadcaster interface {
	Broadcast(draftID uuid.UUID, ev events.Envelope)
}

// BroadcastFunc adapts a function to Broadcaster
type BroadcastFunc func(draftID uuid.UUID, ev events.Envelope)

func (f BroadcastFunc) Broadcast(draftID uuid.UUID, ev events.Envelope) { f(draftID, ev) }

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithClock replaces the real clock, mainly for tests
func WithClock(clock clockwork.Clock) Option {
	return func(o *Orchestrator) { o.clock = clock }
}

// WithTickInterval sets how often room countdowns advance
func WithTickInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.tickInterval = d
		}
	}
}

type Orchestrator struct {
	catalog      *catalog.Catalog
	journal      Journal
	broadcaster  Broadcaster
	clock        clockwork.Clock
	tickInterval time.Duration
	instanceID   string // short ID for logging

	mu    sync.RWMutex
	rooms map[uuid.UUID]*Room

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an orchestrator. journal and broadcaster may be nil.
func New(cat *catalog.Catalog, journal Journal, broadcaster Broadcaster, opts ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		catalog:      cat,
		journal:      journal,
		broadcaster:  broadcaster,
		clock:        clockwork.NewRealClock(),
		tickInterval: DefaultTickInterval,
		instanceID:   uuid.New().String()[:8],
		rooms:        make(map[uuid.UUID]*Room),
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CreateDraft validates settings, persists the new draft and opens its room.
func (o *Orchestrator) CreateDraft(ctx context.Context, s Settings) (*Room, error) {
	eng, err := engine.New(s.engineConfig(), o.catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to create draft engine: %w", err)
	}

	d := Draft{
		ID:        uuid.New(),
		Settings:  s,
		State:     eng.State(),
		CreatedAt: o.clock.Now().UTC(),
	}
	if o.journal != nil {
		if err := o.journal.CreateDraft(ctx, d); err != nil {
			return nil, fmt.Errorf("failed to save draft: %w", err)
		}
	}

	room := o.open(d, eng)
	log.Info().
		Str("draft_id", d.ID.String()).
		Str("name", s.Name).
		Int("participants", len(s.Participants)).
		Str("instance", o.instanceID).
		Msg("draft created")
	return room, nil
}

// Restore reopens every draft stored in the journal by replaying its ledger.
// Drafts whose ledger cannot be replayed are logged and left closed.
func (o *Orchestrator) Restore(ctx context.Context) (int, error) {
	if o.journal == nil {
		return 0, nil
	}
	drafts, err := o.journal.ListDrafts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list drafts: %w", err)
	}

	restored := 0
	for _, d := range drafts {
		if _, ok := o.Get(d.ID); ok {
			continue
		}
		eng, err := d.Engine(o.catalog)
		if err != nil {
			log.Error().Err(err).Str("draft_id", d.ID.String()).Msg("failed to restore draft")
			continue
		}
		o.open(d, eng)
		restored++
	}

	log.Info().
		Int("restored", restored).
		Int("stored", len(drafts)).
		Str("instance", o.instanceID).
		Msg("drafts restored")
	return restored, nil
}

// Get returns the room for a draft
func (o *Orchestrator) Get(draftID uuid.UUID) (*Room, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	room, ok := o.rooms[draftID]
	return room, ok
}

// Rooms returns every open room
func (o *Orchestrator) Rooms() []*Room {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]*Room, 0, len(o.rooms))
	for _, room := range o.rooms {
		out = append(out, room)
	}
	return out
}

// Close stops every room clock and waits for them to exit.
func (o *Orchestrator) Close() error {
	o.cancel()
	o.wg.Wait()
	log.Info().Str("instance", o.instanceID).Msg("orchestrator stopped")
	return nil
}

func (o *Orchestrator) open(d Draft, eng *engine.Engine) *Room {
	room := &Room{
		id:          d.ID,
		settings:    d.Settings,
		createdAt:   d.CreatedAt,
		engine:      eng,
		catalog:     o.catalog,
		clock:       o.clock,
		journal:     o.journal,
		broadcaster: o.broadcaster,
		tickEvery:   o.tickInterval,
	}

	o.mu.Lock()
	o.rooms[d.ID] = room
	o.mu.Unlock()

	// the ticker is created before the goroutine so no tick can be missed
	ticker := o.clock.NewTicker(o.tickInterval)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		room.run(o.ctx, ticker)
	}()
	return room
}
