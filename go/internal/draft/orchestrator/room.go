package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/budgetdraft/go/internal/catalog"
	"github.com/mcdev12/budgetdraft/go/internal/draft/engine"
	"github.com/mcdev12/budgetdraft/go/internal/draft/events"
	"github.com/mcdev12/budgetdraft/go/internal/models"
)

// Room is the single writer for one draft. User intents and clock ticks take
// the same lock, so a tick can never interleave with a pick.
type Room struct {
	id          uuid.UUID
	settings    Settings
	createdAt   time.Time
	catalog     *catalog.Catalog
	clock       clockwork.Clock
	journal     Journal
	broadcaster Broadcaster
	tickEvery   time.Duration

	mu     sync.Mutex
	engine *engine.Engine
}

func (r *Room) ID() uuid.UUID { return r.id }

func (r *Room) Settings() Settings { return r.settings }

func (r *Room) CreatedAt() time.Time { return r.createdAt }

// Snapshot returns the current read-only projection of the draft
func (r *Room) Snapshot() engine.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine.Snapshot()
}

// CanPick reports whether a pick would be accepted right now
func (r *Room) CanPick(participantID uuid.UUID, itemID models.ItemID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine.CanPick(participantID, itemID)
}

func (r *Room) Start(ctx context.Context) (engine.Result, error) {
	return r.do(ctx, "start", func(e *engine.Engine) (engine.Result, error) {
		return e.Start()
	})
}

func (r *Room) SetMode(ctx context.Context, mode models.DraftMode) (engine.Result, error) {
	return r.do(ctx, "set_mode", func(e *engine.Engine) (engine.Result, error) {
		return e.SetMode(mode)
	})
}

func (r *Room) SetOrder(ctx context.Context, ranks map[uuid.UUID]int) (engine.Result, error) {
	return r.do(ctx, "set_order", func(e *engine.Engine) (engine.Result, error) {
		return e.SetOrder(ranks)
	})
}

func (r *Room) Pick(ctx context.Context, participantID uuid.UUID, itemID models.ItemID) (engine.Result, error) {
	return r.do(ctx, "pick", func(e *engine.Engine) (engine.Result, error) {
		return e.Pick(participantID, itemID)
	})
}

func (r *Room) Skip(ctx context.Context, participantID uuid.UUID) (engine.Result, error) {
	return r.do(ctx, "skip", func(e *engine.Engine) (engine.Result, error) {
		return e.Skip(participantID)
	})
}

func (r *Room) Pause(ctx context.Context) (engine.Result, error) {
	return r.do(ctx, "pause", func(e *engine.Engine) (engine.Result, error) {
		return e.Pause()
	})
}

func (r *Room) Resume(ctx context.Context) (engine.Result, error) {
	return r.do(ctx, "resume", func(e *engine.Engine) (engine.Result, error) {
		return e.Resume()
	})
}

// Tick advances the countdown once. It is driven by the room clock.
func (r *Room) Tick(ctx context.Context) engine.Result {
	res, _ := r.do(ctx, "tick", func(e *engine.Engine) (engine.Result, error) {
		return e.Tick(), nil
	})
	return res
}

// do applies one intent under the room lock and commits what it produced.
func (r *Room) do(ctx context.Context, intent string, apply func(*engine.Engine) (engine.Result, error)) (engine.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := apply(r.engine)
	if err != nil {
		log.Debug().
			Err(err).
			Str("draft_id", r.id.String()).
			Str("intent", intent).
			Msg("intent rejected")
		return res, err
	}

	evs := r.eventsFor(intent, res)
	if len(evs) == 0 && res.Action == nil {
		return res, nil
	}
	r.commit(ctx, res, evs)
	return res, nil
}

// commit records and broadcasts an accepted transition. Failures here are
// logged; the transition has already happened.
func (r *Room) commit(ctx context.Context, res engine.Result, evs []events.Envelope) {
	ctx = context.WithoutCancel(ctx)
	if r.journal != nil {
		st := r.engine.State()
		st.Actions = nil
		t := Transition{DraftID: r.id, State: st, Action: res.Action, Events: evs}
		if err := r.journal.Record(ctx, t); err != nil {
			log.Error().Err(err).Str("draft_id", r.id.String()).Msg("failed to record draft transition")
			// Don't fail the operation, just log the error
		}
	}

	if r.broadcaster != nil {
		for _, ev := range evs {
			r.broadcaster.Broadcast(r.id, ev)
		}
	}

	if res.Action != nil {
		log.Info().
			Str("draft_id", r.id.String()).
			Str("participant_id", res.Action.ParticipantID.String()).
			Int("sequence", res.Action.Sequence).
			Str("kind", string(res.Action.Kind)).
			Bool("forced", res.Action.Forced).
			Msg("draft action accepted")
	}
}
