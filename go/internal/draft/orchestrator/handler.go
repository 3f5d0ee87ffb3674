package orchestrator

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/budgetdraft/go/internal/draft/engine"
	"github.com/mcdev12/budgetdraft/go/internal/draft/events"
	"github.com/mcdev12/budgetdraft/go/internal/models"
)

// eventsFor builds the events describing an accepted intent. Called with the
// room lock held.
func (r *Room) eventsFor(intent string, res engine.Result) []events.Envelope {
	now := r.clock.Now()
	var out []events.Envelope

	emit := func(t events.Type, payload any) {
		env, err := events.New(r.id, t, now, payload)
		if err != nil {
			log.Error().Err(err).Str("draft_id", r.id.String()).Str("event_type", string(t)).Msg("failed to build event")
			return
		}
		out = append(out, env)
	}

	switch intent {
	case "start":
		emit(events.TypeDraftStarted, events.DraftStartedPayload{
			DraftID:      r.id,
			Mode:         r.engine.Snapshot().Mode,
			Participants: len(r.settings.Participants),
			TurnSeconds:  r.turnSeconds(),
			StartedAt:    now,
		})
		emit(events.TypeTurnStarted, r.turnStarted(res.Turn, now))

	case "set_mode":
		emit(events.TypeDraftModeSet, events.DraftModeSetPayload{Mode: r.engine.Snapshot().Mode})

	case "set_order":
		emit(events.TypeDraftOrderSet, events.DraftOrderSetPayload{Order: r.engine.State().Order})

	case "pause":
		emit(events.TypeDraftPaused, events.DraftPausedPayload{
			DraftID:           r.id,
			PausedAt:          now,
			DeadlineRemaining: res.Turn.DeadlineRemaining,
		})

	case "resume":
		emit(events.TypeDraftResumed, events.DraftResumedPayload{
			DraftID:           r.id,
			ResumedAt:         now,
			DeadlineRemaining: res.Turn.DeadlineRemaining,
			TimeoutAt:         r.timeoutAt(now, res.Turn.DeadlineRemaining),
		})
	}

	if a := res.Action; a != nil {
		switch a.Kind {
		case models.ActionKindPick:
			emit(events.TypePickMade, r.pickMade(*a, now))
		case models.ActionKindSkip:
			emit(events.TypeTurnSkipped, events.TurnSkippedPayload{
				Sequence:      a.Sequence,
				Round:         a.Round,
				ParticipantID: a.ParticipantID,
				DisplayName:   r.displayName(a.ParticipantID),
				Forced:        a.Forced,
				SkippedAt:     now,
			})
		}
		emit(events.TypeTurnStarted, r.turnStarted(res.Turn, now))
	}

	return out
}

func (r *Room) pickMade(a models.DraftAction, now time.Time) events.PickMadePayload {
	p := events.PickMadePayload{
		Sequence:      a.Sequence,
		Round:         a.Round,
		ParticipantID: a.ParticipantID,
		DisplayName:   r.displayName(a.ParticipantID),
		MadeAt:        now,
	}
	if a.ItemID != nil {
		p.ItemID = *a.ItemID
		if item, ok := r.catalog.Lookup(*a.ItemID); ok {
			p.ItemName = item.Name
			p.Category = item.Category
			p.Grade = item.Grade
			p.Price = item.Price
		}
	}
	if view, ok := r.engine.Participant(a.ParticipantID); ok {
		p.BudgetRemaining = view.BudgetRemaining
	}
	return p
}

func (r *Room) turnStarted(turn models.TurnState, now time.Time) events.TurnStartedPayload {
	return events.TurnStartedPayload{
		ParticipantID: turn.CurrentParticipantID,
		DisplayName:   r.displayName(turn.CurrentParticipantID),
		Round:         turn.Round,
		Sequence:      len(r.engine.Actions()) + 1,
		TurnSeconds:   r.turnSeconds(),
		StartedAt:     now,
		TimeoutAt:     r.timeoutAt(now, turn.DeadlineRemaining),
	}
}

func (r *Room) timeoutAt(now time.Time, remaining int) time.Time {
	return now.Add(time.Duration(remaining) * r.tickEvery)
}

func (r *Room) turnSeconds() int {
	if r.settings.TurnSeconds > 0 {
		return r.settings.TurnSeconds
	}
	return engine.DefaultTurnSeconds
}

func (r *Room) displayName(id uuid.UUID) string {
	for _, p := range r.settings.Participants {
		if p.ID == id {
			return p.DisplayName
		}
	}
	return ""
}
