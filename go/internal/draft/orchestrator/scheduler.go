package orchestrator

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// run drives the room countdown until ctx is cancelled. Every tick goes
// through the same lock as user intents.
func (r *Room) run(ctx context.Context, ticker clockwork.Ticker) {
	defer ticker.Stop()

	log.Debug().
		Str("draft_id", r.id.String()).
		Dur("interval", r.tickEvery).
		Msg("room clock started")

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("draft_id", r.id.String()).Msg("room clock stopped")
			return
		case <-ticker.Chan():
			res := r.Tick(ctx)
			if res.Action != nil {
				log.Info().
					Str("draft_id", r.id.String()).
					Str("participant_id", res.Action.ParticipantID.String()).
					Int("sequence", res.Action.Sequence).
					Msg("turn timed out, participant skipped")
			}
		}
	}
}
