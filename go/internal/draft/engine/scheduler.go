package engine

import (
	"github.com/mcdev12/budgetdraft/go/internal/draft/order"
	"github.com/mcdev12/budgetdraft/go/internal/models"
)

// DefaultTurnSeconds is the per-turn deadline used when none is configured.
const DefaultTurnSeconds = 60

// scheduler owns whose turn it is, the round, the countdown and pause state.
type scheduler struct {
	mode     models.DraftMode
	ranks    []int // ranks[slot] is that participant's base rank
	started  bool
	paused   bool
	current  int // slot of the participant on the clock
	round    int
	deadline int
	duration int
}

func newScheduler(participants, duration int, mode models.DraftMode) *scheduler {
	return &scheduler{
		mode:     mode,
		ranks:    order.DefaultRanks(participants),
		current:  -1,
		duration: duration,
		deadline: duration,
	}
}

func (s *scheduler) setMode(mode models.DraftMode) error {
	if s.started {
		return reject(CodeDraftAlreadyStarted, "mode can only be changed before the draft starts")
	}
	s.mode = mode
	return nil
}

// setRanks replaces the whole base order.
func (s *scheduler) setRanks(ranks []int) error {
	if s.started {
		return reject(CodeDraftAlreadyStarted, "order can only be changed before the draft starts")
	}
	if len(ranks) != len(s.ranks) {
		return reject(CodeInvalidOrder, "expected %d ranks, got %d", len(s.ranks), len(ranks))
	}
	if err := order.ValidateRanks(ranks); err != nil {
		return reject(CodeInvalidOrder, "%v", err)
	}
	s.ranks = append([]int(nil), ranks...)
	return nil
}

// start primes the first turn. In snake mode this resolves straight to rank 1
// in round 1 without recording anything.
func (s *scheduler) start() error {
	if s.started {
		return reject(CodeDraftAlreadyStarted, "draft has already started")
	}
	if err := order.ValidateRanks(s.ranks); err != nil {
		return reject(CodeInvalidOrder, "%v", err)
	}
	s.started = true
	s.paused = false
	s.advance(0)
	return nil
}

// advance recomputes the turn from the accepted action count and restarts the clock.
func (s *scheduler) advance(total int) {
	s.current = order.Next(s.mode, s.ranks, total)
	s.round = order.RoundFor(total, len(s.ranks))
	s.deadline = s.duration
}

// tick counts down one unit and reports whether the deadline expired.
func (s *scheduler) tick() bool {
	if !s.started || s.paused {
		return false
	}
	if s.deadline > 0 {
		s.deadline--
	}
	return s.deadline == 0
}

func (s *scheduler) pause() error {
	if !s.started {
		return reject(CodeNotStarted, "draft has not started")
	}
	s.paused = true
	return nil
}

func (s *scheduler) resume() error {
	if !s.started {
		return reject(CodeNotStarted, "draft has not started")
	}
	s.paused = false
	return nil
}

func (s *scheduler) status() models.DraftStatus {
	switch {
	case !s.started:
		return models.DraftStatusNotStarted
	case s.paused:
		return models.DraftStatusPaused
	default:
		return models.DraftStatusInProgress
	}
}
