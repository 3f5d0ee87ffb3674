// Package order derives whose turn it is from a base order and a draft mode.
package order

import (
	"errors"
	"fmt"

	"github.com/mcdev12/budgetdraft/go/internal/models"
)

// ErrInvalidOrder is returned when a rank assignment is not a permutation of 1..N
var ErrInvalidOrder = errors.New("ranks must be a permutation of 1..N")

// Slot is one planned turn in a draft
type Slot struct {
	Round       int `json:"round"`
	Pick        int `json:"pick"`         // pick number in the round
	OverallPick int `json:"overall_pick"` // pick number overall
	Rank        int `json:"rank"`
	Index       int `json:"index"` // participant slot index
}

// DefaultRanks returns the identity order: slot i holds rank i+1.
func DefaultRanks(n int) []int {
	ranks := make([]int, n)
	for i := range ranks {
		ranks[i] = i + 1
	}
	return ranks
}

// ValidateRanks checks that ranks[slot] is a bijection onto 1..len(ranks)
func ValidateRanks(ranks []int) error {
	n := len(ranks)
	if n == 0 {
		return fmt.Errorf("%w: empty order", ErrInvalidOrder)
	}
	seen := make([]bool, n+1)
	for slot, rank := range ranks {
		if rank < 1 || rank > n {
			return fmt.Errorf("%w: slot %d has rank %d", ErrInvalidOrder, slot, rank)
		}
		if seen[rank] {
			return fmt.Errorf("%w: rank %d assigned twice", ErrInvalidOrder, rank)
		}
		seen[rank] = true
	}
	return nil
}

// RoundFor returns the 1-based round in which the next action falls after
// totalAccepted actions.
func RoundFor(totalAccepted, n int) int {
	return totalAccepted/n + 1
}

// RankFor returns the rank (1..n) that acts after totalAccepted actions.
//
// Linear drafts cycle 1..n forever. Snake drafts visit 1..n on even 0-based
// rounds and n..1 on odd ones, so every participant acts exactly once per round
// and the first and last positions alternate.
func RankFor(mode models.DraftMode, totalAccepted, n int) int {
	k := totalAccepted % n
	if mode == models.DraftModeSnake && (totalAccepted/n)%2 == 1 {
		return n - k
	}
	return k + 1
}

// SlotForRank returns the slot index that holds rank
func SlotForRank(ranks []int, rank int) int {
	for slot, r := range ranks {
		if r == rank {
			return slot
		}
	}
	return -1
}

// Next returns the slot index of the participant acting after totalAccepted
// actions.
func Next(mode models.DraftMode, ranks []int, totalAccepted int) int {
	return SlotForRank(ranks, RankFor(mode, totalAccepted, len(ranks)))
}

// Sequence lays out every turn for the given number of rounds
func Sequence(mode models.DraftMode, ranks []int, rounds int) []Slot {
	n := len(ranks)
	slots := make([]Slot, 0, rounds*n)
	for overall := 0; overall < rounds*n; overall++ {
		rank := RankFor(mode, overall, n)
		slots = append(slots, Slot{
			Round:       RoundFor(overall, n),
			Pick:        overall%n + 1,
			OverallPick: overall + 1,
			Rank:        rank,
			Index:       SlotForRank(ranks, rank),
		})
	}
	return slots
}
