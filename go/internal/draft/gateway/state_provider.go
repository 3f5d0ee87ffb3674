package gateway

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/budgetdraft/go/internal/catalog"
	"github.com/mcdev12/budgetdraft/go/internal/draft/engine"
	"github.com/mcdev12/budgetdraft/go/internal/draft/orchestrator"
	"github.com/mcdev12/budgetdraft/go/internal/models"
)

// StateProvider interface defines methods for retrieving draft state
type StateProvider interface {
	DraftState(ctx context.Context, draftID uuid.UUID) (*engine.Snapshot, error)
	Drafts(ctx context.Context) ([]DraftSummary, error)
}

// DraftSummary is one line of the draft listing
type DraftSummary struct {
	DraftID              uuid.UUID          `json:"draft_id"`
	Name                 string             `json:"name"`
	Status               models.DraftStatus `json:"status"`
	Mode                 models.DraftMode   `json:"mode"`
	Round                int                `json:"round"`
	CurrentParticipantID uuid.UUID          `json:"current_participant_id"`
	Participants         int                `json:"participants"`
	Actions              int                `json:"actions"`
	CreatedAt            time.Time          `json:"created_at"`
}

func summarize(id uuid.UUID, s orchestrator.Settings, createdAt time.Time, snap engine.Snapshot) DraftSummary {
	return DraftSummary{
		DraftID:              id,
		Name:                 s.Name,
		Status:               snap.Status,
		Mode:                 snap.Mode,
		Round:                snap.Round,
		CurrentParticipantID: snap.CurrentParticipantID,
		Participants:         len(snap.Participants),
		Actions:              len(snap.Ledger),
		CreatedAt:            createdAt,
	}
}

func sortSummaries(out []DraftSummary) {
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
}

// RoomLister is the part of the orchestrator LiveStateProvider reads from
type RoomLister interface {
	RoomLookup
	Rooms() []*orchestrator.Room
}

// LiveStateProvider answers from the rooms running in this process
type LiveStateProvider struct {
	rooms RoomLister
}

func NewLiveStateProvider(rooms RoomLister) *LiveStateProvider {
	return &LiveStateProvider{rooms: rooms}
}

func (p *LiveStateProvider) DraftState(_ context.Context, draftID uuid.UUID) (*engine.Snapshot, error) {
	room, ok := p.rooms.Get(draftID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", orchestrator.ErrDraftNotFound, draftID)
	}
	snap := room.Snapshot()
	return &snap, nil
}

func (p *LiveStateProvider) Drafts(_ context.Context) ([]DraftSummary, error) {
	rooms := p.rooms.Rooms()
	out := make([]DraftSummary, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, summarize(room.ID(), room.Settings(), room.CreatedAt(), room.Snapshot()))
	}
	sortSummaries(out)
	return out, nil
}

// DraftStore reads persisted drafts
type DraftStore interface {
	LoadDraft(ctx context.Context, id uuid.UUID) (orchestrator.Draft, error)
	ListDrafts(ctx context.Context) ([]orchestrator.Draft, error)
}

// StoredStateProvider rebuilds state from the database. It serves gateways that
// run apart from the orchestrator, so the countdown it reports is the one
// last recorded rather than a live value.
type StoredStateProvider struct {
	store   DraftStore
	catalog *catalog.Catalog
}

func NewStoredStateProvider(store DraftStore, cat *catalog.Catalog) *StoredStateProvider {
	return &StoredStateProvider{store: store, catalog: cat}
}

func (p *StoredStateProvider) DraftState(ctx context.Context, draftID uuid.UUID) (*engine.Snapshot, error) {
	d, err := p.store.LoadDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	eng, err := d.Engine(p.catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to replay draft %s: %w", draftID, err)
	}
	snap := eng.Snapshot()
	return &snap, nil
}

func (p *StoredStateProvider) Drafts(ctx context.Context) ([]DraftSummary, error) {
	drafts, err := p.store.ListDrafts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DraftSummary, 0, len(drafts))
	for _, d := range drafts {
		eng, err := d.Engine(p.catalog)
		if err != nil {
			return nil, fmt.Errorf("failed to replay draft %s: %w", d.ID, err)
		}
		out = append(out, summarize(d.ID, d.Settings, d.CreatedAt, eng.Snapshot()))
	}
	sortSummaries(out)
	return out, nil
}

func hasParticipant(views []models.ParticipantView, id uuid.UUID) bool {
	for _, p := range views {
		if p.ID == id {
			return true
		}
	}
	return false
}
