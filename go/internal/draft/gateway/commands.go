package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/budgetdraft/go/internal/draft/orchestrator"
	"github.com/mcdev12/budgetdraft/go/internal/models"
)

// Client command types
const (
	CommandPick = "pick"
	CommandSkip = "skip"
	CommandSync = "sync"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrSpectator      = errors.New("spectators cannot send commands")
	ErrReadOnly       = errors.New("this gateway does not accept commands")
	ErrBadRequest     = errors.New("malformed request")
)

// ClientCommand is a frame sent by a participant, e.g. {"type":"pick","item_id":7}
type ClientCommand struct {
	Type   string `json:"type"`
	ItemID int    `json:"item_id,omitempty"`
}

// CommandHandler applies participant commands to a draft
type CommandHandler interface {
	HandleCommand(ctx context.Context, draftID, participantID uuid.UUID, cmd ClientCommand) error
}

// RoomLookup finds live draft rooms
type RoomLookup interface {
	Get(draftID uuid.UUID) (*orchestrator.Room, bool)
}

// RoomCommands routes commands to the draft's orchestrator room
type RoomCommands struct {
	rooms RoomLookup
}

func NewRoomCommands(rooms RoomLookup) *RoomCommands {
	return &RoomCommands{rooms: rooms}
}

func (c *RoomCommands) HandleCommand(ctx context.Context, draftID, participantID uuid.UUID, cmd ClientCommand) error {
	room, ok := c.rooms.Get(draftID)
	if !ok {
		return fmt.Errorf("%w: %s", orchestrator.ErrDraftNotFound, draftID)
	}

	var err error
	switch cmd.Type {
	case CommandPick:
		_, err = room.Pick(ctx, participantID, models.ItemID(cmd.ItemID))
	case CommandSkip:
		_, err = room.Skip(ctx, participantID)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
	return err
}
