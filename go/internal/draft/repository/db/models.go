package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sqlc-dev/pqtype"
)

type Draft struct {
	ID                uuid.UUID
	Name              string
	Settings          json.RawMessage
	Mode              string
	OrderRanks        pqtype.NullRawMessage
	Started           bool
	Paused            bool
	DeadlineRemaining int32
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type DraftAction struct {
	DraftID       uuid.UUID
	Sequence      int32
	Round         int32
	ParticipantID uuid.UUID
	Kind          string
	ItemID        sql.NullInt64
	Forced        bool
	CreatedAt     time.Time
}

type DraftOutbox struct {
	ID        uuid.UUID
	DraftID   uuid.UUID
	EventType string
	Payload   json.RawMessage
	CreatedAt time.Time
	SentAt    sql.NullTime
}

type CatalogItem struct {
	ID       int64
	Name     string
	Category string
	Grade    string
	Price    decimal.Decimal
}
