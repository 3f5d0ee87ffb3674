package repository

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/mcdev12/budgetdraft/go/internal/draft/engine"
	"github.com/mcdev12/budgetdraft/go/internal/draft/orchestrator"
	"github.com/mcdev12/budgetdraft/go/internal/draft/repository/db"
	"github.com/mcdev12/budgetdraft/go/internal/models"
	"github.com/mcdev12/budgetdraft/go/internal/sqlutil"
)

func createDraftParams(d orchestrator.Draft) (db.CreateDraftParams, error) {
	settings, err := json.Marshal(d.Settings)
	if err != nil {
		return db.CreateDraftParams{}, fmt.Errorf("failed to marshal draft settings: %w", err)
	}
	order, err := marshalOrder(d.State.Order)
	if err != nil {
		return db.CreateDraftParams{}, err
	}
	return db.CreateDraftParams{
		ID:                d.ID,
		Name:              d.Settings.Name,
		Settings:          settings,
		Mode:              string(d.State.Mode),
		OrderRanks:        order,
		Started:           d.State.Started,
		Paused:            d.State.Paused,
		DeadlineRemaining: int32(d.State.DeadlineRemaining),
		CreatedAt:         d.CreatedAt,
	}, nil
}

func updateDraftStateParams(id uuid.UUID, st engine.State) (db.UpdateDraftStateParams, error) {
	order, err := marshalOrder(st.Order)
	if err != nil {
		return db.UpdateDraftStateParams{}, err
	}
	return db.UpdateDraftStateParams{
		ID:                id,
		Mode:              string(st.Mode),
		OrderRanks:        order,
		Started:           st.Started,
		Paused:            st.Paused,
		DeadlineRemaining: int32(st.DeadlineRemaining),
	}, nil
}

func marshalOrder(order map[uuid.UUID]int) (pqtype.NullRawMessage, error) {
	if order == nil {
		return pqtype.NullRawMessage{}, nil
	}
	data, err := json.Marshal(order)
	if err != nil {
		return pqtype.NullRawMessage{}, fmt.Errorf("failed to marshal draft order: %w", err)
	}
	return pqtype.NullRawMessage{RawMessage: data, Valid: true}, nil
}

func draftFromRow(row db.Draft) (orchestrator.Draft, error) {
	var settings orchestrator.Settings
	if err := json.Unmarshal(row.Settings, &settings); err != nil {
		return orchestrator.Draft{}, fmt.Errorf("failed to unmarshal settings for draft %s: %w", row.ID, err)
	}
	mode, err := models.ParseDraftMode(row.Mode)
	if err != nil {
		return orchestrator.Draft{}, fmt.Errorf("draft %s: %w", row.ID, err)
	}

	d := orchestrator.Draft{
		ID:       row.ID,
		Settings: settings,
		State: engine.State{
			Mode:              mode,
			Started:           row.Started,
			Paused:            row.Paused,
			DeadlineRemaining: int(row.DeadlineRemaining),
		},
		CreatedAt: row.CreatedAt,
	}
	if row.OrderRanks.Valid {
		if err := json.Unmarshal(row.OrderRanks.RawMessage, &d.State.Order); err != nil {
			return orchestrator.Draft{}, fmt.Errorf("failed to unmarshal order for draft %s: %w", row.ID, err)
		}
	}
	return d, nil
}

func insertDraftActionParams(draftID uuid.UUID, a models.DraftAction) db.InsertDraftActionParams {
	var itemID *int
	if a.ItemID != nil {
		id := int(*a.ItemID)
		itemID = &id
	}
	return db.InsertDraftActionParams{
		DraftID:       draftID,
		Sequence:      int32(a.Sequence),
		Round:         int32(a.Round),
		ParticipantID: a.ParticipantID,
		Kind:          string(a.Kind),
		ItemID:        sqlutil.ToSqlInt64(itemID),
		Forced:        a.Forced,
	}
}

func actionFromRow(row db.DraftAction) models.DraftAction {
	a := models.DraftAction{
		Sequence:      int(row.Sequence),
		Round:         int(row.Round),
		ParticipantID: row.ParticipantID,
		Kind:          models.ActionKind(row.Kind),
		Forced:        row.Forced,
	}
	if id := sqlutil.FromSqlInt64(row.ItemID); id != nil {
		itemID := models.ItemID(*id)
		a.ItemID = &itemID
	}
	return a
}

func itemFromRow(row db.CatalogItem) (models.Item, error) {
	category, err := models.ParseCategory(row.Category)
	if err != nil {
		return models.Item{}, err
	}
	grade, err := models.ParseGrade(row.Grade)
	if err != nil {
		return models.Item{}, err
	}
	return models.Item{
		ID:       models.ItemID(row.ID),
		Name:     row.Name,
		Category: category,
		Grade:    grade,
		Price:    row.Price,
	}, nil
}
