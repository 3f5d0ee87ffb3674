package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/budgetdraft/go/internal/catalog"
	"github.com/mcdev12/budgetdraft/go/internal/config"
	"github.com/mcdev12/budgetdraft/go/internal/draft/events"
	"github.com/mcdev12/budgetdraft/go/internal/draft/gateway"
	"github.com/mcdev12/budgetdraft/go/internal/draft/orchestrator"
	"github.com/mcdev12/budgetdraft/go/internal/draft/repository"
)

// Services holds all the server's components
type Services struct {
	Repository   *repository.Repository
	Catalog      *catalog.Catalog
	Orchestrator *orchestrator.Orchestrator
	Gateway      *gateway.Service
	Defaults     orchestrator.Settings
}

func setupServices(ctx context.Context, cfg config.Server, database *sql.DB) (*Services, error) {
	repo := repository.NewRepository(database)
	if err := repo.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	cat, err := loadCatalog(ctx, cfg, repo)
	if err != nil {
		return nil, err
	}

	defaults, err := loadDraftDefaults(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft rules: %w", err)
	}

	// the gateway needs the orchestrator and the orchestrator broadcasts
	// through the gateway, so the broadcaster is bound after both exist
	var gw *gateway.Service
	broadcast := orchestrator.BroadcastFunc(func(draftID uuid.UUID, ev events.Envelope) {
		if gw != nil {
			gw.Broadcast(draftID, ev)
		}
	})
	orch := orchestrator.New(cat, repo, broadcast, orchestrator.WithTickInterval(cfg.TickInterval))

	gw, err = gateway.NewService(ctx, cfg.Gateway(), gateway.NewLiveStateProvider(orch), orch, defaults)
	if err != nil {
		orch.Close()
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}

	if _, err := orch.Restore(ctx); err != nil {
		orch.Close()
		return nil, fmt.Errorf("failed to restore drafts: %w", err)
	}

	if cfg.CreateOnBoot && len(orch.Rooms()) == 0 {
		room, err := orch.CreateDraft(ctx, defaults)
		if err != nil {
			orch.Close()
			return nil, fmt.Errorf("failed to create boot draft: %w", err)
		}
		log.Info().Str("draft_id", room.ID().String()).Msg("created draft from rules file")
	}

	return &Services{
		Repository:   repo,
		Catalog:      cat,
		Orchestrator: orch,
		Gateway:      gw,
		Defaults:     defaults,
	}, nil
}

func loadCatalog(ctx context.Context, cfg config.Server, repo *repository.Repository) (*catalog.Catalog, error) {
	if cfg.CatalogFile != "" {
		cat, err := catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog file: %w", err)
		}
		log.Info().Str("path", cfg.CatalogFile).Int("items", cat.Len()).Msg("loaded catalog from file")
		return cat, nil
	}

	cat, err := repo.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	log.Info().Int("items", cat.Len()).Msg("loaded catalog from database")
	return cat, nil
}
