package main

import (
	"errors"
	"io/fs"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/budgetdraft/go/internal/config"
	"github.com/mcdev12/budgetdraft/go/internal/draft/orchestrator"
)

// loadDraftDefaults reads the rules file. A missing file is not an error;
// the built-in defaults are used instead.
func loadDraftDefaults(path string) (orchestrator.Settings, error) {
	settings, err := config.LoadDraftFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Msg("rules file not found, using default draft settings")
		return config.DefaultSettings(), nil
	}
	if err != nil {
		return orchestrator.Settings{}, err
	}
	log.Info().
		Str("path", path).
		Str("name", settings.Name).
		Int("participants", len(settings.Participants)).
		Str("mode", string(settings.Mode)).
		Msg("loaded draft rules")
	return settings, nil
}
