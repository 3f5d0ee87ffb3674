package config

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/budgetdraft/go/internal/draft/engine"
	"github.com/mcdev12/budgetdraft/go/internal/draft/orchestrator"
	"github.com/mcdev12/budgetdraft/go/internal/models"
)

// DraftFile is the YAML layout of a draft rules file:
//
//	name: friday league
//	budget: "100.0"
//	turn_seconds: 60
//	mode: SNAKE
//	roster_cap: 15
//	quotas: {GK: 2, DEF: 5, MID: 5, FWD: 3}
//	participants:
//	  - display_name: Ana
//	  - id: 6f1c...
//	    display_name: Ben
//	overrides:
//	  Ana: {roster_cap: 16, quotas: {GK: 1}}
//
// Override keys are participant ids or display names.
type DraftFile struct {
	Name         string                  `yaml:"name"`
	Budget       string                  `yaml:"budget"`
	TurnSeconds  int                     `yaml:"turn_seconds"`
	Mode         string                  `yaml:"mode"`
	RosterCap    int                     `yaml:"roster_cap"`
	Quotas       map[string]int          `yaml:"quotas"`
	Participants []participantEntry      `yaml:"participants"`
	Overrides    map[string]overrideSpec `yaml:"overrides"`
}

type participantEntry struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display_name"`
}

type overrideSpec struct {
	RosterCap int            `yaml:"roster_cap"`
	Quotas    map[string]int `yaml:"quotas"`
}

// DefaultSettings are used when no rules file is present
func DefaultSettings() orchestrator.Settings {
	return orchestrator.Settings{
		Name:        "draft",
		Budget:      decimal.NewFromInt(100),
		TurnSeconds: engine.DefaultTurnSeconds,
		Mode:        models.DraftModeLinear,
		Rules:       engine.DefaultRules(),
	}
}

// LoadDraftFile reads draft settings from a YAML rules file
func LoadDraftFile(path string) (orchestrator.Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return orchestrator.Settings{}, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer f.Close()
	return ParseDraftFile(f)
}

// ParseDraftFile decodes a rules file. Fields it leaves out keep their
// DefaultSettings values; participants without an id get a fresh one.
func ParseDraftFile(r io.Reader) (orchestrator.Settings, error) {
	var file DraftFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return orchestrator.Settings{}, fmt.Errorf("failed to parse rules file: %w", err)
	}
	return file.Settings()
}

// Settings converts the file into orchestrator settings
func (f DraftFile) Settings() (orchestrator.Settings, error) {
	s := DefaultSettings()
	if f.Name != "" {
		s.Name = f.Name
	}
	if f.Budget != "" {
		budget, err := decimal.NewFromString(f.Budget)
		if err != nil {
			return s, fmt.Errorf("invalid budget %q: %w", f.Budget, err)
		}
		s.Budget = budget
	}
	if f.TurnSeconds != 0 {
		s.TurnSeconds = f.TurnSeconds
	}
	if f.Mode != "" {
		mode, err := models.ParseDraftMode(f.Mode)
		if err != nil {
			return s, err
		}
		s.Mode = mode
	}
	if f.RosterCap != 0 {
		s.Rules.Cap = f.RosterCap
	}

	quotas, err := parseQuotas(f.Quotas)
	if err != nil {
		return s, err
	}
	s.Rules.Quotas = quotas

	byName := make(map[string]uuid.UUID, len(f.Participants))
	for i, p := range f.Participants {
		id := uuid.New()
		if p.ID != "" {
			id, err = uuid.Parse(p.ID)
			if err != nil {
				return s, fmt.Errorf("participant %d: invalid id %q: %w", i, p.ID, err)
			}
		}
		s.Participants = append(s.Participants, models.Participant{ID: id, DisplayName: p.DisplayName})
		if p.DisplayName != "" {
			byName[p.DisplayName] = id
		}
	}

	for key, spec := range f.Overrides {
		id, ok := byName[key]
		if !ok {
			id, err = uuid.Parse(key)
			if err != nil {
				return s, fmt.Errorf("override %q matches no participant", key)
			}
		}
		quotas, err := parseQuotas(spec.Quotas)
		if err != nil {
			return s, fmt.Errorf("override %q: %w", key, err)
		}
		if s.Rules.Overrides == nil {
			s.Rules.Overrides = make(map[uuid.UUID]engine.Override)
		}
		s.Rules.Overrides[id] = engine.Override{RosterCap: spec.RosterCap, Quotas: quotas}
	}

	if err := s.Rules.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func parseQuotas(raw map[string]int) (map[models.Category]int, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[models.Category]int, len(raw))
	for k, n := range raw {
		cat, err := models.ParseCategory(k)
		if err != nil {
			return nil, err
		}
		out[cat] = n
	}
	return out, nil
}
