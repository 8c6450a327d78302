package driver

import (
	"context"
	"log/slog"
	"os"

	apperrors "github.com/TAESTUDIOS/psa3/internal/errors"
	"github.com/TAESTUDIOS/psa3/internal/model"
	"github.com/TAESTUDIOS/psa3/internal/store"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Rituals []seedRitual `yaml:"rituals"`
}

type seedRitual struct {
	ID      string        `yaml:"id"`
	Name    string        `yaml:"name"`
	Webhook string        `yaml:"webhook"`
	Trigger model.Trigger `yaml:"trigger"`
	Buttons []string      `yaml:"buttons"`
	Active  *bool         `yaml:"active"`
}

func (s seedRitual) config() model.RitualConfig {
	active := true
	if s.Active != nil {
		active = *s.Active
	}
	buttons := s.Buttons
	if buttons == nil {
		buttons = []string{}
	}
	return model.RitualConfig{
		ID:      s.ID,
		Name:    s.Name,
		Webhook: s.Webhook,
		Trigger: s.Trigger,
		Buttons: buttons,
		Active:  active,
	}
}

// LoadSeed decodes a YAML file of the form:
//
//	rituals:
//	  - id: evening
//	    name: Evening check-in
//	    trigger: {type: chat, chatKeyword: /evening}
func LoadSeed(path string) ([]model.RitualConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Storage("read ritual seed", err)
	}

	var doc seedFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.InvalidInput("decode ritual seed " + path + ": " + err.Error())
	}

	out := make([]model.RitualConfig, 0, len(doc.Rituals))
	for _, r := range doc.Rituals {
		cfg := r.config()
		if err := cfg.Validate(); err != nil {
			return nil, apperrors.InvalidInput("ritual seed " + r.ID + ": " + err.Error())
		}
		out = append(out, cfg)
	}
	return out, nil
}

// Seed upserts every ritual in path. An empty path is a no-op.
func Seed(ctx context.Context, rituals store.RitualStore, path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	configs, err := LoadSeed(path)
	if err != nil {
		return 0, err
	}
	for _, cfg := range configs {
		if err := rituals.Upsert(ctx, cfg); err != nil {
			return 0, err
		}
	}
	slog.Info("Seeded rituals", "path", path, "count", len(configs))
	return len(configs), nil
}
