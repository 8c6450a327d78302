package ritual

import (
	"context"
	"strings"

	apperrors "github.com/TAESTUDIOS/psa3/internal/errors"
	"github.com/TAESTUDIOS/psa3/internal/logger"
	"github.com/TAESTUDIOS/psa3/internal/model"
)

type Lookup interface {
	Get(ctx context.Context, id string) (model.RitualConfig, error)
}

// Fallback is what the caller already knows about the ritual.
type Fallback struct {
	Webhook string
	Buttons []string
}

type Resolution struct {
	ID      string
	Morning bool
	// Found is true when a stored config was used.
	Found   bool
	Webhook string
	Buttons []string
	Config  model.RitualConfig
}

// Mock reports that no webhook resolved and the reply must be produced locally.
func (r Resolution) Mock() bool {
	return !r.Morning && r.Webhook == ""
}

type Resolver struct {
	lookup Lookup
}

func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve never fails. A missing or unreadable config falls back to fb.
func (r *Resolver) Resolve(ctx context.Context, id string, fb Fallback) Resolution {
	if id == MorningID {
		return Resolution{ID: id, Morning: true, Buttons: append([]string(nil), MorningButtons...)}
	}

	res := Resolution{ID: id, Webhook: strings.TrimSpace(fb.Webhook), Buttons: fb.Buttons}
	if r.lookup == nil {
		return res
	}

	cfg, err := r.lookup.Get(ctx, id)
	switch {
	case err == nil:
		res.Found = true
		res.Config = cfg
		if hook := strings.TrimSpace(cfg.Webhook); hook != "" {
			res.Webhook = hook
		}
		if cfg.Buttons != nil {
			res.Buttons = cfg.Buttons
		}
	case apperrors.IsCategory(err, apperrors.ErrNotFound):
	default:
		logger.From(ctx).Warn("Ritual lookup failed, using caller values", "ritual_id", id, "error", err)
	}
	return res
}
