// Package runtime assembles the daemon and its components from configuration.
package runtime

import (
	"context"
	"fmt"

	"github.com/TAESTUDIOS/psa3/internal/config"
	"github.com/TAESTUDIOS/psa3/internal/store"
)

type RuntimeBuilder interface {
	WithContext(ctx context.Context) RuntimeBuilder
	WithConfig(cfg *config.Config) RuntimeBuilder
	WithStore(st store.Store) RuntimeBuilder
	Build() (*Runtime, error)
}

type DefaultRuntimeBuilder struct {
	ctx   context.Context
	cfg   *config.Config
	store store.Store
}

func NewRuntimeBuilder() RuntimeBuilder {
	return &DefaultRuntimeBuilder{}
}

func (b *DefaultRuntimeBuilder) WithContext(ctx context.Context) RuntimeBuilder {
	b.ctx = ctx
	return b
}

func (b *DefaultRuntimeBuilder) WithConfig(cfg *config.Config) RuntimeBuilder {
	b.cfg = cfg
	return b
}

// WithStore skips opening the configured backend. Used by tests.
func (b *DefaultRuntimeBuilder) WithStore(st store.Store) RuntimeBuilder {
	b.store = st
	return b
}

func (b *DefaultRuntimeBuilder) Build() (*Runtime, error) {
	if b.ctx == nil {
		b.ctx = context.Background()
	}

	if b.cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	return newRuntime(b.ctx, b.cfg, b.store)
}
