package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/TAESTUDIOS/psa3/internal/config"
	"github.com/TAESTUDIOS/psa3/internal/daemon"
	apperrors "github.com/TAESTUDIOS/psa3/internal/errors"
	"github.com/TAESTUDIOS/psa3/internal/store"
	"github.com/TAESTUDIOS/psa3/internal/store/driver"
)

const storePingTimeout = 2 * time.Second

var (
	errNotInitialized = errors.New("not initialized")
	errNotStarted     = errors.New("not started")
)

// StoreComponent opens the configured backend and seeds rituals into it.
type StoreComponent struct {
	cfg         *config.Config
	store       store.Store
	initialized bool
	started     bool
	mu          sync.RWMutex
}

func NewStoreComponent(cfg *config.Config) *StoreComponent {
	return &StoreComponent{cfg: cfg}
}

// NewStoreComponentWith wraps a store that is already open. Seeding still runs.
func NewStoreComponentWith(cfg *config.Config, st store.Store) *StoreComponent {
	return &StoreComponent{cfg: cfg, store: st}
}

func (s *StoreComponent) Name() string {
	return "Store"
}

func (s *StoreComponent) Dependencies() []string {
	return []string{}
}

func (s *StoreComponent) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("Store init cancelled: %w", ctx.Err())
	default:
	}

	if s.cfg == nil {
		return fmt.Errorf("store config not provided")
	}

	if s.store == nil {
		st, err := driver.Open(ctx, s.cfg.Store)
		if err != nil {
			return apperrors.Wrap(err, "failed to open store")
		}
		s.store = st
	}

	n, err := driver.Seed(ctx, s.store.Rituals(), s.cfg.Rituals.SeedFile)
	if err != nil {
		return apperrors.Wrap(err, "failed to seed rituals")
	}

	s.initialized = true
	slog.Info("Store initialized", "component", s.Name(), "driver", s.cfg.Store.Driver, "seeded", n)
	return nil
}

func (s *StoreComponent) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return fmt.Errorf("Store not initialized")
	}
	s.started = true
	return nil
}

func (s *StoreComponent) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		slog.Info("Store not opened, skipping stop", "component", s.Name())
		return nil
	}

	slog.Info("Closing store...", "component", s.Name())
	err := s.store.Close()
	s.started = false
	s.initialized = false
	if err != nil {
		return apperrors.Wrap(err, "close store")
	}
	slog.Info("Store closed", "component", s.Name())
	return nil
}

func (s *StoreComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return daemon.Unhealthy(s.Name(), errNotInitialized), nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, storePingTimeout)
	defer cancel()
	if err := s.store.Ping(pingCtx); err != nil {
		return daemon.Unhealthy(s.Name(), err), nil
	}

	return daemon.Healthy(s.Name()), nil
}

func (s *StoreComponent) GetStore() store.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}
