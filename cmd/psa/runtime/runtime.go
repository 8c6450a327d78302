package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/TAESTUDIOS/psa3/internal/config"
	"github.com/TAESTUDIOS/psa3/internal/daemon"
	"github.com/TAESTUDIOS/psa3/internal/daemon/components"
	"github.com/TAESTUDIOS/psa3/internal/store"
)

// Runtime is a daemon with every component registered, ready to Run.
type Runtime struct {
	Ctx    context.Context
	Cancel context.CancelFunc

	Config    *config.Config
	Daemon    *daemon.Daemon
	Store     *components.StoreComponent
	Assistant *components.AssistantComponent
	// Scheduler is nil when scheduler.enabled is false.
	Scheduler *components.SchedulerComponent
	HTTP      *components.HTTPServerComponent
}

func newRuntime(ctx context.Context, cfg *config.Config, st store.Store) (*Runtime, error) {
	d, err := daemon.NewDaemon(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create daemon manager: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	r := &Runtime{
		Ctx:    ctx,
		Cancel: cancel,
		Config: cfg,
		Daemon: d,
	}

	if st != nil {
		r.Store = components.NewStoreComponentWith(cfg, st)
	} else {
		r.Store = components.NewStoreComponent(cfg)
	}
	r.Assistant = components.NewAssistantComponent(cfg, r.Store)

	httpDeps := []string{r.Store.Name(), r.Assistant.Name()}
	if cfg.Scheduler.Enabled {
		r.Scheduler = components.NewSchedulerComponent(r.Assistant)
		httpDeps = append(httpDeps, r.Scheduler.Name())
	}
	r.HTTP = components.NewHTTPServerComponentWithDependencies(d, cfg, r.Assistant, httpDeps)

	d.AddComponent(r.Store)
	d.AddComponent(r.Assistant)
	if r.Scheduler != nil {
		d.AddComponent(r.Scheduler)
	}
	d.AddComponent(r.HTTP)

	return r, nil
}

// Run blocks until the context is cancelled or a component fails to start.
func (r *Runtime) Run() error {
	slog.Info("PSA runtime starting", "port", r.Config.Server.Port, "store", r.Config.Store.Driver, "scheduler", r.Config.Scheduler.Enabled)
	return r.Daemon.Start(r.Ctx)
}

func (r *Runtime) Stop() {
	if r.Cancel != nil {
		r.Cancel()
	}
}
