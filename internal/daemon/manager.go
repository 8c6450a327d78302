package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/TAESTUDIOS/psa3/internal/config"
)

type Daemon struct {
	cfg        *config.Config
	components []Component
	// initOrder is resolved once on Start; initialized is the prefix of it
	// whose Init succeeded.
	initOrder       []string
	initialized     []string
	health          HealthStatus
	uptimeStart     time.Time
	mu              sync.RWMutex
	healthCheckDone chan struct{}
}

func NewDaemon(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	return &Daemon{
		cfg:             cfg,
		health:          StatusStarting,
		uptimeStart:     time.Now(),
		healthCheckDone: make(chan struct{}),
	}, nil
}

func (d *Daemon) AddComponent(comp Component) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.components = append(d.components, comp)
	slog.Info("Component registered", "component", comp.Name(), "total_components", len(d.components))
}

// Start initializes and starts every component, then blocks until ctx is
// cancelled or SIGINT/SIGTERM arrives, and shuts down in reverse order.
func (d *Daemon) Start(ctx context.Context) error {
	slog.Info("PSA daemon starting...")
	d.mu.Lock()
	d.uptimeStart = time.Now()
	d.mu.Unlock()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.validateConfig(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	shutdownTimeout, err := config.DurationOrDefault(d.cfg.Daemon.ShutdownTimeout, config.DefaultDaemonShutdownTimeout)
	if err != nil {
		return fmt.Errorf("parse daemon shutdown timeout: %w", err)
	}

	if err := d.initializeComponents(ctx); err != nil {
		d.rollback(context.Background())
		return fmt.Errorf("component initialization failed: %w", err)
	}

	if err := d.startComponents(ctx); err != nil {
		if shutdownErr := d.gracefulShutdown(context.Background(), shutdownTimeout); shutdownErr != nil {
			slog.Error("Shutdown after failed start reported errors", "error", shutdownErr)
		}
		return fmt.Errorf("component startup failed: %w", err)
	}

	d.setHealth(StatusRunning)
	slog.Info("PSA daemon is running", "components", len(d.components))

	go d.startHealthMonitor(ctx)

	<-ctx.Done()

	slog.Info("Context cancelled, initiating graceful shutdown", "reason", ctx.Err())
	d.setHealth(StatusStopping)
	close(d.healthCheckDone)
	if err := d.gracefulShutdown(context.Background(), shutdownTimeout); err != nil {
		return err
	}

	return ctx.Err()
}

func (d *Daemon) Health() HealthStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.health
}

// ComponentHealth probes every registered component. A probe error is folded
// into an unhealthy entry.
func (d *Daemon) ComponentHealth() map[string]*ComponentHealth {
	d.mu.RLock()
	components := append([]Component(nil), d.components...)
	d.mu.RUnlock()

	result := make(map[string]*ComponentHealth, len(components))
	for _, comp := range components {
		health, err := comp.Health(context.Background())
		if health == nil {
			health = &ComponentHealth{Name: comp.Name()}
		}
		if err != nil {
			health.Healthy = false
			health.Error = err
		}
		result[comp.Name()] = health
	}
	return result
}

func (d *Daemon) Uptime() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return time.Since(d.uptimeStart)
}

func (d *Daemon) Component(name string) Component {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lookup(name)
}

func (d *Daemon) setHealth(status HealthStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.health = status
}

func (d *Daemon) validateConfig() error {
	slog.Info("Validating configuration...")

	if d.cfg.Server.Port < 1 || d.cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", d.cfg.Server.Port)
	}

	switch strings.ToLower(strings.TrimSpace(d.cfg.Store.Driver)) {
	case "", config.DriverMemory, config.DriverFile, config.DriverPostgres:
	default:
		return fmt.Errorf("unknown store driver %q", d.cfg.Store.Driver)
	}

	slog.Info("Configuration validated", "port", d.cfg.Server.Port, "store", d.cfg.Store.Driver)
	return nil
}

func (d *Daemon) initializeComponents(ctx context.Context) error {
	slog.Info("Initializing components...")

	if err := d.validateDependencies(); err != nil {
		return fmt.Errorf("dependency validation failed: %w", err)
	}

	initOrder, err := d.resolveInitOrder()
	if err != nil {
		return fmt.Errorf("failed to resolve init order: %w", err)
	}

	d.mu.Lock()
	d.initOrder = initOrder
	d.initialized = nil
	d.mu.Unlock()

	for _, name := range initOrder {
		comp := d.Component(name)
		slog.Info("Initializing component...", "component", name)
		if err := comp.Init(ctx); err != nil {
			slog.Error("Component initialization failed", "component", name, "error", err)
			return fmt.Errorf("component %s init failed: %w", name, err)
		}

		d.mu.Lock()
		d.initialized = append(d.initialized, name)
		d.mu.Unlock()
		slog.Info("Component initialized", "component", name)
	}

	slog.Info("All components initialized", "count", len(initOrder))
	return nil
}

func (d *Daemon) startComponents(ctx context.Context) error {
	slog.Info("Starting components...")

	order := d.order()
	for _, name := range order {
		comp := d.Component(name)
		slog.Info("Starting component...", "component", name)
		if err := comp.Start(ctx); err != nil {
			slog.Error("Component startup failed", "component", name, "error", err)
			return fmt.Errorf("component %s startup failed: %w", name, err)
		}
		slog.Info("Component started", "component", name)
	}

	slog.Info("All components started", "count", len(order))
	return nil
}

func (d *Daemon) gracefulShutdown(ctx context.Context, timeout time.Duration) error {
	slog.Info("Graceful shutdown initiated", "timeout", timeout)

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- d.shutdownComponents(shutdownCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			slog.Error("Shutdown completed with error", "error", err)
		} else {
			slog.Info("Graceful shutdown completed")
		}
		return err
	case <-shutdownCtx.Done():
		if ctx.Err() != nil {
			slog.Info("Shutdown cancelled by parent context", "reason", ctx.Err())
			return fmt.Errorf("shutdown cancelled: %w", ctx.Err())
		}
		slog.Error("Shutdown timeout exceeded", "timeout", timeout)
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}

// shutdownComponents stops components in reverse init order. Every component
// gets its Stop call; failures are joined.
func (d *Daemon) shutdownComponents(ctx context.Context) error {
	err := d.stopReverse(ctx, d.order())
	d.setHealth(StatusStopped)
	return err
}

// rollback stops only the components whose Init succeeded.
func (d *Daemon) rollback(ctx context.Context) {
	d.mu.RLock()
	initialized := append([]string(nil), d.initialized...)
	d.mu.RUnlock()

	slog.Warn("Rolling back initialized components...", "count", len(initialized))
	if err := d.stopReverse(ctx, initialized); err != nil {
		slog.Error("Rollback failed", "error", err)
	}
	d.setHealth(StatusStopped)
}

func (d *Daemon) stopReverse(ctx context.Context, names []string) error {
	var errs []error
	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]
		comp := d.Component(name)
		if comp == nil {
			continue
		}

		slog.Info("Stopping component...", "component", name)
		if err := comp.Stop(ctx); err != nil {
			slog.Error("Component stop failed", "component", name, "error", err)
			errs = append(errs, fmt.Errorf("stop %s: %w", name, err))
			continue
		}
		slog.Info("Component stopped", "component", name)
	}
	return errors.Join(errs...)
}

func (d *Daemon) lookup(name string) Component {
	for _, comp := range d.components {
		if comp.Name() == name {
			return comp
		}
	}
	return nil
}

// order is the resolved init order, or registration order before Start.
func (d *Daemon) order() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.initOrder) > 0 {
		return append([]string(nil), d.initOrder...)
	}
	names := make([]string, 0, len(d.components))
	for _, comp := range d.components {
		names = append(names, comp.Name())
	}
	return names
}

func (d *Daemon) startHealthMonitor(ctx context.Context) {
	interval, err := config.DurationOrDefault(d.cfg.Daemon.HealthCheckInterval, config.DefaultDaemonHealthCheckInterval)
	if err != nil {
		slog.Error("Failed to parse daemon health check interval", "error", err)
		return
	}
	if interval == 0 {
		slog.Info("Daemon health monitor disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.healthCheckDone:
			return
		case <-ticker.C:
			d.checkComponentHealth(ctx)
		}
	}
}

// checkComponentHealth flips the daemon between running and degraded.
func (d *Daemon) checkComponentHealth(ctx context.Context) {
	healths := d.ComponentHealth()
	if ctx.Err() != nil {
		return
	}

	unhealthy := 0
	for name, health := range healths {
		if !health.Healthy {
			unhealthy++
			slog.Warn("Component unhealthy", "component", name, "error", health.Error)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case d.health != StatusRunning && d.health != StatusDegraded:
		// Stopping or stopped; leave the lifecycle state alone.
	case unhealthy > 0:
		if d.health != StatusDegraded {
			slog.Warn("Daemon degraded", "unhealthy", unhealthy, "total", len(healths))
		}
		d.health = StatusDegraded
	default:
		if d.health == StatusDegraded {
			slog.Info("Daemon recovered", "components", len(healths))
		}
		d.health = StatusRunning
	}
}

func (d *Daemon) validateDependencies() error {
	slog.Info("Validating component dependencies...")

	d.mu.RLock()
	defer d.mu.RUnlock()

	registered := make(map[string]bool, len(d.components))
	for _, comp := range d.components {
		if registered[comp.Name()] {
			return fmt.Errorf("component %s registered twice", comp.Name())
		}
		registered[comp.Name()] = true
	}

	for _, comp := range d.components {
		for _, dep := range comp.Dependencies() {
			if !registered[dep] {
				return fmt.Errorf("component %s depends on %s which is not registered", comp.Name(), dep)
			}
		}
	}

	slog.Info("All dependencies validated", "components", len(d.components))
	return nil
}

// resolveInitOrder is a depth-first topological sort. Ties keep registration
// order.
func (d *Daemon) resolveInitOrder() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int, len(d.components))
	order := make([]string, 0, len(d.components))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case visiting:
			return fmt.Errorf("circular dependency: %s", strings.Join(append(path, name), " -> "))
		case done:
			return nil
		}

		comp := d.lookup(name)
		if comp == nil {
			return fmt.Errorf("component %s not found", name)
		}

		state[name] = visiting
		for _, dep := range comp.Dependencies() {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = done
		order = append(order, name)
		return nil
	}

	for _, comp := range d.components {
		if err := visit(comp.Name(), nil); err != nil {
			return nil, err
		}
	}

	slog.Info("Component init order resolved", "order", order)
	return order, nil
}
