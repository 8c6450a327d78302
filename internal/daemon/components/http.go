package components

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/TAESTUDIOS/psa3/internal/api"
	"github.com/TAESTUDIOS/psa3/internal/concurrency"
	"github.com/TAESTUDIOS/psa3/internal/config"
	"github.com/TAESTUDIOS/psa3/internal/daemon"

	"github.com/gofiber/fiber/v2"
)

var defaultHTTPDependencies = []string{"Store", "Assistant"}

// HTTPServerComponent serves the JSON API with fiber.
type HTTPServerComponent struct {
	daemon        *daemon.Daemon
	cfg           *config.Config
	assistantComp *AssistantComponent
	dependencies  []string
	app           *fiber.App
	addr          string
	listener      net.Listener
	shutdownTTL   time.Duration
	initialized   bool
	started       bool
	mu            sync.RWMutex
	startTime     time.Time
}

func NewHTTPServerComponent(d *daemon.Daemon, cfg *config.Config, assistantComp *AssistantComponent) *HTTPServerComponent {
	return NewHTTPServerComponentWithDependencies(d, cfg, assistantComp, defaultHTTPDependencies)
}

// NewHTTPServerComponentWithDependencies also waits for extra components,
// such as the scheduler, before serving.
func NewHTTPServerComponentWithDependencies(d *daemon.Daemon, cfg *config.Config, assistantComp *AssistantComponent, dependencies []string) *HTTPServerComponent {
	return &HTTPServerComponent{
		daemon:        d,
		cfg:           cfg,
		assistantComp: assistantComp,
		dependencies:  append([]string(nil), dependencies...),
	}
}

func (h *HTTPServerComponent) Name() string {
	return "HTTPServer"
}

func (h *HTTPServerComponent) Dependencies() []string {
	return append([]string(nil), h.dependencies...)
}

func (h *HTTPServerComponent) Init(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cfg == nil {
		return fmt.Errorf("server config not provided")
	}
	if h.assistantComp == nil {
		return fmt.Errorf("assistantComp not provided")
	}
	asst := h.assistantComp.GetAssistant()
	if asst == nil {
		return fmt.Errorf("assistant not initialized")
	}

	srv := h.cfg.Server
	readTimeout, err := config.DurationOrDefault(srv.ReadTimeout, config.DefaultServerReadTimeout)
	if err != nil {
		return fmt.Errorf("parse server read timeout: %w", err)
	}
	writeTimeout, err := config.DurationOrDefault(srv.WriteTimeout, config.DefaultServerWriteTimeout)
	if err != nil {
		return fmt.Errorf("parse server write timeout: %w", err)
	}
	idleTimeout, err := config.DurationOrDefault(srv.IdleTimeout, config.DefaultServerIdleTimeout)
	if err != nil {
		return fmt.Errorf("parse server idle timeout: %w", err)
	}
	shutdownTimeout, err := config.DurationOrDefault(srv.ShutdownTimeout, config.DefaultServerShutdownTimeout)
	if err != nil {
		return fmt.Errorf("parse server shutdown timeout: %w", err)
	}

	deps := api.Deps{
		Store:      asst.Store,
		Ledger:     asst.Ledger,
		Composer:   asst.Composer,
		Dispatcher: asst.Dispatcher,
		Chat:       asst.Chat,
		Fallback:   asst.Fallback,
		Scheduler:  asst.Scheduler,
	}
	if h.daemon != nil {
		deps.Status = daemonStatus{d: h.daemon}
	}

	h.app = api.New(deps, api.Options{
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		BodyLimit:      srv.BodyLimit,
		RateLimit:      srv.RateLimit,
		SchedulerToken: h.cfg.Scheduler.Token,
		Timezone:       asst.Scheduler.Timezone(),
	})
	h.addr = fmt.Sprintf(":%d", srv.Port)
	h.shutdownTTL = shutdownTimeout

	h.initialized = true
	slog.Info("HTTPServer initialized", "component", h.Name(), "port", srv.Port)
	return nil
}

// Start binds the port before returning so address errors fail startup.
func (h *HTTPServerComponent) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		return fmt.Errorf("HTTPServer not initialized")
	}

	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", h.addr, err)
	}
	h.listener = ln

	app := h.app
	concurrency.SafeGo("http-listener", func() {
		slog.Info("HTTP server listening", "component", h.Name(), "addr", ln.Addr().String())
		if err := app.Listener(ln); err != nil {
			slog.Error("HTTP server failed", "component", h.Name(), "error", err)
		}
	}, func(any) {
		h.mu.Lock()
		h.started = false
		h.mu.Unlock()
	})

	h.started = true
	h.startTime = time.Now()
	slog.Info("HTTPServer started", "component", h.Name())
	return nil
}

// Stop drains in-flight requests without holding h.mu, since /api/status
// handlers call Health.
func (h *HTTPServerComponent) Stop(ctx context.Context) error {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		slog.Info("HTTPServer not started, skipping stop", "component", h.Name())
		return nil
	}
	app, ttl, startTime := h.app, h.shutdownTTL, h.startTime
	h.started = false
	h.mu.Unlock()

	slog.Info("Stopping HTTPServer...", "component", h.Name())
	if err := app.ShutdownWithTimeout(ttl); err != nil {
		slog.Error("HTTPServer shutdown error", "component", h.Name(), "error", err)
		return err
	}

	slog.Info("HTTPServer stopped", "component", h.Name(), "uptime", time.Since(startTime).Round(time.Second))
	return nil
}

func (h *HTTPServerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.initialized {
		return daemon.Unhealthy(h.Name(), errNotInitialized), nil
	}

	if !h.started {
		return daemon.Unhealthy(h.Name(), errNotStarted), nil
	}

	return daemon.Healthy(h.Name()), nil
}

// Addr is the bound address once started, e.g. "[::]:3000".
func (h *HTTPServerComponent) Addr() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

// daemonStatus reports component health for /api/status.
type daemonStatus struct {
	d *daemon.Daemon
}

func (s daemonStatus) Status(ctx context.Context) []api.ComponentStatus {
	healths := s.d.ComponentHealth()
	out := make([]api.ComponentStatus, 0, len(healths))
	for name, ch := range healths {
		status := api.ComponentStatus{Name: name, Healthy: ch.Healthy}
		if ch.Error != nil {
			status.Error = ch.Error.Error()
		}
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
