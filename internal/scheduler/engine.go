package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/TAESTUDIOS/psa3/internal/config"
	"github.com/TAESTUDIOS/psa3/internal/dispatch"
	apperrors "github.com/TAESTUDIOS/psa3/internal/errors"
	"github.com/TAESTUDIOS/psa3/internal/logger"
	"github.com/TAESTUDIOS/psa3/internal/model"
	"github.com/TAESTUDIOS/psa3/internal/ritual"

	"github.com/oklog/ulid/v2"
	"github.com/robfig/cron/v3"
)

type Component interface {
	Init(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) error
}

type RitualLister interface {
	List(ctx context.Context) ([]model.RitualConfig, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (dispatch.Result, error)
}

var _ Component = (*Scheduler)(nil)

// TickResult reports one evaluation of the schedule.
type TickResult struct {
	Due       []string `json:"due"`
	Triggered []string `json:"triggered"`
	// Time is the HH:mm the rituals were matched against.
	Time string `json:"time"`
}

type Scheduler struct {
	rituals    RitualLister
	dispatcher Dispatcher

	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
	running  bool
	cron     *cron.Cron
	lastTick *TickResult
	lastAt   time.Time

	timezone        string
	spec            string
	shutdownTimeout time.Duration
	now             func() time.Time
}

func NewScheduler(rituals RitualLister, dispatcher Dispatcher, cfg config.SchedulerConfig) (*Scheduler, error) {
	shutdownTimeout, err := config.DurationOrDefault(cfg.ShutdownTimeout, config.DefaultSchedulerShutdownTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse scheduler shutdown timeout: %w", err)
	}

	spec := strings.TrimSpace(cfg.Spec)
	if spec == "" {
		spec = config.DefaultSchedulerSpec
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parse scheduler spec %q: %w", spec, err)
	}

	tz := strings.TrimSpace(cfg.Timezone)
	if tz == "" {
		tz = config.DefaultSchedulerTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		slog.Warn("Unknown scheduler timezone, matching in UTC", "timezone", tz)
	}

	return &Scheduler{
		rituals:         rituals,
		dispatcher:      dispatcher,
		timezone:        tz,
		spec:            spec,
		shutdownTimeout: shutdownTimeout,
		now:             time.Now,
	}, nil
}

func (s *Scheduler) Timezone() string { return s.timezone }

func (s *Scheduler) Init(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.cron = cron.New(
		cron.WithLocation(model.LoadLocation(s.timezone)),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)
	if _, err := s.cron.AddFunc(s.spec, s.onTick); err != nil {
		return fmt.Errorf("register tick: %w", err)
	}

	slog.Info("Scheduler initialized", "spec", s.spec, "timezone", s.timezone)
	return nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	if s.cron == nil {
		s.mu.Unlock()
		return apperrors.Internal("scheduler not initialized")
	}
	s.running = true
	s.mu.Unlock()

	s.cron.Start()

	slog.Info("Scheduler started")
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	done := s.cron.Stop()
	s.cancel()

	select {
	case <-done.Done():
		slog.Info("Scheduler stopped gracefully")
		return nil
	case <-time.After(s.shutdownTimeout):
		slog.Warn("Scheduler shutdown timeout, force stopping")
		return apperrors.Internal("shutdown timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Health(ctx context.Context) error {
	if s.ctx == nil {
		return apperrors.Internal("scheduler not initialized")
	}

	if !s.IsRunning() {
		return apperrors.Internal("scheduler not running")
	}

	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// LastTick returns the most recent tick result and when it ran.
func (s *Scheduler) LastTick() (TickResult, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastTick == nil {
		return TickResult{}, time.Time{}, false
	}
	return *s.lastTick, s.lastAt, true
}

func (s *Scheduler) onTick() {
	ctx := logger.WithTraceID(s.ctx, "tick-"+strings.ToLower(ulid.Make().String()))
	s.Tick(ctx, s.now())
}

// Tick dispatches every ritual due at now. Stored rituals are considered
// alongside the builtin morning ritual. One ritual failing does not stop the
// rest.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) TickResult {
	log := logger.From(ctx)

	stored, err := s.rituals.List(ctx)
	if err != nil {
		log.Warn("Failed to list rituals, using builtins only", "error", err)
		stored = nil
	}

	result := TickResult{
		Due:       ritual.Due(now, s.timezone, ritual.WithBuiltins(stored)),
		Triggered: []string{},
		Time:      model.ClockIn(now, s.timezone),
	}

	for _, id := range result.Due {
		if _, err := s.dispatcher.Dispatch(ctx, dispatch.Request{RitualID: id, TZ: s.timezone}); err != nil {
			log.Error("Scheduled ritual failed", "ritual_id", id, "error", err)
			continue
		}
		result.Triggered = append(result.Triggered, id)
	}

	if len(result.Due) > 0 {
		log.Info("Scheduler tick", "time", result.Time, "due", result.Due, "triggered", result.Triggered)
	}

	s.mu.Lock()
	s.lastTick = &result
	s.lastAt = now
	s.mu.Unlock()

	return result
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
