package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/TAESTUDIOS/psa3/internal/daemon"
	apperrors "github.com/TAESTUDIOS/psa3/internal/errors"
	"github.com/TAESTUDIOS/psa3/internal/scheduler"
)

// SchedulerComponent drives the assistant's scheduler from its cron spec.
// Only registered when scheduler.enabled is set; otherwise ticks arrive over
// HTTP from an external cron.
type SchedulerComponent struct {
	assistantComp *AssistantComponent
	sched         *scheduler.Scheduler
}

func NewSchedulerComponent(assistantComp *AssistantComponent) *SchedulerComponent {
	return &SchedulerComponent{assistantComp: assistantComp}
}

func (s *SchedulerComponent) Name() string {
	return "Scheduler"
}

func (s *SchedulerComponent) Dependencies() []string {
	return []string{"Assistant"}
}

func (s *SchedulerComponent) Init(ctx context.Context) error {
	if s.assistantComp == nil {
		return fmt.Errorf("assistantComp not provided")
	}
	asst := s.assistantComp.GetAssistant()
	if asst == nil {
		return fmt.Errorf("assistant not initialized")
	}

	if err := asst.Scheduler.Init(ctx); err != nil {
		return apperrors.Wrap(err, "register scheduler tick")
	}
	s.sched = asst.Scheduler
	return nil
}

func (s *SchedulerComponent) Start(ctx context.Context) error {
	if s.sched == nil {
		return errNotInitialized
	}
	return s.sched.Start(ctx)
}

func (s *SchedulerComponent) Stop(ctx context.Context) error {
	if s.sched == nil {
		return nil
	}

	if last, at, ok := s.sched.LastTick(); ok {
		slog.Info("Stopping scheduler", "component", s.Name(), "last_tick", at, "last_triggered", last.Triggered)
	}
	return s.sched.Stop(ctx)
}

func (s *SchedulerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	if s.sched == nil {
		return daemon.Unhealthy(s.Name(), errNotInitialized), nil
	}
	if err := s.sched.Health(ctx); err != nil {
		return daemon.Unhealthy(s.Name(), err), nil
	}
	return daemon.Healthy(s.Name()), nil
}

func (s *SchedulerComponent) GetScheduler() *scheduler.Scheduler {
	return s.sched
}
