package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/TAESTUDIOS/psa3/internal/assistant"
	"github.com/TAESTUDIOS/psa3/internal/config"
	"github.com/TAESTUDIOS/psa3/internal/daemon"
	apperrors "github.com/TAESTUDIOS/psa3/internal/errors"
)

// AssistantComponent wires the ledger, briefing, dispatch and chat services
// onto the opened store.
type AssistantComponent struct {
	cfg       *config.Config
	storeComp *StoreComponent
	assistant *assistant.Assistant
	mu        sync.RWMutex
}

func NewAssistantComponent(cfg *config.Config, storeComp *StoreComponent) *AssistantComponent {
	return &AssistantComponent{cfg: cfg, storeComp: storeComp}
}

func (a *AssistantComponent) Name() string {
	return "Assistant"
}

func (a *AssistantComponent) Dependencies() []string {
	return []string{"Store"}
}

func (a *AssistantComponent) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.storeComp == nil {
		return fmt.Errorf("storeComp not provided")
	}
	st := a.storeComp.GetStore()
	if st == nil {
		return fmt.Errorf("store not initialized")
	}

	asst, err := assistant.New(st, a.cfg)
	if err != nil {
		return apperrors.Wrap(err, "failed to build assistant")
	}
	a.assistant = asst
	slog.Info("Assistant initialized", "component", a.Name(), "history", asst.Ledger.Keep())
	return nil
}

func (a *AssistantComponent) Start(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.assistant == nil {
		return fmt.Errorf("Assistant not initialized")
	}
	return nil
}

func (a *AssistantComponent) Stop(ctx context.Context) error {
	return nil
}

func (a *AssistantComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.assistant == nil {
		return daemon.Unhealthy(a.Name(), errNotInitialized), nil
	}
	return daemon.Healthy(a.Name()), nil
}

func (a *AssistantComponent) GetAssistant() *assistant.Assistant {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.assistant
}
