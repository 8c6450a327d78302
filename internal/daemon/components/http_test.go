package components

import (
	"context"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/TAESTUDIOS/psa3/internal/config"
	"github.com/TAESTUDIOS/psa3/internal/daemon"
)

func TestNewHTTPServerComponent_DefaultDependencies(t *testing.T) {
	comp := NewHTTPServerComponent(nil, &config.Config{Server: config.ServerConfig{Port: 8080}}, nil)
	deps := comp.Dependencies()

	want := []string{"Store", "Assistant"}
	if len(deps) != len(want) {
		t.Fatalf("dependencies length = %d, want %d", len(deps), len(want))
	}
	for i := range want {
		if deps[i] != want[i] {
			t.Fatalf("dependency[%d] = %s, want %s", i, deps[i], want[i])
		}
	}
}

func TestNewHTTPServerComponentWithDependencies_Copy(t *testing.T) {
	custom := []string{"Scheduler"}
	comp := NewHTTPServerComponentWithDependencies(nil, &config.Config{}, nil, custom)

	custom[0] = "Mutated"

	deps := comp.Dependencies()
	if len(deps) != 1 {
		t.Fatalf("dependencies length = %d, want 1", len(deps))
	}
	if deps[0] != "Scheduler" {
		t.Fatalf("dependency = %s, want Scheduler", deps[0])
	}

	deps[0] = "MutatedAgain"
	if comp.Dependencies()[0] != "Scheduler" {
		t.Fatal("Dependencies() must return a copy")
	}
}

func TestHTTPServerComponent_InitRequiresAssistant(t *testing.T) {
	comp := NewHTTPServerComponent(nil, &config.Config{}, NewAssistantComponent(&config.Config{}, nil))
	if err := comp.Init(context.Background()); err == nil {
		t.Fatal("expected error when the assistant was never built")
	}

	health, err := comp.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if health.Healthy {
		t.Fatal("uninitialized server must report unhealthy")
	}
}

func TestHTTPServerComponent_StopBeforeStart(t *testing.T) {
	comp := NewHTTPServerComponent(nil, &config.Config{}, nil)
	if err := comp.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

// gateComponent blocks its first Health call until released.
type gateComponent struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGateComponent() *gateComponent {
	return &gateComponent{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gateComponent) Name() string { return "Gate" }
func (g *gateComponent) Dependencies() []string { return nil }
func (g *gateComponent) Init(ctx context.Context) error { return nil }
func (g *gateComponent) Start(ctx context.Context) error { return nil }
func (g *gateComponent) Stop(ctx context.Context) error { return nil }

func (g *gateComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return daemon.Healthy(g.Name()), nil
}

func TestHTTPServerComponent_StopDrainsInFlightStatusRequest(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig(t)
	cfg.Server.ShutdownTimeout = "3s"

	d, err := daemon.NewDaemon(cfg)
	if err != nil {
		t.Fatalf("NewDaemon() error = %v", err)
	}
	storeComp := NewStoreComponent(cfg)
	assistantComp := NewAssistantComponent(cfg, storeComp)
	if err := storeComp.Init(ctx); err != nil {
		t.Fatalf("store Init() error = %v", err)
	}
	if err := assistantComp.Init(ctx); err != nil {
		t.Fatalf("assistant Init() error = %v", err)
	}

	gate := newGateComponent()
	comp := NewHTTPServerComponent(d, cfg, assistantComp)
	d.AddComponent(gate)
	d.AddComponent(comp)

	if err := comp.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	_, port, err := net.SplitHostPort(comp.Addr())
	if err != nil {
		t.Fatalf("parse addr %q: %v", comp.Addr(), err)
	}

	codes := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://127.0.0.1:" + port + "/api/status")
		if err != nil {
			codes <- -1
			return
		}
		resp.Body.Close()
		codes <- resp.StatusCode
	}()

	select {
	case <-gate.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("status request never reached component health")
	}

	stopped := make(chan error, 1)
	go func() { stopped <- comp.Stop(ctx) }()

	deadline := time.Now().Add(time.Second)
	for {
		h, _ := comp.Health(ctx)
		if !h.Healthy {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("server still healthy after Stop began")
		}
		time.Sleep(10 * time.Millisecond)
	}
	close(gate.release)

	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not return")
	}

	if code := <-codes; code != http.StatusServiceUnavailable {
		t.Fatalf("in-flight status code = %d, want 503", code)
	}
}
