package runtime

import (
	"context"
	"testing"

	"github.com/TAESTUDIOS/psa3/internal/config"
	"github.com/TAESTUDIOS/psa3/internal/store/memory"
)

func TestNewRuntimeBuilder(t *testing.T) {
	builder := NewRuntimeBuilder()
	if builder == nil {
		t.Error("NewRuntimeBuilder() returned nil")
	}
}

func TestBuilder_WithMethods(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{}
	st := memory.New()

	builder := NewRuntimeBuilder().
		WithContext(ctx).
		WithConfig(cfg).
		WithStore(st)

	impl, ok := builder.(*DefaultRuntimeBuilder)
	if !ok {
		t.Fatal("Builder is not DefaultRuntimeBuilder")
	}

	if impl.ctx != ctx {
		t.Error("WithContext did not set context")
	}
	if impl.cfg != cfg {
		t.Error("WithConfig did not set config")
	}
	if impl.store != st {
		t.Error("WithStore did not set store")
	}
}

func TestBuilder_Build_MissingConfig(t *testing.T) {
	builder := NewRuntimeBuilder().
		WithContext(context.Background())

	_, err := builder.Build()
	if err == nil {
		t.Error("Build() should return error when config is missing")
	}
}

func TestBuilder_Build_SchedulerDisabled(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Port: 8080}}

	r, err := NewRuntimeBuilder().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	defer r.Stop()

	if r.Scheduler != nil {
		t.Error("Scheduler should be nil when disabled")
	}
	if r.Daemon.Component("Scheduler") != nil {
		t.Error("Scheduler should not be registered when disabled")
	}

	deps := r.HTTP.Dependencies()
	want := []string{"Store", "Assistant"}
	if len(deps) != len(want) {
		t.Fatalf("HTTP deps = %v, want %v", deps, want)
	}
	for i := range want {
		if deps[i] != want[i] {
			t.Fatalf("HTTP deps = %v, want %v", deps, want)
		}
	}
}

func TestBuilder_Build_SchedulerEnabled(t *testing.T) {
	cfg := &config.Config{
		Server:    config.ServerConfig{Port: 8080},
		Scheduler: config.SchedulerConfig{Enabled: true},
	}

	r, err := NewRuntimeBuilder().WithConfig(cfg).WithStore(memory.New()).Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	defer r.Stop()

	if r.Scheduler == nil {
		t.Fatal("Scheduler should be built when enabled")
	}
	for _, name := range []string{"Store", "Assistant", "Scheduler", "HTTPServer"} {
		if r.Daemon.Component(name) == nil {
			t.Errorf("component %s not registered", name)
		}
	}

	deps := r.HTTP.Dependencies()
	if len(deps) != 3 || deps[2] != "Scheduler" {
		t.Fatalf("HTTP deps = %v, want Scheduler last", deps)
	}
}

func TestRuntime_StopCancelsContext(t *testing.T) {
	r, err := NewRuntimeBuilder().WithConfig(&config.Config{}).Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	r.Stop()
	select {
	case <-r.Ctx.Done():
	default:
		t.Fatal("Stop() should cancel the runtime context")
	}
}
