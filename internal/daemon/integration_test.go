package daemon_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TAESTUDIOS/psa3/internal/config"
	"github.com/TAESTUDIOS/psa3/internal/daemon"
	"github.com/TAESTUDIOS/psa3/internal/daemon/components"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

const seedYAML = `
rituals:
  - id: evening
    name: Evening check-in
    trigger: {type: chat, chatKeyword: /evening}
`

func testConfig(t *testing.T, schedulerEnabled bool) *config.Config {
	t.Helper()
	seed := filepath.Join(t.TempDir(), "rituals.yaml")
	if err := os.WriteFile(seed, []byte(seedYAML), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return &config.Config{
		Server: config.ServerConfig{
			Port:            freePort(t),
			ShutdownTimeout: "2s",
		},
		Store: config.StoreConfig{
			Driver: config.DriverMemory,
		},
		Scheduler: config.SchedulerConfig{
			Enabled:  schedulerEnabled,
			Timezone: "UTC",
			Token:    "secret",
		},
		Rituals: config.RitualsConfig{
			SeedFile: seed,
		},
		Daemon: config.DaemonConfig{
			ShutdownTimeout:     "5s",
			HealthCheckInterval: "1h",
		},
	}
}

func buildDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	d, err := daemon.NewDaemon(cfg)
	if err != nil {
		t.Fatalf("NewDaemon() error = %v", err)
	}

	storeComp := components.NewStoreComponent(cfg)
	assistantComp := components.NewAssistantComponent(cfg, storeComp)
	d.AddComponent(storeComp)
	d.AddComponent(assistantComp)

	httpDeps := []string{"Store", "Assistant"}
	if cfg.Scheduler.Enabled {
		d.AddComponent(components.NewSchedulerComponent(assistantComp))
		httpDeps = append(httpDeps, "Scheduler")
	}
	d.AddComponent(components.NewHTTPServerComponentWithDependencies(d, cfg, assistantComp, httpDeps))
	return d
}

func waitRunning(t *testing.T, d *daemon.Daemon, errCh <-chan error) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case err := <-errCh:
			t.Fatalf("daemon exited early: %v", err)
		default:
		}
		if d.Health() == daemon.StatusRunning {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("daemon did not reach running state, got %s", d.Health())
}

func getJSON(t *testing.T, url string, header map[string]string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode %s: %v (body %q)", url, err, raw)
	}
	return resp.StatusCode, body
}

func TestDaemonFullLifecycle(t *testing.T) {
	cfg := testConfig(t, true)
	d := buildDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- d.Start(ctx) }()

	waitRunning(t, d, errCh)

	health := d.ComponentHealth()
	if len(health) != 4 {
		t.Fatalf("component count = %d, want 4", len(health))
	}
	for name, h := range health {
		if !h.Healthy {
			t.Fatalf("component %s unhealthy: %v", name, h.Error)
		}
	}

	base := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)

	status, body := getJSON(t, base+"/api/ping", nil)
	if status != http.StatusOK || body["pong"] != true {
		t.Fatalf("ping = %d %v", status, body)
	}

	status, body = getJSON(t, base+"/api/status", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d %v", status, body)
	}
	comps, ok := body["components"].([]interface{})
	if !ok || len(comps) != 4 {
		t.Fatalf("status components = %v", body["components"])
	}

	status, body = getJSON(t, base+"/api/rituals", nil)
	if status != http.StatusOK {
		t.Fatalf("rituals = %d %v", status, body)
	}
	if rituals, _ := body["rituals"].([]interface{}); len(rituals) != 1 {
		t.Fatalf("rituals = %v, want the seeded evening ritual", body["rituals"])
	}

	status, _ = getJSON(t, base+"/api/scheduler/tick", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("tick without token = %d, want 401", status)
	}
	status, body = getJSON(t, base+"/api/scheduler/tick", map[string]string{"X-Scheduler-Token": "secret"})
	if status != http.StatusOK || body["ok"] != true {
		t.Fatalf("tick = %d %v", status, body)
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("Start() returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not shut down")
	}

	if _, err := http.Get(base + "/api/ping"); err == nil {
		t.Fatal("server still accepting requests after shutdown")
	}
}

func TestDaemonWithoutScheduler(t *testing.T) {
	cfg := testConfig(t, false)
	d := buildDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- d.Start(ctx) }()

	waitRunning(t, d, errCh)

	if d.Component("Scheduler") != nil {
		t.Fatal("scheduler registered while disabled")
	}
	if len(d.ComponentHealth()) != 3 {
		t.Fatalf("component count = %d, want 3", len(d.ComponentHealth()))
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not shut down")
	}
}

func TestDaemonPortConflictFailsStartup(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	cfg := testConfig(t, false)
	cfg.Server.Port = ln.Addr().(*net.TCPAddr).Port
	d := buildDaemon(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected startup failure on occupied port")
	}
}
