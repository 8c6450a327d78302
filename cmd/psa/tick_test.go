package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TAESTUDIOS/psa3/internal/config"
	"github.com/TAESTUDIOS/psa3/internal/scheduler"
)

func TestTickURL(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.Config
		override string
		want     string
	}{
		{"default port", &config.Config{}, "", "http://localhost:3000/api/scheduler/tick"},
		{"configured port", &config.Config{Server: config.ServerConfig{Port: 8080}}, "", "http://localhost:8080/api/scheduler/tick"},
		{"base url", &config.Config{Server: config.ServerConfig{BaseURL: "https://psa.example.com/"}}, "", "https://psa.example.com/api/scheduler/tick"},
		{"flag wins", &config.Config{Server: config.ServerConfig{BaseURL: "https://psa.example.com"}}, "http://127.0.0.1:9000", "http://127.0.0.1:9000/api/scheduler/tick"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tickURL(tt.cfg, tt.override); got != tt.want {
				t.Errorf("tickURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRemoteTick(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Scheduler-Token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"ok":false,"error":"unauthorized"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"due":["standup"],"triggered":["standup"],"time":"09:00"}`))
	}))
	defer srv.Close()

	result, err := remoteTick(context.Background(), srv.Client(), srv.URL+"/api/scheduler/tick", "secret")
	if err != nil {
		t.Fatalf("remoteTick() error = %v", err)
	}
	if result.Time != "09:00" || len(result.Triggered) != 1 || result.Triggered[0] != "standup" {
		t.Fatalf("unexpected result: %+v", result)
	}

	if _, err := remoteTick(context.Background(), srv.Client(), srv.URL+"/api/scheduler/tick", "wrong"); err == nil {
		t.Fatal("expected error on 401")
	} else if !strings.Contains(err.Error(), "401") {
		t.Fatalf("error should carry the status: %v", err)
	}
}

func TestLocalTick(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "rituals.yaml")
	body := `
rituals:
  - id: standup
    name: Standup
    trigger: {type: schedule, time: "09:00", repeat: daily}
  - id: evening
    name: Evening
    trigger: {type: chat, chatKeyword: /evening}
`
	if err := os.WriteFile(seed, []byte(body), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	c := &config.Config{
		Store:     config.StoreConfig{Driver: config.DriverMemory},
		Scheduler: config.SchedulerConfig{Timezone: "UTC"},
		Rituals:   config.RitualsConfig{SeedFile: seed},
	}

	now := time.Date(2025, 9, 16, 9, 0, 30, 0, time.UTC)
	result, err := localTick(context.Background(), c, now)
	if err != nil {
		t.Fatalf("localTick() error = %v", err)
	}
	if result.Time != "09:00" {
		t.Errorf("Time = %q, want 09:00", result.Time)
	}
	if len(result.Due) != 1 || result.Due[0] != "standup" {
		t.Errorf("Due = %v, want [standup]", result.Due)
	}
	if len(result.Triggered) != 1 {
		t.Errorf("Triggered = %v, want the mock standup dispatch", result.Triggered)
	}
}

func TestPrintTick(t *testing.T) {
	out := &bytes.Buffer{}
	if err := printTick(out, scheduler.TickResult{Time: "07:30"}); err != nil {
		t.Fatalf("printTick() error = %v", err)
	}
	if !strings.Contains(out.String(), "Due: (none)") {
		t.Errorf("output = %q", out.String())
	}
}
