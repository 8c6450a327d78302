package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TAESTUDIOS/psa3/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func TestConfigInitCmd(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	home, _ := os.UserHomeDir()

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	if err := configInitCmd.RunE(cmd, nil); err != nil {
		t.Errorf("Config init failed: %v", err)
	}

	configPath := filepath.Join(home, ".psa", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Config file not created at %s: %v", configPath, err)
	}

	var parsed map[string]interface{}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("template is not valid YAML: %v", err)
	}
	for _, section := range []string{"server", "store", "scheduler", "dispatch", "rituals", "daemon"} {
		if _, ok := parsed[section]; !ok {
			t.Errorf("template missing section %q", section)
		}
	}

	out := &bytes.Buffer{}
	cmd2 := &cobra.Command{}
	cmd2.SetOut(out)
	if err := configInitCmd.RunE(cmd2, nil); err != nil {
		t.Errorf("Config init should succeed when config exists: %v", err)
	}
	if !strings.Contains(out.String(), "already exists") {
		t.Errorf("second init output = %q", out.String())
	}
}

func TestConfigViewCmd(t *testing.T) {
	prev := cfg
	t.Cleanup(func() { cfg = prev })
	cfg = &config.Config{
		Server:    config.ServerConfig{Port: 4000},
		Scheduler: config.SchedulerConfig{Token: "scheduler-secret"},
	}

	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	if err := configViewCmd.RunE(cmd, nil); err != nil {
		t.Fatalf("Config view failed: %v", err)
	}

	if !strings.Contains(out.String(), "port: 4000") {
		t.Errorf("view output missing port: %s", out.String())
	}
	if strings.Contains(out.String(), "scheduler-secret") {
		t.Error("view output leaks the scheduler token")
	}
}

func TestRedactConfigSecrets(t *testing.T) {
	original := &config.Config{
		Store:     config.StoreConfig{DatabaseURL: "postgres://user:hunter2@db/psa"},
		Scheduler: config.SchedulerConfig{Token: "tok-secret-123456"},
	}

	redacted := redactConfigSecrets(original)

	if redacted == nil {
		t.Fatal("redacted config should not be nil")
	}
	if strings.Contains(redacted.Store.DatabaseURL, "hunter2") {
		t.Fatal("database url should be masked")
	}
	if redacted.Scheduler.Token == original.Scheduler.Token {
		t.Fatal("scheduler token should be masked")
	}

	// Ensure original struct is not mutated.
	if original.Scheduler.Token != "tok-secret-123456" {
		t.Fatal("original config must not be modified")
	}
}

func TestMaskSecret(t *testing.T) {
	if got := maskSecret(""); got != "" {
		t.Fatalf("empty secret: got %q", got)
	}
	if got := maskSecret("abc"); got != "****" {
		t.Fatalf("short secret: got %q", got)
	}

	got := maskSecret("abcdef")
	if len(got) != len("abcdef") {
		t.Fatalf("masked secret length mismatch: got %d", len(got))
	}
	if got[:2] != "ab" || got[len(got)-2:] != "ef" {
		t.Fatalf("masked secret should preserve prefix/suffix: got %q", got)
	}
}
