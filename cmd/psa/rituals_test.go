package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TAESTUDIOS/psa3/internal/config"
	"github.com/TAESTUDIOS/psa3/internal/model"

	"github.com/spf13/cobra"
)

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rituals.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestListRituals(t *testing.T) {
	seed := writeSeed(t, `
rituals:
  - id: evening
    name: Evening check-in
    webhook: https://hooks.example/evening
    trigger: {type: chat, chatKeyword: /evening}
`)
	c := &config.Config{
		Store:   config.StoreConfig{Driver: config.DriverMemory},
		Rituals: config.RitualsConfig{SeedFile: seed},
	}

	rituals, err := listRituals(context.Background(), c)
	if err != nil {
		t.Fatalf("listRituals() error = %v", err)
	}
	if len(rituals) != 1 || rituals[0].ID != "evening" {
		t.Fatalf("rituals = %+v", rituals)
	}

	out := &bytes.Buffer{}
	if err := printRituals(out, rituals); err != nil {
		t.Fatalf("printRituals() error = %v", err)
	}
	for _, want := range []string{"ID", "evening", "chat /evening", "https://hooks.example/evening", "Total: 1"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestPrintRituals_Empty(t *testing.T) {
	out := &bytes.Buffer{}
	if err := printRituals(out, nil); err != nil {
		t.Fatalf("printRituals() error = %v", err)
	}
	if !strings.Contains(out.String(), "No rituals configured.") {
		t.Errorf("output = %q", out.String())
	}
}

func TestDescribeTrigger(t *testing.T) {
	if got := describeTrigger(model.ScheduleAt("07:00", model.RepeatDaily)); got != "schedule 07:00 daily" {
		t.Errorf("schedule trigger = %q", got)
	}
	if got := describeTrigger(model.ChatKeyword("/gym")); got != "chat /gym" {
		t.Errorf("chat trigger = %q", got)
	}
}

func TestRitualsCheckCmd(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		seed := writeSeed(t, `
rituals:
  - id: standup
    name: Standup
    trigger: {type: schedule, time: "09:00", repeat: daily}
`)
		out := &bytes.Buffer{}
		cmd := &cobra.Command{}
		cmd.SetOut(out)
		if err := ritualsCheckCmd.RunE(cmd, []string{seed}); err != nil {
			t.Fatalf("check failed: %v", err)
		}
		if !strings.Contains(out.String(), "1 ritual(s) valid") {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("invalid", func(t *testing.T) {
		seed := writeSeed(t, `
rituals:
  - id: broken
    trigger: {type: chat, chatKeyword: /x}
`)
		cmd := &cobra.Command{}
		cmd.SetOut(&bytes.Buffer{})
		if err := ritualsCheckCmd.RunE(cmd, []string{seed}); err == nil {
			t.Fatal("expected validation error for ritual without a name")
		}
	})
}
