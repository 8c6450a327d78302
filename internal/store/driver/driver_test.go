package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/TAESTUDIOS/psa3/internal/config"
	apperrors "github.com/TAESTUDIOS/psa3/internal/errors"
	"github.com/TAESTUDIOS/psa3/internal/model"
	"github.com/TAESTUDIOS/psa3/internal/store/file"
	"github.com/TAESTUDIOS/psa3/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)

	s, err = Open(ctx, config.StoreConfig{Driver: "FILE", DataDir: t.TempDir(), LockTimeout: "1s"})
	require.NoError(t, err)
	assert.IsType(t, &file.Store{}, s)

	_, err = Open(ctx, config.StoreConfig{Driver: "file"})
	assert.True(t, apperrors.IsCategory(err, apperrors.ErrInvalidInput))

	_, err = Open(ctx, config.StoreConfig{Driver: "postgres"})
	assert.True(t, apperrors.IsCategory(err, apperrors.ErrInvalidInput))

	_, err = Open(ctx, config.StoreConfig{Driver: "redis"})
	assert.True(t, apperrors.IsCategory(err, apperrors.ErrInvalidInput))
}

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rituals.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestSeed_UpsertsAndDefaultsActive(t *testing.T) {
	path := writeSeed(t, `
rituals:
  - id: evening
    name: Evening check-in
    webhook: https://hooks.example/evening
    trigger:
      type: chat
      chatKeyword: /evening
    buttons: [Done]
  - id: standup
    name: Standup
    active: false
    trigger:
      type: schedule
      time: "09:30"
`)
	s := memory.New()
	n, err := Seed(context.Background(), s.Rituals(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	evening, err := s.Rituals().Get(context.Background(), "evening")
	require.NoError(t, err)
	assert.True(t, evening.Active)
	assert.Equal(t, model.TriggerChat, evening.Trigger.Kind)
	assert.Equal(t, []string{"Done"}, evening.Buttons)

	standup, err := s.Rituals().Get(context.Background(), "standup")
	require.NoError(t, err)
	assert.False(t, standup.Active)
	assert.Equal(t, model.RepeatDaily, standup.Trigger.Schedule.Repeat)
	assert.Equal(t, []string{}, standup.Buttons)
}

func TestSeed_RejectsInvalidRitual(t *testing.T) {
	path := writeSeed(t, `
rituals:
  - id: broken
    trigger: {type: chat, chatKeyword: /x}
`)
	_, err := Seed(context.Background(), memory.New().Rituals(), path)
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.ErrInvalidInput))
}

func TestSeed_EmptyPathIsNoop(t *testing.T) {
	n, err := Seed(context.Background(), memory.New().Rituals(), "")
	require.NoError(t, err)
	assert.Zero(t, n)
}
