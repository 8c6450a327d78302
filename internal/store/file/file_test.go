package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/TAESTUDIOS/psa3/internal/model"
	"github.com/TAESTUDIOS/psa3/internal/store"
	"github.com/TAESTUDIOS/psa3/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(t.TempDir(), shortLockConfig(DefaultLockConfig().LockTimeout))
		require.NoError(t, err)
		return s
	})
}

func TestFileStore_PersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := Open(dir, DefaultLockConfig())
	require.NoError(t, err)
	require.NoError(t, s1.Rituals().Upsert(ctx, model.RitualConfig{
		ID: "evening", Name: "Evening", Trigger: model.ChatKeyword("/evening"), Buttons: []string{"Done"}, Active: true,
	}))

	s2, err := Open(dir, DefaultLockConfig())
	require.NoError(t, err)
	got, err := s2.Rituals().Get(ctx, "evening")
	require.NoError(t, err)
	assert.Equal(t, "/evening", got.Trigger.Chat.Keyword)

	raw, err := os.ReadFile(filepath.Join(dir, ritualsFile))
	require.NoError(t, err)
	var doc map[string][]map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc["items"], 1)
	assert.Equal(t, map[string]any{"type": "chat", "chatKeyword": "/evening"}, doc["items"][0]["trigger"])
}

func TestFileStore_CorruptDocumentIsStorageError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, urgentFile), []byte("{not json"), 0644))

	s, err := Open(dir, DefaultLockConfig())
	require.NoError(t, err)

	_, err = s.Urgent().ReadAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage error")
}

func TestFileStore_Ping(t *testing.T) {
	s, err := Open(t.TempDir(), DefaultLockConfig())
	require.NoError(t, err)
	assert.NoError(t, s.Ping(context.Background()))
}
