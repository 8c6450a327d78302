// Package storetest holds behaviour checks every store backend must pass.
package storetest

import (
	"context"
	"fmt"
	"testing"

	apperrors "github.com/TAESTUDIOS/psa3/internal/errors"
	"github.com/TAESTUDIOS/psa3/internal/model"
	"github.com/TAESTUDIOS/psa3/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a backend. open must return an empty store.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Helper()
	t.Run("AppointmentsUpsertReplaces", func(t *testing.T) { testAppointments(t, open(t)) })
	t.Run("UrgentCRUD", func(t *testing.T) { testUrgent(t, open(t)) })
	t.Run("RitualsLastWriteWins", func(t *testing.T) { testRituals(t, open(t)) })
	t.Run("MessagesCapAndDedup", func(t *testing.T) { testMessages(t, open(t)) })
	t.Run("SettingsPartialUpdate", func(t *testing.T) { testSettings(t, open(t)) })
	t.Run("SavedNoOpOnConflict", func(t *testing.T) { testSaved(t, open(t)) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, open(t).Ping(context.Background())) })
}

func testAppointments(t *testing.T, s store.Store) {
	ctx := context.Background()
	appts := s.Appointments()

	_, err := appts.Upsert(ctx, model.Appointment{ID: "a1", Title: "Dentist", Date: "2025-09-16", Start: "14:00", DurationMin: 45})
	require.NoError(t, err)
	_, err = appts.Upsert(ctx, model.Appointment{ID: "a2", Title: "Standup", Date: "2025-09-16", Start: "09:00", DurationMin: 15})
	require.NoError(t, err)
	_, err = appts.Upsert(ctx, model.Appointment{ID: "a3", Title: "Gym", Date: "2025-09-17", Start: "07:00", DurationMin: 60})
	require.NoError(t, err)

	_, err = appts.Upsert(ctx, model.Appointment{ID: "a1", Title: "Dentist (moved)", Date: "2025-09-16", Start: "15:00", DurationMin: 30, Notes: "bring card"})
	require.NoError(t, err)

	day, err := appts.ListByDate(ctx, "2025-09-16")
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, "a2", day[0].ID, "sorted by start")

	var matches int
	for _, a := range day {
		if a.ID == "a1" {
			matches++
			assert.Equal(t, "Dentist (moved)", a.Title)
			assert.Equal(t, "15:00", a.Start)
			assert.Equal(t, 30, a.DurationMin)
			assert.Equal(t, "bring card", a.Notes)
		}
	}
	assert.Equal(t, 1, matches)

	all, err := appts.ListByDate(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	got, err := appts.Get(ctx, "a3")
	require.NoError(t, err)
	assert.Equal(t, "Gym", got.Title)

	require.NoError(t, appts.Remove(ctx, "a3"))
	_, err = appts.Get(ctx, "a3")
	assert.True(t, apperrors.IsCategory(err, apperrors.ErrNotFound))
}

func testUrgent(t *testing.T, s store.Store) {
	ctx := context.Background()
	urgent := s.Urgent()
	due := int64(1758000000000)

	_, err := urgent.Upsert(ctx, model.UrgentTodo{ID: "t1", Title: "Pay rent", Priority: model.PriorityHigh, DueAt: &due, Tags: []string{"home"}, CreatedAt: 1, UpdatedAt: 1})
	require.NoError(t, err)
	_, err = urgent.Upsert(ctx, model.UrgentTodo{ID: "t2", Title: "Email", Priority: model.PriorityLow, CreatedAt: 2, UpdatedAt: 2})
	require.NoError(t, err)
	_, err = urgent.Upsert(ctx, model.UrgentTodo{ID: "t2", Title: "Email Bob", Priority: model.PriorityMedium, Done: true, CreatedAt: 2, UpdatedAt: 3})
	require.NoError(t, err)

	items, err := urgent.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	byID := map[string]model.UrgentTodo{}
	for _, it := range items {
		byID[it.ID] = it
	}
	require.NotNil(t, byID["t1"].DueAt)
	assert.Equal(t, due, *byID["t1"].DueAt)
	assert.Equal(t, []string{"home"}, byID["t1"].Tags)
	assert.Equal(t, "Email Bob", byID["t2"].Title)
	assert.True(t, byID["t2"].Done)
	assert.Nil(t, byID["t2"].DueAt)

	require.NoError(t, urgent.Remove(ctx, "t1"))
	items, err = urgent.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func testRituals(t *testing.T, s store.Store) {
	ctx := context.Background()
	rituals := s.Rituals()

	require.NoError(t, rituals.Upsert(ctx, model.RitualConfig{ID: "evening", Name: "Evening", Trigger: model.ChatKeyword("/evening"), Buttons: []string{"Done", "Snooze"}, Active: true}))
	require.NoError(t, rituals.Upsert(ctx, model.RitualConfig{ID: "water", Name: "Water", Webhook: "https://hooks.test/water", Trigger: model.ScheduleAt("10:00", model.RepeatDaily), Buttons: []string{}, Active: true}))
	require.NoError(t, rituals.Upsert(ctx, model.RitualConfig{ID: "evening", Name: "Evening v2", Trigger: model.ChatKeyword("/night"), Buttons: []string{"Done"}, Active: false}))

	got, err := rituals.Get(ctx, "evening")
	require.NoError(t, err)
	assert.Equal(t, "Evening v2", got.Name)
	assert.Equal(t, model.TriggerChat, got.Trigger.Kind)
	assert.Equal(t, "/night", got.Trigger.Chat.Keyword)
	assert.False(t, got.Active)

	list, err := rituals.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "evening", list[0].ID, "most recently updated first")
	assert.Equal(t, "10:00", list[1].Trigger.Schedule.Time)

	_, err = rituals.Get(ctx, "missing")
	assert.True(t, apperrors.IsCategory(err, apperrors.ErrNotFound))

	require.NoError(t, rituals.Delete(ctx, "water"))
	list, err = rituals.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func testMessages(t *testing.T, s store.Store) {
	ctx := context.Background()
	messages := s.Messages()

	for i := 1; i <= 101; i++ {
		msg := model.Message{ID: fmt.Sprintf("m%03d", i), Role: model.RoleUser, Text: fmt.Sprintf("hello %d", i), Timestamp: int64(1000 + i)}
		require.NoError(t, messages.Append(ctx, msg, store.History))
	}

	recent, err := messages.ListRecent(ctx, store.History)
	require.NoError(t, err)
	require.Len(t, recent, 100)
	assert.Equal(t, "m002", recent[0].ID, "oldest evicted")
	assert.Equal(t, "m101", recent[99].ID, "newest last")

	require.NoError(t, messages.Append(ctx, model.Message{ID: "m101", Role: model.RoleUser, Text: "dup", Timestamp: 5000}, store.History))
	recent, err = messages.ListRecent(ctx, store.History)
	require.NoError(t, err)
	assert.Len(t, recent, 100)
	assert.Equal(t, "hello 101", recent[99].Text)

	ritual := model.Message{ID: "r1", Role: model.RoleRitual, Text: "Good morning", Timestamp: 6000, RitualID: "morning", Buttons: []string{"Done"}, Metadata: map[string]any{"tz": "UTC"}}
	require.NoError(t, messages.Append(ctx, ritual, store.History))
	last, err := messages.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "morning", last[0].RitualID)
	assert.Equal(t, []string{"Done"}, last[0].Buttons)
	assert.Equal(t, "UTC", last[0].Metadata["tz"])

	require.NoError(t, messages.Clear(ctx))
	recent, err = messages.ListRecent(ctx, store.History)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func testSettings(t *testing.T, s store.Store) {
	ctx := context.Background()
	settings := s.Settings()

	got, err := settings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), got)

	playful := model.TonePlayful
	got, err = settings.Patch(ctx, model.SettingsPatch{Tone: &playful})
	require.NoError(t, err)
	assert.Equal(t, model.TonePlayful, got.Tone)
	assert.Equal(t, model.ThemeDark, got.Theme)

	hook := "https://hooks.test/fallback"
	light := model.ThemeLight
	_, err = settings.Patch(ctx, model.SettingsPatch{FallbackWebhook: &hook, Theme: &light})
	require.NoError(t, err)

	got, err = settings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Settings{Tone: model.TonePlayful, FallbackWebhook: hook, Theme: model.ThemeLight}, got)
}

func testSaved(t *testing.T, s store.Store) {
	ctx := context.Background()
	saved := s.Saved()

	require.NoError(t, saved.Save(ctx, model.SavedMessage{ID: "s1", Text: "first", CreatedAt: 1_700_000_000_000}))
	require.NoError(t, saved.Save(ctx, model.SavedMessage{ID: "s2", Text: "second", CreatedAt: 1_700_000_100_000}))
	require.NoError(t, saved.Save(ctx, model.SavedMessage{ID: "s1", Text: "overwritten?", CreatedAt: 1_700_000_200_000}))

	items, err := saved.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "s2", items[0].ID, "newest first")
	assert.Equal(t, "first", items[1].Text, "existing id kept")

	require.NoError(t, saved.Delete(ctx, "s2"))
	items, err = saved.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
