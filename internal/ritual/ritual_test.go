package ritual

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/TAESTUDIOS/psa3/internal/errors"
	"github.com/TAESTUDIOS/psa3/internal/model"
	"github.com/TAESTUDIOS/psa3/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func daily(id, clock string) model.RitualConfig {
	return model.RitualConfig{ID: id, Name: id, Trigger: model.ScheduleAt(clock, model.RepeatDaily), Active: true}
}

func TestDue_MatchesRenderedClock(t *testing.T) {
	now := time.Date(2025, 9, 16, 6, 0, 30, 0, time.UTC)
	rituals := []model.RitualConfig{daily("a", "08:00"), daily("b", "06:00")}

	assert.Equal(t, []string{"b"}, Due(now, "UTC", rituals))
	// Europe/Berlin is UTC+2 in September.
	assert.Equal(t, []string{"a"}, Due(now, "Europe/Berlin", rituals))
}

func TestDue_EquivalentToOffsetAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Every 15 minutes across the spring-forward and fall-back weekends.
	starts := []time.Time{
		time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC),
		time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC),
	}
	for _, start := range starts {
		for i := 0; i < 4*48; i++ {
			now := start.Add(time.Duration(i) * 15 * time.Minute)
			_, offset := now.In(loc).Zone()
			want := now.UTC().Add(time.Duration(offset) * time.Second).Format("15:04")

			r := daily("x", want)
			require.True(t, IsDue(r, now, "America/New_York"), "instant %s", now)
			assert.Equal(t, []string{"x"}, Due(now, "America/New_York", []model.RitualConfig{r}))
		}
	}
}

func TestDue_SkipsNonDailyInactiveAndChat(t *testing.T) {
	now := time.Date(2025, 9, 16, 8, 0, 0, 0, time.UTC)

	weekly := daily("weekly", "08:00")
	weekly.Trigger = model.ScheduleAt("08:00", model.RepeatWeekly)
	monthly := daily("monthly", "08:00")
	monthly.Trigger = model.ScheduleAt("08:00", model.RepeatMonthly)
	none := daily("none", "08:00")
	none.Trigger = model.ScheduleAt("08:00", model.RepeatNone)
	inactive := daily("inactive", "08:00")
	inactive.Active = false
	chat := model.RitualConfig{ID: "chat", Name: "chat", Trigger: model.ChatKeyword("/x"), Active: true}

	assert.Empty(t, Due(now, "UTC", []model.RitualConfig{weekly, monthly, none, inactive, chat}))
}

func TestDue_UnknownZoneUsesUTC(t *testing.T) {
	now := time.Date(2025, 9, 16, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{MorningID}, Due(now, "Mars/Olympus", []model.RitualConfig{BuiltinMorning()}))
}

func TestWithBuiltins(t *testing.T) {
	got := WithBuiltins([]model.RitualConfig{daily("a", "07:00")})
	require.Len(t, got, 2)
	assert.Equal(t, MorningID, got[1].ID)

	stored := daily(MorningID, "06:30")
	got = WithBuiltins([]model.RitualConfig{stored})
	require.Len(t, got, 1)
	assert.Equal(t, "06:30", got[0].Trigger.Schedule.Time)
}

type failingLookup struct{}

func (failingLookup) Get(context.Context, string) (model.RitualConfig, error) {
	return model.RitualConfig{}, apperrors.Storage("get ritual", errors.New("connection refused"))
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Rituals().Upsert(ctx, model.RitualConfig{
		ID: "evening", Name: "Evening", Webhook: "https://hooks.example/evening",
		Trigger: model.ChatKeyword("/evening"), Buttons: []string{"Done"}, Active: true,
	}))
	require.NoError(t, s.Rituals().Upsert(ctx, model.RitualConfig{
		ID: "bare", Name: "Bare", Trigger: model.ChatKeyword("/bare"), Active: true,
	}))
	r := NewResolver(s.Rituals())

	t.Run("morning short-circuits", func(t *testing.T) {
		res := r.Resolve(ctx, MorningID, Fallback{Webhook: "https://ignored"})
		assert.True(t, res.Morning)
		assert.False(t, res.Mock())
		assert.Empty(t, res.Webhook)
		assert.Equal(t, MorningButtons, res.Buttons)
	})

	t.Run("stored config wins", func(t *testing.T) {
		res := r.Resolve(ctx, "evening", Fallback{Webhook: "https://caller", Buttons: []string{"X"}})
		assert.True(t, res.Found)
		assert.Equal(t, "https://hooks.example/evening", res.Webhook)
		assert.Equal(t, []string{"Done"}, res.Buttons)
	})

	t.Run("stored without webhook uses caller webhook", func(t *testing.T) {
		res := r.Resolve(ctx, "bare", Fallback{Webhook: "https://caller"})
		assert.Equal(t, "https://caller", res.Webhook)
	})

	t.Run("missing falls back to caller", func(t *testing.T) {
		res := r.Resolve(ctx, "ghost", Fallback{Webhook: " https://caller ", Buttons: []string{"Ok"}})
		assert.False(t, res.Found)
		assert.Equal(t, "https://caller", res.Webhook)
		assert.Equal(t, []string{"Ok"}, res.Buttons)
	})

	t.Run("missing without caller values is mock", func(t *testing.T) {
		assert.True(t, r.Resolve(ctx, "ghost", Fallback{}).Mock())
	})

	t.Run("storage failure degrades", func(t *testing.T) {
		res := NewResolver(failingLookup{}).Resolve(ctx, "evening", Fallback{Webhook: "https://caller"})
		assert.False(t, res.Found)
		assert.Equal(t, "https://caller", res.Webhook)
	})
}
