package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	apperrors "github.com/TAESTUDIOS/psa3/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTrigger_DecodesWireShapes(t *testing.T) {
	var r RitualConfig
	err := json.Unmarshal([]byte(`{"id":"morning","name":"Morning","webhook":"","trigger":{"type":"schedule","time":"08:00","repeat":"daily"},"buttons":["Good"],"active":true}`), &r)
	require.NoError(t, err)
	require.Equal(t, TriggerSchedule, r.Trigger.Kind)
	require.NotNil(t, r.Trigger.Schedule)
	assert.Equal(t, "08:00", r.Trigger.Schedule.Time)
	assert.Equal(t, RepeatDaily, r.Trigger.Schedule.Repeat)
	assert.Nil(t, r.Trigger.Chat)

	var chat Trigger
	require.NoError(t, json.Unmarshal([]byte(`{"type":"chat","chatKeyword":"/evening"}`), &chat))
	require.Equal(t, TriggerChat, chat.Kind)
	assert.Equal(t, "/evening", chat.Chat.Keyword)

	out, err := json.Marshal(chat)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"chat","chatKeyword":"/evening"}`, string(out))
}

func TestTrigger_RejectsUnknownKind(t *testing.T) {
	var tr Trigger
	err := json.Unmarshal([]byte(`{"type":"webhook","time":"08:00"}`), &tr)
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "unknown trigger type")
}

func TestTrigger_RejectsBadSchedule(t *testing.T) {
	var tr Trigger
	assert.Error(t, json.Unmarshal([]byte(`{"type":"schedule","time":"8:00"}`), &tr))
	assert.Error(t, json.Unmarshal([]byte(`{"type":"schedule","time":"08:00","repeat":"hourly"}`), &tr))
	assert.Error(t, json.Unmarshal([]byte(`{"type":"chat","chatKeyword":"  "}`), &tr))
}

func TestTrigger_EmptyRepeatDefaultsToDaily(t *testing.T) {
	var tr Trigger
	require.NoError(t, json.Unmarshal([]byte(`{"type":"schedule","time":"21:30"}`), &tr))
	assert.Equal(t, RepeatDaily, tr.Schedule.Repeat)
}

func TestTrigger_YAML(t *testing.T) {
	src := `
id: evening
name: Evening wind-down
trigger:
  type: chat
  chatKeyword: /evening
buttons: [Done, Snooze]
active: true
`
	var r RitualConfig
	require.NoError(t, yaml.Unmarshal([]byte(src), &r))
	assert.Equal(t, TriggerChat, r.Trigger.Kind)
	assert.Equal(t, "/evening", r.Trigger.Chat.Keyword)
	assert.Equal(t, []string{"Done", "Snooze"}, r.Buttons)

	bad := strings.Replace(src, "type: chat", "type: cron", 1)
	assert.Error(t, yaml.Unmarshal([]byte(bad), &r))
}

func TestSortUrgent(t *testing.T) {
	due := func(v int64) *int64 { return &v }
	items := []UrgentTodo{
		{ID: "done-high", Priority: PriorityHigh, Done: true},
		{ID: "low", Priority: PriorityLow},
		{ID: "high-undated", Priority: PriorityHigh},
		{ID: "high-late", Priority: PriorityHigh, DueAt: due(200)},
		{ID: "high-soon", Priority: PriorityHigh, DueAt: due(100)},
		{ID: "medium", Priority: PriorityMedium},
	}
	SortUrgent(items)

	var ids []string
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"high-soon", "high-late", "high-undated", "medium", "low", "done-high"}, ids)
}

func TestSettingsPatch(t *testing.T) {
	strict := ToneStrict
	hook := "  https://example.test/hook "
	s := SettingsPatch{Tone: &strict, FallbackWebhook: &hook}.Apply(DefaultSettings())

	assert.Equal(t, ToneStrict, s.Tone)
	assert.Equal(t, "https://example.test/hook", s.FallbackWebhook)
	assert.Equal(t, ThemeDark, s.Theme)

	loud := Tone("Loud")
	assert.Error(t, SettingsPatch{Tone: &loud}.Validate())
}

func TestClockIn(t *testing.T) {
	instant := time.Date(2025, 3, 30, 6, 5, 0, 0, time.UTC)
	assert.Equal(t, "06:05", ClockIn(instant, "UTC"))
	assert.Equal(t, "08:05", ClockIn(instant, "Europe/Berlin"))
	assert.Equal(t, "06:05", ClockIn(instant, "Mars/Olympus"))
	assert.Equal(t, "2025-03-30", DateIn(instant, "Europe/Berlin"))

	assert.True(t, ValidClock("23:59"))
	assert.False(t, ValidClock("24:00"))
	assert.False(t, ValidClock("7:30"))
	assert.True(t, ValidDate("2025-09-16"))
	assert.False(t, ValidDate("2025-9-16"))
}

func TestNewID(t *testing.T) {
	id := NewID(PrefixAppointment)
	assert.True(t, strings.HasPrefix(id, "appt_"))
	assert.NotEqual(t, id, NewID(PrefixAppointment))
}
