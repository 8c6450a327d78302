// Package ritual decides which rituals are due and how a ritual id resolves
// to a webhook.
package ritual

import (
	"time"

	"github.com/TAESTUDIOS/psa3/internal/model"
)

// MorningID is reserved for the briefing composer and never calls a webhook.
const MorningID = "morning"

const MorningClock = "08:00"

// MorningButtons are attached to every composed briefing.
var MorningButtons = []string{"Done", "Snooze", "Open Urgent", "Open Schedule"}

// BuiltinMorning is the morning ritual used when none is stored.
func BuiltinMorning() model.RitualConfig {
	return model.RitualConfig{
		ID:      MorningID,
		Name:    "Morning Briefing",
		Trigger: model.ScheduleAt(MorningClock, model.RepeatDaily),
		Buttons: append([]string(nil), MorningButtons...),
		Active:  true,
	}
}

// IsDue reports whether r fires at the minute now falls in, rendered in tz.
// Only active daily schedules ever match.
func IsDue(r model.RitualConfig, now time.Time, tz string) bool {
	if !r.Active || r.Trigger.Kind != model.TriggerSchedule || r.Trigger.Schedule == nil {
		return false
	}
	if r.Trigger.Schedule.Repeat != model.RepeatDaily {
		return false
	}
	return r.Trigger.Schedule.Time == model.ClockIn(now, tz)
}

// Due returns the ids of rituals due at now, in input order.
func Due(now time.Time, tz string, rituals []model.RitualConfig) []string {
	due := []string{}
	for _, r := range rituals {
		if IsDue(r, now, tz) {
			due = append(due, r.ID)
		}
	}
	return due
}

// WithBuiltins appends the builtin morning ritual unless stored already has one.
func WithBuiltins(stored []model.RitualConfig) []model.RitualConfig {
	for _, r := range stored {
		if r.ID == MorningID {
			return stored
		}
	}
	return append(append([]model.RitualConfig(nil), stored...), BuiltinMorning())
}
