package store

import (
	"cmp"
	"slices"

	"github.com/TAESTUDIOS/psa3/internal/model"
)

// The helpers below hold the collection rules for backends that keep whole
// documents in memory. Each returns a new slice and leaves its input untouched.

// UpsertByID replaces the element sharing item's id, or appends item.
func UpsertByID[T any](items []T, item T, id func(T) string) []T {
	out := slices.Clone(items)
	key := id(item)
	for i := range out {
		if id(out[i]) == key {
			out[i] = item
			return out
		}
	}
	return append(out, item)
}

// RemoveByID drops every element whose id matches.
func RemoveByID[T any](items []T, key string, id func(T) string) []T {
	return slices.DeleteFunc(slices.Clone(items), func(v T) bool { return id(v) == key })
}

func AppointmentID(a model.Appointment) string { return a.ID }
func UrgentID(t model.UrgentTodo) string { return t.ID }
func RitualID(r model.RitualConfig) string { return r.ID }
func MessageID(m model.Message) string { return m.ID }
func SavedID(s model.SavedMessage) string { return s.ID }

// FilterByDate keeps appointments on date, sorted by start time. An empty date keeps all.
func FilterByDate(items []model.Appointment, date string) []model.Appointment {
	out := make([]model.Appointment, 0, len(items))
	for _, a := range items {
		if date == "" || a.Date == date {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Appointment) int {
		if c := cmp.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Start, b.Start)
	})
	return out
}

// AppendMessage adds msg unless its id is present, then trims to the keep most
// recent by timestamp. The result is ordered oldest first.
func AppendMessage(items []model.Message, msg model.Message, keep int) []model.Message {
	if slices.ContainsFunc(items, func(m model.Message) bool { return m.ID == msg.ID }) {
		return slices.Clone(items)
	}
	out := append(slices.Clone(items), msg)
	slices.SortStableFunc(out, func(a, b model.Message) int { return cmp.Compare(a.Timestamp, b.Timestamp) })
	return TrimOldest(out, keep)
}

// TrimOldest keeps the last keep messages of an oldest-first slice.
func TrimOldest(items []model.Message, keep int) []model.Message {
	if keep > 0 && len(items) > keep {
		return slices.Clone(items[len(items)-keep:])
	}
	return items
}

// PromoteRitual stores r at the front so listings read most recently updated first.
func PromoteRitual(items []model.RitualConfig, r model.RitualConfig) []model.RitualConfig {
	rest := RemoveByID(items, r.ID, RitualID)
	return append([]model.RitualConfig{r}, rest...)
}

// InsertSaved adds msg unless its id is present.
func InsertSaved(items []model.SavedMessage, msg model.SavedMessage) []model.SavedMessage {
	if slices.ContainsFunc(items, func(s model.SavedMessage) bool { return s.ID == msg.ID }) {
		return slices.Clone(items)
	}
	return append(slices.Clone(items), msg)
}

// NewestSaved orders saved messages newest first and applies SavedListLimit.
func NewestSaved(items []model.SavedMessage) []model.SavedMessage {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b model.SavedMessage) int { return cmp.Compare(b.CreatedAt, a.CreatedAt) })
	if len(out) > SavedListLimit {
		out = out[:SavedListLimit]
	}
	return out
}
