// Package store defines the persistence contracts shared by every backend.
package store

import (
	"context"

	"github.com/TAESTUDIOS/psa3/internal/model"
)

// History is the number of chat messages the ledger keeps.
const History = 100

// SavedListLimit caps how many saved messages a listing returns.
const SavedListLimit = 200

type AppointmentStore interface {
	// ListByDate returns appointments on date, or all of them when date is empty.
	ListByDate(ctx context.Context, date string) ([]model.Appointment, error)
	Get(ctx context.Context, id string) (model.Appointment, error)
	Upsert(ctx context.Context, appt model.Appointment) (model.Appointment, error)
	Remove(ctx context.Context, id string) error
}

type UrgentStore interface {
	ReadAll(ctx context.Context) ([]model.UrgentTodo, error)
	Upsert(ctx context.Context, todo model.UrgentTodo) (model.UrgentTodo, error)
	Remove(ctx context.Context, id string) error
}

type RitualStore interface {
	Get(ctx context.Context, id string) (model.RitualConfig, error)
	// List returns rituals most recently updated first.
	List(ctx context.Context) ([]model.RitualConfig, error)
	Upsert(ctx context.Context, r model.RitualConfig) error
	Delete(ctx context.Context, id string) error
}

type MessageStore interface {
	// Append stores msg unless its id already exists, then keeps only the keep
	// most recent messages by timestamp.
	Append(ctx context.Context, msg model.Message, keep int) error
	// ListRecent returns up to limit messages, oldest first.
	ListRecent(ctx context.Context, limit int) ([]model.Message, error)
	Clear(ctx context.Context) error
}

type SettingsStore interface {
	Get(ctx context.Context) (model.Settings, error)
	Patch(ctx context.Context, patch model.SettingsPatch) (model.Settings, error)
}

type SavedStore interface {
	// List returns saved messages newest first, capped at SavedListLimit.
	List(ctx context.Context) ([]model.SavedMessage, error)
	// Save inserts msg. Saving an id that already exists is a no-op.
	Save(ctx context.Context, msg model.SavedMessage) error
	Delete(ctx context.Context, id string) error
}

// Store bundles one backend's collections.
type Store interface {
	Appointments() AppointmentStore
	Urgent() UrgentStore
	Rituals() RitualStore
	Messages() MessageStore
	Settings() SettingsStore
	Saved() SavedStore
	Ping(ctx context.Context) error
	Close() error
}
