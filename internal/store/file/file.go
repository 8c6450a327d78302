// Package file keeps each collection in a JSON document under one data
// directory. Writes replace the document atomically.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	apperrors "github.com/TAESTUDIOS/psa3/internal/errors"
	"github.com/TAESTUDIOS/psa3/internal/model"
	"github.com/TAESTUDIOS/psa3/internal/store"

	"github.com/natefinch/atomic"
)

const (
	lockFileName     = "psa.lock"
	appointmentsFile = "appointments.json"
	urgentFile       = "urgent.json"
	ritualsFile      = "rituals.json"
	messagesFile     = "messages.json"
	settingsFile     = "settings.json"
	savedFile        = "saved.json"
)

type Store struct {
	dir     string
	lockCfg LockConfig
	mu      sync.RWMutex
}

var _ store.Store = (*Store)(nil)

func Open(dir string, lockCfg LockConfig) (*Store, error) {
	if dir == "" {
		return nil, apperrors.InvalidInput("file store requires a data directory")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperrors.Storage("create data dir "+dir, err)
	}
	return &Store{dir: dir, lockCfg: lockCfg}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) Appointments() store.AppointmentStore { return appointments{s} }
func (s *Store) Urgent() store.UrgentStore { return urgent{s} }
func (s *Store) Rituals() store.RitualStore { return rituals{s} }
func (s *Store) Messages() store.MessageStore { return messages{s} }
func (s *Store) Settings() store.SettingsStore { return settings{s} }
func (s *Store) Saved() store.SavedStore { return saved{s} }

// Ping checks the data directory is still writable.
func (s *Store) Ping(ctx context.Context) error {
	probe, err := os.CreateTemp(s.dir, ".ping-*")
	if err != nil {
		return apperrors.Storage("probe data dir", err)
	}
	name := probe.Name()
	probe.Close()
	return apperrors.Storage("probe data dir", os.Remove(name))
}

func (s *Store) Close() error { return nil }

type document[T any] struct {
	Items []T `json:"items"`
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *Store) readJSON(name string, v any) error {
	content, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return nil
	}
	return json.Unmarshal(content, v)
}

func (s *Store) writeJSON(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(s.path(name), bytes.NewReader(b))
}

func (s *Store) withLock(ctx context.Context, shared bool, fn func() error) error {
	if shared {
		s.mu.RLock()
		defer s.mu.RUnlock()
	} else {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	lock, err := acquireLock(ctx, s.path(lockFileName), shared, s.lockCfg)
	if err != nil {
		return err
	}
	defer lock.Unlock()
	return fn()
}

func readItems[T any](ctx context.Context, s *Store, name string) ([]T, error) {
	var doc document[T]
	err := s.withLock(ctx, true, func() error {
		return s.readJSON(name, &doc)
	})
	if err != nil {
		return nil, apperrors.Storage("read "+name, err)
	}
	return doc.Items, nil
}

func updateItems[T any](ctx context.Context, s *Store, name string, fn func([]T) []T) error {
	err := s.withLock(ctx, false, func() error {
		var doc document[T]
		if err := s.readJSON(name, &doc); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		doc.Items = fn(doc.Items)
		if doc.Items == nil {
			doc.Items = []T{}
		}
		return s.writeJSON(name, doc)
	})
	return apperrors.Storage("write "+name, err)
}

type appointments struct{ s *Store }

func (a appointments) ListByDate(ctx context.Context, date string) ([]model.Appointment, error) {
	items, err := readItems[model.Appointment](ctx, a.s, appointmentsFile)
	if err != nil {
		return nil, err
	}
	return store.FilterByDate(items, date), nil
}

func (a appointments) Get(ctx context.Context, id string) (model.Appointment, error) {
	items, err := readItems[model.Appointment](ctx, a.s, appointmentsFile)
	if err != nil {
		return model.Appointment{}, err
	}
	if i := slices.IndexFunc(items, func(v model.Appointment) bool { return v.ID == id }); i >= 0 {
		return items[i], nil
	}
	return model.Appointment{}, apperrors.NotFound("appointment " + id + " not found")
}

func (a appointments) Upsert(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	err := updateItems(ctx, a.s, appointmentsFile, func(items []model.Appointment) []model.Appointment {
		return store.UpsertByID(items, appt, store.AppointmentID)
	})
	return appt, err
}

func (a appointments) Remove(ctx context.Context, id string) error {
	return updateItems(ctx, a.s, appointmentsFile, func(items []model.Appointment) []model.Appointment {
		return store.RemoveByID(items, id, store.AppointmentID)
	})
}

type urgent struct{ s *Store }

func (u urgent) ReadAll(ctx context.Context) ([]model.UrgentTodo, error) {
	return readItems[model.UrgentTodo](ctx, u.s, urgentFile)
}

func (u urgent) Upsert(ctx context.Context, todo model.UrgentTodo) (model.UrgentTodo, error) {
	err := updateItems(ctx, u.s, urgentFile, func(items []model.UrgentTodo) []model.UrgentTodo {
		return store.UpsertByID(items, todo, store.UrgentID)
	})
	return todo, err
}

func (u urgent) Remove(ctx context.Context, id string) error {
	return updateItems(ctx, u.s, urgentFile, func(items []model.UrgentTodo) []model.UrgentTodo {
		return store.RemoveByID(items, id, store.UrgentID)
	})
}

type rituals struct{ s *Store }

func (r rituals) Get(ctx context.Context, id string) (model.RitualConfig, error) {
	items, err := readItems[model.RitualConfig](ctx, r.s, ritualsFile)
	if err != nil {
		return model.RitualConfig{}, err
	}
	if i := slices.IndexFunc(items, func(v model.RitualConfig) bool { return v.ID == id }); i >= 0 {
		return items[i], nil
	}
	return model.RitualConfig{}, apperrors.NotFound("ritual " + id + " not found")
}

func (r rituals) List(ctx context.Context) ([]model.RitualConfig, error) {
	return readItems[model.RitualConfig](ctx, r.s, ritualsFile)
}

func (r rituals) Upsert(ctx context.Context, cfg model.RitualConfig) error {
	return updateItems(ctx, r.s, ritualsFile, func(items []model.RitualConfig) []model.RitualConfig {
		return store.PromoteRitual(items, cfg)
	})
}

func (r rituals) Delete(ctx context.Context, id string) error {
	return updateItems(ctx, r.s, ritualsFile, func(items []model.RitualConfig) []model.RitualConfig {
		return store.RemoveByID(items, id, store.RitualID)
	})
}

type messages struct{ s *Store }

func (m messages) Append(ctx context.Context, msg model.Message, keep int) error {
	return updateItems(ctx, m.s, messagesFile, func(items []model.Message) []model.Message {
		return store.AppendMessage(items, msg, keep)
	})
}

func (m messages) ListRecent(ctx context.Context, limit int) ([]model.Message, error) {
	items, err := readItems[model.Message](ctx, m.s, messagesFile)
	if err != nil {
		return nil, err
	}
	return store.TrimOldest(items, limit), nil
}

func (m messages) Clear(ctx context.Context) error {
	return updateItems(ctx, m.s, messagesFile, func([]model.Message) []model.Message {
		return nil
	})
}

type settingsDocument struct {
	Settings *model.Settings `json:"settings"`
}

type settings struct{ s *Store }

func (st settings) Get(ctx context.Context) (model.Settings, error) {
	var doc settingsDocument
	err := st.s.withLock(ctx, true, func() error {
		return st.s.readJSON(settingsFile, &doc)
	})
	if err != nil {
		return model.Settings{}, apperrors.Storage("read "+settingsFile, err)
	}
	if doc.Settings == nil {
		return model.DefaultSettings(), nil
	}
	return *doc.Settings, nil
}

func (st settings) Patch(ctx context.Context, patch model.SettingsPatch) (model.Settings, error) {
	var next model.Settings
	err := st.s.withLock(ctx, false, func() error {
		var doc settingsDocument
		if err := st.s.readJSON(settingsFile, &doc); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		current := model.DefaultSettings()
		if doc.Settings != nil {
			current = *doc.Settings
		}
		next = patch.Apply(current)
		return st.s.writeJSON(settingsFile, settingsDocument{Settings: &next})
	})
	if err != nil {
		return model.Settings{}, apperrors.Storage("write "+settingsFile, err)
	}
	return next, nil
}

type saved struct{ s *Store }

func (sv saved) List(ctx context.Context) ([]model.SavedMessage, error) {
	items, err := readItems[model.SavedMessage](ctx, sv.s, savedFile)
	if err != nil {
		return nil, err
	}
	return store.NewestSaved(items), nil
}

func (sv saved) Save(ctx context.Context, msg model.SavedMessage) error {
	return updateItems(ctx, sv.s, savedFile, func(items []model.SavedMessage) []model.SavedMessage {
		return store.InsertSaved(items, msg)
	})
}

func (sv saved) Delete(ctx context.Context, id string) error {
	return updateItems(ctx, sv.s, savedFile, func(items []model.SavedMessage) []model.SavedMessage {
		return store.RemoveByID(items, id, store.SavedID)
	})
}
