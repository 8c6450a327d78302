// Package memory is a process-lifetime store. Its contents vanish on exit.
package memory

import (
	"context"
	"slices"
	"sync"

	apperrors "github.com/TAESTUDIOS/psa3/internal/errors"
	"github.com/TAESTUDIOS/psa3/internal/model"
	"github.com/TAESTUDIOS/psa3/internal/store"
)

type Store struct {
	mu           sync.RWMutex
	appointments []model.Appointment
	urgent       []model.UrgentTodo
	rituals      []model.RitualConfig
	messages     []model.Message
	settings     model.Settings
	saved        []model.SavedMessage
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{settings: model.DefaultSettings()}
}

func (s *Store) Appointments() store.AppointmentStore { return appointments{s} }
func (s *Store) Urgent() store.UrgentStore { return urgent{s} }
func (s *Store) Rituals() store.RitualStore { return rituals{s} }
func (s *Store) Messages() store.MessageStore { return messages{s} }
func (s *Store) Settings() store.SettingsStore { return settings{s} }
func (s *Store) Saved() store.SavedStore { return saved{s} }

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

type appointments struct{ s *Store }

func (a appointments) ListByDate(ctx context.Context, date string) ([]model.Appointment, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	return store.FilterByDate(a.s.appointments, date), nil
}

func (a appointments) Get(ctx context.Context, id string) (model.Appointment, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	if i := slices.IndexFunc(a.s.appointments, func(v model.Appointment) bool { return v.ID == id }); i >= 0 {
		return a.s.appointments[i], nil
	}
	return model.Appointment{}, apperrors.NotFound("appointment " + id + " not found")
}

func (a appointments) Upsert(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	a.s.appointments = store.UpsertByID(a.s.appointments, appt, store.AppointmentID)
	return appt, nil
}

func (a appointments) Remove(ctx context.Context, id string) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	a.s.appointments = store.RemoveByID(a.s.appointments, id, store.AppointmentID)
	return nil
}

type urgent struct{ s *Store }

func (u urgent) ReadAll(ctx context.Context) ([]model.UrgentTodo, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	return slices.Clone(u.s.urgent), nil
}

func (u urgent) Upsert(ctx context.Context, todo model.UrgentTodo) (model.UrgentTodo, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	u.s.urgent = store.UpsertByID(u.s.urgent, todo, store.UrgentID)
	return todo, nil
}

func (u urgent) Remove(ctx context.Context, id string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	u.s.urgent = store.RemoveByID(u.s.urgent, id, store.UrgentID)
	return nil
}

type rituals struct{ s *Store }

func (r rituals) Get(ctx context.Context, id string) (model.RitualConfig, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if i := slices.IndexFunc(r.s.rituals, func(v model.RitualConfig) bool { return v.ID == id }); i >= 0 {
		return r.s.rituals[i], nil
	}
	return model.RitualConfig{}, apperrors.NotFound("ritual " + id + " not found")
}

func (r rituals) List(ctx context.Context) ([]model.RitualConfig, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return slices.Clone(r.s.rituals), nil
}

func (r rituals) Upsert(ctx context.Context, cfg model.RitualConfig) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.rituals = store.PromoteRitual(r.s.rituals, cfg)
	return nil
}

func (r rituals) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.rituals = store.RemoveByID(r.s.rituals, id, store.RitualID)
	return nil
}

type messages struct{ s *Store }

func (m messages) Append(ctx context.Context, msg model.Message, keep int) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.messages = store.AppendMessage(m.s.messages, msg, keep)
	return nil
}

func (m messages) ListRecent(ctx context.Context, limit int) ([]model.Message, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return slices.Clone(store.TrimOldest(m.s.messages, limit)), nil
}

func (m messages) Clear(ctx context.Context) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.messages = nil
	return nil
}

type settings struct{ s *Store }

func (st settings) Get(ctx context.Context) (model.Settings, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	return st.s.settings, nil
}

func (st settings) Patch(ctx context.Context, patch model.SettingsPatch) (model.Settings, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	st.s.settings = patch.Apply(st.s.settings)
	return st.s.settings, nil
}

type saved struct{ s *Store }

func (sv saved) List(ctx context.Context) ([]model.SavedMessage, error) {
	sv.s.mu.RLock()
	defer sv.s.mu.RUnlock()
	return store.NewestSaved(sv.s.saved), nil
}

func (sv saved) Save(ctx context.Context, msg model.SavedMessage) error {
	sv.s.mu.Lock()
	defer sv.s.mu.Unlock()
	sv.s.saved = store.InsertSaved(sv.s.saved, msg)
	return nil
}

func (sv saved) Delete(ctx context.Context, id string) error {
	sv.s.mu.Lock()
	defer sv.s.mu.Unlock()
	sv.s.saved = store.RemoveByID(sv.s.saved, id, store.SavedID)
	return nil
}
