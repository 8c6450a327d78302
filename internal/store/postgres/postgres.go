// Package postgres is the durable store backend, built on pgxpool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/TAESTUDIOS/psa3/internal/errors"
	"github.com/TAESTUDIOS/psa3/internal/model"
	"github.com/TAESTUDIOS/psa3/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Options struct {
	MaxConns       int32
	ConnectRetries int
	RetryDelay     time.Duration
}

type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// NewPool connects with retries, since the database may come up after the service.
func NewPool(ctx context.Context, databaseURL string, opts Options) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid database url: " + err.Error())
	}

	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	attempts := opts.ConnectRetries
	if attempts <= 0 {
		attempts = 5
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= attempts; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				slog.Info("Database connected", "attempt", attempt)
				return pool, nil
			}
			pool.Close()
		}
		slog.Warn("DB connect attempt failed", "attempt", attempt, "max", attempts, "error", err)
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, apperrors.Storage(fmt.Sprintf("connect after %d attempts", attempts), err)
}

// Open connects and migrates.
func Open(ctx context.Context, databaseURL string, opts Options) (*Store, error) {
	pool, err := NewPool(ctx, databaseURL, opts)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, apperrors.Storage("run migrations", err)
	}
	return New(pool), nil
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Appointments() store.AppointmentStore { return appointments{s.pool} }
func (s *Store) Urgent() store.UrgentStore { return urgent{s.pool} }
func (s *Store) Rituals() store.RitualStore { return rituals{s.pool} }
func (s *Store) Messages() store.MessageStore { return messages{s.pool} }
func (s *Store) Settings() store.SettingsStore { return settings{s.pool} }
func (s *Store) Saved() store.SavedStore { return saved{s.pool} }

func (s *Store) Ping(ctx context.Context) error {
	return apperrors.Storage("ping database", s.pool.Ping(ctx))
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

type appointments struct{ db *pgxpool.Pool }

const appointmentColumns = `id, title, day, start_hhmm, duration_min, notes`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(&a.ID, &a.Title, &a.Date, &a.Start, &a.DurationMin, &a.Notes)
	return a, err
}

func (r appointments) ListByDate(ctx context.Context, date string) ([]model.Appointment, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if date == "" {
		rows, err = r.db.Query(ctx, `SELECT `+appointmentColumns+` FROM appointments ORDER BY day, start_hhmm`)
	} else {
		rows, err = r.db.Query(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE day = $1 ORDER BY start_hhmm`, date)
	}
	if err != nil {
		return nil, apperrors.Storage("list appointments", err)
	}
	defer rows.Close()

	items := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, apperrors.Storage("scan appointment", err)
		}
		items = append(items, a)
	}
	return items, apperrors.Storage("list appointments", rows.Err())
}

func (r appointments) Get(ctx context.Context, id string) (model.Appointment, error) {
	a, err := scanAppointment(r.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, apperrors.NotFound("appointment " + id + " not found")
	}
	if err != nil {
		return model.Appointment{}, apperrors.Storage("get appointment", err)
	}
	return a, nil
}

func (r appointments) Upsert(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	_, err := r.db.Exec(ctx,
		`INSERT INTO appointments (id, title, day, start_hhmm, duration_min, notes)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   title = EXCLUDED.title,
		   day = EXCLUDED.day,
		   start_hhmm = EXCLUDED.start_hhmm,
		   duration_min = EXCLUDED.duration_min,
		   notes = EXCLUDED.notes`,
		a.ID, a.Title, a.Date, a.Start, a.DurationMin, a.Notes,
	)
	if err != nil {
		return model.Appointment{}, apperrors.Storage("upsert appointment", err)
	}
	return a, nil
}

func (r appointments) Remove(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	return apperrors.Storage("remove appointment", err)
}

type urgent struct{ db *pgxpool.Pool }

func (r urgent) ReadAll(ctx context.Context) ([]model.UrgentTodo, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, priority, done, due_at, notes, tags, created_at, updated_at FROM urgent_todos ORDER BY created_at`)
	if err != nil {
		return nil, apperrors.Storage("read urgent", err)
	}
	defer rows.Close()

	items := []model.UrgentTodo{}
	for rows.Next() {
		var (
			t    model.UrgentTodo
			tags []byte
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.Priority, &t.Done, &t.DueAt, &t.Notes, &tags, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, apperrors.Storage("scan urgent", err)
		}
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &t.Tags); err != nil {
				return nil, apperrors.Storage("decode urgent tags", err)
			}
		}
		if len(t.Tags) == 0 {
			t.Tags = nil
		}
		items = append(items, t)
	}
	return items, apperrors.Storage("read urgent", rows.Err())
}

func (r urgent) Upsert(ctx context.Context, t model.UrgentTodo) (model.UrgentTodo, error) {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := marshalJSON(tags)
	if err != nil {
		return model.UrgentTodo{}, apperrors.Internal("encode tags")
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO urgent_todos (id, title, priority, done, due_at, notes, tags, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
		   title = EXCLUDED.title,
		   priority = EXCLUDED.priority,
		   done = EXCLUDED.done,
		   due_at = EXCLUDED.due_at,
		   notes = EXCLUDED.notes,
		   tags = EXCLUDED.tags,
		   created_at = EXCLUDED.created_at,
		   updated_at = EXCLUDED.updated_at`,
		t.ID, t.Title, string(t.Priority), t.Done, t.DueAt, t.Notes, string(tagsJSON), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return model.UrgentTodo{}, apperrors.Storage("upsert urgent", err)
	}
	return t, nil
}

func (r urgent) Remove(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM urgent_todos WHERE id = $1`, id)
	return apperrors.Storage("remove urgent", err)
}

type rituals struct{ db *pgxpool.Pool }

func scanRitual(row pgx.Row) (model.RitualConfig, error) {
	var (
		r           model.RitualConfig
		triggerJSON []byte
		buttonsJSON []byte
	)
	if err := row.Scan(&r.ID, &r.Name, &r.Webhook, &triggerJSON, &buttonsJSON, &r.Active); err != nil {
		return r, err
	}
	if err := json.Unmarshal(triggerJSON, &r.Trigger); err != nil {
		return r, fmt.Errorf("ritual %s: %w", r.ID, err)
	}
	if len(buttonsJSON) > 0 {
		if err := json.Unmarshal(buttonsJSON, &r.Buttons); err != nil {
			return r, fmt.Errorf("ritual %s buttons: %w", r.ID, err)
		}
	}
	return r, nil
}

func (r rituals) Get(ctx context.Context, id string) (model.RitualConfig, error) {
	cfg, err := scanRitual(r.db.QueryRow(ctx,
		`SELECT id, name, webhook, trigger_cfg, buttons, active FROM rituals WHERE id = $1 LIMIT 1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RitualConfig{}, apperrors.NotFound("ritual " + id + " not found")
	}
	if err != nil {
		return model.RitualConfig{}, apperrors.Storage("get ritual", err)
	}
	return cfg, nil
}

// List skips rows whose stored trigger no longer decodes, so one bad row does
// not hide the rest.
func (r rituals) List(ctx context.Context) ([]model.RitualConfig, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, webhook, trigger_cfg, buttons, active FROM rituals ORDER BY updated_at DESC`)
	if err != nil {
		return nil, apperrors.Storage("list rituals", err)
	}
	defer rows.Close()

	items := []model.RitualConfig{}
	for rows.Next() {
		cfg, err := scanRitual(rows)
		if err != nil {
			if apperrors.IsCategory(err, apperrors.ErrInvalidInput) {
				slog.Warn("Skipping ritual with invalid trigger", "error", err)
				continue
			}
			return nil, apperrors.Storage("scan ritual", err)
		}
		items = append(items, cfg)
	}
	return items, apperrors.Storage("list rituals", rows.Err())
}

func (r rituals) Upsert(ctx context.Context, cfg model.RitualConfig) error {
	triggerJSON, err := json.Marshal(cfg.Trigger)
	if err != nil {
		return apperrors.InvalidInput("encode trigger: " + err.Error())
	}
	buttons := cfg.Buttons
	if buttons == nil {
		buttons = []string{}
	}
	buttonsJSON, err := marshalJSON(buttons)
	if err != nil {
		return apperrors.Internal("encode buttons")
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO rituals (id, name, webhook, trigger_cfg, buttons, active)
		 VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   webhook = EXCLUDED.webhook,
		   trigger_cfg = EXCLUDED.trigger_cfg,
		   buttons = EXCLUDED.buttons,
		   active = EXCLUDED.active,
		   updated_at = clock_timestamp()`,
		cfg.ID, cfg.Name, cfg.Webhook, string(triggerJSON), string(buttonsJSON), cfg.Active,
	)
	return apperrors.Storage("upsert ritual", err)
}

func (r rituals) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM rituals WHERE id = $1`, id)
	return apperrors.Storage("delete ritual", err)
}

type messages struct{ db *pgxpool.Pool }

func (r messages) Append(ctx context.Context, msg model.Message, keep int) error {
	var ritualID *string
	if msg.RitualID != "" {
		ritualID = &msg.RitualID
	}
	var buttonsJSON, metadataJSON *string
	if msg.Buttons != nil {
		b, err := json.Marshal(msg.Buttons)
		if err != nil {
			return apperrors.Internal("encode buttons")
		}
		s := string(b)
		buttonsJSON = &s
	}
	if msg.Metadata != nil {
		b, err := json.Marshal(msg.Metadata)
		if err != nil {
			return apperrors.InvalidInput("metadata is not JSON encodable")
		}
		s := string(b)
		metadataJSON = &s
	}

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO messages (id, role, text, ritual_id, buttons, metadata, timestamp_ms)
			 VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7)
			 ON CONFLICT (id) DO NOTHING`,
			msg.ID, string(msg.Role), msg.Text, ritualID, buttonsJSON, metadataJSON, msg.Timestamp,
		); err != nil {
			return err
		}
		if keep <= 0 {
			return nil
		}
		_, err := tx.Exec(ctx,
			`DELETE FROM messages WHERE id IN (
			   SELECT id FROM messages ORDER BY timestamp_ms DESC, id DESC OFFSET $1
			 )`, keep)
		return err
	})
	return apperrors.Storage("append message", err)
}

func (r messages) ListRecent(ctx context.Context, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = store.History
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, role, text, ritual_id, buttons, metadata, timestamp_ms
		 FROM messages ORDER BY timestamp_ms DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, apperrors.Storage("list messages", err)
	}
	defer rows.Close()

	var newestFirst []model.Message
	for rows.Next() {
		var (
			m                     model.Message
			role                  string
			ritualID              *string
			buttonsJSON, metaJSON []byte
		)
		if err := rows.Scan(&m.ID, &role, &m.Text, &ritualID, &buttonsJSON, &metaJSON, &m.Timestamp); err != nil {
			return nil, apperrors.Storage("scan message", err)
		}
		m.Role = model.Role(role)
		if ritualID != nil {
			m.RitualID = *ritualID
		}
		if len(buttonsJSON) > 0 {
			if err := json.Unmarshal(buttonsJSON, &m.Buttons); err != nil {
				return nil, apperrors.Storage("decode message buttons", err)
			}
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &m.Metadata); err != nil {
				return nil, apperrors.Storage("decode message metadata", err)
			}
		}
		newestFirst = append(newestFirst, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("list messages", err)
	}

	out := make([]model.Message, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		out = append(out, newestFirst[i])
	}
	return out, nil
}

func (r messages) Clear(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `DELETE FROM messages`)
	return apperrors.Storage("clear messages", err)
}

type settings struct{ db *pgxpool.Pool }

func (r settings) Get(ctx context.Context) (model.Settings, error) {
	var tone, hook, theme string
	err := r.db.QueryRow(ctx, `SELECT tone, fallback_webhook, theme FROM settings WHERE id = 'singleton'`).Scan(&tone, &hook, &theme)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.Settings{}, apperrors.Storage("get settings", err)
	}
	return model.Settings{Tone: model.Tone(tone), FallbackWebhook: hook, Theme: model.Theme(theme)}, nil
}

func (r settings) Patch(ctx context.Context, patch model.SettingsPatch) (model.Settings, error) {
	var tone, hook, theme *string
	if patch.Tone != nil {
		v := string(*patch.Tone)
		tone = &v
	}
	if patch.FallbackWebhook != nil {
		v := strings.TrimSpace(*patch.FallbackWebhook)
		hook = &v
	}
	if patch.Theme != nil {
		v := string(*patch.Theme)
		theme = &v
	}

	defaults := model.DefaultSettings()
	var outTone, outHook, outTheme string
	err := r.db.QueryRow(ctx,
		`INSERT INTO settings (id, tone, fallback_webhook, theme)
		 VALUES ('singleton', COALESCE($1, $4), COALESCE($2, ''), COALESCE($3, $5))
		 ON CONFLICT (id) DO UPDATE SET
		   tone = COALESCE($1, settings.tone),
		   fallback_webhook = COALESCE($2, settings.fallback_webhook),
		   theme = COALESCE($3, settings.theme),
		   updated_at = NOW()
		 RETURNING tone, fallback_webhook, theme`,
		tone, hook, theme, string(defaults.Tone), string(defaults.Theme),
	).Scan(&outTone, &outHook, &outTheme)
	if err != nil {
		return model.Settings{}, apperrors.Storage("patch settings", err)
	}
	return model.Settings{Tone: model.Tone(outTone), FallbackWebhook: outHook, Theme: model.Theme(outTheme)}, nil
}

type saved struct{ db *pgxpool.Pool }

func (r saved) List(ctx context.Context) ([]model.SavedMessage, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, text, created_at, tags FROM saved_messages ORDER BY created_at DESC LIMIT $1`, store.SavedListLimit)
	if err != nil {
		return nil, apperrors.Storage("list saved", err)
	}
	defer rows.Close()

	items := []model.SavedMessage{}
	for rows.Next() {
		var (
			s         model.SavedMessage
			createdAt time.Time
			tags      []byte
		)
		if err := rows.Scan(&s.ID, &s.Text, &createdAt, &tags); err != nil {
			return nil, apperrors.Storage("scan saved", err)
		}
		s.CreatedAt = createdAt.UnixMilli()
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &s.Tags); err != nil {
				return nil, apperrors.Storage("decode saved tags", err)
			}
		}
		if len(s.Tags) == 0 {
			s.Tags = nil
		}
		items = append(items, s)
	}
	return items, apperrors.Storage("list saved", rows.Err())
}

func (r saved) Save(ctx context.Context, msg model.SavedMessage) error {
	tags := msg.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := marshalJSON(tags)
	if err != nil {
		return apperrors.Internal("encode tags")
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO saved_messages (id, text, created_at, tags)
		 VALUES ($1, $2, $3, $4::jsonb)
		 ON CONFLICT (id) DO NOTHING`,
		msg.ID, msg.Text, time.UnixMilli(msg.CreatedAt).UTC(), string(tagsJSON),
	)
	return apperrors.Storage("save message", err)
}

func (r saved) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM saved_messages WHERE id = $1`, id)
	return apperrors.Storage("delete saved", err)
}
