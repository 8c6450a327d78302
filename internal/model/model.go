package model

import (
	"slices"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleRitual    Role = "ritual"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleRitual:
		return true
	}
	return false
}

// Message is one chat ledger entry. Timestamp is epoch milliseconds.
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Text      string         `json:"text"`
	Timestamp int64          `json:"timestamp"`
	RitualID  string         `json:"ritualId,omitempty"`
	Buttons   []string       `json:"buttons,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type RitualConfig struct {
	ID      string   `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Webhook string   `json:"webhook" yaml:"webhook"`
	Trigger Trigger  `json:"trigger" yaml:"trigger"`
	Buttons []string `json:"buttons" yaml:"buttons"`
	Active  bool     `json:"active" yaml:"active"`
}

func (r RitualConfig) Validate() error {
	if strings.TrimSpace(r.ID) == "" || strings.TrimSpace(r.Name) == "" {
		return invalid("id, name, trigger required")
	}
	return r.Trigger.Validate()
}

type Appointment struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	Start       string `json:"start"`
	DurationMin int    `json:"durationMin"`
	Notes       string `json:"notes,omitempty"`
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Rank orders priorities high < medium < low. Unknown values sort after low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

type UrgentTodo struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Priority  Priority `json:"priority"`
	Done      bool     `json:"done"`
	DueAt     *int64   `json:"dueAt,omitempty"`
	Notes     string   `json:"notes,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
}

// CompareUrgent orders by priority rank, then soonest due date. Undated items sort last.
func CompareUrgent(a, b UrgentTodo) int {
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra - rb
	}
	switch {
	case a.DueAt == nil && b.DueAt == nil:
		return 0
	case a.DueAt == nil:
		return 1
	case b.DueAt == nil:
		return -1
	case *a.DueAt < *b.DueAt:
		return -1
	case *a.DueAt > *b.DueAt:
		return 1
	}
	return 0
}

// SortUrgent puts incomplete items first, then applies CompareUrgent. The sort is stable.
func SortUrgent(items []UrgentTodo) {
	slices.SortStableFunc(items, func(a, b UrgentTodo) int {
		if a.Done != b.Done {
			if a.Done {
				return 1
			}
			return -1
		}
		return CompareUrgent(a, b)
	})
}

type Tone string

const (
	ToneGentle  Tone = "Gentle"
	ToneStrict  Tone = "Strict"
	TonePlayful Tone = "Playful"
	ToneNeutral Tone = "Neutral"
)

func (t Tone) Valid() bool {
	switch t {
	case ToneGentle, ToneStrict, TonePlayful, ToneNeutral:
		return true
	}
	return false
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

type Settings struct {
	Tone            Tone   `json:"tone"`
	FallbackWebhook string `json:"fallbackWebhook"`
	Theme           Theme  `json:"theme"`
}

func DefaultSettings() Settings {
	return Settings{Tone: ToneGentle, FallbackWebhook: "", Theme: ThemeDark}
}

// SettingsPatch carries only the fields a caller wants to change.
type SettingsPatch struct {
	Tone            *Tone   `json:"tone,omitempty"`
	FallbackWebhook *string `json:"fallbackWebhook,omitempty"`
	Theme           *Theme  `json:"theme,omitempty"`
}

func (p SettingsPatch) Validate() error {
	if p.Tone != nil && !p.Tone.Valid() {
		return invalid("tone must be one of Gentle, Strict, Playful, Neutral")
	}
	if p.Theme != nil && !p.Theme.Valid() {
		return invalid("theme must be light or dark")
	}
	return nil
}

func (p SettingsPatch) Apply(s Settings) Settings {
	if p.Tone != nil {
		s.Tone = *p.Tone
	}
	if p.FallbackWebhook != nil {
		s.FallbackWebhook = strings.TrimSpace(*p.FallbackWebhook)
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	return s
}

// SavedMessage is a copy of a message kept independently of the ledger.
type SavedMessage struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	CreatedAt int64    `json:"createdAt"`
	Tags      []string `json:"tags,omitempty"`
}
