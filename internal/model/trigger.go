package model

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/TAESTUDIOS/psa3/internal/errors"

	"gopkg.in/yaml.v3"
)

type TriggerKind string

const (
	TriggerSchedule TriggerKind = "schedule"
	TriggerChat     TriggerKind = "chat"
)

type Repeat string

const (
	RepeatDaily   Repeat = "daily"
	RepeatWeekly  Repeat = "weekly"
	RepeatMonthly Repeat = "monthly"
	RepeatNone    Repeat = "none"
)

func (r Repeat) Valid() bool {
	switch r {
	case RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatNone:
		return true
	}
	return false
}

type ScheduleTrigger struct {
	Time   string
	Repeat Repeat
}

type ChatTrigger struct {
	Keyword string
}

// Trigger is either a schedule or a chat keyword. Exactly one of Schedule or Chat
// is set, matching Kind.
type Trigger struct {
	Kind     TriggerKind
	Schedule *ScheduleTrigger
	Chat     *ChatTrigger
}

func ScheduleAt(clock string, repeat Repeat) Trigger {
	return Trigger{Kind: TriggerSchedule, Schedule: &ScheduleTrigger{Time: clock, Repeat: repeat}}
}

func ChatKeyword(keyword string) Trigger {
	return Trigger{Kind: TriggerChat, Chat: &ChatTrigger{Keyword: keyword}}
}

func (t Trigger) Validate() error {
	switch t.Kind {
	case TriggerSchedule:
		if t.Schedule == nil || !ValidClock(t.Schedule.Time) {
			return invalid("schedule trigger requires time HH:mm")
		}
		if !t.Schedule.Repeat.Valid() {
			return invalid(fmt.Sprintf("unknown repeat %q", t.Schedule.Repeat))
		}
		return nil
	case TriggerChat:
		if t.Chat == nil || strings.TrimSpace(t.Chat.Keyword) == "" {
			return invalid("chat trigger requires chatKeyword")
		}
		return nil
	case "":
		return invalid("id, name, trigger required")
	default:
		return invalid(fmt.Sprintf("unknown trigger type %q", t.Kind))
	}
}

// wireTrigger is the flat shape stored in JSON columns and files.
type wireTrigger struct {
	Type        TriggerKind `json:"type" yaml:"type"`
	Time        string      `json:"time,omitempty" yaml:"time,omitempty"`
	Repeat      Repeat      `json:"repeat,omitempty" yaml:"repeat,omitempty"`
	ChatKeyword string      `json:"chatKeyword,omitempty" yaml:"chatKeyword,omitempty"`
}

func (t Trigger) toWire() wireTrigger {
	w := wireTrigger{Type: t.Kind}
	switch t.Kind {
	case TriggerSchedule:
		if t.Schedule != nil {
			w.Time = t.Schedule.Time
			w.Repeat = t.Schedule.Repeat
		}
	case TriggerChat:
		if t.Chat != nil {
			w.ChatKeyword = t.Chat.Keyword
		}
	}
	return w
}

func (w wireTrigger) toTrigger() (Trigger, error) {
	switch w.Type {
	case TriggerSchedule:
		repeat := w.Repeat
		if repeat == "" {
			repeat = RepeatDaily
		}
		t := ScheduleAt(strings.TrimSpace(w.Time), repeat)
		return t, t.Validate()
	case TriggerChat:
		t := ChatKeyword(strings.TrimSpace(w.ChatKeyword))
		return t, t.Validate()
	default:
		return Trigger{}, invalid(fmt.Sprintf("unknown trigger type %q", w.Type))
	}
}

func (t Trigger) MarshalJSON() ([]byte, error) {
	if t.Kind == "" {
		return []byte("null"), nil
	}
	return json.Marshal(t.toWire())
}

func (t *Trigger) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Trigger{}
		return nil
	}
	var w wireTrigger
	if err := json.Unmarshal(data, &w); err != nil {
		return invalid("invalid trigger: " + err.Error())
	}
	parsed, err := w.toTrigger()
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Trigger) MarshalYAML() (interface{}, error) {
	return t.toWire(), nil
}

func (t *Trigger) UnmarshalYAML(node *yaml.Node) error {
	var w wireTrigger
	if err := node.Decode(&w); err != nil {
		return err
	}
	parsed, err := w.toTrigger()
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func invalid(msg string) error {
	return apperrors.InvalidInput(msg)
}
