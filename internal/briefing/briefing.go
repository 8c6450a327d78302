// Package briefing composes the morning digest from urgent todos and the
// day's appointments.
package briefing

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/TAESTUDIOS/psa3/internal/model"
	"github.com/TAESTUDIOS/psa3/internal/ritual"
)

const (
	MaxFocus        = 5
	MaxAppointments = 8
	DefaultTZ       = "UTC"
	DefaultTone     = model.ToneNeutral
)

type AppointmentLister interface {
	ListByDate(ctx context.Context, date string) ([]model.Appointment, error)
}

type UrgentReader interface {
	ReadAll(ctx context.Context) ([]model.UrgentTodo, error)
}

type Request struct {
	RitualID string
	// Date is YYYY-MM-DD. Empty means today in TZ.
	Date string
	TZ   string
	// Tone is recorded in metadata when set.
	Tone model.Tone
}

type Composer struct {
	appointments AppointmentLister
	urgent       UrgentReader
	now          func() time.Time
}

func NewComposer(appointments AppointmentLister, urgent UrgentReader) *Composer {
	return &Composer{appointments: appointments, urgent: urgent, now: time.Now}
}

// WithClock replaces the time source.
func (c *Composer) WithClock(now func() time.Time) *Composer {
	c.now = now
	return c
}

// Compose reads both stores and renders the briefing message.
func (c *Composer) Compose(ctx context.Context, req Request) (model.Message, error) {
	now := c.now()
	if req.TZ == "" {
		req.TZ = DefaultTZ
	}
	if req.Date == "" {
		req.Date = model.DateIn(now, req.TZ)
	}
	if req.RitualID == "" {
		req.RitualID = ritual.MorningID
	}

	urgent, err := c.urgent.ReadAll(ctx)
	if err != nil {
		return model.Message{}, err
	}
	appts, err := c.appointments.ListByDate(ctx, req.Date)
	if err != nil {
		return model.Message{}, err
	}

	msg := Render(req, urgent, appts)
	msg.ID = model.NewID(model.PrefixComposed)
	msg.Timestamp = now.UnixMilli()
	return msg, nil
}

// Render builds the message without id or timestamp. req.Date and req.TZ must be set.
func Render(req Request, urgent []model.UrgentTodo, appts []model.Appointment) model.Message {
	open := make([]model.UrgentTodo, 0, len(urgent))
	var high, medium, low int
	for _, t := range urgent {
		if t.Done {
			continue
		}
		open = append(open, t)
		switch t.Priority {
		case model.PriorityHigh:
			high++
		case model.PriorityMedium:
			medium++
		case model.PriorityLow:
			low++
		}
	}

	lines := []string{
		fmt.Sprintf("Morning Briefing for %s (%s)", req.Date, req.TZ),
		"",
		fmt.Sprintf("Urgent todos: %d open (%d high, %d medium, %d low).", len(open), high, medium, low),
	}

	if len(open) > 0 {
		slices.SortStableFunc(open, model.CompareUrgent)
		lines = append(lines, "Top focus:")
		loc := model.LoadLocation(req.TZ)
		for _, t := range open[:min(len(open), MaxFocus)] {
			line := "• " + t.Title
			if t.DueAt != nil {
				line += " (due " + time.UnixMilli(*t.DueAt).In(loc).Format(model.DateLayout) + ")"
			}
			lines = append(lines, line)
		}
	}

	lines = append(lines, fmt.Sprintf("Appointments today: %d.", len(appts)))
	if len(appts) > 0 {
		sorted := slices.Clone(appts)
		slices.SortStableFunc(sorted, func(a, b model.Appointment) int { return strings.Compare(a.Start, b.Start) })
		for _, a := range sorted[:min(len(sorted), MaxAppointments)] {
			lines = append(lines, fmt.Sprintf("• %s (%dm) – %s", a.Start, a.DurationMin, a.Title))
		}
	}

	if urgent == nil {
		urgent = []model.UrgentTodo{}
	}
	if appts == nil {
		appts = []model.Appointment{}
	}
	metadata := map[string]any{
		"date":         req.Date,
		"tz":           req.TZ,
		"urgent":       urgent,
		"appointments": appts,
	}
	if req.Tone != "" {
		metadata["tone"] = string(req.Tone)
	}

	return model.Message{
		Role:     model.RoleRitual,
		RitualID: req.RitualID,
		Text:     strings.Join(lines, "\n"),
		Buttons:  slices.Clone(ritual.MorningButtons),
		Metadata: metadata,
	}
}

// Acknowledge maps a briefing button to its reply text. Matching ignores case.
func Acknowledge(action string) string {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "done":
		return "Morning ritual acknowledged. Have a great day!"
	case "snooze":
		return "Snoozed for 15 minutes. I’ll remind you shortly."
	case "open urgent":
		return "Opening Urgent inbox… (use the UI to navigate to /urgent)."
	case "open schedule":
		return "Opening Schedule… (use the UI to navigate to /rituals)."
	}
	return fmt.Sprintf("Action '%s' received.", action)
}

// Act answers a button press on a briefing. It never fails.
func (c *Composer) Act(ritualID, action string, tone model.Tone) model.Message {
	if ritualID == "" {
		ritualID = ritual.MorningID
	}
	if tone == "" {
		tone = DefaultTone
	}
	return model.Message{
		ID:        model.NewID(model.PrefixComposed),
		Role:      model.RoleAssistant,
		RitualID:  ritualID,
		Text:      Acknowledge(action),
		Timestamp: c.now().UnixMilli(),
		Buttons:   []string{},
		Metadata:  map[string]any{"tone": string(tone), "action": action},
	}
}
