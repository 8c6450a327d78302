// Package ledger is the capped chat history.
package ledger

import (
	"context"
	"time"

	apperrors "github.com/TAESTUDIOS/psa3/internal/errors"
	"github.com/TAESTUDIOS/psa3/internal/model"
	"github.com/TAESTUDIOS/psa3/internal/store"
)

type Ledger struct {
	messages store.MessageStore
	keep     int
	now      func() time.Time
}

// New keeps at most keep messages. Values outside 1..store.History use
// store.History.
func New(messages store.MessageStore, keep int) *Ledger {
	if keep <= 0 || keep > store.History {
		keep = store.History
	}
	return &Ledger{messages: messages, keep: keep, now: time.Now}
}

// WithClock replaces the time source.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

func (l *Ledger) Keep() int { return l.keep }

// Append stores msg, filling a missing id and timestamp, and trims history to
// the cap. It returns the message as stored.
func (l *Ledger) Append(ctx context.Context, msg model.Message) (model.Message, error) {
	if !msg.Role.Valid() {
		return model.Message{}, apperrors.InvalidInput("invalid role: " + string(msg.Role))
	}
	if msg.ID == "" {
		msg.ID = model.NewID(model.PrefixMessage)
	}
	if msg.Timestamp <= 0 {
		msg.Timestamp = l.now().UnixMilli()
	}
	if err := l.messages.Append(ctx, msg, l.keep); err != nil {
		return model.Message{}, err
	}
	return msg, nil
}

// PostRequest is a client write. Echo defaults to true.
type PostRequest struct {
	ID        string         `json:"id"`
	Role      model.Role     `json:"role"`
	Text      string         `json:"text"`
	Timestamp int64          `json:"timestamp"`
	RitualID  string         `json:"ritualId"`
	Buttons   []string       `json:"buttons"`
	Metadata  map[string]any `json:"metadata"`
	Echo      *bool          `json:"echo"`
}

func (r PostRequest) echo() bool {
	return r.Echo == nil || *r.Echo
}

type PostResult struct {
	// Reply is the stored echo, nil when echo was off.
	Reply *model.Message
}

// Post persists the message when it has both role and text, then stores an
// "Echo: <text>" assistant reply unless echo is off.
func (l *Ledger) Post(ctx context.Context, req PostRequest) (PostResult, error) {
	if req.Role != "" && req.Text != "" {
		if _, err := l.Append(ctx, model.Message{
			ID:        req.ID,
			Role:      req.Role,
			Text:      req.Text,
			Timestamp: req.Timestamp,
			RitualID:  req.RitualID,
			Buttons:   req.Buttons,
			Metadata:  req.Metadata,
		}); err != nil {
			return PostResult{}, err
		}
	}

	if !req.echo() {
		return PostResult{}, nil
	}

	reply, err := l.Append(ctx, model.Message{Role: model.RoleAssistant, Text: EchoText(req.Text)})
	if err != nil {
		return PostResult{}, err
	}
	return PostResult{Reply: &reply}, nil
}

func EchoText(text string) string {
	if text == "" {
		text = "(empty)"
	}
	return "Echo: " + text
}

// Recent returns the retained history, oldest first.
func (l *Ledger) Recent(ctx context.Context) ([]model.Message, error) {
	return l.Last(ctx, l.keep)
}

// Last returns up to n of the newest messages, oldest first.
func (l *Ledger) Last(ctx context.Context, n int) ([]model.Message, error) {
	msgs, err := l.messages.ListRecent(ctx, n)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

func (l *Ledger) Clear(ctx context.Context) error {
	return l.messages.Clear(ctx)
}
