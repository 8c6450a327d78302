// Package dispatch invokes ritual webhooks and turns their replies into chat
// messages.
package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/TAESTUDIOS/psa3/internal/briefing"
	apperrors "github.com/TAESTUDIOS/psa3/internal/errors"
	"github.com/TAESTUDIOS/psa3/internal/logger"
	"github.com/TAESTUDIOS/psa3/internal/model"
	"github.com/TAESTUDIOS/psa3/internal/ritual"
)

const DefaultTimeout = 10 * time.Second

const noText = "(no text)"

type Appender interface {
	Append(ctx context.Context, msg model.Message) (model.Message, error)
}

type Briefer interface {
	Compose(ctx context.Context, req briefing.Request) (model.Message, error)
	Act(ritualID, action string, tone model.Tone) model.Message
}

type Request struct {
	RitualID string
	Action   string
	Context  any
	Tone     model.Tone
	// TZ scopes the morning briefing.
	TZ string
	// Webhook and Buttons are used when no stored config supplies them.
	Webhook string
	Buttons []string
}

// Payload is the JSON body posted to a ritual webhook.
type Payload struct {
	RitualID  string `json:"ritualId"`
	Action    string `json:"action,omitempty"`
	Context   any    `json:"context,omitempty"`
	Tone      string `json:"tone,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type Result struct {
	Message model.Message
	Mock    bool
	Morning bool
	// Data is the decoded webhook reply. Empty for mock and morning results.
	Data map[string]any
}

type Dispatcher struct {
	resolver *ritual.Resolver
	briefer  Briefer
	ledger   Appender
	client   *http.Client
	now      func() time.Time
}

func New(resolver *ritual.Resolver, briefer Briefer, ledger Appender, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		resolver: resolver,
		briefer:  briefer,
		ledger:   ledger,
		client:   &http.Client{Timeout: timeout},
		now:      time.Now,
	}
}

// WithHTTPClient replaces the outbound client.
func (d *Dispatcher) WithHTTPClient(c *http.Client) *Dispatcher {
	d.client = c
	return d
}

// WithClock replaces the time source.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Dispatch resolves req.RitualID and produces its reply. Every reply, mocked or
// real, is appended to the ledger before it is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	req.RitualID = strings.TrimSpace(req.RitualID)
	if req.RitualID == "" {
		return Result{}, apperrors.InvalidInput("ritualId required")
	}
	ctx = logger.WithRitualID(ctx, req.RitualID)
	log := logger.From(ctx)

	res := d.resolver.Resolve(ctx, req.RitualID, ritual.Fallback{Webhook: req.Webhook, Buttons: req.Buttons})

	var (
		result Result
		err    error
	)
	switch {
	case res.Morning:
		result, err = d.morning(ctx, req)
	case res.Mock():
		result = Result{Mock: true, Message: d.ritualMessage(req.RitualID, MockText(req.RitualID, req.Action), res.Buttons)}
	default:
		result, err = d.invoke(ctx, req, res)
	}
	if err != nil {
		log.Warn("Ritual dispatch failed", "error", err)
		return Result{}, err
	}

	stored, err := d.ledger.Append(ctx, result.Message)
	if err != nil {
		return Result{}, err
	}
	result.Message = stored
	log.Debug("Ritual dispatched", "mock", result.Mock, "morning", result.Morning)
	return result, nil
}

func (d *Dispatcher) morning(ctx context.Context, req Request) (Result, error) {
	if req.Action != "" {
		return Result{Morning: true, Message: d.briefer.Act(req.RitualID, req.Action, req.Tone)}, nil
	}
	msg, err := d.briefer.Compose(ctx, briefing.Request{RitualID: req.RitualID, TZ: req.TZ, Tone: req.Tone})
	if err != nil {
		return Result{}, err
	}
	return Result{Morning: true, Message: msg}, nil
}

func (d *Dispatcher) invoke(ctx context.Context, req Request, res ritual.Resolution) (Result, error) {
	payload := Payload{
		RitualID:  req.RitualID,
		Action:    req.Action,
		Context:   req.Context,
		Tone:      string(req.Tone),
		Timestamp: d.now().UnixMilli(),
	}

	data, status, err := postJSON(ctx, d.client, res.Webhook, payload, true)
	if err != nil {
		return Result{}, err
	}
	if !ok(status) {
		msg := errorText(data, "error", "message")
		if msg == "" {
			msg = fmt.Sprintf("webhook error (%d)", status)
		}
		return Result{}, &UpstreamError{Status: status, Message: msg, Data: data}
	}

	text := errorText(data, "text")
	if text == "" {
		text = noText
	}
	buttons := res.Buttons
	if replyButtons, present := stringList(data["buttons"]); present {
		buttons = replyButtons
	}
	return Result{Data: data, Message: d.ritualMessage(req.RitualID, text, buttons)}, nil
}

func (d *Dispatcher) ritualMessage(id, text string, buttons []string) model.Message {
	if buttons == nil {
		buttons = []string{}
	}
	return model.Message{
		ID:        model.NewID(model.PrefixMessage),
		Role:      model.RoleRitual,
		RitualID:  id,
		Text:      text,
		Buttons:   slices.Clone(buttons),
		Timestamp: d.now().UnixMilli(),
	}
}

// MockText is the local reply used when a ritual has no webhook.
func MockText(id, action string) string {
	if action != "" {
		return fmt.Sprintf("Ritual %s: received action \"%s\".", id, action)
	}
	return fmt.Sprintf("Started ritual '%s' (mock).", id)
}
