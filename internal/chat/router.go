// Package chat routes user chat input to a ritual, the fallback webhook, or a
// local echo.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/TAESTUDIOS/psa3/internal/dispatch"
	apperrors "github.com/TAESTUDIOS/psa3/internal/errors"
	"github.com/TAESTUDIOS/psa3/internal/ledger"
	"github.com/TAESTUDIOS/psa3/internal/logger"
	"github.com/TAESTUDIOS/psa3/internal/model"
	"github.com/TAESTUDIOS/psa3/internal/store"

	"github.com/google/shlex"
)

// ContextSize is how many prior messages accompany a ritual or fallback call.
const ContextSize = 10

const (
	startCommand = "/start"

	RequestFailedText = "Request failed. Please try again."
	ActionFailedText  = "Action failed."
)

type Route string

const (
	RouteRitual   Route = "ritual"
	RouteFallback Route = "fallback"
	RouteEcho     Route = "echo"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (dispatch.Result, error)
}

type Fallback interface {
	Forward(ctx context.Context, url string, req dispatch.FallbackRequest) (map[string]any, error)
	DefaultURL() string
}

type Router struct {
	ledger     *ledger.Ledger
	rituals    store.RitualStore
	settings   store.SettingsStore
	dispatcher Dispatcher
	fallback   Fallback
	tz         string
}

func NewRouter(l *ledger.Ledger, rituals store.RitualStore, settings store.SettingsStore, d Dispatcher, fb Fallback, tz string) *Router {
	return &Router{ledger: l, rituals: rituals, settings: settings, dispatcher: d, fallback: fb, tz: tz}
}

type Reply struct {
	Route    Route         `json:"route"`
	RitualID string        `json:"ritualId,omitempty"`
	User     model.Message `json:"user"`
	Reply    model.Message `json:"reply"`
	// Failed is set when the reply is a stored error message.
	Failed bool `json:"failed"`
}

// Send records text as a user message and stores whichever reply its route
// produces. Route failures become assistant messages; only ledger failures
// are returned.
func (r *Router) Send(ctx context.Context, text string) (Reply, error) {
	content := strings.TrimSpace(text)
	if content == "" {
		return Reply{}, apperrors.InvalidInput("text required")
	}

	history, err := r.ledger.Last(ctx, ContextSize)
	if err != nil {
		return Reply{}, err
	}

	user, err := r.ledger.Append(ctx, model.Message{Role: model.RoleUser, Text: content})
	if err != nil {
		return Reply{}, err
	}

	settings := r.currentSettings(ctx)

	if id, matched := r.match(ctx, content); matched {
		out := Reply{Route: RouteRitual, RitualID: id, User: user}
		res, err := r.dispatcher.Dispatch(ctx, dispatch.Request{
			RitualID: id,
			Context:  history,
			Tone:     settings.Tone,
			TZ:       r.tz,
		})
		if err != nil {
			logger.From(ctx).Warn("Chat ritual failed", "ritual_id", id, "error", err)
			out.Failed = true
			out.Reply, err = r.say(ctx, fmt.Sprintf("Failed to start ritual %s.", id))
			return out, err
		}
		out.Reply = res.Message
		return out, nil
	}

	url := strings.TrimSpace(settings.FallbackWebhook)
	if url == "" && r.fallback != nil {
		url = r.fallback.DefaultURL()
	}
	if url != "" && r.fallback != nil {
		out := Reply{Route: RouteFallback, User: user}
		data, err := r.fallback.Forward(ctx, url, dispatch.FallbackRequest{
			Text:         content,
			LastMessages: history,
			Tone:         string(settings.Tone),
		})
		if err != nil {
			logger.From(ctx).Warn("Fallback webhook failed", "error", err)
			out.Failed = true
			out.Reply, err = r.say(ctx, RequestFailedText)
			return out, err
		}
		reply, _ := data["text"].(string)
		if reply == "" {
			reply = "(no text)"
		}
		out.Reply, err = r.say(ctx, reply)
		return out, err
	}

	reply, err := r.say(ctx, ledger.EchoText(content))
	return Reply{Route: RouteEcho, User: user, Reply: reply}, err
}

// Action sends a button press to its ritual. A failed dispatch is recorded
// as "Action failed."
func (r *Router) Action(ctx context.Context, ritualID, action string) (Reply, error) {
	ritualID = strings.TrimSpace(ritualID)
	if ritualID == "" {
		return Reply{}, apperrors.InvalidInput("ritualId required")
	}
	settings := r.currentSettings(ctx)

	out := Reply{Route: RouteRitual, RitualID: ritualID}
	res, err := r.dispatcher.Dispatch(ctx, dispatch.Request{
		RitualID: ritualID,
		Action:   action,
		Tone:     settings.Tone,
		TZ:       r.tz,
	})
	if err != nil {
		logger.From(ctx).Warn("Ritual action failed", "ritual_id", ritualID, "action", action, "error", err)
		out.Failed = true
		out.Reply, err = r.say(ctx, ActionFailedText)
		return out, err
	}
	out.Reply = res.Message
	return out, nil
}

// match finds the ritual content starts. An exact chat keyword wins over
// "/start <id>".
func (r *Router) match(ctx context.Context, content string) (string, bool) {
	rituals, err := r.rituals.List(ctx)
	if err != nil {
		logger.From(ctx).Warn("Could not list rituals for keyword match", "error", err)
	}
	for _, rit := range rituals {
		// Paused rituals keep their keyword but do not answer to it.
		if rit.Active && rit.Trigger.Kind == model.TriggerChat && rit.Trigger.Chat != nil && rit.Trigger.Chat.Keyword == content {
			return rit.ID, true
		}
	}

	if !strings.HasPrefix(content, startCommand+" ") {
		return "", false
	}
	parts, err := shlex.Split(content)
	if err != nil {
		parts = strings.Fields(content)
	}
	if len(parts) < 2 || parts[0] != startCommand || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func (r *Router) currentSettings(ctx context.Context) model.Settings {
	s, err := r.settings.Get(ctx)
	if err != nil {
		logger.From(ctx).Warn("Using default settings", "error", err)
		return model.DefaultSettings()
	}
	return s
}

func (r *Router) say(ctx context.Context, text string) (model.Message, error) {
	return r.ledger.Append(ctx, model.Message{Role: model.RoleAssistant, Text: text})
}
