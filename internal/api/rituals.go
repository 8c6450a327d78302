package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/TAESTUDIOS/psa3/internal/dispatch"
	apperrors "github.com/TAESTUDIOS/psa3/internal/errors"
	"github.com/TAESTUDIOS/psa3/internal/model"

	"github.com/gofiber/fiber/v2"
)

const ritualFieldsRequired = "id, name, trigger required"

type ritualRequest struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Webhook string          `json:"webhook"`
	Trigger json.RawMessage `json:"trigger"`
	Buttons []string        `json:"buttons"`
	Active  *bool           `json:"active"`
}

func (r ritualRequest) config() (model.RitualConfig, error) {
	raw := bytes.TrimSpace(r.Trigger)
	if r.ID == "" || r.Name == "" || len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return model.RitualConfig{}, apperrors.InvalidInput(ritualFieldsRequired)
	}
	var trigger model.Trigger
	if err := json.Unmarshal(raw, &trigger); err != nil {
		return model.RitualConfig{}, err
	}
	cfg := model.RitualConfig{
		ID:      r.ID,
		Name:    r.Name,
		Webhook: strings.TrimSpace(r.Webhook),
		Trigger: trigger,
		Buttons: r.Buttons,
		Active:  r.Active == nil || *r.Active,
	}
	if cfg.Buttons == nil {
		cfg.Buttons = []string{}
	}
	return cfg, cfg.Validate()
}

func (h *handlers) listRituals(c *fiber.Ctx) error {
	rituals, err := h.deps.Store.Rituals().List(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	if rituals == nil {
		rituals = []model.RitualConfig{}
	}
	return c.JSON(fiber.Map{"ok": true, "rituals": rituals})
}

// saveRitual upserts a ritual config. POST and PUT behave the same.
func (h *handlers) saveRitual(c *fiber.Ctx) error {
	var req ritualRequest
	if err := decode(c, &req); err != nil {
		return fail(c, err)
	}
	cfg, err := req.config()
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := h.deps.Store.Rituals().Upsert(c.UserContext(), cfg); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *handlers) deleteRitual(c *fiber.Ctx) error {
	id := c.Query("id")
	if id == "" {
		return badRequest(c, "id required")
	}
	if err := h.deps.Store.Rituals().Delete(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

type triggerRequest struct {
	RitualID string     `json:"ritualId"`
	Action   string     `json:"action"`
	Context  any        `json:"context"`
	Tone     model.Tone `json:"tone"`
	TZ       string     `json:"tz"`
	Webhook  string     `json:"webhook"`
	Buttons  []string   `json:"buttons"`
}

// triggerRitual invokes a ritual server side. The webhook reply fields are
// passed through alongside the stored message.
func (h *handlers) triggerRitual(c *fiber.Ctx) error {
	var req triggerRequest
	if err := decode(c, &req); err != nil {
		return fail(c, err)
	}
	if strings.TrimSpace(req.RitualID) == "" {
		return badRequest(c, "ritualId required")
	}
	tz := req.TZ
	if tz == "" {
		tz = h.opts.Timezone
	}

	res, err := h.deps.Dispatcher.Dispatch(c.UserContext(), dispatch.Request{
		RitualID: req.RitualID,
		Action:   req.Action,
		Context:  req.Context,
		Tone:     req.Tone,
		TZ:       tz,
		Webhook:  req.Webhook,
		Buttons:  req.Buttons,
	})
	if err != nil {
		if up, ok := dispatch.IsUpstream(err); ok {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"ok":     false,
				"status": up.Status,
				"error":  up.Message,
			})
		}
		return fail(c, err)
	}

	out := merge(res.Data)
	out["ok"] = true
	out["text"] = res.Message.Text
	out["buttons"] = res.Message.Buttons
	out["message"] = res.Message
	out["mock"] = res.Mock
	return c.JSON(out)
}

type actionRequest struct {
	RitualID string `json:"ritualId"`
	Action   string `json:"action"`
}

// mockRitualAction stands in for a workflow webhook during local development.
func (h *handlers) mockRitualAction(c *fiber.Ctx) error {
	var req actionRequest
	if err := decode(c, &req); err != nil {
		return fail(c, err)
	}
	id := req.RitualID
	if id == "" {
		id = "unknown"
	}
	buttons := []string{}
	if req.Action == "Snooze" {
		buttons = []string{"Snoozed 5m", "Cancel"}
	}
	return c.JSON(fiber.Map{
		"ok":      true,
		"text":    fmt.Sprintf("Ritual %s: received action \"%s\".", id, req.Action),
		"buttons": buttons,
	})
}
