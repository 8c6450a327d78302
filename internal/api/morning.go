package api

import (
	"github.com/TAESTUDIOS/psa3/internal/briefing"
	"github.com/TAESTUDIOS/psa3/internal/model"
	"github.com/TAESTUDIOS/psa3/internal/ritual"

	"github.com/gofiber/fiber/v2"
)

// getMorning composes the briefing for ?date in ?tz without storing it.
func (h *handlers) getMorning(c *fiber.Ctx) error {
	msg, err := h.deps.Composer.Compose(c.UserContext(), briefing.Request{
		TZ:   c.Query("tz"),
		Date: c.Query("date"),
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "message": msg})
}

type morningRequest struct {
	RitualID string     `json:"ritualId"`
	Action   string     `json:"action"`
	Tone     model.Tone `json:"tone"`
	TZ       string     `json:"tz"`
	Date     string     `json:"date"`
}

// postMorning lets the briefing act as a ritual webhook: an action gets an
// acknowledgement, no action composes a fresh briefing.
func (h *handlers) postMorning(c *fiber.Ctx) error {
	var req morningRequest
	if err := decode(c, &req); err != nil {
		return fail(c, err)
	}
	if req.Tone == "" {
		req.Tone = briefing.DefaultTone
	}
	if req.RitualID == "" {
		req.RitualID = ritual.MorningID
	}

	if req.Action != "" {
		return c.JSON(fiber.Map{"ok": true, "message": h.deps.Composer.Act(req.RitualID, req.Action, req.Tone)})
	}

	msg, err := h.deps.Composer.Compose(c.UserContext(), briefing.Request{
		RitualID: req.RitualID,
		Date:     req.Date,
		TZ:       req.TZ,
		Tone:     req.Tone,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "message": msg})
}
