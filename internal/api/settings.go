package api

import (
	"strings"

	"github.com/TAESTUDIOS/psa3/internal/dispatch"
	"github.com/TAESTUDIOS/psa3/internal/logger"
	"github.com/TAESTUDIOS/psa3/internal/model"

	"github.com/gofiber/fiber/v2"
)

func (h *handlers) getSettings(c *fiber.Ctx) error {
	settings, err := h.deps.Store.Settings().Get(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "settings": settings})
}

// patchSettings changes only the fields present in the body.
func (h *handlers) patchSettings(c *fiber.Ctx) error {
	var patch model.SettingsPatch
	if err := decode(c, &patch); err != nil {
		return fail(c, err)
	}
	if err := patch.Validate(); err != nil {
		return fail(c, err)
	}
	settings, err := h.deps.Store.Settings().Patch(c.UserContext(), patch)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "settings": settings})
}

type saveRequest struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	CreatedAt int64    `json:"createdAt"`
	Tags      []string `json:"tags"`
}

func (h *handlers) listSaved(c *fiber.Ctx) error {
	items, err := h.deps.Store.Saved().List(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	if items == nil {
		items = []model.SavedMessage{}
	}
	return c.JSON(fiber.Map{"ok": true, "items": items})
}

// createSaved keeps a copy of a message. Saving an existing id is a no-op.
func (h *handlers) createSaved(c *fiber.Ctx) error {
	var req saveRequest
	if err := decode(c, &req); err != nil {
		return fail(c, err)
	}
	if req.ID == "" || req.Text == "" {
		return badRequest(c, "id and text required")
	}
	msg := model.SavedMessage{ID: req.ID, Text: req.Text, CreatedAt: req.CreatedAt, Tags: req.Tags}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = h.now().UnixMilli()
	}
	if err := h.deps.Store.Saved().Save(c.UserContext(), msg); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *handlers) deleteSaved(c *fiber.Ctx) error {
	id := c.Query("id")
	if id == "" {
		return badRequest(c, "id required")
	}
	if err := h.deps.Store.Saved().Delete(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

type fallbackRequest struct {
	Text         string          `json:"text"`
	LastMessages []model.Message `json:"lastMessages"`
	Tone         string          `json:"tone"`
	URL          string          `json:"url"`
}

// fallback proxies free text to the fallback webhook. The URL comes from the
// body, then settings, then configuration.
func (h *handlers) fallback(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store")

	var req fallbackRequest
	if err := decode(c, &req); err != nil {
		return fail(c, err)
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		url = h.settingsWebhook(c)
	}
	if url == "" {
		url = h.deps.Fallback.DefaultURL()
	}

	data, err := h.deps.Fallback.Forward(c.UserContext(), url, dispatch.FallbackRequest{
		Text:         req.Text,
		LastMessages: req.LastMessages,
		Tone:         req.Tone,
	})
	if err != nil {
		if up, ok := dispatch.IsUpstream(err); ok {
			return c.Status(up.Status).JSON(fiber.Map{"ok": false, "error": up.Message, "data": up.Data})
		}
		return fail(c, err)
	}

	out := merge(data)
	out["ok"] = true
	return c.JSON(out)
}

func (h *handlers) settingsWebhook(c *fiber.Ctx) string {
	settings, err := h.deps.Store.Settings().Get(c.UserContext())
	if err != nil {
		logger.From(c.UserContext()).Warn("Failed to read settings for fallback", "error", err)
		return ""
	}
	return settings.FallbackWebhook
}
