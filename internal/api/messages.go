package api

import (
	"github.com/TAESTUDIOS/psa3/internal/ledger"
	"github.com/TAESTUDIOS/psa3/internal/model"

	"github.com/gofiber/fiber/v2"
)

const injectedText = "(ritual)"

func (h *handlers) listMessages(c *fiber.Ctx) error {
	msgs, err := h.deps.Ledger.Recent(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "messages": msgs})
}

// postMessage stores a client message and, unless echo is false, an echo reply.
func (h *handlers) postMessage(c *fiber.Ctx) error {
	var req ledger.PostRequest
	if err := decode(c, &req); err != nil {
		return fail(c, err)
	}
	res, err := h.deps.Ledger.Post(c.UserContext(), req)
	if err != nil {
		return fail(c, err)
	}
	if res.Reply == nil {
		return c.JSON(fiber.Map{"ok": true})
	}
	return c.JSON(fiber.Map{"ok": true, "text": res.Reply.Text})
}

func (h *handlers) clearMessages(c *fiber.Ctx) error {
	if err := h.deps.Ledger.Clear(c.UserContext()); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

type injectRequest struct {
	RitualID string         `json:"ritualId"`
	Text     *string        `json:"text"`
	Buttons  []string       `json:"buttons"`
	Metadata map[string]any `json:"metadata"`
}

// injectRitual appends a ritual message supplied by an external workflow.
func (h *handlers) injectRitual(c *fiber.Ctx) error {
	var req injectRequest
	if err := decode(c, &req); err != nil {
		return fail(c, err)
	}
	text := injectedText
	if req.Text != nil {
		text = *req.Text
	}
	buttons := req.Buttons
	if buttons == nil {
		buttons = []string{}
	}
	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	msg, err := h.deps.Ledger.Append(c.UserContext(), model.Message{
		Role:     model.RoleRitual,
		Text:     text,
		RitualID: req.RitualID,
		Buttons:  buttons,
		Metadata: metadata,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "message": msg})
}

type chatRequest struct {
	Text     string `json:"text"`
	RitualID string `json:"ritualId"`
	Action   string `json:"action"`
}

// sendChat routes one line of user input and returns the stored pair.
func (h *handlers) sendChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := decode(c, &req); err != nil {
		return fail(c, err)
	}
	reply, err := h.deps.Chat.Send(c.UserContext(), req.Text)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"ok":       true,
		"route":    reply.Route,
		"ritualId": reply.RitualID,
		"user":     reply.User,
		"reply":    reply.Reply,
		"failed":   reply.Failed,
	})
}

// chatAction sends a ritual button press and returns the stored reply.
func (h *handlers) chatAction(c *fiber.Ctx) error {
	var req chatRequest
	if err := decode(c, &req); err != nil {
		return fail(c, err)
	}
	reply, err := h.deps.Chat.Action(c.UserContext(), req.RitualID, req.Action)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"ok":       true,
		"ritualId": reply.RitualID,
		"reply":    reply.Reply,
		"failed":   reply.Failed,
	})
}
