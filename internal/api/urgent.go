package api

import (
	"github.com/TAESTUDIOS/psa3/internal/model"

	"github.com/gofiber/fiber/v2"
)

type urgentRequest struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Priority  model.Priority `json:"priority"`
	Done      bool           `json:"done"`
	DueAt     *int64         `json:"dueAt"`
	Notes     string         `json:"notes"`
	Tags      []string       `json:"tags"`
	CreatedAt int64          `json:"createdAt"`
}

func (h *handlers) listUrgent(c *fiber.Ctx) error {
	items, err := h.deps.Store.Urgent().ReadAll(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	if items == nil {
		items = []model.UrgentTodo{}
	}
	model.SortUrgent(items)
	return c.JSON(fiber.Map{"ok": true, "items": items})
}

// saveUrgent creates or replaces a todo. updatedAt is always stamped now.
func (h *handlers) saveUrgent(c *fiber.Ctx) error {
	var req urgentRequest
	if err := decode(c, &req); err != nil {
		return fail(c, err)
	}
	if req.Priority != "" && !req.Priority.Valid() {
		return badRequest(c, "priority must be high, medium or low")
	}

	now := h.now().UnixMilli()
	item := model.UrgentTodo{
		ID:        req.ID,
		Title:     req.Title,
		Priority:  req.Priority,
		Done:      req.Done,
		DueAt:     req.DueAt,
		Notes:     req.Notes,
		Tags:      req.Tags,
		CreatedAt: req.CreatedAt,
		UpdatedAt: now,
	}
	if item.ID == "" {
		item.ID = model.NewID(model.PrefixTodo)
	}
	if item.Title == "" {
		item.Title = untitled
	}
	if item.Priority == "" {
		item.Priority = model.PriorityHigh
	}
	if item.CreatedAt == 0 {
		item.CreatedAt = now
	}

	saved, err := h.deps.Store.Urgent().Upsert(c.UserContext(), item)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "item": saved})
}

func (h *handlers) deleteUrgent(c *fiber.Ctx) error {
	id := c.Query("id")
	if id == "" {
		return badRequest(c, "Missing id")
	}
	if err := h.deps.Store.Urgent().Remove(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
