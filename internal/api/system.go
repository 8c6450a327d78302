package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const healthTimeout = 2 * time.Second

func (h *handlers) ping(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true, "pong": true})
}

// health reports whether the store answers a ping.
func (h *handlers) health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	if err := h.deps.Store.Ping(ctx); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"ok":    false,
			"env":   true,
			"db":    false,
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"ok": true, "env": true, "db": true})
}

func (h *handlers) status(c *fiber.Ctx) error {
	if h.deps.Status == nil {
		return c.JSON(fiber.Map{"ok": true, "components": []ComponentStatus{}})
	}
	components := h.deps.Status.Status(c.UserContext())
	healthy := true
	for _, comp := range components {
		if !comp.Healthy {
			healthy = false
		}
	}
	status := fiber.StatusOK
	if !healthy {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"ok": healthy, "components": components})
}

// schedulerTick runs one tick on demand. It is gated by SchedulerToken.
func (h *handlers) schedulerTick(c *fiber.Ctx) error {
	res := h.deps.Scheduler.Tick(c.UserContext(), h.now())
	return c.JSON(fiber.Map{
		"ok":        true,
		"due":       res.Due,
		"triggered": res.Triggered,
		"time":      res.Time,
	})
}
