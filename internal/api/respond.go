package api

import (
	"bytes"
	"encoding/json"

	apperrors "github.com/TAESTUDIOS/psa3/internal/errors"
	"github.com/TAESTUDIOS/psa3/internal/logger"

	"github.com/gofiber/fiber/v2"
)

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(c *fiber.Ctx, v any) error {
	body := bytes.TrimSpace(c.Body())
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apperrors.InvalidInput("invalid JSON body")
	}
	return nil
}

// fail writes err as {ok:false,error}. Server-side failures are logged.
func fail(c *fiber.Ctx, err error) error {
	status := apperrors.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		logger.From(c.UserContext()).Error("Request failed",
			"path", c.Path(),
			"category", apperrors.Category(err),
			"error", err,
		)
	}
	return c.Status(status).JSON(fiber.Map{"ok": false, "error": apperrors.PublicMessage(err)})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": msg})
}

// merge copies data into a response map without letting it override keys
// the handler sets afterwards.
func merge(data map[string]any) fiber.Map {
	out := fiber.Map{}
	for k, v := range data {
		out[k] = v
	}
	return out
}
