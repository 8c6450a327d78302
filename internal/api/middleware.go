package api

import (
	"crypto/subtle"
	"log/slog"
	"time"

	"github.com/TAESTUDIOS/psa3/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

const (
	HeaderRequestID      = "X-Request-ID"
	HeaderSchedulerToken = "X-Scheduler-Token"

	slowRequest = 500 * time.Millisecond
)

// RequestID tags each request with an id, reusing one the client sent.
func RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:    HeaderRequestID,
		Generator: uuid.NewString,
	})
}

// Trace copies the request id into the user context.
func Trace() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.GetRespHeader(HeaderRequestID)
		if id != "" {
			c.SetUserContext(logger.WithTraceID(c.UserContext(), id))
		}
		return c.Next()
	}
}

// AccessLog logs slow or failed requests at info and everything else at debug.
func AccessLog() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			// Let the app error handler pick the status before it is logged.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		latency := time.Since(start)
		status := c.Response().StatusCode()
		level := slog.LevelDebug
		if status >= fiber.StatusBadRequest || latency >= slowRequest {
			level = slog.LevelInfo
		}
		logger.From(c.UserContext()).Log(c.UserContext(), level, "HTTP request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", latency.String(),
		)
		return nil
	}
}

func RateLimit(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"ok": false, "error": "too many requests"})
		},
	})
}

// SchedulerToken rejects requests whose X-Scheduler-Token does not match
// token. An empty token rejects everything.
func SchedulerToken(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got := c.Get(HeaderSchedulerToken)
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"ok": false, "error": "unauthorized"})
		}
		return c.Next()
	}
}
