// Package api exposes the assistant over HTTP. Every route lives under /api
// and answers JSON.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/TAESTUDIOS/psa3/internal/briefing"
	"github.com/TAESTUDIOS/psa3/internal/chat"
	"github.com/TAESTUDIOS/psa3/internal/dispatch"
	"github.com/TAESTUDIOS/psa3/internal/ledger"
	"github.com/TAESTUDIOS/psa3/internal/scheduler"
	"github.com/TAESTUDIOS/psa3/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (dispatch.Result, error)
}

type Fallback interface {
	Forward(ctx context.Context, url string, req dispatch.FallbackRequest) (map[string]any, error)
	DefaultURL() string
}

type Ticker interface {
	Tick(ctx context.Context, now time.Time) scheduler.TickResult
}

// ComponentStatus is one line of /api/status.
type ComponentStatus struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// StatusReporter lists the health of running components. Optional.
type StatusReporter interface {
	Status(ctx context.Context) []ComponentStatus
}

type Deps struct {
	Store      store.Store
	Ledger     *ledger.Ledger
	Composer   *briefing.Composer
	Dispatcher Dispatcher
	Chat       *chat.Router
	Fallback   Fallback
	Scheduler  Ticker
	Status     StatusReporter
	Now        func() time.Time
}

type Options struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	BodyLimit      int
	RateLimit      int
	SchedulerToken string
	// Timezone is used when a request names none.
	Timezone string
}

type handlers struct {
	deps Deps
	opts Options
}

func (h *handlers) now() time.Time {
	if h.deps.Now != nil {
		return h.deps.Now()
	}
	return time.Now()
}

// New builds the fiber app with every route mounted.
func New(deps Deps, opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		IdleTimeout:           opts.IdleTimeout,
		BodyLimit:             opts.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(RequestID())
	app.Use(Trace())
	app.Use(AccessLog())

	h := &handlers{deps: deps, opts: opts}

	api := app.Group("/api")
	if opts.RateLimit > 0 {
		api.Use(RateLimit(opts.RateLimit, time.Minute))
	}

	api.Get("/ping", h.ping)
	api.Get("/health", h.health)
	api.Get("/status", h.status)

	api.Get("/appointments", h.listAppointments)
	api.Post("/appointments", h.createAppointment)
	api.Put("/appointments", h.updateAppointment)
	api.Delete("/appointments", h.deleteAppointment)

	api.Get("/urgent", h.listUrgent)
	api.Post("/urgent", h.saveUrgent)
	api.Delete("/urgent", h.deleteUrgent)

	api.Get("/messages", h.listMessages)
	api.Post("/messages", h.postMessage)
	api.Delete("/messages", h.clearMessages)
	api.Post("/inject-ritual", h.injectRitual)

	api.Post("/chat", h.sendChat)
	api.Post("/chat/action", h.chatAction)

	api.Get("/rituals", h.listRituals)
	api.Post("/rituals", h.saveRitual)
	api.Put("/rituals", h.saveRitual)
	api.Delete("/rituals", h.deleteRitual)
	api.Post("/rituals/trigger", h.triggerRitual)
	api.Post("/rituals/action", h.mockRitualAction)

	api.Get("/morning", h.getMorning)
	api.Post("/morning", h.postMorning)

	tick := SchedulerToken(opts.SchedulerToken)
	api.Get("/scheduler/tick", tick, h.schedulerTick)
	api.Post("/scheduler/tick", tick, h.schedulerTick)

	api.Get("/settings", h.getSettings)
	api.Post("/settings", h.patchSettings)
	api.Put("/settings", h.patchSettings)

	api.Get("/save", h.listSaved)
	api.Post("/save", h.createSaved)
	api.Delete("/save", h.deleteSaved)

	api.Post("/fallback", h.fallback)

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"ok": false, "error": err.Error()})
}
