package api

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/TAESTUDIOS/psa3/internal/model"

	"github.com/gofiber/fiber/v2"
)

const (
	untitled           = "Untitled"
	defaultStart       = "00:00"
	defaultDurationMin = 30
)

type appointmentRequest struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Date        string      `json:"date"`
	Start       string      `json:"start"`
	DurationMin json.Number `json:"durationMin"`
	Notes       string      `json:"notes"`
}

// minutes reads durationMin, which clients send as a number or a numeric
// string. Anything else counts as absent.
func (r appointmentRequest) minutes() int {
	f, err := r.DurationMin.Float64()
	if err != nil || f <= 0 || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

func (h *handlers) listAppointments(c *fiber.Ctx) error {
	items, err := h.deps.Store.Appointments().ListByDate(c.UserContext(), strings.TrimSpace(c.Query("date")))
	if err != nil {
		return fail(c, err)
	}
	if items == nil {
		items = []model.Appointment{}
	}
	return c.JSON(fiber.Map{"ok": true, "items": items})
}

func (h *handlers) createAppointment(c *fiber.Ctx) error {
	var req appointmentRequest
	if err := decode(c, &req); err != nil {
		return fail(c, err)
	}
	mins := req.minutes()
	if req.Title == "" || req.Date == "" || req.Start == "" || mins == 0 {
		return badRequest(c, "Missing required fields")
	}
	if msg := checkAppointment(req.Date, req.Start); msg != "" {
		return badRequest(c, msg)
	}

	item := model.Appointment{
		ID:          req.ID,
		Title:       req.Title,
		Date:        req.Date,
		Start:       req.Start,
		DurationMin: mins,
		Notes:       req.Notes,
	}
	if item.ID == "" {
		item.ID = model.NewID(model.PrefixAppointment)
	}
	saved, err := h.deps.Store.Appointments().Upsert(c.UserContext(), item)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "item": saved})
}

// updateAppointment replaces the appointment with id, filling absent fields
// with defaults.
func (h *handlers) updateAppointment(c *fiber.Ctx) error {
	var req appointmentRequest
	if err := decode(c, &req); err != nil {
		return fail(c, err)
	}
	if req.ID == "" {
		return badRequest(c, "Missing id")
	}

	item := model.Appointment{
		ID:          req.ID,
		Title:       req.Title,
		Date:        req.Date,
		Start:       req.Start,
		DurationMin: req.minutes(),
		Notes:       req.Notes,
	}
	if item.Title == "" {
		item.Title = untitled
	}
	if item.Start == "" {
		item.Start = defaultStart
	}
	if item.DurationMin == 0 {
		item.DurationMin = defaultDurationMin
	}
	if msg := checkAppointment(item.Date, item.Start); msg != "" {
		return badRequest(c, msg)
	}

	saved, err := h.deps.Store.Appointments().Upsert(c.UserContext(), item)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "item": saved})
}

func (h *handlers) deleteAppointment(c *fiber.Ctx) error {
	id := c.Query("id")
	if id == "" {
		return badRequest(c, "Missing id")
	}
	if err := h.deps.Store.Appointments().Remove(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// checkAppointment validates formats. An empty date is allowed on update.
func checkAppointment(date, start string) string {
	if date != "" && !model.ValidDate(date) {
		return "date must be YYYY-MM-DD"
	}
	if !model.ValidClock(start) {
		return "start must be HH:mm"
	}
	return ""
}
