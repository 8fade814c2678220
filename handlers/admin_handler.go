package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/prabeshd/ipo-applier/services"
)

// AdminHandler exposes manual triggers for the scheduled jobs.
type AdminHandler struct {
	Calendar    *services.CalendarService
	Floorsheets *services.FloorsheetService
}

func NewAdminHandler(calendar *services.CalendarService, floorsheets *services.FloorsheetService) *AdminHandler {
	return &AdminHandler{
		Calendar:    calendar,
		Floorsheets: floorsheets,
	}
}

// CheckCalendar runs the open-issue calendar check and reports the
// tri-state outcome.
func (h *AdminHandler) CheckCalendar(c *fiber.Ctx) error {
	status, openFeeds := h.Calendar.CheckOpenIssues(c.Context())

	return c.JSON(fiber.Map{
		"status":     status,
		"open_feeds": openFeeds,
	})
}

// FetchFloorsheet triggers a floorsheet load for a date range. Dates
// default to today when omitted.
func (h *AdminHandler) FetchFloorsheet(c *fiber.Ctx) error {
	type Request struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	today := time.Now().Format("2006-01-02")
	if req.StartDate == "" {
		req.StartDate = today
	}
	if req.EndDate == "" {
		req.EndDate = today
	}

	if err := h.Floorsheets.FetchDateRange(c.Context(), req.StartDate, req.EndDate); err != nil {
		logrus.WithError(err).Error("Floorsheet fetch trigger failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"status":     "success",
		"start_date": req.StartDate,
		"end_date":   req.EndDate,
	})
}
