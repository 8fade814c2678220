package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/prabeshd/ipo-applier/services"
)

// ApplyHandler exposes the bulk-apply flow over HTTP.
type ApplyHandler struct {
	Messages *services.MessageService
}

func NewApplyHandler(messages *services.MessageService) *ApplyHandler {
	return &ApplyHandler{Messages: messages}
}

// ApplyAll applies one person to every eligible open issue.
// POST /apply with {"user_name": "..."}.
func (h *ApplyHandler) ApplyAll(c *fiber.Ctx) error {
	type Request struct {
		UserName string `json:"user_name"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil || req.UserName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	result := h.Messages.BulkApply(c.Context(), req.UserName)
	return c.JSON(result)
}

// ApplyAllByName is the GET variant, taking the person as a path
// parameter so the job can be triggered from a browser or cron curl.
func (h *ApplyHandler) ApplyAllByName(c *fiber.Ctx) error {
	userName := c.Params("user_name")
	if userName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_name is required"})
	}

	result := h.Messages.BulkApply(c.Context(), userName)
	return c.JSON(result)
}
