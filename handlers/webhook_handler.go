package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/prabeshd/ipo-applier/services"
)

// WebhookHandler receives inbound chat messages from Telegram and
// Twilio WhatsApp webhooks. Each channel gets its own message service
// so replies go back over the channel the message arrived on.
type WebhookHandler struct {
	Telegram *services.MessageService
	WhatsApp *services.MessageService
}

func NewWebhookHandler(telegram, whatsApp *services.MessageService) *WebhookHandler {
	return &WebhookHandler{
		Telegram: telegram,
		WhatsApp: whatsApp,
	}
}

// telegramUpdate is the subset of Telegram's update payload this
// handler reads.
type telegramUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From struct {
			ID       int64  `json:"id"`
			Username string `json:"username"`
		} `json:"from"`
	} `json:"message"`
}

// TelegramWebhook handles one Telegram bot update. Replies go back
// through the bot API, so the webhook itself always answers 200; a
// non-2xx would make Telegram redeliver the update and double-apply.
func (h *WebhookHandler) TelegramWebhook(c *fiber.Ctx) error {
	var update telegramUpdate
	if err := c.BodyParser(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	if update.Message == nil || update.Message.Text == "" {
		return c.JSON(fiber.Map{"status": "ignored"})
	}

	chatID := strconv.FormatInt(update.Message.Chat.ID, 10)
	logrus.WithFields(logrus.Fields{
		"handler":  "TelegramWebhook",
		"chat_id":  chatID,
		"username": update.Message.From.Username,
	}).Info("Received Telegram message")

	if err := h.Telegram.ProcessChatMessage(c.Context(), chatID, update.Message.Text); err != nil {
		logrus.WithError(err).Warn("Telegram message processing failed")
	}

	return c.JSON(fiber.Map{"status": "success"})
}

// WhatsAppWebhook handles one inbound Twilio WhatsApp message. Twilio
// posts form-encoded fields; From carries the "whatsapp:" prefix and is
// used as the reply address.
func (h *WebhookHandler) WhatsAppWebhook(c *fiber.Ctx) error {
	from := c.FormValue("From")
	body := c.FormValue("Body")

	if from == "" || body == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	logrus.WithFields(logrus.Fields{
		"handler": "WhatsAppWebhook",
		"from":    from,
	}).Info("Received WhatsApp message")

	if err := h.WhatsApp.ProcessChatMessage(c.Context(), from, body); err != nil {
		logrus.WithError(err).Warn("WhatsApp message processing failed")
	}

	return c.SendStatus(fiber.StatusOK)
}
