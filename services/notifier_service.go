package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prabeshd/ipo-applier/shared"
)

// Notifier delivers a message to the operator's default channel.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// ChatReplier delivers a message to a specific chat. The Telegram
// notifier implements both interfaces; webhook replies go to the chat
// that sent the message, job summaries go to the default channel.
type ChatReplier interface {
	SendTo(ctx context.Context, chatID, message string) error
}

// TelegramNotifier sends messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken      string
	defaultChatID string
	httpFactory   *shared.HTTPClientFactory
	timeout       time.Duration
	maxRetries    int
}

// NewTelegramNotifier creates a Telegram notifier. defaultChatID is the
// channel job summaries and alerts go to.
func NewTelegramNotifier(botToken, defaultChatID string, timeout time.Duration, maxRetries int) *TelegramNotifier {
	return &TelegramNotifier{
		botToken:      botToken,
		defaultChatID: defaultChatID,
		httpFactory:   shared.NewHTTPClientFactory(timeout),
		timeout:       timeout,
		maxRetries:    maxRetries,
	}
}

// Notify sends a message to the default chat.
func (n *TelegramNotifier) Notify(ctx context.Context, message string) error {
	return n.SendTo(ctx, n.defaultChatID, message)
}

// SendTo sends a message to one chat.
func (n *TelegramNotifier) SendTo(ctx context.Context, chatID, message string) error {
	if n.botToken == "" {
		return shared.NewServiceError(shared.ErrorCategoryNotification, "TELEGRAM_NOT_CONFIGURED",
			"telegram bot token is not configured", "SendTo", false, nil)
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id":    chatID,
		"text":       message,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return fmt.Errorf("failed to encode telegram payload: %w", err)
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := shared.ExecuteRequestWithRetry(n.httpFactory.Client(n.timeout), request, n.maxRetries)
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryNotification, "TELEGRAM_SEND_FAILED", "SendTo", true)
	}
	defer response.Body.Close()

	logrus.WithFields(logrus.Fields{
		"service": "TelegramNotifier",
		"chat_id": chatID,
	}).Debug("Telegram message sent")

	return nil
}

// TwilioWhatsAppNotifier sends messages through Twilio's WhatsApp API.
type TwilioWhatsAppNotifier struct {
	accountSID  string
	authToken   string
	fromNumber  string
	httpFactory *shared.HTTPClientFactory
	timeout     time.Duration
	maxRetries  int
}

// NewTwilioWhatsAppNotifier creates a WhatsApp notifier. fromNumber is
// the Twilio sandbox or business number, without the "whatsapp:" prefix.
func NewTwilioWhatsAppNotifier(accountSID, authToken, fromNumber string, timeout time.Duration, maxRetries int) *TwilioWhatsAppNotifier {
	return &TwilioWhatsAppNotifier{
		accountSID:  accountSID,
		authToken:   authToken,
		fromNumber:  fromNumber,
		httpFactory: shared.NewHTTPClientFactory(timeout),
		timeout:     timeout,
		maxRetries:  maxRetries,
	}
}

// SendTo sends a WhatsApp message to one number.
func (n *TwilioWhatsAppNotifier) SendTo(ctx context.Context, toNumber, message string) error {
	if n.accountSID == "" || n.authToken == "" {
		return shared.NewServiceError(shared.ErrorCategoryNotification, "TWILIO_NOT_CONFIGURED",
			"twilio credentials are not configured", "SendTo", false, nil)
	}

	form := url.Values{}
	form.Set("From", "whatsapp:"+n.fromNumber)
	form.Set("To", withWhatsAppPrefix(toNumber))
	form.Set("Body", message)

	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", n.accountSID)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create twilio request: %w", err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	request.SetBasicAuth(n.accountSID, n.authToken)

	response, err := shared.ExecuteRequestWithRetry(n.httpFactory.Client(n.timeout), request, n.maxRetries)
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryNotification, "TWILIO_SEND_FAILED", "SendTo", true)
	}
	defer response.Body.Close()

	logrus.WithFields(logrus.Fields{
		"service": "TwilioWhatsAppNotifier",
		"to":      toNumber,
	}).Debug("WhatsApp message sent")

	return nil
}

func withWhatsAppPrefix(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
