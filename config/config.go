package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort  string
	DatabaseURL string
	LogLevel    string

	// Broker portal
	MeroShareBaseURL string

	// Credential directory (Google Sheets)
	SheetsCredentialsFile string
	SpreadsheetID         string
	SheetName             string

	// Notification channels
	TelegramBotToken string
	TelegramChatID   string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioWhatsApp   string

	// Public issue calendar feeds
	CalendarBaseURL string

	// Floorsheet ingestion
	FloorsheetBaseURL  string
	FloorsheetPageSize string
}

// HTTPTimeoutConfig holds connect/read timeout budgets for outbound calls
type HTTPTimeoutConfig struct {
	RequestTimeout time.Duration `json:"request_timeout"`
	MaxRetries     int           `json:"max_retries"`
}

// DefaultHTTPTimeoutConfig returns the default outbound call budget
func DefaultHTTPTimeoutConfig() *HTTPTimeoutConfig {
	return &HTTPTimeoutConfig{
		RequestTimeout: 30 * time.Second,
		MaxRetries:     3,
	}
}

// GetFloorsheetPageSize returns the floorsheet page size from environment or default
func (c *Config) GetFloorsheetPageSize() int {
	if c.FloorsheetPageSize == "" {
		return 500
	}

	size, err := strconv.Atoi(c.FloorsheetPageSize)
	if err != nil || size <= 0 {
		logrus.Warnf("Invalid FLOORSHEET_PAGE_SIZE value: %s, using default 500", c.FloorsheetPageSize)
		return 500
	}

	return size
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		MeroShareBaseURL:      getEnv("MEROSHARE_BASE_URL", "https://webbackend.cdsc.com.np/api/meroShare"),
		SheetsCredentialsFile: getEnv("SHEETS_CREDENTIALS_FILE", "service_account.json"),
		SpreadsheetID:         getEnv("SPREADSHEET_ID", ""),
		SheetName:             getEnv("SHEET_NAME", "Sheet1"),
		TelegramBotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:        getEnv("TELEGRAM_CHAT_ID", ""),
		TwilioAccountSID:      getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:       getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioWhatsApp:        getEnv("TWILIO_WHATSAPP_FROM", ""),
		CalendarBaseURL:       getEnv("CALENDAR_BASE_URL", "https://chukul.com/api"),
		FloorsheetBaseURL:     getEnv("FLOORSHEET_BASE_URL", "https://chukul.com/api/data/v2/floorsheet/bydate/"),
		FloorsheetPageSize:    getEnv("FLOORSHEET_PAGE_SIZE", "500"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
