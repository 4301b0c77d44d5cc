package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Sheets    SheetsConfig
	Notify    NotifyConfig
	Matching  MatchingConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string
	LogLevel string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// SheetsConfig locates the ledger spreadsheet. Leave CredentialsPath empty
// to run without a ledger source; ledger windows then open on an empty
// dataset.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	LedgerRange     string
	MELedgerRange   string
}

// NotifyConfig points at the outbound event webhook. Empty URL disables
// notifications.
type NotifyConfig struct {
	WebhookURL string
	Token      string
}

// MatchingConfig tunes the window session layer.
type MatchingConfig struct {
	// Actor is recorded as matchedBy on every engine transition.
	Actor string
	// Origin is the token every hub message must carry.
	Origin string
	// SessionTTL is how long a window may go without a heartbeat before
	// the sweep closes it.
	SessionTTL time.Duration
	// InboxSize bounds each window's message buffer.
	InboxSize int
}

// SchedulerConfig holds cron settings.
type SchedulerConfig struct {
	OverdueCron string
	Timezone    string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are acceptable when configuration comes from
		// the environment directly.
		_ = godotenv.Load()
	}

	ttl, err := time.ParseDuration(getenvWithDefault("MATCHING_SESSION_TTL", "90s"))
	if err != nil {
		return nil, fmt.Errorf("invalid MATCHING_SESSION_TTL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", "8080"),
			LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "equipmatch"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("LEDGER_SPREADSHEET_ID"),
			LedgerRange:     getenvWithDefault("LEDGER_SHEET_RANGE", "Ledger!A:K"),
			MELedgerRange:   getenvWithDefault("ME_LEDGER_SHEET_RANGE", "MELedger!A:K"),
		},
		Notify: NotifyConfig{
			WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
			Token:      os.Getenv("NOTIFY_WEBHOOK_TOKEN"),
		},
		Matching: MatchingConfig{
			Actor:      getenvWithDefault("MATCHING_ACTOR", "system"),
			Origin:     getenvWithDefault("MATCHING_ORIGIN", "equipmatch-local"),
			SessionTTL: ttl,
			InboxSize:  64,
		},
		Scheduler: SchedulerConfig{
			OverdueCron: getenvWithDefault("LOAN_OVERDUE_CRON", "0 9 * * *"),
			Timezone:    getenvWithDefault("TIMEZONE", "Asia/Tokyo"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch {
	case c.MongoDB.URI == "":
		return errors.New("MONGODB_URI must be provided")
	case c.MongoDB.DBName == "":
		return errors.New("MONGODB_DB_NAME must be provided")
	}

	if c.Sheets.CredentialsPath != "" && c.Sheets.SpreadsheetID == "" {
		return errors.New("LEDGER_SPREADSHEET_ID must be provided when sheets credentials are set")
	}

	if c.Matching.Origin == "" {
		return errors.New("MATCHING_ORIGIN must not be empty")
	}
	if c.Matching.SessionTTL <= 0 {
		return errors.New("MATCHING_SESSION_TTL must be positive")
	}

	if c.Scheduler.OverdueCron == "" {
		return errors.New("LOAN_OVERDUE_CRON must be provided")
	}
	if c.Scheduler.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
