package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

// Config holds the application configuration.
type Config struct {
	AppEnv   string
	Debug    bool
	Version  string
	BotToken string

	SentryDSN string

	StorageBackend  string
	MongoDBURI      string
	MongoDBDatabase string

	AdminIDs        []int64
	DisplayChatID   int64 // Broadcast room for the daily summary, 0 falls back to the admin room
	FeedbackTag     string
	MovieRequestTag string
	DefaultLanguage string

	CatalogURL      string
	CatalogUsername string
	CatalogPassword string
	CatalogOTP      string
	CatalogTimeout  time.Duration

	VirtualUsersFile string
	CardDeleteDelay  time.Duration // Decided cards are deleted after this long, 0 keeps them

	SummaryHour int // Local hour of the daily summary, -1 disables it
	MetricsAddr string
	RateLimit   int // Updates processed per second
}

// LoadConfig loads configuration from environment variables.
// It attempts to load a .env file if present but prioritizes
// actual environment variables set in the system (e.g., by Docker).
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (useful for development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	debug, _ := strconv.ParseBool(getEnv("DEBUG", "false"))

	adminIDs, err := parseIDList(getEnv("ADMIN_IDS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_IDS: %w", err)
	}

	displayChatID, err := parseInt64(getEnv("DISPLAY_CHAT_ID", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_CHAT_ID: %w", err)
	}

	catalogTimeout, err := time.ParseDuration(getEnv("CATALOG_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CATALOG_TIMEOUT: %w", err)
	}

	cardDeleteDelay, err := time.ParseDuration(getEnv("CARD_DELETE_DELAY", "10m"))
	if err != nil || cardDeleteDelay < 0 {
		return nil, fmt.Errorf("invalid CARD_DELETE_DELAY %q", os.Getenv("CARD_DELETE_DELAY"))
	}

	summaryHour, err := strconv.Atoi(getEnv("SUMMARY_HOUR", "9"))
	if err != nil || summaryHour < -1 || summaryHour > 23 {
		return nil, fmt.Errorf("invalid SUMMARY_HOUR %q: must be -1 or 0-23", os.Getenv("SUMMARY_HOUR"))
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT", "20"))
	if err != nil || rateLimit <= 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT %q: must be a positive integer", os.Getenv("RATE_LIMIT"))
	}

	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Debug:            debug,
		Version:          getEnv("VERSION", "dev"),
		BotToken:         getEnv("TELEGRAM_BOT_TOKEN", ""),
		SentryDSN:        getEnv("SENTRY_DSN", ""),
		StorageBackend:   strings.ToLower(getEnv("STORAGE_BACKEND", StorageMongo)),
		MongoDBURI:       getEnv("MONGODB_URI", ""),
		MongoDBDatabase:  getEnv("MONGODB_DATABASE", ""),
		AdminIDs:         adminIDs,
		DisplayChatID:    displayChatID,
		FeedbackTag:      getEnv("FEEDBACK_TAG", "#反馈"),
		MovieRequestTag:  getEnv("MOVIE_REQUEST_TAG", "#求片"),
		DefaultLanguage:  getEnv("DEFAULT_LANGUAGE", "zh"),
		CatalogURL:       strings.TrimRight(getEnv("CATALOG_URL", ""), "/"),
		CatalogUsername:  getEnv("CATALOG_USERNAME", ""),
		CatalogPassword:  getEnv("CATALOG_PASSWORD", ""),
		CatalogOTP:       getEnv("CATALOG_OTP", ""),
		CatalogTimeout:   catalogTimeout,
		VirtualUsersFile: getEnv("VIRTUAL_USERS_FILE", "virtual_users.json"),
		CardDeleteDelay:  cardDeleteDelay,
		SummaryHour:      summaryHour,
		MetricsAddr:      getEnv("METRICS_ADDR", ""),
		RateLimit:        rateLimit,
	}

	// Basic validation for essential variables
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	switch cfg.StorageBackend {
	case StorageMongo:
		if cfg.MongoDBURI == "" {
			return nil, fmt.Errorf("MONGODB_URI is required")
		}
		if cfg.MongoDBDatabase == "" {
			return nil, fmt.Errorf("MONGODB_DATABASE is required")
		}
	case StorageMemory:
		log.Println("Warning: STORAGE_BACKEND=memory, data is lost on restart")
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
	if cfg.FeedbackTag == "" || cfg.MovieRequestTag == "" {
		return nil, fmt.Errorf("FEEDBACK_TAG and MOVIE_REQUEST_TAG must not be empty")
	}
	if cfg.SentryDSN == "" {
		log.Println("Warning: SENTRY_DSN is not set. Error tracking disabled.")
	}
	// Without a configured administrator nobody could assign the first admin
	// room, or a new one after /clear_db.
	if len(cfg.AdminIDs) == 0 {
		return nil, fmt.Errorf("ADMIN_IDS is required")
	}
	if cfg.CatalogURL == "" {
		log.Println("Warning: CATALOG_URL is not set, movie search will always come back empty")
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func parseInt64(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// parseIDList parses a comma separated list such as "123, 456".
func parseIDList(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
