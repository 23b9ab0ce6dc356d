package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port               string
	DatabasePath       string
	LogLevel           string
	MaxUploadSizeBytes int64

	// Session tokens are the opaque identifiers returned by /upload.
	SessionTokenSecret string
	SessionTTL         time.Duration

	// FinancialYear scopes every ledger computation ("YYYY-YYYY").
	FinancialYear string

	// NextYearOpeningDate overrides the carry-forward opening date.
	// When empty, the start of the next financial year is used.
	NextYearOpeningDate string
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	sessionSecret := getEnv("SESSION_TOKEN_SECRET", "an-insecure-development-session-secret-at-least-32-bytes")
	if len(sessionSecret) < 32 {
		log.Fatalf("FATAL: SESSION_TOKEN_SECRET must be at least 32 bytes long. Current length: %d", len(sessionSecret))
	}
	if sessionSecret == "an-insecure-development-session-secret-at-least-32-bytes" {
		log.Println("WARNING: Using default insecure SESSION_TOKEN_SECRET. Set SESSION_TOKEN_SECRET for production.")
	}

	sessionTTLStr := getEnv("SESSION_TTL", "12h")
	sessionTTL, err := time.ParseDuration(sessionTTLStr)
	if err != nil {
		log.Printf("WARNING: Invalid SESSION_TTL format '%s'. Using default 12h. Error: %v", sessionTTLStr, err)
		sessionTTL = 12 * time.Hour
	}

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760")
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 10MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 10 * 1024 * 1024
	}

	Cfg = &AppConfig{
		Port:               getEnv("PORT", "8080"),
		DatabasePath:       getEnv("DATABASE_PATH", "./shares.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		MaxUploadSizeBytes: maxUploadSizeBytes,

		SessionTokenSecret: sessionSecret,
		SessionTTL:         sessionTTL,

		FinancialYear:       getEnv("FINANCIAL_YEAR", "2025-2026"),
		NextYearOpeningDate: getEnv("NEXT_YEAR_OPENING_DATE", ""),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, FinancialYear=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.FinancialYear)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}
