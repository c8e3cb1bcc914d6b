package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string
	CORSOrigin  string
	Environment string
	LogFilePath string
	// Catalogue backend: memory, badger, redis or postgres
	StoreBackend      string
	BadgerDir         string
	RedisURL          string
	DatabaseURL       string
	StorageQuotaBytes int
	HistoryDir        string
	MeiliURL          string
	MeiliMasterKey    string
	// SMTP Configuration
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	// Shared PIN guarding the send-email endpoint
	EmailPIN       string
	PINMaxAttempts int
	// Object storage for catalogue backups
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	// Delivery endpoint used by the CLI
	ServerURL string
	PIN       string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:              getenv("API_ADDR", ":8787"),
		CORSOrigin:        getenv("BELIEFPAD_CORS_ORIGIN", "*"),
		Environment:       getenv("GO_ENV", "development"),
		LogFilePath:       getenv("LOG_FILE_PATH", "./logs/beliefpad.log"),
		StoreBackend:      strings.ToLower(getenv("STORE_BACKEND", "badger")),
		BadgerDir:         getenv("BADGER_DIR", "./data/catalogue"),
		RedisURL:          getenv("REDIS_URL", ""),
		DatabaseURL:       getenv("DATABASE_URL", ""),
		StorageQuotaBytes: getenvInt("STORAGE_QUOTA_BYTES", 5*1024*1024),
		HistoryDir:        getenv("HISTORY_DIR", "./data/history"),
		MeiliURL:          getenv("MEILI_URL", ""),
		MeiliMasterKey:    getenv("MEILI_MASTER_KEY", ""),
		// SMTP - relay defaults, email disabled until credentials are set
		SMTPHost:     getenv("SMTP_HOST", "smtp-relay.brevo.com"),
		SMTPPort:     getenvInt("SMTP_PORT", 587),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     getenv("SMTP_FROM", ""),
		SMTPFromName: getenv("SMTP_FROM_NAME", "Belief Code Session"),
		EmailPIN:       getenv("EMAIL_PIN", ""),
		PINMaxAttempts: getenvInt("PIN_MAX_ATTEMPTS", 5),
		MinIOEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinIOAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinIOBucket:    getenv("MINIO_BUCKET", "beliefpad-backups"),
		MinIOUseSSL:    getenvBool("MINIO_USE_SSL", false),
		ServerURL: getenv("BELIEFPAD_SERVER_URL", "http://localhost:8787"),
		PIN:       getenv("BELIEFPAD_PIN", ""),
	}
}

// IsProduction reports whether GO_ENV selects production logging.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
