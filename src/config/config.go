package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port         string
	LogLevel     string
	JWTSecret    string
	DatabasePath string

	// Blob storage layout
	GCSBucket  string
	RawRoot    string // folder holding daily raw tick dumps: <RawRoot>/<YYYYMMDD>/<FilePrefix><YYMMDD>.csv
	OutputRoot string // folder holding per-entity aggregate artifacts
	FilePrefix string

	// Pipeline tuning
	BatchSize         int
	MaxConcurrent     int
	SampleLines       int
	FileTimeout       time.Duration
	HeapSoftLimitMB   int
	MemoryPause       time.Duration
	DownloadCacheTTL  time.Duration
	CacheCleanupEvery time.Duration

	EmailServiceProvider string

	MailgunDomain        string
	MailgunPrivateAPIKey string

	SenderEmail string
	SenderName  string
	AlertEmail  string
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

	jwtSecret := getEnv("JWT_SECRET", "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes")
	if jwtSecret == "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes" {
		log.Println("WARNING: Using default insecure JWT_SECRET. Set JWT_SECRET environment variable for production.")
	}

	Cfg = &AppConfig{
		Port:         getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		JWTSecret:    jwtSecret,
		DatabasePath: getEnv("DATABASE_PATH", "./idxflow.db"),

		GCSBucket:  getEnv("GCS_BUCKET", "idxflow-data"),
		RawRoot:    getEnv("RAW_ROOT", "raw"),
		OutputRoot: getEnv("OUTPUT_ROOT", "aggregates"),
		FilePrefix: getEnv("FILE_PREFIX", "DT"),

		BatchSize:         getEnvAsInt("BATCH_SIZE", 10),
		MaxConcurrent:     getEnvAsInt("MAX_CONCURRENT", 4),
		SampleLines:       getEnvAsInt("SAMPLE_LINES", 1000),
		FileTimeout:       getEnvAsDuration("FILE_TIMEOUT", 10*time.Minute),
		HeapSoftLimitMB:   getEnvAsInt("HEAP_SOFT_LIMIT_MB", 1024),
		MemoryPause:       getEnvAsDuration("MEMORY_PAUSE", 2*time.Second),
		DownloadCacheTTL:  getEnvAsDuration("DOWNLOAD_CACHE_TTL", 15*time.Minute),
		CacheCleanupEvery: getEnvAsDuration("CACHE_CLEANUP_INTERVAL", 30*time.Minute),

		EmailServiceProvider: getEnv("EMAIL_SERVICE_PROVIDER", "mock"),

		MailgunDomain:        getEnv("MAILGUN_DOMAIN", ""),
		MailgunPrivateAPIKey: getEnv("MAILGUN_PRIVATE_API_KEY", ""),

		SenderEmail: getEnv("SENDER_EMAIL", "noreply@example.com"),
		SenderName:  getEnv("SENDER_NAME", "IDXFlow Pipeline"),
		AlertEmail:  getEnv("ALERT_EMAIL", ""),
	}

	if Cfg.BatchSize < 1 {
		log.Printf("WARNING: BATCH_SIZE %d invalid, using 1", Cfg.BatchSize)
		Cfg.BatchSize = 1
	}
	if Cfg.MaxConcurrent < 1 {
		log.Printf("WARNING: MAX_CONCURRENT %d invalid, using 1", Cfg.MaxConcurrent)
		Cfg.MaxConcurrent = 1
	}

	if Cfg.EmailServiceProvider == "mailgun" {
		if Cfg.MailgunDomain == "" {
			log.Fatalf("FATAL: MAILGUN_DOMAIN is required when EMAIL_SERVICE_PROVIDER is 'mailgun', but it's not set in environment or .env file.")
		}
		if Cfg.MailgunPrivateAPIKey == "" {
			log.Fatalf("FATAL: MAILGUN_PRIVATE_API_KEY is required when EMAIL_SERVICE_PROVIDER is 'mailgun', but it's not set in environment or .env file.")
		}
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, Bucket=%s, RawRoot=%s, OutputRoot=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.GCSBucket, Cfg.RawRoot, Cfg.OutputRoot)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
