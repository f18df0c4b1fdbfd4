package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the reports service
type Config struct {
	// Server configuration
	Port     string
	LogLevel string

	// Firebase configuration
	FirebaseCredentials   string // base64 service account JSON
	FirebaseStorageBucket string
	ReportsCollection     string

	// Geocoding
	MapsAPIKey      string
	LocationTimeout time.Duration

	// Object storage
	StorageBackend    string // firebase | minio
	MinioEndpoint     string
	MinioAccessKey    string
	MinioSecretKey    string
	MinioBucket       string
	MinioUseSSL       bool
	MinioPublicURL    string
	UploadTimeout     time.Duration
	UploadConcurrency int

	// Media staging
	MediaDir      string
	MaxMediaBytes int64

	// Persistence
	PersistTimeout time.Duration

	// Submission guard
	RedisAddr     string
	RedisPassword string
	GuardTTL      time.Duration

	// Events
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Assistant
	OpenAIAPIKey string
	OpenAIModel  string

	// Background jobs
	OrphanSweepSchedule string
	DraftTTL            time.Duration
	DraftSweepSchedule  string
}

// Load reads .env (when present) and then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		FirebaseCredentials:   getEnv("FIREBASE_CREDENTIALS", ""),
		FirebaseStorageBucket: getEnv("FIREBASE_STORAGE_BUCKET", ""),
		ReportsCollection:     getEnv("REPORTS_COLLECTION", "issues"),

		MapsAPIKey:      getEnv("MAPS_CREDENTIALS", ""),
		LocationTimeout: getDurationEnv("LOCATION_TIMEOUT", 10*time.Second),

		StorageBackend:    getEnv("STORAGE_BACKEND", "firebase"),
		MinioEndpoint:     getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:    getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:    getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:       getEnv("MINIO_BUCKET", "city-reports"),
		MinioUseSSL:       getBoolEnv("MINIO_USE_SSL", false),
		MinioPublicURL:    getEnv("MINIO_PUBLIC_URL", "http://localhost:9000"),
		UploadTimeout:     getDurationEnv("UPLOAD_TIMEOUT", 30*time.Second),
		UploadConcurrency: getIntEnv("UPLOAD_CONCURRENCY", 4),

		MediaDir:      getEnv("MEDIA_DIR", os.TempDir()),
		MaxMediaBytes: int64(getIntEnv("MAX_MEDIA_BYTES", 20<<20)),

		PersistTimeout: getDurationEnv("PERSIST_TIMEOUT", 15*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		GuardTTL:      getDurationEnv("GUARD_TTL", 2*time.Minute),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "civic-reports"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "report.submitted"),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		OrphanSweepSchedule: getEnv("ORPHAN_SWEEP_SCHEDULE", "*/15 * * * *"),
		DraftTTL:            getDurationEnv("DRAFT_TTL", 24*time.Hour),
		DraftSweepSchedule:  getEnv("DRAFT_SWEEP_SCHEDULE", "*/10 * * * *"),
	}
}

// SubmitGuardTTL is how long a submit guard is held: GuardTTL, raised to the
// worst case of one submission with maxImages images. Images upload in
// batches of UploadConcurrency, then the voice note, then the write.
func (c *Config) SubmitGuardTTL(maxImages int) time.Duration {
	const margin = 30 * time.Second

	conc := c.UploadConcurrency
	if conc < 1 {
		conc = 1
	}
	batches := (maxImages + conc - 1) / conc
	worst := time.Duration(batches+1)*c.UploadTimeout + c.PersistTimeout + margin
	if worst > c.GuardTTL {
		return worst
	}
	return c.GuardTTL
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Printf("Warning: invalid %s=%q, using default %s", key, value, defaultValue)
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
		log.Printf("Warning: invalid %s=%q, using default %d", key, value, defaultValue)
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
