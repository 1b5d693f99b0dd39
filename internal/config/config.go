package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	DatabaseURL        string
	DBMaxConns         int
	UseMemoryStore     bool
	DirectorySeedFile  string
	AuthJWTSecret      string
	CORSAllowedOrigins []string
	MaxBodyBytes       int64
	MaxUploadBytes     int64

	// Booking rules
	ClinicTimezone         string
	DefaultDurationMinutes int
	BookingOverlapMode     string
	MeetDomain             string
	WhatsAppBaseURL        string
	BookingRateLimitRPS    float64
	BookingRateLimitBurst  int

	// Redis directory cache
	RedisAddr         string
	RedisPassword     string
	RedisTLS          bool
	DirectoryCacheTTL time.Duration

	// Object storage for assignment attachments
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	AttachmentsBucket   string
	AttachmentsPrefix   string
	AttachmentURLTTL    time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		DBMaxConns:         getEnvAsInt("DB_MAX_CONNS", 10),
		UseMemoryStore:     getEnvAsBool("USE_MEMORY_STORE", false),
		DirectorySeedFile:  getEnv("DIRECTORY_SEED_FILE", ""),
		AuthJWTSecret:      getEnv("AUTH_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		MaxBodyBytes:       getEnvAsInt64("MAX_BODY_BYTES", 1<<20),
		MaxUploadBytes:     getEnvAsInt64("MAX_UPLOAD_BYTES", 32<<20),

		ClinicTimezone:         getEnv("CLINIC_TIMEZONE", "Europe/Istanbul"),
		DefaultDurationMinutes: getEnvAsInt("DEFAULT_DURATION_MINUTES", 50),
		BookingOverlapMode:     strings.ToLower(strings.TrimSpace(getEnv("BOOKING_OVERLAP_MODE", "start-in-window"))),
		MeetDomain:             getEnv("MEET_DOMAIN", "meet.google.com"),
		WhatsAppBaseURL:        getEnv("WHATSAPP_BASE_URL", "https://wa.me"),
		BookingRateLimitRPS:    getEnvAsFloat("BOOKING_RATE_LIMIT_RPS", 1),
		BookingRateLimitBurst:  getEnvAsInt("BOOKING_RATE_LIMIT_BURST", 10),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisTLS:          getEnvAsBool("REDIS_TLS", false),
		DirectoryCacheTTL: getEnvAsDuration("DIRECTORY_CACHE_TTL", 5*time.Minute),

		AWSRegion:           getEnv("AWS_REGION", "eu-central-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		AttachmentsBucket:   getEnv("ATTACHMENTS_BUCKET", ""),
		AttachmentsPrefix:   getEnv("ATTACHMENTS_PREFIX", ""),
		AttachmentURLTTL:    getEnvAsDuration("ATTACHMENT_URL_TTL", time.Hour),
	}
}

// ClinicLocation resolves the practice time zone, falling back to UTC.
func (c *Config) ClinicLocation() *time.Location {
	if c == nil || strings.TrimSpace(c.ClinicTimezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil && value > 0 {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
