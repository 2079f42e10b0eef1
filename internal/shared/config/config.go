package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"filegate/internal/shared/telemetry"
)

const (
	defaultMaxUploadBytes = 10 << 20 // 10MB
	defaultUploadAttempts = 3

	defaultRateLimitRPS         = 20
	defaultRateLimitBurst       = 40
	defaultUploadRateLimitRPS   = 2
	defaultUploadRateLimitBurst = 5
)

// Config holds application configuration.
type Config struct {
	Port             string
	CORSAllowOrigin  []string
	ObjectStoreType  string
	LocalStoreDir    string
	AWSRegion        string
	S3Bucket         string
	S3Prefix         string
	S3Endpoint       string
	S3ForcePathStyle bool
	S3AccessKeyID    string
	S3SecretKey      string
	SSEKMSKeyID      string
	DatabaseURL      string
	Env              string
	LogLevel         string
	MaxUploadBytes   int64
	UploadAttempts   int

	// Token-bucket limits per user (or client IP). A zero rate disables the limit.
	RateLimitRPS         float64
	RateLimitBurst       int
	UploadRateLimitRPS   float64
	UploadRateLimitBurst int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		telemetry.Warn("config.database_url.missing", map[string]any{"env": env})
	}

	return Config{
		Port:             getEnv("PORT", "8080"),
		CORSAllowOrigin:  splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType:  normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:    getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:        getEnv("AWS_REGION", ""),
		S3Bucket:         getEnv("S3_BUCKET", ""),
		S3Prefix:         getEnv("S3_PREFIX", ""),
		S3Endpoint:       getEnv("S3_ENDPOINT", ""),
		S3ForcePathStyle: strings.EqualFold(getEnv("S3_FORCE_PATH_STYLE", "false"), "true"),
		S3AccessKeyID:    getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretKey:      getEnv("S3_SECRET_ACCESS_KEY", ""),
		SSEKMSKeyID:      getEnv("SSE_KMS_KEY_ID", ""),
		DatabaseURL:      dbURL,
		Env:              env,
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		MaxUploadBytes:   getEnvInt64("MAX_UPLOAD_BYTES", defaultMaxUploadBytes),
		UploadAttempts:   int(getEnvInt64("UPLOAD_MAX_ATTEMPTS", defaultUploadAttempts)),

		RateLimitRPS:         getEnvFloat("RATE_LIMIT_RPS", defaultRateLimitRPS),
		RateLimitBurst:       int(getEnvInt64("RATE_LIMIT_BURST", defaultRateLimitBurst)),
		UploadRateLimitRPS:   getEnvFloat("UPLOAD_RATE_LIMIT_RPS", defaultUploadRateLimitRPS),
		UploadRateLimitBurst: int(getEnvInt64("UPLOAD_RATE_LIMIT_BURST", defaultUploadRateLimitBurst)),
	}
}

// Validate reports settings that make the service unusable.
func (c Config) Validate() error {
	if c.ObjectStoreType == "s3" && strings.TrimSpace(c.S3Bucket) == "" {
		return errors.New("OBJECT_STORE=s3 requires S3_BUCKET")
	}
	if c.Env == "production" && strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("DATABASE_URL is required in production")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if c.UploadAttempts <= 0 {
		return errors.New("UPLOAD_MAX_ATTEMPTS must be positive")
	}
	if c.RateLimitRPS < 0 || c.UploadRateLimitRPS < 0 {
		return errors.New("rate limits must not be negative")
	}
	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		telemetry.Warn("config.invalid_int", map[string]any{"key": key, "err": err})
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		telemetry.Warn("config.invalid_float", map[string]any{"key": key, "err": err})
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
