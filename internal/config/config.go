package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	// SellerName heads rendered statements.
	SellerName string

	// BusinessTimeZone decides which calendar day "today" is.
	BusinessTimeZone string

	Telemetry TelemetryConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Upstream UpstreamConfig

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	RateLimit RateLimitConfig

	AMQPURL      string
	AMQPExchange string

	PricingSource string
}

// TelemetryConfig drives logging and OpenTelemetry export.
type TelemetryConfig struct {
	LogLevel      string
	LogFormat     string
	OTelEnabled   bool
	OTLPEndpoint  string
	OTLPProtocol  string
	SamplingRatio float64
}

// UpstreamConfig points at the MilkSeller REST API.
type UpstreamConfig struct {
	BaseURL       string
	Timeout       time.Duration
	RetryAttempts int
	PhoneNumber   string
	Password      string
}

// RateLimitConfig bounds how hard callers can drive the upstream API. It only
// applies when Redis is configured.
type RateLimitConfig struct {
	UpstreamRate    float64
	UpstreamBurst   int
	SnapshotLockTTL time.Duration
}

const (
	PricingSourceConfig   = "config"
	PricingSourceDatabase = "database"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:          getenv("APP_SERVICE", "milkseller"),
		AppVersion:       getenv("APP_VERSION", "0.1.0"),
		Environment:      getenv("ENVIRONMENT", "development"),
		HTTPAddr:         getenv("HTTP_ADDR", ":8080"),
		SellerName:       getenv("SELLER_NAME", "MilkSeller"),
		BusinessTimeZone: getenv("BUSINESS_TIMEZONE", "Asia/Kolkata"),
		Telemetry: TelemetryConfig{
			LogLevel:      strings.ToLower(getenv("LOG_LEVEL", "info")),
			LogFormat:     strings.ToLower(getenv("LOG_FORMAT", "json")),
			OTelEnabled:   getenvBool("OTEL_ENABLED", true),
			OTLPEndpoint:  getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			OTLPProtocol:  strings.ToLower(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
		DBType:        getenv("DATABASE_TYPE", "postgres"),
		DBHost:        getenv("DATABASE_HOST", "localhost"),
		DBPort:        getenv("DATABASE_PORT", "5432"),
		DBName:        getenv("DATABASE_NAME", "milkseller"),
		DBUser:        getenv("DATABASE_USER", "postgres"),
		DBPassword:    getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:     getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn: getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn: getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		Upstream: UpstreamConfig{
			BaseURL:       strings.TrimRight(getenv("MILKSELLER_API_URL", "http://192.168.1.6:8000/api"), "/"),
			Timeout:       getenvDuration("MILKSELLER_API_TIMEOUT", 30*time.Second),
			RetryAttempts: getenvInt("MILKSELLER_API_RETRY_ATTEMPTS", 3),
			PhoneNumber:   strings.TrimSpace(getenv("MILKSELLER_API_PHONE", "")),
			Password:      getenv("MILKSELLER_API_PASSWORD", ""),
		},
		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),
		CacheTTL:      getenvDuration("SUBSCRIPTION_CACHE_TTL", 45*time.Second),
		RateLimit: RateLimitConfig{
			UpstreamRate:    getenvFloat("RATE_LIMIT_UPSTREAM_RATE", 2),
			UpstreamBurst:   getenvInt("RATE_LIMIT_UPSTREAM_BURST", 10),
			SnapshotLockTTL: getenvDuration("SNAPSHOT_LOCK_TTL", 30*time.Second),
		},
		AMQPURL:       strings.TrimSpace(getenv("AMQP_URL", "")),
		AMQPExchange:  getenv("AMQP_EXCHANGE", "milkseller.events"),
		PricingSource: normalizePricingSource(getenv("PRICING_SOURCE", PricingSourceDatabase)),
	}
	// Seconds.
	cfg.DBConnMaxLifetime = getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800)
	cfg.DBConnMaxIdleTime = getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300)

	return cfg
}

// Location resolves BusinessTimeZone, falling back to UTC.
func (c Config) Location() *time.Location {
	name := strings.TrimSpace(c.BusinessTimeZone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("[config] unknown BUSINESS_TIMEZONE %q, using UTC", name)
		return time.UTC
	}
	return loc
}

func normalizePricingSource(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case PricingSourceConfig:
		return PricingSourceConfig
	default:
		return PricingSourceDatabase
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, value, def)
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %s", key, value, def)
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %g", key, value, def)
		return def
	}
	return parsed
}
