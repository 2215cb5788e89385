package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	NewRelic     NewRelicConfig
	Log          LogConfig
	Delivery     DeliveryConfig
	Services     ServicesConfig
	Notification NotificationConfig
	Kafka        KafkaConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// DeliveryConfig holds the driver search and assignment policy.
type DeliveryConfig struct {
	SearchRadiusMeters float64
	CandidateLimit     int
	MaxReserveAttempts int
	GeoSearchCount     int
	AssignLockTTL      time.Duration
	OperationTimeout   time.Duration
}

// ServicesConfig holds the base URLs of the collaborator services.
type ServicesConfig struct {
	AuthURL         string
	RestaurantURL   string
	NotificationURL string
	RequestTimeout  time.Duration
}

// NotificationConfig holds best-effort notification settings.
type NotificationConfig struct {
	Timeout           time.Duration
	CustomerRecipient string
}

// KafkaConfig holds the delivery event stream configuration.
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first if present; real environment wins.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "delivery"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "delivery-service"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Delivery: DeliveryConfig{
			SearchRadiusMeters: getFloatEnv("DELIVERY_SEARCH_RADIUS_METERS", 10000),
			CandidateLimit:     getIntEnv("DELIVERY_CANDIDATE_LIMIT", 1),
			MaxReserveAttempts: getIntEnv("DELIVERY_MAX_RESERVE_ATTEMPTS", 3),
			GeoSearchCount:     getIntEnv("DELIVERY_GEO_SEARCH_COUNT", 50),
			AssignLockTTL:      getDurationEnv("DELIVERY_ASSIGN_LOCK_TTL", 30*time.Second),
			OperationTimeout:   getDurationEnv("DELIVERY_OPERATION_TIMEOUT", 10*time.Second),
		},
		Services: ServicesConfig{
			AuthURL:         getEnv("AUTH_SERVICE_URL", "http://localhost:3004"),
			RestaurantURL:   getEnv("RESTAURANT_SERVICE_URL", "http://localhost:3000"),
			NotificationURL: getEnv("NOTIFICATION_SERVICE_URL", "http://localhost:3005"),
			RequestTimeout:  getDurationEnv("UPSTREAM_TIMEOUT", 5*time.Second),
		},
		Notification: NotificationConfig{
			Timeout:           getDurationEnv("NOTIFY_TIMEOUT", 3*time.Second),
			CustomerRecipient: getEnv("NOTIFY_CUSTOMER_RECIPIENT", "customer@example.com"),
		},
		Kafka: KafkaConfig{
			Enabled: getBoolEnv("KAFKA_ENABLED", false),
			Brokers: getListEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC", "delivery-events"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
