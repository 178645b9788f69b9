// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Redis       RedisConfig
	Geocoder    GeocoderConfig
	Engine      EngineConfig
	Log         LogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL          string
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// NATSConfig holds NATS configuration. An empty URL disables events.
type NATSConfig struct {
	URL            string
	SubjectPrefix  string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// RedisConfig holds the name cache configuration. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	NameTTL  time.Duration
}

// GeocoderConfig holds geocoding provider configuration
type GeocoderConfig struct {
	BaseURL     string
	UserAgent   string
	Timeout     time.Duration
	MinInterval time.Duration
}

// EngineConfig holds aggregation configuration
type EngineConfig struct {
	Resolution        int
	DefaultHops       int
	MaxHops           int
	DefaultMapStart   time.Time
	LocationLimit     int
	MapCacheCapacity  int
	MapCacheTTL       time.Duration
	MapWarmInterval   time.Duration
	NamerConcurrency  int
	RelevanceTopN     int
	RelevanceWindow   time.Duration
	DefaultStartDate  time.Time
	DefaultRadiusKm   float64
	DefaultTrendGroup string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from a .env file, when present, and environment variables
func Load() (Config, error) {
	// Missing .env is fine, the environment may be set directly
	_ = godotenv.Load()

	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("PORT", 3000),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 25*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			URL:          getEnv("DB_URL", ""),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "streetsafe"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", ""),
			SubjectPrefix:  getEnv("NATS_SUBJECT_PREFIX", "streetsafe"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			NameTTL:  getEnvAsDuration("REDIS_NAME_TTL", 7*24*time.Hour),
		},
		Geocoder: GeocoderConfig{
			BaseURL:     getEnv("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
			UserAgent:   getEnv("GEOCODER_USER_AGENT", "StreetSafe-App/1.0"),
			Timeout:     getEnvAsDuration("GEOCODER_TIMEOUT", 10*time.Second),
			MinInterval: getEnvAsDuration("GEOCODER_MIN_INTERVAL", 1*time.Second),
		},
		Engine: EngineConfig{
			Resolution:        getEnvAsInt("ENGINE_RESOLUTION", 9),
			DefaultHops:       getEnvAsInt("ENGINE_DEFAULT_HOPS", 3),
			MaxHops:           getEnvAsInt("ENGINE_MAX_HOPS", 50),
			DefaultMapStart:   getEnvAsDate("ENGINE_DEFAULT_MAP_START", time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)),
			LocationLimit:     getEnvAsInt("ENGINE_LOCATION_LIMIT", 50),
			MapCacheCapacity:  getEnvAsInt("ENGINE_MAP_CACHE_CAPACITY", 512),
			MapCacheTTL:       getEnvAsDuration("ENGINE_MAP_CACHE_TTL", 0),
			MapWarmInterval:   getEnvAsDuration("ENGINE_MAP_WARM_INTERVAL", 30*time.Minute),
			NamerConcurrency:  getEnvAsInt("ENGINE_NAMER_CONCURRENCY", 4),
			RelevanceTopN:     getEnvAsInt("ENGINE_RELEVANCE_TOP_N", 5),
			RelevanceWindow:   getEnvAsDuration("ENGINE_RELEVANCE_WINDOW", 365*24*time.Hour),
			DefaultStartDate:  getEnvAsDate("ENGINE_DEFAULT_START_DATE", time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)),
			DefaultRadiusKm:   getEnvAsFloat("ENGINE_DEFAULT_RADIUS_KM", 3),
			DefaultTrendGroup: getEnv("ENGINE_DEFAULT_TREND_GROUP", "month"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	return config, validate(config)
}

// ConnString returns the Postgres connection string
func (c DatabaseConfig) ConnString() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// validate checks if config is valid
func validate(config Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", config.Server.Port)
	}
	if config.Engine.Resolution < 0 || config.Engine.Resolution > 15 {
		return fmt.Errorf("engine resolution must be between 0 and 15, got %d", config.Engine.Resolution)
	}
	if config.Engine.DefaultHops < 1 || config.Engine.MaxHops < config.Engine.DefaultHops {
		return fmt.Errorf("hop bounds must satisfy 1 <= default (%d) <= max (%d)", config.Engine.DefaultHops, config.Engine.MaxHops)
	}
	if config.Engine.MapCacheCapacity < 1 {
		return fmt.Errorf("map cache capacity must be positive")
	}
	if config.Geocoder.BaseURL == "" {
		return fmt.Errorf("geocoder base URL must be set")
	}
	if config.Geocoder.UserAgent == "" && config.Environment != "development" {
		return fmt.Errorf("geocoder user agent must be set in non-development environments")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDate(key string, defaultValue time.Time) time.Time {
	valueStr := getEnv(key, "")
	if value, err := time.Parse("2006-01-02", valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
