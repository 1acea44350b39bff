package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds all configuration for the simulation service
type Config struct {
	// Simulation
	TickInterval           time.Duration
	TrainSpeed             float64 // world units per second
	PassengerSpawnInterval time.Duration
	StationSpawnInterval   time.Duration
	BoardingInterval       time.Duration
	Seed                   int64
	WorldFile              string

	// Telemetry storage
	DatabasePath      string
	DatabaseURL       string
	TelemetryInterval time.Duration
	RetentionDuration time.Duration

	// HTTP
	Port               string
	CORSAllowedOrigins []string

	LogLevel string
}

// Load reads .env files if present, then configuration from environment
// variables with sensible defaults
func Load() *Config {
	if err := godotenv.Load(".env"); err == nil {
		zap.S().Infof("Config: loaded .env")
	}
	if err := godotenv.Overload(".env.local"); err == nil {
		zap.S().Infof("Config: loaded .env.local overrides")
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only
func FromEnv() *Config {
	return &Config{
		// Simulation
		TickInterval:           time.Duration(getEnvPositive("TICK_INTERVAL_MS", 50)) * time.Millisecond,
		TrainSpeed:             getEnvFloat("TRAIN_SPEED", 20),
		PassengerSpawnInterval: time.Duration(getEnvInt("PASSENGER_SPAWN_INTERVAL_MS", 2000)) * time.Millisecond,
		StationSpawnInterval:   time.Duration(getEnvInt("STATION_SPAWN_INTERVAL_S", 30)) * time.Second,
		BoardingInterval:       time.Duration(getEnvInt("BOARDING_INTERVAL_MS", 300)) * time.Millisecond,
		Seed:                   int64(getEnvInt("SEED", 0)),
		WorldFile:              getEnv("WORLD_FILE", ""),

		// Telemetry storage
		DatabasePath:      getEnv("SQLITE_DATABASE", "data/metrosim.db"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		TelemetryInterval: time.Duration(getEnvPositive("TELEMETRY_INTERVAL_S", 10)) * time.Second,
		RetentionDuration: time.Duration(getEnvPositive("RETENTION_HOURS", 24)) * time.Hour,

		// HTTP
		Port:               getEnv("PORT", "8081"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		zap.S().Warnf("Config: %s=%q is not an integer, using %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvPositive is getEnvInt for values that feed a ticker or a window.
func getEnvPositive(key string, defaultValue int) int {
	value := getEnvInt(key, defaultValue)
	if value <= 0 {
		zap.S().Warnf("Config: %s=%d must be positive, using %d", key, value, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
		zap.S().Warnf("Config: %s=%q is not a number, using %v", key, value, defaultValue)
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
