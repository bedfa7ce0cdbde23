package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database (results ledger)
	DatabaseDriver string // "postgres" or "sqlite"
	DatabaseURL    string
	MigrateOnStart bool

	// Redis (empty URL disables snapshots and fan-out)
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Tables
	TickHz                 int
	AIThinkMillis          int
	TableIdleMinutes       int
	IdleWorkerPollInterval int // seconds
	TuningFile             string

	// Security
	JWTSecret            string
	TableTokenTTLMinutes int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:    getEnv("DATABASE_URL", "~/.eightball/ledger.db"),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", true),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Tables
		TickHz:                 getEnvInt("TICK_HZ", 60),
		AIThinkMillis:          getEnvInt("AI_THINK_MS", 650),
		TableIdleMinutes:       getEnvInt("TABLE_IDLE_MINUTES", 30),
		IdleWorkerPollInterval: getEnvInt("IDLE_WORKER_POLL_SECONDS", 15),
		TuningFile:             getEnv("TUNING_FILE", ""),

		// Security
		JWTSecret:            getEnv("JWT_SECRET", "change-me-in-production"),
		TableTokenTTLMinutes: getEnvInt("TABLE_TOKEN_TTL_MINUTES", 240),
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
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
