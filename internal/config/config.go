package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DBAdapter     string
	SQLiteFile    string
	JwtSecret     string
	LogLevel      string
	Env           string
	PruneInterval time.Duration
	// Revocation storage; "db" keeps the denylist next to the users,
	// "redis" puts it in Redis with native TTL expiry.
	RevocationAdapter string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	// PostgreSQL connection settings
	PostgresDSN      string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// BuildPostgresDSN constructs a PostgreSQL DSN from individual components or returns the provided DSN
func (c *Config) BuildPostgresDSN() (string, error) {
	// If DSN is provided directly, use it
	if c.PostgresDSN != "" {
		return c.PostgresDSN, nil
	}

	if c.PostgresHost == "" {
		return "", errors.New("POSTGRES_HOST or POSTGRES_DSN must be set")
	}
	if c.PostgresUser == "" {
		return "", errors.New("POSTGRES_USER must be set")
	}
	if c.PostgresDB == "" {
		return "", errors.New("POSTGRES_DB must be set")
	}

	port := c.PostgresPort
	if port == "" {
		port = "5432"
	}

	sslMode := c.PostgresSSLMode
	if sslMode == "" {
		sslMode = "disable" // Default to disable for local development
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		c.PostgresHost, port, c.PostgresUser, c.PostgresDB, sslMode)

	if c.PostgresPassword != "" {
		dsn += " password=" + c.PostgresPassword
	}

	return dsn, nil
}

func New() (*Config, error) {
	// Optional .env for local development; real deployments set env vars.
	_ = godotenv.Load()

	c := &Config{
		Port:              getenv("PORT", "8080"),
		DBAdapter:         getenv("DB_ADAPTER", "postgres"),
		SQLiteFile:        getenv("SQLITE_FILE", "./data/leaderauth.db"),
		JwtSecret:         getenv("JWT_SECRET", ""),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		Env:               strings.ToLower(getenv("ENV", "development")),
		RevocationAdapter: getenv("REVOCATION_ADAPTER", "db"),
		RedisAddr:         getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getenv("REDIS_PASSWORD", ""),
		// PostgreSQL settings
		PostgresDSN:      getenv("POSTGRES_DSN", ""),
		PostgresHost:     getenv("POSTGRES_HOST", getenv("DB_HOST", "localhost")),
		PostgresPort:     getenv("POSTGRES_PORT", getenv("DB_PORT", "5432")),
		PostgresUser:     getenv("POSTGRES_USER", getenv("DB_USER", "leader")),
		PostgresPassword: getenv("POSTGRES_PASSWORD", getenv("DB_PASSWORD", "")),
		PostgresDB:       getenv("POSTGRES_DB", getenv("DB_NAME", "leaderauth")),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", getenv("DB_SSLMODE", "disable")),
	}

	// A service minting tokens it cannot verify later is worse than one that
	// refuses to start.
	if c.JwtSecret == "" {
		return nil, errors.New("JWT_SECRET must be set")
	}

	if n, err := strconv.Atoi(getenv("REDIS_DB", "0")); err == nil {
		c.RedisDB = n
	} else {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	interval := getenv("PRUNE_INTERVAL", "1h")
	d, err := time.ParseDuration(interval)
	if err != nil {
		return nil, fmt.Errorf("invalid PRUNE_INTERVAL: %s", interval)
	}
	c.PruneInterval = d

	switch c.DBAdapter {
	case "postgres":
		dsn, err := c.BuildPostgresDSN()
		if err != nil {
			return nil, fmt.Errorf("postgres configuration error: %w", err)
		}
		c.PostgresDSN = dsn
	case "sqlite":
		if c.SQLiteFile == "" {
			return nil, errors.New("SQLITE_FILE must be set when DB_ADAPTER=sqlite")
		}
	case "memory":
	default:
		return nil, fmt.Errorf("unsupported DB_ADAPTER: %s (supported: postgres, sqlite, memory)", c.DBAdapter)
	}

	switch c.RevocationAdapter {
	case "db", "redis":
	default:
		return nil, fmt.Errorf("unsupported REVOCATION_ADAPTER: %s (supported: db, redis)", c.RevocationAdapter)
	}

	// normalize port
	if _, err := strconv.Atoi(c.Port); err != nil {
		return nil, fmt.Errorf("invalid PORT: %s", c.Port)
	}

	return c, nil
}
