package database

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"fiscus/internal/logger"
)

// Config holds the PostgreSQL connection settings.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// NewConfig reads connection settings from the environment, loading .env
// first when present.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Plain environment variables are fine; .env is a convenience.
		logger.Get().Debug(".env file not found, using environment variables")
	}

	return &Config{
		Host:     envOr("DB_HOST", "localhost"),
		Port:     envOr("DB_PORT", "5432"),
		User:     envOr("DB_USER", "fiscus"),
		Password: envOr("DB_PASSWORD", "fiscus"),
		DBName:   envOr("DB_NAME", "fiscus"),
		SSLMode:  envOr("DB_SSLMODE", "disable"),
	}, nil
}

// DSN returns the connection string in keyword form for the GORM driver.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// URL returns the connection string in URL form for golang-migrate.
func (c *Config) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
