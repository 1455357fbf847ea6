package database

import (
	"fmt"
	"time"
)

// Config holds all settings needed to connect to a database.
// It mirrors the connection record the dashboard exposes to the user:
// host, port, database, user, password.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// ConnectTimeout is the time limit for establishing a new connection.
	ConnectTimeout time.Duration
}

// DefaultConfig returns the standard local-postgres defaults. Host and password
// intentionally have no baked-in values — they come from config or flags.
func DefaultConfig() *Config {
	return &Config{
		Port:           5432,
		Database:       "demo",
		User:           "postgres",
		SSLMode:        "disable",
		ConnectTimeout: 10 * time.Second,
	}
}

// BuildDSN constructs the postgres connection string.
func (c *Config) BuildDSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, port, c.User, c.Password, c.Database, sslMode,
	)
}
