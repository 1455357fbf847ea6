// Package config loads schemalens configuration from a YAML file with
// environment variable overrides. A .env file in the working directory is
// honored, so credentials never need to live in the YAML itself.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"

	"github.com/dkovalev/schemalens/internal/database"
	"github.com/dkovalev/schemalens/internal/filestore"
	"github.com/dkovalev/schemalens/internal/logger"
)

// Config is the root configuration record.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Graph    GraphConfig    `yaml:"graph"`
	Artifact ArtifactConfig `yaml:"artifact_store"`
}

// LogConfig configures the zerolog wrapper.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig holds the default connection parameters. The dashboard may
// override any of them per extraction request. Host and password carry no
// defaults on purpose — supply them here, via flags, or via environment.
type DatabaseConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	Database          string `yaml:"database"`
	User              string `yaml:"user"`
	Password          string `yaml:"password"`
	SSLMode           string `yaml:"sslmode"`
	ConnectTimeoutSec int    `yaml:"connect_timeout_sec"`
}

// ServerConfig configures the dashboard HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// GraphConfig tunes the force-directed renderer.
type GraphConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Seed   uint64 `yaml:"seed"`
}

// ArtifactConfig configures the optional diagram publisher.
type ArtifactConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
}

// Default returns the configuration used when no file is given: standard
// postgres connection defaults (port 5432, database "demo", user "postgres")
// with host and password left for the environment.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "json"},
		Database: DatabaseConfig{
			Port:              5432,
			Database:          "demo",
			User:              "postgres",
			SSLMode:           "disable",
			ConnectTimeoutSec: 10,
		},
		Server: ServerConfig{Addr: ":8080"},
		Graph:  GraphConfig{Width: 1600, Height: 1120, Seed: 42},
	}
}

// Load reads the YAML file at path (optional), applies environment overrides,
// and returns the resulting Config. A .env file is loaded first when present.
func Load(path string) (*Config, error) {
	// Missing .env is fine; it only exists in development setups.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides file values with SCHEMALENS_* environment variables.
func (c *Config) applyEnv() {
	envStr("SCHEMALENS_DB_HOST", &c.Database.Host)
	envInt("SCHEMALENS_DB_PORT", &c.Database.Port)
	envStr("SCHEMALENS_DB_NAME", &c.Database.Database)
	envStr("SCHEMALENS_DB_USER", &c.Database.User)
	envStr("SCHEMALENS_DB_PASSWORD", &c.Database.Password)
	envStr("SCHEMALENS_SERVER_ADDR", &c.Server.Addr)
	envStr("SCHEMALENS_LOG_LEVEL", &c.Log.Level)
	envStr("SCHEMALENS_MINIO_ACCESS_KEY", &c.Artifact.AccessKey)
	envStr("SCHEMALENS_MINIO_SECRET_KEY", &c.Artifact.SecretKey)
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// DatabaseConfig converts the YAML record into the driver-facing config.
func (c *Config) DatabaseConfig() *database.Config {
	return &database.Config{
		Host:           c.Database.Host,
		Port:           c.Database.Port,
		Database:       c.Database.Database,
		User:           c.Database.User,
		Password:       c.Database.Password,
		SSLMode:        c.Database.SSLMode,
		ConnectTimeout: time.Duration(c.Database.ConnectTimeoutSec) * time.Second,
	}
}

// LoggerConfig converts the YAML record into the logger-facing config.
func (c *Config) LoggerConfig() *logger.Config {
	return &logger.Config{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		Output: os.Stdout,
	}
}

// ArtifactStoreConfig converts the YAML record into the store-facing config.
// Returns nil when publishing is disabled.
func (c *Config) ArtifactStoreConfig() *filestore.Config {
	if !c.Artifact.Enabled {
		return nil
	}
	return &filestore.Config{
		Endpoint:  c.Artifact.Endpoint,
		AccessKey: c.Artifact.AccessKey,
		SecretKey: c.Artifact.SecretKey,
		UseSSL:    c.Artifact.UseSSL,
		Bucket:    c.Artifact.Bucket,
	}
}
