// Package config loads the host configuration for the TARA server and
// CLI from a YAML file, with environment overrides and compiled-in
// defaults. The engine itself takes no configuration; everything here
// belongs to the host (addresses, storage, policy data, event feed).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dd0wney/cluso-tara/pkg/validation"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Policy  PolicyConfig  `yaml:"policy"`
	Feed    FeedConfig    `yaml:"feed"`
	History HistoryConfig `yaml:"history"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the HTTP host.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects and configures the project store.
type StoreConfig struct {
	Backend     string `yaml:"backend"` // file|postgres
	DataDir     string `yaml:"data_dir"`
	DatabaseURL string `yaml:"database_url"`
	MaxArchives int    `yaml:"max_archives"`
}

// PolicyConfig points at the feasibility/matrix policy tables. An empty
// path selects the compiled-in defaults.
type PolicyConfig struct {
	Path string `yaml:"path"`
}

// FeedConfig controls the outbound recalculation event feed. An empty
// transport keeps the feed in-process only.
type FeedConfig struct {
	Transport  string `yaml:"transport"` // nng|zmq
	Address    string `yaml:"address"`
	BufferSize int    `yaml:"buffer_size"`
}

// HistoryConfig controls the host-side event log.
type HistoryConfig struct {
	Persistent    bool   `yaml:"persistent"`
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
	BufferSize    int    `yaml:"buffer_size"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Backend:     BackendFile,
			DataDir:     "./data/projects",
			MaxArchives: 5,
		},
		Feed: FeedConfig{
			Address:    "tcp://*:9290",
			BufferSize: 1000,
		},
		History: HistoryConfig{
			Dir:           "./data/history",
			RetentionDays: 365,
			BufferSize:    10000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file, fills unset fields with defaults,
// applies environment overrides and validates the result. An empty path
// skips the file and loads defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.normalize()
	cfg.applyEnv()

	if err := validation.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize backfills zero values the YAML file left unset.
func (c *Config) normalize() {
	defaults := Default()
	c.Server.Addr = validation.DefaultOr(c.Server.Addr, defaults.Server.Addr)
	c.Server.ShutdownTimeout = validation.DefaultOr(c.Server.ShutdownTimeout, defaults.Server.ShutdownTimeout)
	c.Store.Backend = validation.DefaultOr(c.Store.Backend, defaults.Store.Backend)
	c.Store.DataDir = validation.DefaultOr(c.Store.DataDir, defaults.Store.DataDir)
	c.Store.MaxArchives = validation.DefaultOr(c.Store.MaxArchives, defaults.Store.MaxArchives)
	c.Feed.Address = validation.DefaultOr(c.Feed.Address, defaults.Feed.Address)
	c.Feed.BufferSize = validation.DefaultOr(c.Feed.BufferSize, defaults.Feed.BufferSize)
	c.History.Dir = validation.DefaultOr(c.History.Dir, defaults.History.Dir)
	c.History.RetentionDays = validation.DefaultOr(c.History.RetentionDays, defaults.History.RetentionDays)
	c.History.BufferSize = validation.DefaultOr(c.History.BufferSize, defaults.History.BufferSize)
	c.Logging.Level = validation.DefaultOr(c.Logging.Level, defaults.Logging.Level)
}

// applyEnv overrides file values with TARA_* environment variables, so
// containerized deployments can skip the config file entirely.
func (c *Config) applyEnv() {
	setString := func(target *string, key string) {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}
	setString(&c.Server.Addr, "TARA_ADDR")
	setString(&c.Store.Backend, "TARA_STORE_BACKEND")
	setString(&c.Store.DataDir, "TARA_DATA_DIR")
	setString(&c.Store.DatabaseURL, "TARA_DATABASE_URL")
	setString(&c.Policy.Path, "TARA_POLICY_PATH")
	setString(&c.Feed.Transport, "TARA_FEED_TRANSPORT")
	setString(&c.Feed.Address, "TARA_FEED_ADDRESS")
	setString(&c.History.Dir, "TARA_HISTORY_DIR")
	setString(&c.Logging.Level, "TARA_LOG_LEVEL")
}

// Validate checks the configuration, collecting all errors.
func (c *Config) Validate() error {
	return validation.NewConfigValidator("tara").
		Required("server.addr", c.Server.Addr).
		MinDuration("server.shutdown_timeout", c.Server.ShutdownTimeout, time.Second).
		OneOf("store.backend", c.Store.Backend, []string{BackendFile, BackendPostgres}).
		When(c.Store.Backend == BackendFile, func(cv *validation.ConfigValidator) {
			cv.Required("store.data_dir", c.Store.DataDir)
			cv.Positive("store.max_archives", c.Store.MaxArchives)
		}).
		When(c.Store.Backend == BackendPostgres, func(cv *validation.ConfigValidator) {
			cv.Required("store.database_url", c.Store.DatabaseURL)
		}).
		When(c.Feed.Transport != "", func(cv *validation.ConfigValidator) {
			cv.OneOf("feed.transport", c.Feed.Transport, []string{"nng", "zmq"})
			cv.Required("feed.address", c.Feed.Address)
			cv.Positive("feed.buffer_size", c.Feed.BufferSize)
		}).
		When(c.History.Persistent, func(cv *validation.ConfigValidator) {
			cv.Required("history.dir", c.History.Dir)
			cv.Positive("history.retention_days", c.History.RetentionDays)
		}).
		Positive("history.buffer_size", c.History.BufferSize).
		OneOf("logging.level", c.Logging.Level, []string{"debug", "info", "warn", "error"}).
		Validate()
}
