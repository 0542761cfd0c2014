// ABOUTME: Tagtrack configuration management with backend selection
// ABOUTME: Handles settings, ingestion and logging options, and the storage backend factory

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harper/tagtrack/internal/storage"
)

// Config stores tagtrack configuration.
type Config struct {
	// Backend selects the storage backend: "sqlite" (default), "badger", "postgres", or "memory".
	Backend string `json:"backend,omitempty"`

	// DataDir is the root directory for data storage.
	// SQLite puts tagtrack.db here and Badger uses a badger/ subdirectory.
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/tagtrack.
	DataDir string `json:"data_dir,omitempty"`

	// PostgresDSN is the connection string used by the postgres backend.
	PostgresDSN string `json:"postgres_dsn,omitempty"`

	// HTTPAddr is the listen address for `tagtrack serve`.
	HTTPAddr string `json:"http_addr,omitempty"`

	// DisplayTimezone is an IANA zone name used when printing timestamps. Defaults to UTC.
	DisplayTimezone string `json:"display_timezone,omitempty"`

	Log  LogConfig  `json:"log,omitempty"`
	MQTT MQTTConfig `json:"mqtt,omitempty"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level      string `json:"level,omitempty"`
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
}

// MQTTConfig controls the optional MQTT ingestion subscriber.
type MQTTConfig struct {
	Enabled  bool   `json:"enabled,omitempty"`
	Broker   string `json:"broker,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Topic    string `json:"topic,omitempty"`
	QoS      byte   `json:"qos,omitempty"`
}

const (
	defaultDBFilename = "tagtrack.db"
	defaultBadgerDir  = "badger"
	defaultHTTPAddr   = ":8080"
	defaultLogLevel   = "info"
	defaultMQTTBroker = "tcp://localhost:1883"
	defaultMQTTTopic  = "tagtrack/+/location"
)

var validBackends = []string{storage.BackendSQLite, storage.BackendBadger, storage.BackendPostgres, storage.BackendMemory}

var validLogLevels = []string{"trace", "debug", "info", "warn", "error", "disabled"}

// GetBackend returns the configured backend, defaulting to "sqlite".
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return storage.BackendSQLite
	}
	return c.Backend
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return defaultDataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetHTTPAddr returns the HTTP listen address, defaulting to :8080.
func (c *Config) GetHTTPAddr() string {
	if c.HTTPAddr == "" {
		return defaultHTTPAddr
	}
	return c.HTTPAddr
}

// GetLogLevel returns the configured log level, defaulting to info.
func (c *Config) GetLogLevel() string {
	if c.Log.Level == "" {
		return defaultLogLevel
	}
	return strings.ToLower(c.Log.Level)
}

// GetMQTTBroker returns the broker URL with its default applied.
func (c *Config) GetMQTTBroker() string {
	if c.MQTT.Broker == "" {
		return defaultMQTTBroker
	}
	return c.MQTT.Broker
}

// GetMQTTTopic returns the subscription filter with its default applied.
func (c *Config) GetMQTTTopic() string {
	if c.MQTT.Topic == "" {
		return defaultMQTTTopic
	}
	return c.MQTT.Topic
}

// GetMQTTClientID returns the client id, falling back to tagtrack-<hostname>.
func (c *Config) GetMQTTClientID() string {
	if c.MQTT.ClientID != "" {
		return c.MQTT.ClientID
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return "tagtrack-" + host
}

// DisplayLocation resolves DisplayTimezone, returning UTC when unset.
func (c *Config) DisplayLocation() (*time.Location, error) {
	if c.DisplayTimezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return nil, fmt.Errorf("display_timezone %q: %w", c.DisplayTimezone, err)
	}
	return loc, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if !contains(validBackends, c.GetBackend()) {
		return fmt.Errorf("unknown backend: %q (valid: %s)", c.Backend, strings.Join(validBackends, ", "))
	}
	if !contains(validLogLevels, c.GetLogLevel()) {
		return fmt.Errorf("unknown log level: %q (valid: %s)", c.Log.Level, strings.Join(validLogLevels, ", "))
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt qos must be 0, 1, or 2, got %d", c.MQTT.QoS)
	}
	if _, err := c.DisplayLocation(); err != nil {
		return err
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// defaultDataDir returns the default XDG data directory for tagtrack.
func defaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "tagtrack")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// SQLitePath is where the sqlite backend keeps its database file.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.GetDataDir(), defaultDBFilename)
}

// BadgerDir is where the badger backend keeps its files.
func (c *Config) BadgerDir() string {
	return filepath.Join(c.GetDataDir(), defaultBadgerDir)
}

// OpenStorage creates a Repository implementation based on the configured backend.
func (c *Config) OpenStorage(ctx context.Context) (storage.Repository, error) {
	switch backend := c.GetBackend(); backend {
	case storage.BackendSQLite:
		return storage.NewSQLiteDB(c.SQLitePath())
	case storage.BackendBadger:
		return storage.NewBadgerStore(c.BadgerDir())
	case storage.BackendPostgres:
		return storage.NewPostgresDB(ctx, c.PostgresDSN)
	case storage.BackendMemory:
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown backend: %q", backend)
	}
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "tagtrack", "config.json")
}

// Load reads config from path, or from GetConfigPath when path is empty.
// A missing default config file is created with default settings.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = GetConfigPath()
	}

	data, err := os.ReadFile(path) //nolint:gosec // config path is chosen by the user
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			cfg := &Config{Backend: storage.BackendSQLite}
			if saveErr := cfg.SaveTo(path); saveErr != nil {
				fmt.Fprintf(os.Stderr, "warning: could not save default config: %v\n", saveErr)
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes config to the default path.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo writes config to path, replacing any existing file atomically.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil { //nolint:gosec // 0750 is appropriate for config directory
		return fmt.Errorf("create config directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmpName, path)
}
