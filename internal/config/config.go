// Package config loads malacounter's YAML configuration.
//
// A config file is optional: without one every field takes its default.
// Values may reference environment variables (${VAR}), and .env/.env.local
// files in the working directory are loaded first without overriding the
// process environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/malacounter/internal/foundation/errors"
)

// Config is the root configuration document.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Journal JournalConfig `yaml:"journal"`
	Notice  NoticeConfig  `yaml:"notice"`
	Resync  ResyncConfig  `yaml:"resync"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Display DisplayConfig `yaml:"display"`
}

// StorageConfig selects where count, round and totalCount are persisted.
type StorageConfig struct {
	Backend Backend    `yaml:"backend"`
	DataDir string     `yaml:"data_dir"`
	NATS    NATSConfig `yaml:"nats,omitempty"`
}

// NATSConfig configures the JetStream key-value backend.
type NATSConfig struct {
	URL     string        `yaml:"url"`
	Bucket  string        `yaml:"bucket"`
	Timeout time.Duration `yaml:"timeout"`
}

// JournalConfig controls the SQLite transition journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"` // defaults to <data_dir>/journal.db
}

// NoticeConfig controls how long a "round completed" notice stays active.
type NoticeConfig struct {
	Duration time.Duration `yaml:"duration"`
}

// ResyncConfig controls retrying of failed store writes. After repeated
// failures attempts are spaced out by Backoff, up to MaxDelay.
type ResyncConfig struct {
	Interval time.Duration    `yaml:"interval"`
	Backoff  RetryBackoffMode `yaml:"backoff"`
	MaxDelay time.Duration    `yaml:"max_delay"`
}

type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

// DisplayConfig affects CLI output only.
type DisplayConfig struct {
	Locale string `yaml:"locale"`
}

// Load reads configuration from configPath. A missing file is an error.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", configPath).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read config file").
			WithContext("path", configPath).
			Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but returns defaults when the file does not exist.
func LoadOrDefault(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		loadEnvFiles()
		cfg := &Config{}
		cfg.applyDefaults()
		return cfg, cfg.Validate()
	}
	return Load(configPath)
}

// Parse decodes a YAML document, expands environment variables, applies
// defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").Fatal().Build()
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendJSON
	}
	c.Storage.Backend = NormalizeBackend(string(c.Storage.Backend))
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = DefaultDataDir()
	}
	if c.Storage.NATS.URL == "" {
		c.Storage.NATS.URL = "nats://127.0.0.1:4222"
	}
	if c.Storage.NATS.Bucket == "" {
		c.Storage.NATS.Bucket = "malacounter"
	}
	if c.Storage.NATS.Timeout == 0 {
		c.Storage.NATS.Timeout = 5 * time.Second
	}
	if c.Notice.Duration == 0 {
		c.Notice.Duration = 1500 * time.Millisecond
	}
	if c.Resync.Interval == 0 {
		c.Resync.Interval = 30 * time.Second
	}
	c.Resync.Backoff = NormalizeRetryBackoff(string(c.Resync.Backoff))
	if c.Resync.MaxDelay == 0 {
		c.Resync.MaxDelay = 5 * time.Minute
	}
	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
	if c.Metrics.Address == "" {
		c.Metrics.Address = "127.0.0.1:9108"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Display.Locale == "" {
		c.Display.Locale = "en"
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := backendNormalizer.NormalizeWithError(string(c.Storage.Backend)); err != nil {
		return errors.ConfigError("invalid storage backend").WithCause(err).Build()
	}
	if c.Storage.Backend != BackendMemory && c.Storage.DataDir == "" {
		return errors.ConfigError("storage.data_dir is required").Build()
	}
	if c.Storage.Backend == BackendNATS {
		if c.Storage.NATS.URL == "" || c.Storage.NATS.Bucket == "" {
			return errors.ConfigError("storage.nats.url and storage.nats.bucket are required").Build()
		}
	}
	if c.Notice.Duration < 0 {
		return errors.ConfigError("notice.duration must be positive").
			WithContext("value", c.Notice.Duration.String()).
			Build()
	}
	if c.Resync.Interval < time.Second {
		return errors.ConfigError("resync.interval must be at least 1s").
			WithContext("value", c.Resync.Interval.String()).
			Build()
	}
	if c.Resync.MaxDelay < c.Resync.Interval {
		return errors.ConfigError("resync.max_delay must not be shorter than resync.interval").
			WithContext("value", c.Resync.MaxDelay.String()).
			Build()
	}
	if _, err := language.Parse(c.Display.Locale); err != nil {
		return errors.ConfigError("display.locale is not a valid language tag").WithCause(err).Build()
	}
	return nil
}

// StatePath is the JSON backend's state file.
func (c *Config) StatePath() string {
	return filepath.Join(c.Storage.DataDir, StateFileName)
}

// SQLitePath is the SQLite backend's database file.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.Storage.DataDir, "tally.db")
}

// JournalPath resolves the journal database location.
func (c *Config) JournalPath() string {
	if c.Journal.Path != "" {
		return c.Journal.Path
	}
	return filepath.Join(c.Storage.DataDir, "journal.db")
}

// StateFileName is the file the JSON backend writes inside data_dir.
const StateFileName = "tally-state.json"

// DefaultDataDir follows XDG_DATA_HOME, then ~/.local/share.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "malacounter")
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".local", "share", "malacounter")
	}
	return "./malacounter-data"
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).Build()
	}

	example := Config{
		Storage: StorageConfig{
			Backend: BackendJSON,
			DataDir: "${HOME}/.local/share/malacounter",
			NATS: NATSConfig{
				URL:     "nats://127.0.0.1:4222",
				Bucket:  "malacounter",
				Timeout: 5 * time.Second,
			},
		},
		Journal: JournalConfig{Enabled: true},
		Notice:  NoticeConfig{Duration: 1500 * time.Millisecond},
		Resync:  ResyncConfig{Interval: 30 * time.Second, Backoff: RetryBackoffExponential, MaxDelay: 5 * time.Minute},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		Metrics: MetricsConfig{Enabled: false, Address: "127.0.0.1:9108", Path: "/metrics"},
		Display: DisplayConfig{Locale: "en"},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "marshal example config").Build()
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "create config directory").Build()
		}
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}
