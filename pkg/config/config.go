package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultBearerToken is the public bearer the x.com web client sends on every request.
const DefaultBearerToken = "AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs%3D1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA"

// HardDailyLimit is the ceiling no configured daily unfollow limit may exceed
const HardDailyLimit = 400

// Config holds all configuration options for followscope
type Config struct {
	// Session and endpoint settings for x.com
	X XConfig `yaml:"x" json:"x"`

	// Request pacing
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Harvest settings
	Scan ScanConfig `yaml:"scan" json:"scan"`

	// Bulk unfollow settings
	Unfollow UnfollowConfig `yaml:"unfollow" json:"unfollow"`

	// Local persistence
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Progress relay and metrics endpoint
	Relay RelayConfig `yaml:"relay" json:"relay"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// XConfig holds the web session and API location
type XConfig struct {
	AuthToken   string        `yaml:"auth_token" json:"auth_token"`
	CT0         string        `yaml:"ct0" json:"ct0"`
	UserID      string        `yaml:"user_id" json:"user_id"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent"`
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	BearerToken string        `yaml:"bearer_token" json:"bearer_token"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// RateLimitConfig holds pacing for harvesting requests
type RateLimitConfig struct {
	RequestsPerMinute   int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize           int           `yaml:"burst_size" json:"burst_size"`
	PageDelayMin        time.Duration `yaml:"page_delay_min" json:"page_delay_min"`
	PageDelayMax        time.Duration `yaml:"page_delay_max" json:"page_delay_max"`
	BackoffMin          time.Duration `yaml:"backoff_min" json:"backoff_min"`
	BackoffMax          time.Duration `yaml:"backoff_max" json:"backoff_max"`
	MaxRateLimitRetries int           `yaml:"max_rate_limit_retries" json:"max_rate_limit_retries"`
}

// ScanConfig holds hydration and resume settings
type ScanConfig struct {
	MaxPages           int    `yaml:"max_pages" json:"max_pages"`
	DuplicatePageLimit int    `yaml:"duplicate_page_limit" json:"duplicate_page_limit"`
	InactiveAfterDays  int    `yaml:"inactive_after_days" json:"inactive_after_days"`
	Resume             bool   `yaml:"resume" json:"resume"`
	CheckpointDir      string `yaml:"checkpoint_dir" json:"checkpoint_dir"`
}

// UnfollowConfig holds the mutation engine defaults
type UnfollowConfig struct {
	DailyLimit          int           `yaml:"daily_limit" json:"daily_limit"`
	DelayMin            time.Duration `yaml:"delay_min" json:"delay_min"`
	DelayMax            time.Duration `yaml:"delay_max" json:"delay_max"`
	DryRun              bool          `yaml:"dry_run" json:"dry_run"`
	RateLimitWait       time.Duration `yaml:"rate_limit_wait" json:"rate_limit_wait"`
	MaxRateLimitRetries int           `yaml:"max_rate_limit_retries" json:"max_rate_limit_retries"`
}

// StorageConfig holds the SQLite database location
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" json:"database_path"`
}

// RelayConfig holds the progress relay HTTP surface
type RelayConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	Address        string   `yaml:"address" json:"address"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	File   string `yaml:"file" json:"file"`
	Format string `yaml:"format" json:"format"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		X: XConfig{
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
			BaseURL:     "https://x.com/i/api",
			BearerToken: DefaultBearerToken,
			Timeout:     30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute:   30,
			BurstSize:           1,
			PageDelayMin:        2 * time.Second,
			PageDelayMax:        4 * time.Second,
			BackoffMin:          60 * time.Second,
			BackoffMax:          90 * time.Second,
			MaxRateLimitRetries: 30,
		},
		Scan: ScanConfig{
			MaxPages:           50,
			DuplicatePageLimit: 3,
			InactiveAfterDays:  365,
			Resume:             false,
			CheckpointDir:      "",
		},
		Unfollow: UnfollowConfig{
			DailyLimit:          200,
			DelayMin:            30 * time.Second,
			DelayMax:            60 * time.Second,
			DryRun:              true,
			RateLimitWait:       5 * time.Minute,
			MaxRateLimitRetries: 6,
		},
		Storage: StorageConfig{
			DatabasePath: defaultDatabasePath(),
		},
		Relay: RelayConfig{
			Enabled:        false,
			Address:        "127.0.0.1:8787",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			File:   "",
			Format: "console",
		},
	}
}

func defaultDatabasePath() string {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "followscope", "followscope.db")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "followscope", "followscope.db")
}

// LoadFromEnv loads configuration from FOLLOWSCOPE_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
	setBool := func(key string, dst *bool) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}

	setString("FOLLOWSCOPE_AUTH_TOKEN", &c.X.AuthToken)
	setString("FOLLOWSCOPE_CT0", &c.X.CT0)
	setString("FOLLOWSCOPE_USER_ID", &c.X.UserID)
	setString("FOLLOWSCOPE_USER_AGENT", &c.X.UserAgent)
	setString("FOLLOWSCOPE_BASE_URL", &c.X.BaseURL)

	setInt("FOLLOWSCOPE_REQUESTS_PER_MINUTE", &c.RateLimit.RequestsPerMinute)

	setInt("FOLLOWSCOPE_DAILY_LIMIT", &c.Unfollow.DailyLimit)
	setBool("FOLLOWSCOPE_DRY_RUN", &c.Unfollow.DryRun)

	setString("FOLLOWSCOPE_DB_PATH", &c.Storage.DatabasePath)

	setString("FOLLOWSCOPE_RELAY_ADDR", &c.Relay.Address)
	if origins := os.Getenv("FOLLOWSCOPE_RELAY_ORIGINS"); origins != "" {
		c.Relay.AllowedOrigins = strings.Split(origins, ",")
	}

	setString("FOLLOWSCOPE_LOG_LEVEL", &c.Logging.Level)
	setString("FOLLOWSCOPE_LOG_FILE", &c.Logging.File)

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	for _, loc := range SearchPaths() {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// SearchPaths lists config file locations in order of precedence
func SearchPaths() []string {
	home := os.Getenv("HOME")
	return []string{
		".followscope.yaml",
		".followscope.yml",
		filepath.Join(home, ".config", "followscope", "config.yaml"),
		filepath.Join(home, ".config", "followscope", "config.yml"),
	}
}

// Validate checks if the configuration is valid.
// Session credentials are not required here; a missing session surfaces as
// an auth error on the first request so that `auth` subcommands can run.
func (c *Config) Validate() error {
	var errs []error

	if c.X.BaseURL == "" {
		errs = append(errs, errors.New("base URL is required"))
	}
	if c.X.Timeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}
	if c.RateLimit.PageDelayMin < 0 || c.RateLimit.PageDelayMax < c.RateLimit.PageDelayMin {
		errs = append(errs, errors.New("page delay range is invalid"))
	}
	if c.RateLimit.BackoffMin < 0 || c.RateLimit.BackoffMax < c.RateLimit.BackoffMin {
		errs = append(errs, errors.New("rate limit backoff range is invalid"))
	}
	if c.RateLimit.MaxRateLimitRetries < 0 {
		errs = append(errs, errors.New("max rate limit retries cannot be negative"))
	}

	if c.Scan.MaxPages <= 0 {
		errs = append(errs, errors.New("max pages must be positive"))
	}
	if c.Scan.DuplicatePageLimit <= 0 {
		errs = append(errs, errors.New("duplicate page limit must be positive"))
	}
	if c.Scan.InactiveAfterDays <= 0 {
		errs = append(errs, errors.New("inactive threshold must be positive"))
	}

	if c.Unfollow.DailyLimit > HardDailyLimit {
		errs = append(errs, fmt.Errorf("daily limit cannot exceed %d", HardDailyLimit))
	}
	if c.Unfollow.DelayMin < 0 || c.Unfollow.DelayMax < c.Unfollow.DelayMin {
		errs = append(errs, errors.New("unfollow delay range is invalid"))
	}
	if c.Unfollow.MaxRateLimitRetries < 0 {
		errs = append(errs, errors.New("max rate limit retries cannot be negative"))
	}

	if c.Storage.DatabasePath == "" {
		errs = append(errs, errors.New("database path is required"))
	}

	if c.Relay.Enabled && c.Relay.Address == "" {
		errs = append(errs, errors.New("relay address is required when relay is enabled"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, errors.New("invalid log format"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only flags the user actually set should be present in the map.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["auth-token"].(string); ok && v != "" {
		c.X.AuthToken = v
	}
	if v, ok := flags["ct0"].(string); ok && v != "" {
		c.X.CT0 = v
	}
	if v, ok := flags["user-id"].(string); ok && v != "" {
		c.X.UserID = v
	}
	if v, ok := flags["daily-limit"].(int); ok && v > 0 {
		c.Unfollow.DailyLimit = v
	}
	if v, ok := flags["dry-run"].(bool); ok {
		c.Unfollow.DryRun = v
	}
	if v, ok := flags["resume"].(bool); ok {
		c.Scan.Resume = v
	}
	if v, ok := flags["db"].(string); ok && v != "" {
		c.Storage.DatabasePath = v
	}
	if v, ok := flags["listen"].(string); ok && v != "" {
		c.Relay.Enabled = true
		c.Relay.Address = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".followscope.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
