// Package config loads service settings from a YAML file and COUNSELOR_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/canbcare/counselor/internal/dispatch"
	"github.com/canbcare/counselor/internal/guide"
	"github.com/canbcare/counselor/internal/llm"
)

// EnvConfigPath names the config file when --config is not given.
const EnvConfigPath = "COUNSELOR_CONFIG"

// Config is the full service configuration.
type Config struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"` // json or console

	ConcurrencyLimit int    `yaml:"concurrency_limit"`
	BatchChunkSize   int    `yaml:"batch_chunk_size"`
	CancelPolicy     string `yaml:"cancel_policy"`

	HTTPAddr    string `yaml:"http_addr"`
	DBPath      string `yaml:"db_path"` // empty resolves under XDG_DATA_HOME when opened
	CatalogPath string `yaml:"catalog_path"` // empty uses the built-in catalog

	LLM   llm.Config   `yaml:"llm"`
	Guide guide.Config `yaml:"guide"`
}

// Default returns the built-in settings.
func Default() Config {
	opts := dispatch.DefaultOptions()
	return Config{
		Environment:      "prod",
		LogLevel:         "info",
		LogFormat:        "json",
		ConcurrencyLimit: opts.ConcurrencyLimit,
		BatchChunkSize:   opts.ChunkSize,
		CancelPolicy:     string(opts.CancelPolicy),
		HTTPAddr:         ":8080",
		LLM:              llm.DefaultConfig(),
		Guide:            guide.DefaultConfig(),
	}
}

// Load builds the configuration: defaults, then the YAML file at path (or
// $COUNSELOR_CONFIG), then environment overrides. A missing file is an
// error only when a path was given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigPath)
		explicit = path != ""
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case explicit || !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg.applyEnv()

	// With no provider key anywhere, fall back to the vendors' own key
	// variables before giving up.
	if cfg.LLM.Validate() != nil && os.Getenv("COUNSELOR_LLM_PROVIDER") == "" {
		if found, ok := llm.DiscoverConfig(); ok {
			found.Timeout = cfg.LLM.Timeout
			found.Retry = cfg.LLM.Retry
			cfg.LLM = found
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	envOverride(&c.Environment, "COUNSELOR_ENVIRONMENT")
	envOverride(&c.LogLevel, "COUNSELOR_LOG_LEVEL")
	envOverride(&c.LogFormat, "COUNSELOR_LOG_FORMAT")
	envOverrideInt(&c.ConcurrencyLimit, "COUNSELOR_CONCURRENCY_LIMIT")
	envOverrideInt(&c.BatchChunkSize, "COUNSELOR_BATCH_CHUNK_SIZE")
	envOverride(&c.CancelPolicy, "COUNSELOR_CANCEL_POLICY")
	envOverride(&c.HTTPAddr, "COUNSELOR_HTTP_ADDR")
	envOverride(&c.DBPath, "COUNSELOR_DB")
	envOverride(&c.CatalogPath, "COUNSELOR_CATALOG_PATH")
	c.LLM.ApplyEnv()
}

func envOverride(field *string, key string) {
	if v := os.Getenv(key); v != "" {
		*field = v
	}
}

func envOverrideInt(field *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*field = n
		}
	}
}

// Validate checks the non-LLM settings. LLM credentials are checked when a
// provider is built, so classify-only commands work without a key.
func (c *Config) Validate() error {
	if _, err := c.DispatchOptions(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log_format must be json or console, got %q", c.LogFormat)
	}
	return nil
}

// DispatchOptions converts the batch settings for the dispatcher.
func (c *Config) DispatchOptions() (dispatch.Options, error) {
	policy, err := dispatch.ParseCancelPolicy(c.CancelPolicy)
	if err != nil {
		return dispatch.Options{}, err
	}
	if c.ConcurrencyLimit < 1 {
		return dispatch.Options{}, fmt.Errorf("concurrency_limit must be at least 1, got %d", c.ConcurrencyLimit)
	}
	if c.BatchChunkSize < 1 {
		return dispatch.Options{}, fmt.Errorf("batch_chunk_size must be at least 1, got %d", c.BatchChunkSize)
	}
	return dispatch.Options{
		ConcurrencyLimit: c.ConcurrencyLimit,
		ChunkSize:        c.BatchChunkSize,
		CancelPolicy:     policy,
	}, nil
}

// Development reports whether the environment is a development one.
func (c *Config) Development() bool {
	return c.Environment == "dev" || c.Environment == "development" || c.Environment == "local"
}
