package llm

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Provider names accepted in Config.Provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// Config holds all LLM provider configuration. It is embedded under the
// `llm` key of the service config file.
type Config struct {
	Provider string `yaml:"provider"`

	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
	Retry      RetryConfig      `yaml:"retry"`

	// Timeout bounds a single Generate call including retries.
	Timeout time.Duration `yaml:"timeout"`
}

type AnthropicConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type OpenRouterConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"` // Default: https://openrouter.ai/api/v1
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
	Multiplier  float64       `yaml:"multiplier"`
}

// DefaultConfig returns the stock configuration. Guides are long-form
// prose, so the default Anthropic model is Sonnet rather than Haiku.
func DefaultConfig() Config {
	return Config{
		Provider: ProviderAnthropic,
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		OpenRouter: OpenRouterConfig{
			Model: "anthropic/claude-sonnet-4.5",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 90 * time.Second,
	}
}

// ConfigFromEnv builds a Config from COUNSELOR_* environment variables on
// top of the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	return cfg
}

// ApplyEnv overrides fields from COUNSELOR_* environment variables. Unset
// or malformed variables leave the field alone.
func (c *Config) ApplyEnv() {
	setString(&c.Provider, "COUNSELOR_LLM_PROVIDER")
	setDuration(&c.Timeout, "COUNSELOR_LLM_TIMEOUT")
	if v, err := strconv.Atoi(os.Getenv("COUNSELOR_LLM_MAX_ATTEMPTS")); err == nil && v > 0 {
		c.Retry.MaxAttempts = v
	}

	setString(&c.Anthropic.APIKey, "COUNSELOR_ANTHROPIC_API_KEY")
	setString(&c.Anthropic.Model, "COUNSELOR_ANTHROPIC_MODEL")
	setString(&c.Anthropic.BaseURL, "COUNSELOR_ANTHROPIC_BASE_URL")

	setString(&c.OpenAI.APIKey, "COUNSELOR_OPENAI_API_KEY")
	setString(&c.OpenAI.Model, "COUNSELOR_OPENAI_MODEL")
	setString(&c.OpenAI.BaseURL, "COUNSELOR_OPENAI_BASE_URL")

	setString(&c.Gemini.APIKey, "COUNSELOR_GEMINI_API_KEY")
	setString(&c.Gemini.Model, "COUNSELOR_GEMINI_MODEL")

	setString(&c.OpenRouter.APIKey, "COUNSELOR_OPENROUTER_API_KEY")
	setString(&c.OpenRouter.Model, "COUNSELOR_OPENROUTER_MODEL")
	setString(&c.OpenRouter.BaseURL, "COUNSELOR_OPENROUTER_BASE_URL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		*dst = d
	}
}

// DiscoverConfig checks the vendors' standard API key variables in priority
// order (Anthropic, OpenAI, Gemini, OpenRouter) and returns a Config for the
// first one found. Returns (Config{}, false) if none is set.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()

	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		cfg.Provider = ProviderAnthropic
		cfg.Anthropic.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.Provider = ProviderOpenAI
		cfg.OpenAI.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		cfg.Provider = ProviderGemini
		cfg.Gemini.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENROUTER_API_KEY"); k != "" {
		cfg.Provider = ProviderOpenRouter
		cfg.OpenRouter.APIKey = k
		return cfg, true
	}

	return Config{}, false
}

// Validate checks that the selected provider has its API key and that the
// retry settings are usable.
func (c Config) Validate() error {
	var key string
	switch c.Provider {
	case ProviderAnthropic:
		key = c.Anthropic.APIKey
	case ProviderOpenAI:
		key = c.OpenAI.APIKey
	case ProviderGemini:
		key = c.Gemini.APIKey
	case ProviderOpenRouter:
		key = c.OpenRouter.APIKey
	case ProviderMock:
		key = "-"
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if key == "" {
		return fmt.Errorf("COUNSELOR_%s_API_KEY is required for the %s provider", envName(c.Provider), c.Provider)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("llm retry max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}

func envName(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI"
	case ProviderGemini:
		return "GEMINI"
	case ProviderOpenRouter:
		return "OPENROUTER"
	}
	return "ANTHROPIC"
}
