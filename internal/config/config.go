package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	Provider    string `env:"MODEL_PROVIDER" envDefault:"gemini"`
	Instruction string `env:"INVOICE_INSTRUCTION"`

	GeminiAPIKey     string `env:"GEMINI_API_KEY"`
	GoogleAPIKey     string `env:"GOOGLE_API_KEY"`
	GeminiModel      string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	GeminiBaseURL    string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	GeminiAPIVersion string `env:"GEMINI_API_VERSION" envDefault:"v1beta"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	AnthropicAPIKey    string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel     string `env:"ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-5-20250929"`
	AnthropicMaxTokens int64  `env:"ANTHROPIC_MAX_TOKENS" envDefault:"4096"`
	AnthropicBaseURL   string `env:"ANTHROPIC_BASE_URL"`

	WebAddr string `env:"WEB_ADDR" envDefault:":8080"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	Debug     bool   `env:"DEBUG" envDefault:"false"`

	PreferIPv4  bool          `env:"PREFER_IPV4" envDefault:"true"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"3m"`

	TelegramToken      string        `env:"TELEGRAM_BOT_TOKEN"`
	MediaGroupDebounce time.Duration `env:"MEDIA_GROUP_DEBOUNCE" envDefault:"1200ms"`
	MaxConcurrent      int           `env:"MAX_CONCURRENT" envDefault:"4"`
}

// Load reads the environment and checks that the selected model provider
// has a key. Callers load .env themselves before calling Load.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.GeminiAPIKey = strings.TrimSpace(cfg.GeminiAPIKey)
	cfg.GoogleAPIKey = strings.TrimSpace(cfg.GoogleAPIKey)
	cfg.OpenAIAPIKey = strings.TrimSpace(cfg.OpenAIAPIKey)
	cfg.AnthropicAPIKey = strings.TrimSpace(cfg.AnthropicAPIKey)
	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)

	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = cfg.GoogleAPIKey
	}

	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return Config{}, errors.New("GEMINI_API_KEY (or GOOGLE_API_KEY) is required")
		}
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return Config{}, errors.New("OPENAI_API_KEY is required")
		}
	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return Config{}, errors.New("ANTHROPIC_API_KEY is required")
		}
	default:
		return Config{}, fmt.Errorf("unknown MODEL_PROVIDER %q", cfg.Provider)
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 3 * time.Minute
	}
	if cfg.MediaGroupDebounce <= 0 {
		cfg.MediaGroupDebounce = 1200 * time.Millisecond
	}
	if cfg.AnthropicMaxTokens <= 0 {
		cfg.AnthropicMaxTokens = 4096
	}

	return cfg, nil
}

// RequireTelegram is checked by the bot binary only.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}
