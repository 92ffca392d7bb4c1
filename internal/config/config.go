package config

import (
	"os"
	"strconv"
	"time"
)

// Advisory providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	Port                  int
	NatsURL               string
	NatsToken             string
	DatabaseURL           string
	LogLevel              string
	AdvisoryProvider      string
	AdvisoryTimeout       time.Duration
	AdvisoryDefaultPrompt string
	AnthropicAPIKey       string
	AnthropicModel        string
	OpenAIAPIKey          string
	OpenAIModel           string
	SlackBotToken         string
	SlackChannel          string
	APIToken              string
	JWTSecret             string
}

func Load() Config {
	return Config{
		Port:                  envInt("PULSE_PORT", 8760),
		NatsURL:               envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:             envStr("NATS_TOKEN", ""),
		DatabaseURL:           envStr("DATABASE_URL", ""),
		LogLevel:              envStr("LOG_LEVEL", "info"),
		AdvisoryProvider:      envStr("ADVISORY_PROVIDER", ProviderOpenAI),
		AdvisoryTimeout:       envDuration("ADVISORY_TIMEOUT", 45*time.Second),
		AdvisoryDefaultPrompt: envStr("ADVISORY_DEFAULT_PROMPT", ""),
		AnthropicAPIKey:       envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:        envStr("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		OpenAIAPIKey:          envStr("OPENAI_API_KEY", ""),
		OpenAIModel:           envStr("OPENAI_MODEL", "gpt-4o-mini"),
		SlackBotToken:         envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:          envStr("SLACK_REPORTS_CHANNEL", ""),
		APIToken:              envStr("PULSE_API_TOKEN", ""),
		JWTSecret:             envStr("PULSE_JWT_SECRET", ""),
	}
}

// AdvisoryKey returns the API key of the configured provider.
func (c Config) AdvisoryKey() string {
	if c.AdvisoryProvider == ProviderAnthropic {
		return c.AnthropicAPIKey
	}
	return c.OpenAIAPIKey
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
