package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Port          int    `toml:"port"`
	LogLevel      string `toml:"log_level"`
	OpenAIAPIKey  string `toml:"openai_api_key"`
	OpenAIBaseURL string `toml:"openai_base_url"`
	EmbedModel    string `toml:"embed_model"`
	ChatModel     string `toml:"chat_model"`
	PublicDir     string `toml:"public_dir"`
	MaxUploadMB   int    `toml:"max_upload_mb"`
	DatabaseURL   string `toml:"database_url"`
	NatsURL       string `toml:"nats_url"`
	NatsToken     string `toml:"nats_token"`
	APIToken      string `toml:"api_token"`
}

func Defaults() Config {
	return Config{
		Port:          8000,
		LogLevel:      "info",
		OpenAIBaseURL: "https://api.openai.com/v1",
		EmbedModel:    "text-embedding-3-small",
		ChatModel:     "gpt-5-mini",
		PublicDir:     "public",
		MaxUploadMB:   50,
	}
}

// Load reads the configuration from the environment.
func Load() Config {
	return fromEnv(Defaults())
}

// LoadFile reads a TOML file over the defaults, then applies environment overrides.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fromEnv(cfg), nil
}

func fromEnv(base Config) Config {
	return Config{
		Port:          envInt("CHATSEARCH_PORT", base.Port),
		LogLevel:      envStr("LOG_LEVEL", base.LogLevel),
		OpenAIAPIKey:  envStr("OPENAI_API_KEY", base.OpenAIAPIKey),
		OpenAIBaseURL: envStr("OPENAI_BASE_URL", base.OpenAIBaseURL),
		EmbedModel:    envStr("EMBED_MODEL", base.EmbedModel),
		ChatModel:     envStr("CHAT_MODEL", base.ChatModel),
		PublicDir:     envStr("PUBLIC_DIR", base.PublicDir),
		MaxUploadMB:   envInt("MAX_UPLOAD_MB", base.MaxUploadMB),
		DatabaseURL:   envStr("DATABASE_URL", base.DatabaseURL),
		NatsURL:       envStr("NATS_URL", base.NatsURL),
		NatsToken:     envStr("NATS_TOKEN", base.NatsToken),
		APIToken:      envStr("CHATSEARCH_API_TOKEN", base.APIToken),
	}
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
