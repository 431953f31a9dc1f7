// Package config collects process configuration from a .env file and the
// environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/abelaba/job-parser/internal/domain"
)

type Config struct {
	Server  ServerConfig
	LLM     LLMConfig
	Storage StorageConfig
	Log     LogConfig

	// Defaults seeds the settings store. Values saved through the settings
	// API take precedence.
	Defaults domain.Settings
}

type ServerConfig struct {
	Host        string
	Port        string
	ReleaseMode bool
	RateLimit   float64 // requests per second, 0 disables
	RateBurst   int

	// ExtensionOrigins restricts CORS to these origins when set.
	ExtensionOrigins []string
}

type LLMConfig struct {
	BaseURL      string
	ExtractModel string
	CompareModel string
	Timeout      time.Duration
}

type StorageConfig struct {
	SQLitePath  string
	HTTPTimeout time.Duration
}

type LogConfig struct {
	Level  slog.Level
	Format string // "text" or "json"
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:      "127.0.0.1",
			Port:      "8000",
			RateLimit: 5,
			RateBurst: 10,
		},
		LLM: LLMConfig{
			BaseURL:      "https://api.groq.com/openai/v1",
			ExtractModel: "mistral-saba-24b",
			CompareModel: "gemma2-9b-it",
			Timeout:      60 * time.Second,
		},
		Storage: StorageConfig{
			SQLitePath:  "jobparser.sqlite",
			HTTPTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  slog.LevelInfo,
			Format: "text",
		},
	}
}

// Load reads .env (when present) and then the process environment.
// Environment variables win over values in .env.
func Load() (Config, error) {
	_ = godotenv.Load()
	return loadWith(os.Getenv)
}

func loadWith(getenv func(string) string) (Config, error) {
	cfg := defaults()

	if v := getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	for _, o := range strings.Split(getenv("EXTENSION_ORIGINS"), ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			cfg.Server.ExtensionOrigins = append(cfg.Server.ExtensionOrigins, o)
		}
	}
	cfg.Server.ReleaseMode = getenv("MODE") == "release"
	if v := getenv("RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return Config{}, fmt.Errorf("config: RATE_LIMIT must be a non-negative number, got %q", v)
		}
		cfg.Server.RateLimit = f
	}
	if v := getenv("RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("config: RATE_BURST must be a positive integer, got %q", v)
		}
		cfg.Server.RateBurst = n
	}

	if v := getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = strings.TrimRight(v, "/")
	}
	if v := getenv("LLM_EXTRACT_MODEL"); v != "" {
		cfg.LLM.ExtractModel = v
	}
	if v := getenv("LLM_COMPARE_MODEL"); v != "" {
		cfg.LLM.CompareModel = v
	}
	if v := getenv("LLM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: LLM_TIMEOUT: %w", err)
		}
		cfg.LLM.Timeout = d
	}

	if v := getenv("JOBPARSER_DB"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := getenv("NOTION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: NOTION_TIMEOUT: %w", err)
		}
		cfg.Storage.HTTPTimeout = d
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		if err := cfg.Log.Level.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("config: LOG_LEVEL: %w", err)
		}
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		if v != "text" && v != "json" {
			return Config{}, fmt.Errorf("config: LOG_FORMAT must be text or json, got %q", v)
		}
		cfg.Log.Format = v
	}

	cfg.Defaults = domain.Settings{
		ProviderAPIKey: getenv("GROQ_API_KEY"),
		DatabaseAPIKey: getenv("NOTION_API_KEY"),
		DatabaseID:     NormalizeNotionID(getenv("NOTION_DATABASE_ID")),
		BaseURL:        getenv("NOTION_BASE_URL"),
		ResumeText:     getenv("RESUME_TEXT"),
	}

	return cfg, nil
}

// NewLogger builds the process logger.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Log.Level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NormalizeNotionID removes dashes and surrounding space from a database id.
func NormalizeNotionID(id string) string {
	id = strings.TrimSpace(id)
	return strings.ReplaceAll(id, "-", "")
}

// Mask hides all but the ends of a secret for logging.
func Mask(s string) string {
	if len(s) <= 10 {
		if s == "" {
			return ""
		}
		return "****"
	}
	return s[:4] + "…" + s[len(s)-4:]
}
