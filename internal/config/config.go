// Package config resolves OxiSign settings from defaults, an optional YAML
// file, a .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr    string `mapstructure:"http_addr"`
	AppURL      string `mapstructure:"app_url"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	GelfAddr    string `mapstructure:"gelf_addr"`

	OpenAIKey     string        `mapstructure:"openai_api_key"`
	OpenAIModel   string        `mapstructure:"openai_model"`
	OpenAIBaseURL string        `mapstructure:"openai_base_url"`
	LLMTimeout    time.Duration `mapstructure:"llm_timeout"`
	QuizFallback  bool          `mapstructure:"quiz_fallback"`

	WebhookURL         string        `mapstructure:"email_webhook_url"`
	WebhookTimeout     time.Duration `mapstructure:"webhook_timeout"`
	WebhookMaxAttempts int           `mapstructure:"webhook_max_attempts"`
	WebhookWorkers     int           `mapstructure:"webhook_workers"`

	StoreDriver string `mapstructure:"store_driver"`
	DBPath      string `mapstructure:"db_path"`
	DatabaseURL string `mapstructure:"database_url"`
	OxiDBHost   string `mapstructure:"oxidb_host"`
	OxiDBPort   int    `mapstructure:"oxidb_port"`
	PoolSize    int    `mapstructure:"pool_size"`

	DocumentsDir    string `mapstructure:"documents_dir"`
	AdminAPIKey     string `mapstructure:"admin_api_key"`
	CleanupEnabled  bool   `mapstructure:"cleanup_enabled"`
	CleanupTimezone string `mapstructure:"cleanup_timezone"`
}

var envNames = map[string]string{
	"http_addr":            "OXISIGN_ADDR",
	"app_url":              "APP_URL",
	"environment":          "ENVIRONMENT",
	"log_level":            "LOG_LEVEL",
	"gelf_addr":            "GELF_ADDR",
	"openai_api_key":       "OPENAI_API_KEY",
	"openai_model":         "OPENAI_MODEL",
	"openai_base_url":      "OPENAI_BASE_URL",
	"llm_timeout":          "LLM_TIMEOUT",
	"quiz_fallback":        "QUIZ_FALLBACK",
	"email_webhook_url":    "EMAIL_WEBHOOK_URL",
	"webhook_timeout":      "WEBHOOK_TIMEOUT",
	"webhook_max_attempts": "WEBHOOK_MAX_ATTEMPTS",
	"webhook_workers":      "WEBHOOK_WORKERS",
	"store_driver":         "STORE_DRIVER",
	"db_path":              "DB_PATH",
	"database_url":         "DATABASE_URL",
	"oxidb_host":           "OXIDB_HOST",
	"oxidb_port":           "OXIDB_PORT",
	"pool_size":            "OXIDB_POOL_SIZE",
	"documents_dir":        "DOCUMENTS_DIR",
	"admin_api_key":        "ADMIN_API_KEY",
	"cleanup_enabled":      "CLEANUP_ENABLED",
	"cleanup_timezone":     "CLEANUP_TIMEZONE",
}

// SetDefaults registers every key with its default and environment name.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8000")
	v.SetDefault("app_url", "http://localhost:8000")
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("gelf_addr", "")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("llm_timeout", 30*time.Second)
	v.SetDefault("quiz_fallback", true)
	v.SetDefault("email_webhook_url", "")
	v.SetDefault("webhook_timeout", 30*time.Second)
	v.SetDefault("webhook_max_attempts", 3)
	v.SetDefault("webhook_workers", 2)
	v.SetDefault("store_driver", "sqlite")
	v.SetDefault("db_path", "db/esign.db")
	v.SetDefault("database_url", "")
	v.SetDefault("oxidb_host", "127.0.0.1")
	v.SetDefault("oxidb_port", 4444)
	v.SetDefault("pool_size", 3)
	v.SetDefault("documents_dir", "")
	v.SetDefault("admin_api_key", "")
	v.SetDefault("cleanup_enabled", false)
	v.SetDefault("cleanup_timezone", "Asia/Kolkata")

	for key, env := range envNames {
		_ = v.BindEnv(key, env)
	}
}

// LoadDotEnv reads path (".env" when empty) into the environment without
// overriding variables that are already set. A missing default file is fine.
func LoadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads the optional YAML file and decodes v into a Config.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "memory", "sqlite", "oxidb":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("store_driver postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown store_driver %q", c.StoreDriver)
	}
	if c.WebhookMaxAttempts < 1 {
		return errors.New("webhook_max_attempts must be at least 1")
	}
	if c.WebhookWorkers < 1 {
		return errors.New("webhook_workers must be at least 1")
	}
	if _, err := time.LoadLocation(c.CleanupTimezone); err != nil {
		return fmt.Errorf("cleanup_timezone: %w", err)
	}
	return nil
}

func (c *Config) OxiDBAddr() string {
	return fmt.Sprintf("%s:%d", c.OxiDBHost, c.OxiDBPort)
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.CleanupTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
