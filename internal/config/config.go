package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"currency-tracker/internal/domain/model"
)

type Config struct {
	Server      ServerConfig
	ExchangeAPI ExchangeAPIConfig
	Ingest      IngestConfig
	Scheduler   SchedulerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	HTTP        HTTPConfig
	Log         LogConfig
}

type ServerConfig struct {
	Port         int           `validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `validate:"gt=0"`
	WriteTimeout time.Duration `validate:"gt=0"`
	IdleTimeout  time.Duration `validate:"gt=0"`
}

type ExchangeAPIConfig struct {
	BaseURL string        `validate:"required,url"`
	Timeout time.Duration `validate:"gt=0"`
}

type IngestConfig struct {
	TrackedCurrencies []model.Currency `validate:"min=1"`
	Concurrency       int              `validate:"min=1,max=64"`
}

type SchedulerConfig struct {
	Cron       string `validate:"required"`
	Timezone   string `validate:"required,timezone"`
	RunOnStart bool
}

// Location resolves Timezone. LoadConfig has already validated it.
func (s SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DatabaseConfig selects the Postgres store when URL is set, the in-memory store otherwise.
type DatabaseConfig struct {
	URL           string `validate:"omitempty,url"`
	RunMigrations bool
}

// RedisConfig selects the Redis cache when URL is set, the in-memory cache otherwise.
type RedisConfig struct {
	URL       string `validate:"omitempty,url"`
	KeyPrefix string
}

type HTTPConfig struct {
	RateLimit          string `validate:"required"`
	CORSAllowedOrigins []string
}

type LogConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "5s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "120s")

	v.SetDefault("EXCHANGE_API_BASE_URL", "https://api.frankfurter.app")
	v.SetDefault("EXCHANGE_API_TIMEOUT", "10s")

	v.SetDefault("TRACKED_CURRENCIES", "USD,EUR,GBP,CHF")
	v.SetDefault("INGEST_CONCURRENCY", 4)

	v.SetDefault("SCHEDULER_CRON", "0 17 * * 1-5")
	v.SetDefault("SCHEDULER_TIMEZONE", "Europe/Warsaw")
	v.SetDefault("SCHEDULER_RUN_ON_START", true)

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_RUN_MIGRATIONS", true)

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_KEY_PREFIX", "currency-tracker:latest:")

	v.SetDefault("RATE_LIMIT", "60-M")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("LOG_LEVEL", "info")
}

// LoadConfig reads configuration from the environment, after loading a .env file if
// one is present. Real environment variables win over .env values.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	tracked, err := model.ParseCurrencies(splitList(v.GetString("TRACKED_CURRENCIES")))
	if err != nil {
		return nil, fmt.Errorf("TRACKED_CURRENCIES: %w", err)
	}

	config := &Config{
		Server: ServerConfig{
			Port:         v.GetInt("SERVER_PORT"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:  v.GetDuration("SERVER_IDLE_TIMEOUT"),
		},
		ExchangeAPI: ExchangeAPIConfig{
			BaseURL: strings.TrimRight(v.GetString("EXCHANGE_API_BASE_URL"), "/"),
			Timeout: v.GetDuration("EXCHANGE_API_TIMEOUT"),
		},
		Ingest: IngestConfig{
			TrackedCurrencies: tracked,
			Concurrency:       v.GetInt("INGEST_CONCURRENCY"),
		},
		Scheduler: SchedulerConfig{
			Cron:       v.GetString("SCHEDULER_CRON"),
			Timezone:   v.GetString("SCHEDULER_TIMEZONE"),
			RunOnStart: v.GetBool("SCHEDULER_RUN_ON_START"),
		},
		Database: DatabaseConfig{
			URL:           v.GetString("DATABASE_URL"),
			RunMigrations: v.GetBool("DATABASE_RUN_MIGRATIONS"),
		},
		Redis: RedisConfig{
			URL:       v.GetString("REDIS_URL"),
			KeyPrefix: v.GetString("REDIS_KEY_PREFIX"),
		},
		HTTP: HTTPConfig{
			RateLimit:          v.GetString("RATE_LIMIT"),
			CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Log: LogConfig{
			Level: strings.ToLower(v.GetString("LOG_LEVEL")),
		},
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
