// Package config содержит логику чтения конфигурации панели.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации панели.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	LogLevel    string `env:"LOG_LEVEL"`

	ProviderAPIURL  string        `env:"PROVIDER_API_URL"`
	ProviderAPIKey  string        `env:"PROVIDER_API_KEY"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT"`
	ProviderRPS     float64       `env:"PROVIDER_RPS"`

	ReconcileSchedule  string `env:"RECONCILE_SCHEDULE"`
	ReconcileBatchSize int    `env:"RECONCILE_BATCH_SIZE"`

	AuthSecret string `env:"AUTH_SECRET"`

	TelegramAPIURL string `env:"TELEGRAM_API_URL"`
	TelegramToken  string `env:"TELEGRAM_TOKEN"`
	TelegramChatID string `env:"TELEGRAM_CHAT_ID"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.LogLevel, "l", "info", "log level")
	flag.StringVar(&cfg.ProviderAPIURL, "p", "", "provider API URL")
	flag.StringVar(&cfg.ProviderAPIKey, "k", "", "provider API key")
	flag.DurationVar(&cfg.ProviderTimeout, "provider-timeout", 10*time.Second, "provider request timeout")
	flag.Float64Var(&cfg.ProviderRPS, "provider-rps", 5, "provider requests per second, 0 disables the limit")
	flag.StringVar(&cfg.ReconcileSchedule, "reconcile-schedule", "@every 1m", "order status reconciliation schedule")
	flag.IntVar(&cfg.ReconcileBatchSize, "reconcile-batch", 100, "orders per provider status request")
	flag.StringVar(&cfg.AuthSecret, "s", "", "auth token signing secret")
	flag.StringVar(&cfg.TelegramAPIURL, "telegram-api", "https://api.telegram.org", "Telegram Bot API URL")
	flag.StringVar(&cfg.TelegramToken, "telegram-token", "", "Telegram bot token")
	flag.StringVar(&cfg.TelegramChatID, "telegram-chat", "", "Telegram chat for admin notifications")

	flag.Parse()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}

// Validate проверяет обязательные параметры.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseURI == "" {
		errs = append(errs, errors.New("database URI is required"))
	}
	if c.ProviderAPIURL == "" {
		errs = append(errs, errors.New("provider API URL is required"))
	}
	if c.ProviderTimeout <= 0 {
		errs = append(errs, errors.New("provider timeout must be positive"))
	}
	if c.ProviderRPS < 0 {
		errs = append(errs, errors.New("provider rps must not be negative"))
	}
	if c.ReconcileBatchSize <= 0 {
		errs = append(errs, errors.New("reconcile batch size must be positive"))
	}

	return errors.Join(errs...)
}
