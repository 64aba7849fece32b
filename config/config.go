// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full service configuration.
type Config struct {
	Port int `env:"PORT" envDefault:"8080"`

	// Firebase / Google API credentials. Leaving the key path empty runs
	// everything on the in-memory store (local development).
	ServiceAccountKeyPath string `env:"FIREBASE_SERVICE_ACCOUNT_KEY_PATH"`
	ProjectID             string `env:"FIREBASE_PROJECT_ID"`

	// Telegram scanning-station bot; empty disables the bot.
	ScanBotToken string `env:"SCAN_BOT_TOKEN"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"MealScan <noreply@mealscan.local>"`

	ImportBatchSize   int           `env:"IMPORT_BATCH_SIZE" envDefault:"450"`
	DispatchBatchSize int           `env:"DISPATCH_BATCH_SIZE" envDefault:"25"`
	PhotoTimeout      time.Duration `env:"PHOTO_TIMEOUT" envDefault:"1500ms"`
	PhotoCacheTTL     time.Duration `env:"PHOTO_CACHE_TTL" envDefault:"10m"`
}

// Load reads an optional .env file and parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}
	return cfg, nil
}
