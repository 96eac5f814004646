// Package config loads orchestrator configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/prdflow/internal/errors"
)

// Config holds all runtime configuration. Every value comes from environment
// variables; .env/.env.local files are merged in without overriding the
// process environment.
type Config struct {
	Port            int
	DatabaseURL     string
	WebhookSecret   string
	OrchestratorURL string

	// Worker runtime (Cloud Run Jobs). Required unless DryRun.
	RunProject string
	RunRegion  string
	RunJobName string

	PollInterval     time.Duration
	MaxConcurrent    int
	StaleAfter       time.Duration
	RecoveryInterval time.Duration

	NotifierURL    string
	NotifierBearer string

	// Optional NATS event-bus fanout.
	NATSURL     string
	NATSSubject string

	DryRun bool
}

// Defaults that apply when the corresponding variable is unset.
const (
	DefaultPort             = 8080
	DefaultRunJobName       = "prd-worker"
	DefaultPollInterval     = 5 * time.Second
	DefaultMaxConcurrent    = 5
	DefaultStaleAfter       = 30 * time.Minute
	DefaultRecoveryInterval = 5 * time.Minute
	DefaultNATSSubject      = "prdflow.build.events"
)

// Load reads configuration from the environment. envFile, when non-empty,
// names an explicit dotenv file; otherwise .env and .env.local are tried.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "failed to load env file").
				WithContext("path", envFile)
		}
	} else {
		// Best effort; absence of dotenv files is not an error.
		_ = godotenv.Load(".env", ".env.local")
	}

	cfg := &Config{
		Port:             envInt("PORT", DefaultPort),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		WebhookSecret:    os.Getenv("WEBHOOK_SECRET"),
		OrchestratorURL:  os.Getenv("ORCHESTRATOR_URL"),
		RunProject:       os.Getenv("RUN_PROJECT"),
		RunRegion:        os.Getenv("RUN_REGION"),
		RunJobName:       envString("RUN_JOB_NAME", DefaultRunJobName),
		PollInterval:     time.Duration(envInt("POLL_INTERVAL_MS", int(DefaultPollInterval/time.Millisecond))) * time.Millisecond,
		MaxConcurrent:    envInt("MAX_CONCURRENT_JOBS", DefaultMaxConcurrent),
		StaleAfter:       time.Duration(envInt("STALE_AFTER_MINUTES", int(DefaultStaleAfter/time.Minute))) * time.Minute,
		RecoveryInterval: time.Duration(envInt("RECOVERY_INTERVAL_MINUTES", int(DefaultRecoveryInterval/time.Minute))) * time.Minute,
		NotifierURL:      os.Getenv("NOTIFIER_URL"),
		NotifierBearer:   os.Getenv("NOTIFIER_BEARER"),
		NATSURL:          os.Getenv("NATS_URL"),
		NATSSubject:      envString("NATS_SUBJECT", DefaultNATSSubject),
		DryRun:           envBool("DRY_RUN"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces required keys. Cloud Run coordinates are only required
// when launches leave the process (DryRun disabled).
func (c *Config) Validate() error {
	required := map[string]string{
		"DATABASE_URL":     c.DatabaseURL,
		"WEBHOOK_SECRET":   c.WebhookSecret,
		"ORCHESTRATOR_URL": c.OrchestratorURL,
	}
	if !c.DryRun {
		required["RUN_PROJECT"] = c.RunProject
		required["RUN_REGION"] = c.RunRegion
	}
	for key, value := range required {
		if value == "" {
			return errors.ConfigRequired(key)
		}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New(errors.CategoryConfig, errors.SeverityFatal, "invalid port").
			WithContext("port", c.Port)
	}
	if c.PollInterval <= 0 {
		return errors.New(errors.CategoryConfig, errors.SeverityFatal, "poll interval must be positive")
	}
	if c.MaxConcurrent <= 0 {
		return errors.New(errors.CategoryConfig, errors.SeverityFatal, "max concurrent jobs must be positive")
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}
