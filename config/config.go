package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// Run modes recognized via RUN_MODE.
const (
	RunModeOnce       = "once"
	RunModeContinuous = "continuous"
)

// Config carries everything the service needs, resolved once at startup.
// It is never mutated after Load returns.
type Config struct {
	APIKey      string // FINNHUB_API_KEY
	DatabaseURL string // DATABASE_URL, postgres:// endpoint
	DatabaseKey string // DATABASE_KEY, injected as the connection password
	RunMode     string // RUN_MODE: once | continuous

	Category string // news category, one per deployment

	RedisAddr     string // REDIS_ADDR, empty disables the article cache
	RedisPassword string
	RedisDB       int

	HTTPAddr string // HTTP_ADDR, empty disables the ops API
}

func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("RUN_MODE", RunModeContinuous)
	v.SetDefault("NEWS_CATEGORY", "forex")
	v.SetDefault("REDIS_DB", 0)

	cfg := &Config{
		APIKey:        v.GetString("FINNHUB_API_KEY"),
		DatabaseURL:   v.GetString("DATABASE_URL"),
		DatabaseKey:   v.GetString("DATABASE_KEY"),
		RunMode:       strings.ToLower(v.GetString("RUN_MODE")),
		Category:      v.GetString("NEWS_CATEGORY"),
		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		HTTPAddr:      v.GetString("HTTP_ADDR"),
	}

	var missing []string
	if cfg.APIKey == "" {
		missing = append(missing, "FINNHUB_API_KEY")
	}
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.DatabaseKey == "" {
		missing = append(missing, "DATABASE_KEY")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if cfg.RunMode != RunModeOnce && cfg.RunMode != RunModeContinuous {
		return nil, fmt.Errorf("unrecognized RUN_MODE %q (want %q or %q)", cfg.RunMode, RunModeOnce, RunModeContinuous)
	}

	return cfg, nil
}

// DSN merges the store credential into the database URL. The endpoint URL
// may carry a username (defaults to postgres); the password always comes
// from DATABASE_KEY.
func (c *Config) DSN() (string, error) {
	u, err := url.Parse(c.DatabaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", errors.New("DATABASE_URL must be a postgres:// URL")
	}

	user := "postgres"
	if u.User != nil && u.User.Username() != "" {
		user = u.User.Username()
	}
	u.User = url.UserPassword(user, c.DatabaseKey)

	return u.String(), nil
}
