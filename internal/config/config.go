package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env        string
	APIBaseURL *url.URL
	APIToken   string
	ActorID    int64
	LogLevel   string

	RefreshInterval time.Duration
	HTTPTimeout     time.Duration
	MutationDelay   time.Duration
	TeamCapacity    int
}

func Load() (Config, error) {
	return LoadFromEnv(os.Getenv)
}

func LoadFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Env:      getenv("APP_ENV"),
		APIToken: getenv("APP_API_TOKEN"),
		LogLevel: getenv("APP_LOG_LEVEL"),
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	switch cfg.Env {
	case "dev", "prod", "test":
	default:
		return Config{}, errors.New("APP_ENV: must be one of dev, test, prod")
	}

	baseRaw := getenv("APP_API_BASE_URL")
	if baseRaw == "" {
		return Config{}, errors.New("APP_API_BASE_URL: required")
	}
	parsed, err := url.Parse(baseRaw)
	if err != nil {
		return Config{}, fmt.Errorf("APP_API_BASE_URL: %w", err)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return Config{}, errors.New("APP_API_BASE_URL: must be an absolute URL")
	}
	switch parsed.Scheme {
	case "http", "https":
	default:
		return Config{}, errors.New("APP_API_BASE_URL: scheme must be http or https")
	}
	cfg.APIBaseURL = parsed

	actorRaw := getenv("APP_ACTOR_ID")
	if actorRaw == "" {
		return Config{}, errors.New("APP_ACTOR_ID: required")
	}
	actorID, err := strconv.ParseInt(actorRaw, 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("APP_ACTOR_ID: %w", err)
	}
	if actorID <= 0 {
		return Config{}, errors.New("APP_ACTOR_ID: must be > 0")
	}
	cfg.ActorID = actorID

	cfg.RefreshInterval, err = duration(getenv, "APP_REFRESH_INTERVAL", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTPTimeout, err = duration(getenv, "APP_HTTP_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.MutationDelay, err = duration(getenv, "APP_MUTATION_REFRESH_DELAY", 500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}

	capRaw := getenv("APP_TEAM_CAPACITY")
	if capRaw == "" {
		cfg.TeamCapacity = 5
	} else {
		capacity, err := strconv.Atoi(capRaw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_TEAM_CAPACITY: %w", err)
		}
		if capacity <= 0 {
			return Config{}, errors.New("APP_TEAM_CAPACITY: must be > 0")
		}
		cfg.TeamCapacity = capacity
	}

	if cfg.IsProd() && cfg.APIToken == "" {
		return Config{}, errors.New("APP_API_TOKEN: required in prod")
	}

	return cfg, nil
}

func (c Config) IsProd() bool { return c.Env == "prod" }

func duration(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be > 0", key)
	}
	return d, nil
}
