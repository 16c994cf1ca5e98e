package config

import (
	"testing"
	"time"
)

func getenvFrom(env map[string]string) func(string) string {
	return func(k string) string { return env[k] }
}

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv(getenvFrom(map[string]string{
		"APP_API_BASE_URL": "http://127.0.0.1:8080",
		"APP_ACTOR_ID":     "7",
	}))
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Env != "dev" {
		t.Fatalf("Env: got %q, want dev", cfg.Env)
	}
	if cfg.ActorID != 7 {
		t.Fatalf("ActorID: got %d", cfg.ActorID)
	}
	if cfg.RefreshInterval != 30*time.Second {
		t.Fatalf("RefreshInterval: got %v", cfg.RefreshInterval)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Fatalf("HTTPTimeout: got %v", cfg.HTTPTimeout)
	}
	if cfg.MutationDelay != 500*time.Millisecond {
		t.Fatalf("MutationDelay: got %v", cfg.MutationDelay)
	}
	if cfg.TeamCapacity != 5 {
		t.Fatalf("TeamCapacity: got %d", cfg.TeamCapacity)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	cfg, err := LoadFromEnv(getenvFrom(map[string]string{
		"APP_ENV":                    "test",
		"APP_API_BASE_URL":           "https://api.example.test",
		"APP_API_TOKEN":              "tok",
		"APP_ACTOR_ID":               "42",
		"APP_REFRESH_INTERVAL":       "5s",
		"APP_HTTP_TIMEOUT":           "2s",
		"APP_MUTATION_REFRESH_DELAY": "100ms",
		"APP_TEAM_CAPACITY":          "8",
	}))
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.APIBaseURL.String() != "https://api.example.test" {
		t.Fatalf("APIBaseURL: got %q", cfg.APIBaseURL)
	}
	if cfg.RefreshInterval != 5*time.Second {
		t.Fatalf("RefreshInterval: got %v", cfg.RefreshInterval)
	}
	if cfg.TeamCapacity != 8 {
		t.Fatalf("TeamCapacity: got %d", cfg.TeamCapacity)
	}
}

func TestLoadFromEnvRejectsBadInput(t *testing.T) {
	cases := map[string]map[string]string{
		"missing base url": {
			"APP_ACTOR_ID": "1",
		},
		"relative base url": {
			"APP_API_BASE_URL": "/api",
			"APP_ACTOR_ID":     "1",
		},
		"bad scheme": {
			"APP_API_BASE_URL": "ftp://host",
			"APP_ACTOR_ID":     "1",
		},
		"missing actor": {
			"APP_API_BASE_URL": "http://127.0.0.1:8080",
		},
		"non-numeric actor": {
			"APP_API_BASE_URL": "http://127.0.0.1:8080",
			"APP_ACTOR_ID":     "abc",
		},
		"bad env": {
			"APP_ENV":          "staging",
			"APP_API_BASE_URL": "http://127.0.0.1:8080",
			"APP_ACTOR_ID":     "1",
		},
		"negative interval": {
			"APP_API_BASE_URL":     "http://127.0.0.1:8080",
			"APP_ACTOR_ID":         "1",
			"APP_REFRESH_INTERVAL": "-1s",
		},
		"prod without token": {
			"APP_ENV":          "prod",
			"APP_API_BASE_URL": "https://api.example.test",
			"APP_ACTOR_ID":     "1",
		},
	}
	for name, env := range cases {
		if _, err := LoadFromEnv(getenvFrom(env)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
