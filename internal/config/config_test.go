package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STORE", "")
	t.Setenv("SESSION_TTL", "")

	c := FromEnv()
	if c.Port != "8080" {
		t.Fatalf("default port should be 8080, got %s", c.Port)
	}
	if c.Store != "memory" {
		t.Fatalf("default store should be memory, got %s", c.Store)
	}
	if c.SessionTTL != 6*time.Hour {
		t.Fatalf("default TTL should be 6h, got %s", c.SessionTTL)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORE", "redis")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("GEMINI_API_KEY", "k")

	c := FromEnv()
	if c.Port != "9000" || c.Store != "redis" {
		t.Fatalf("overrides not applied: %+v", c)
	}
	if c.SessionTTL != 90*time.Minute {
		t.Fatalf("TTL override not applied, got %s", c.SessionTTL)
	}
	if c.GeminiAPIKey != "k" {
		t.Fatal("API key not read")
	}
}

func TestFromEnvBadDuration(t *testing.T) {
	t.Setenv("SESSION_TTL", "not-a-duration")
	if c := FromEnv(); c.SessionTTL != 6*time.Hour {
		t.Fatalf("unparseable TTL should fall back to the default, got %s", c.SessionTTL)
	}
}
