package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config is assembled from the environment at process start. A .env file in
// the working directory is honored when present.
type Config struct {
	Port string

	// Store selects the session storage backend: memory, redis or mongo.
	Store    string
	RedisURI string
	MongoURI string
	MongoDB  string

	SessionTTL time.Duration

	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string

	// PublicBaseURL is the externally reachable origin used to build join
	// links for the QR endpoint.
	PublicBaseURL string

	CORSAllowedOrigins string
}

// FromEnv loads configuration, applying defaults for anything unset.
func FromEnv() Config {
	_ = godotenv.Load()

	c := Config{}
	c.Port = getenv("PORT", "8080")
	c.Store = getenv("STORE", "memory")
	c.RedisURI = getenv("REDIS_URI", "localhost:6379")
	c.MongoURI = getenv("MONGO_URI", "mongodb://localhost:27017")
	c.MongoDB = getenv("MONGO_DB", "dressup")
	c.SessionTTL = getDuration("SESSION_TTL", 6*time.Hour)
	c.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	c.GeminiBaseURL = os.Getenv("GEMINI_BASE_URL")
	c.GeminiModel = os.Getenv("GEMINI_MODEL")
	c.PublicBaseURL = getenv("PUBLIC_BASE_URL", "http://localhost:8080")
	c.CORSAllowedOrigins = getenv("CORS_ALLOWED_ORIGINS", "*")
	return c
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
