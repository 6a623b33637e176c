package config

import (
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
	BackendMongo  = "mongo"
)

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	// A helper function to get a required env var. It will fail if the env var is not set.
	getEnv := func(key string) string {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		log.Fatalf("Error: Required environment variable %s is not set.", key)
		return "" // This line is never reached
	}

	cfg := Config{
		Port: getEnvOrDefault("PORT", "8080"),
		User: UserConfig{
			ID:   getEnv("USER_ID"),
			Name: getEnvOrDefault("USER_NAME", "Pescador"),
		},
		DBName: getEnvOrDefault("DB_NAME", "league.db"),
		Turso: TursoConfig{
			PrimaryURL: os.Getenv("TURSO_PRIMARY_URL"),
			AuthToken:  os.Getenv("TURSO_AUTH_TOKEN"),
		},
		Local: LocalConfig{
			Backend:   getEnvOrDefault("LOCAL_BACKEND", BackendSQLite),
			BadgerDir: getEnvOrDefault("BADGER_DIR", "./data/queue"),
		},
		Remote: RemoteConfig{
			Backend:  getEnvOrDefault("REMOTE_BACKEND", BackendMongo),
			MongoURI: os.Getenv("MONGO_URI"),
			MongoDB:  getEnvOrDefault("MONGO_DB", "catch_league"),
		},
		R2: R2Config{
			Endpoint:        os.Getenv("R2_ENDPOINT"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
			CDNBaseURL:      os.Getenv("CDN_BASE_URL"),
		},
		Slack: SlackConfig{
			Token:         os.Getenv("SLACK_BOT_TOKEN"),
			ChannelID:     os.Getenv("SLACK_CHANNEL_ID"),
			SigningSecret: os.Getenv("SLACK_SIGNING_SECRET"),
		},
		ProjectID: os.Getenv("GCP_PROJECT"),
		Sync: SyncConfig{
			InvitePollInterval: getDurationOrDefault("INVITE_POLL_INTERVAL", 30*time.Second),
			SweepInterval:      getDurationOrDefault("SWEEP_INTERVAL", 60*time.Second),
			StartOnline:        getBoolOrDefault("START_ONLINE", true),
		},
		WriteRateLimit: getFloatOrDefault("WRITE_RATE_LIMIT", 2),
	}
	if cfg.Remote.Backend == BackendMongo && cfg.Remote.MongoURI == "" {
		log.Fatalf("Error: MONGO_URI is required when REMOTE_BACKEND is %s.", BackendMongo)
	}
	return cfg
}

func getEnvOrDefault(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDurationOrDefault(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warn("Invalid duration, using default", "key", key, "value", value, "default", fallback)
		return fallback
	}
	return d
}

func getBoolOrDefault(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Warn("Invalid boolean, using default", "key", key, "value", value, "default", fallback)
		return fallback
	}
	return b
}

func getFloatOrDefault(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Warn("Invalid number, using default", "key", key, "value", value, "default", fallback)
		return fallback
	}
	return f
}
