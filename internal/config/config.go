package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends accepted by PAI_STORE_BACKEND.
const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Port          int
	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	AnthropicAPIKey string
	AnthropicModel  string
	LLMTimeout      time.Duration

	StoreBackend   string
	SupabaseURL    string
	SupabaseKey    string
	DatabaseURL    string
	StoreTimeout   time.Duration
	RedisURL       string
	SessionTTL     time.Duration
	NatsURL        string
	NatsToken      string
	SlackBotToken  string
	SlackChannel   string
	APIToken       string
	CORSOrigin     string
	RateLimit      float64
	RateBurst      int
	TargetAccuracy float64
}

func Load() Config {
	return Config{
		Port:          envInt("PAI_PORT", 8760),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		LogFile:       envStr("LOG_FILE", ""),
		LogMaxSizeMB:  envInt("LOG_MAX_SIZE_MB", 50),
		LogMaxBackups: envInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: envInt("LOG_MAX_AGE_DAYS", 28),

		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("PAI_MODEL", "claude-3-5-sonnet-20241022"),
		LLMTimeout:      envDuration("PAI_LLM_TIMEOUT", 30*time.Second),

		StoreBackend:   strings.ToLower(envStr("PAI_STORE_BACKEND", BackendSupabase)),
		SupabaseURL:    strings.TrimRight(envStr("SUPABASE_URL", ""), "/"),
		SupabaseKey:    envStr("SUPABASE_ANON_KEY", ""),
		DatabaseURL:    envStr("DATABASE_URL", ""),
		StoreTimeout:   envDuration("PAI_STORE_TIMEOUT", 10*time.Second),
		RedisURL:       envStr("REDIS_URL", ""),
		SessionTTL:     envDuration("PAI_SESSION_TTL", 24*time.Hour),
		NatsURL:        envStr("NATS_URL", ""),
		NatsToken:      envStr("NATS_TOKEN", ""),
		SlackBotToken:  envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:   envStr("SLACK_CHANNEL", ""),
		APIToken:       envStr("PAI_API_TOKEN", ""),
		CORSOrigin:     envStr("PAI_CORS_ORIGIN", "*"),
		RateLimit:      envFloat("PAI_RATE_LIMIT", 5),
		RateBurst:      envInt("PAI_RATE_BURST", 10),
		TargetAccuracy: envFloat("PAI_TARGET_ACCURACY", 0.6),
	}
}

// LoadDotEnv populates the environment from .env files. Variables that are
// already set win. Missing files are ignored.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

// Validate reports every missing required key at once. The service must not
// start with an incomplete configuration.
func (c Config) Validate() error {
	var missing []string
	if c.AnthropicAPIKey == "" {
		missing = append(missing, "ANTHROPIC_API_KEY")
	}
	switch c.StoreBackend {
	case BackendSupabase:
		if c.SupabaseURL == "" {
			missing = append(missing, "SUPABASE_URL")
		}
		if c.SupabaseKey == "" {
			missing = append(missing, "SUPABASE_ANON_KEY")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown PAI_STORE_BACKEND %q", c.StoreBackend)
	}
	if len(missing) > 0 {
		return errors.New("missing required configuration: " + strings.Join(missing, ", "))
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// envDuration accepts Go durations ("30s") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
