// README: Config loader with env defaults for HTTP, DB, Redis, AI, maps and Firebase settings.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AIModeMock selects the offline mock generator.
const AIModeMock = "MOCK"

type Config struct {
	Env  string
	HTTP struct {
		Addr        string
		CORSOrigins []string
		RatePerMin  int
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr string
	}
	AI struct {
		Mode        string
		GeminiKey   string
		Model       string
		Temperature float32
		FlowTimeout time.Duration
	}
	Maps struct {
		APIKey string
	}
	Firebase struct {
		ProjectID       string
		CredentialsFile string
		WebAPIKey       string
	}
	Conversation struct {
		TTL time.Duration
	}
}

// MockAI reports whether the mock generator is selected.
func (c Config) MockAI() bool {
	return strings.EqualFold(c.AI.Mode, AIModeMock)
}

// Load reads .env (when present), an optional config.yaml, and the environment.
// Environment variables win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SKYPLAN_ENV", "development")
	v.SetDefault("SKYPLAN_HTTP_ADDR", ":8080")
	v.SetDefault("SKYPLAN_CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SKYPLAN_RATE_PER_MIN", 60)
	v.SetDefault("SKYPLAN_DB_DSN", "")
	v.SetDefault("SKYPLAN_REDIS_ADDR", "localhost:6379")
	v.SetDefault("SKYPLAN_AI_MODE", "")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	v.SetDefault("GEMINI_TEMPERATURE", 0.4)
	v.SetDefault("SKYPLAN_FLOW_TIMEOUT", "30s")
	v.SetDefault("SKYPLAN_MAPS_API_KEY", "")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("FIREBASE_WEB_API_KEY", "")
	v.SetDefault("SKYPLAN_CONVERSATION_TTL", "2h")
}

func fromViper(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	cfg.Env = v.GetString("SKYPLAN_ENV")
	cfg.HTTP.Addr = v.GetString("SKYPLAN_HTTP_ADDR")
	cfg.HTTP.CORSOrigins = splitList(v.GetString("SKYPLAN_CORS_ORIGINS"))
	cfg.HTTP.RatePerMin = v.GetInt("SKYPLAN_RATE_PER_MIN")
	cfg.DB.DSN = v.GetString("SKYPLAN_DB_DSN")
	cfg.Redis.Addr = v.GetString("SKYPLAN_REDIS_ADDR")
	cfg.AI.Mode = v.GetString("SKYPLAN_AI_MODE")
	cfg.AI.GeminiKey = v.GetString("GEMINI_API_KEY")
	cfg.AI.Model = v.GetString("GEMINI_MODEL")
	cfg.AI.Temperature = float32(v.GetFloat64("GEMINI_TEMPERATURE"))
	cfg.AI.FlowTimeout = v.GetDuration("SKYPLAN_FLOW_TIMEOUT")
	cfg.Maps.APIKey = v.GetString("SKYPLAN_MAPS_API_KEY")
	cfg.Firebase.ProjectID = v.GetString("FIREBASE_PROJECT_ID")
	cfg.Firebase.CredentialsFile = v.GetString("FIREBASE_CREDENTIALS_FILE")
	cfg.Firebase.WebAPIKey = v.GetString("FIREBASE_WEB_API_KEY")
	cfg.Conversation.TTL = v.GetDuration("SKYPLAN_CONVERSATION_TTL")

	if !cfg.MockAI() && cfg.AI.GeminiKey == "" {
		return Config{}, errors.New("environment variable GEMINI_API_KEY is required unless SKYPLAN_AI_MODE=MOCK")
	}
	if cfg.AI.FlowTimeout <= 0 {
		return Config{}, fmt.Errorf("SKYPLAN_FLOW_TIMEOUT must be positive, got %s", cfg.AI.FlowTimeout)
	}
	if cfg.Conversation.TTL <= 0 {
		return Config{}, fmt.Errorf("SKYPLAN_CONVERSATION_TTL must be positive, got %s", cfg.Conversation.TTL)
	}
	if cfg.HTTP.RatePerMin <= 0 {
		return Config{}, fmt.Errorf("SKYPLAN_RATE_PER_MIN must be positive, got %d", cfg.HTTP.RatePerMin)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
