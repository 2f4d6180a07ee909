package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/alessio-signorini/slack-meet-command/internal/domain"
)

// Config contains runtime configuration values.
type Config struct {
	Environment        string
	HTTPPort           string
	BaseURL            string
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	ServiceName        string
	SlackSigningSecret string
	GoogleClientID     string
	GoogleClientSecret string
	Meeting            domain.MeetingOptions
	PendingCallbackTTL time.Duration
	SlackPostTimeout   time.Duration
	GAMeasurementID    string
	GAAPISecret        string
	TelemetryEndpoint  string
	TelemetryInsecure  bool
}

var (
	validAccessTypes = []string{"OPEN", "TRUSTED", "RESTRICTED"}
	validModeration  = []string{"OFF", "ON"}
)

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:        getEnv("APP_ENV", "development"),
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		BaseURL:            strings.TrimRight(strings.TrimSpace(os.Getenv("BASE_URL")), "/"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getInt("REDIS_DB", 0),
		ServiceName:        getEnv("SERVICE_NAME", "slack-meet-command"),
		SlackSigningSecret: strings.TrimSpace(os.Getenv("SLACK_SIGNING_SECRET")),
		GoogleClientID:     strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")),
		GoogleClientSecret: strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_SECRET")),
		Meeting: domain.MeetingOptions{
			AccessType:     strings.ToUpper(getEnv("MEET_ACCESS_TYPE", "TRUSTED")),
			Moderation:     strings.ToUpper(getEnv("MEET_MODERATION", "OFF")),
			AutoTranscribe: getBool("MEET_AUTO_TRANSCRIBE", false),
			AutoRecord:     getBool("MEET_AUTO_RECORD", false),
			SmartNotes:     getBool("MEET_SMART_NOTES", false),
		},
		PendingCallbackTTL: getDuration("PENDING_CALLBACK_TTL", 15*time.Minute),
		SlackPostTimeout:   getDuration("SLACK_POST_TIMEOUT", 10*time.Second),
		GAMeasurementID:    os.Getenv("GA_MEASUREMENT_ID"),
		GAAPISecret:        os.Getenv("GA_API_SECRET"),
		TelemetryEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:  getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.DatabaseURL == "":
		return &domain.ConfigurationError{Reason: "DATABASE_URL is required"}
	case c.BaseURL == "":
		return &domain.ConfigurationError{Reason: "BASE_URL is required"}
	case c.SlackSigningSecret == "":
		return &domain.ConfigurationError{Reason: "SLACK_SIGNING_SECRET is required"}
	case c.GoogleClientID == "" || c.GoogleClientSecret == "":
		return &domain.ConfigurationError{Reason: "GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required"}
	}

	if !contains(validAccessTypes, c.Meeting.AccessType) {
		return &domain.ConfigurationError{
			Reason: "MEET_ACCESS_TYPE must be one of " + strings.Join(validAccessTypes, ", "),
		}
	}
	if !contains(validModeration, c.Meeting.Moderation) {
		return &domain.ConfigurationError{
			Reason: "MEET_MODERATION must be one of " + strings.Join(validModeration, ", "),
		}
	}
	return nil
}

// RedirectURI is the OAuth redirect registered with Google.
func (c Config) RedirectURI() string {
	return c.BaseURL + "/auth/google/callback"
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}
