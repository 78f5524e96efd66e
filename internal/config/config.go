package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	Port     string
	LogLevel string

	DatabaseURL string

	// Auth
	JWTSecret    string
	JWTExpiry    time.Duration
	SessionKey   string
	CookieSecure bool
	CORSOrigins  []string

	// TrustedProxies may set X-Forwarded-For; IPs or CIDRs.
	TrustedProxies []string

	Timezone       string
	StaleAfterDays int
	DigestCron     string

	// SMTP
	MailHost string
	MailPort int
	MailUser string
	MailPass string
	MailFrom string

	RabbitMQURL string

	// AI
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIModel          string
	OpenAIEmbeddingModel string
	AITimeout            time.Duration

	WhatsAppAccessToken string
	WhatsAppPhoneID     string

	SentryDSN string
}

func Load() *Config {
	return &Config{
		Env:      getEnv("APP_ENV", "development"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTExpiry:    parseDuration(getEnv("JWT_EXPIRY", "24h"), 24*time.Hour),
		SessionKey:   getEnv("SESSION_KEY", ""),
		CookieSecure: parseBool(getEnv("COOKIE_SECURE", "false")),
		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),

		TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),

		Timezone:       getEnv("TIMEZONE", "America/Guayaquil"),
		StaleAfterDays: parseInt(getEnv("STALE_AFTER_DAYS", "7"), 7),
		DigestCron:     getEnv("STALE_DIGEST_CRON", "0 8 * * 1-5"),

		MailHost: getEnv("MAIL_HOST", ""),
		MailPort: parseInt(getEnv("MAIL_PORT", "587"), 587),
		MailUser: getEnv("MAIL_USER", ""),
		MailPass: getEnv("MAIL_PASS", ""),
		MailFrom: getEnv("MAIL_FROM", ""),

		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIEmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		AITimeout:            parseDuration(getEnv("AI_TIMEOUT", "60s"), 60*time.Second),

		WhatsAppAccessToken: getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppPhoneID:     getEnv("WHATSAPP_PHONE_ID", ""),

		SentryDSN: getEnv("SENTRY_DSN", ""),
	}
}

// Validate fails when settings the API cannot start without are missing.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, errors.New("TIMEZONE is not a valid IANA zone"))
	}
	if c.StaleAfterDays <= 0 {
		errs = append(errs, errors.New("STALE_AFTER_DAYS must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) MailConfigured() bool {
	return c.MailHost != "" && c.MailFrom != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
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
