// Package config reads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	DatabaseURL    string
	Port           string
	AllowedOrigins []string
	JWTSecret      string
	TaxRate        decimal.Decimal
	LogLevel       string
	LogFormat      string
	AMQPURL        string
	AMQPExchange   string
	DefaultDueDays int
}

const (
	defaultPort         = "8080"
	defaultTaxRate      = "0.18"
	defaultLogLevel     = "info"
	defaultLogFormat    = "json"
	defaultAMQPExchange = "backoffice_events"
	defaultDueDays      = 30
)

// Load reads .env (if present) and then the process environment.
// Variables already set in the environment win over .env entries.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		Port:         getenv("SERVER_PORT", defaultPort),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		LogLevel:     getenv("LOG_LEVEL", defaultLogLevel),
		LogFormat:    strings.ToLower(getenv("LOG_FORMAT", defaultLogFormat)),
		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: getenv("AMQP_EXCHANGE", defaultAMQPExchange),
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	rate, err := decimal.NewFromString(getenv("TAX_RATE", defaultTaxRate))
	if err != nil {
		return nil, fmt.Errorf("invalid TAX_RATE: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("invalid TAX_RATE %s: must be at least 0 and below 1", rate)
	}
	cfg.TaxRate = rate

	cfg.DefaultDueDays = defaultDueDays
	if raw := os.Getenv("INVOICE_DUE_DAYS"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			return nil, fmt.Errorf("invalid INVOICE_DUE_DAYS %q: must be a non-negative integer", raw)
		}
		cfg.DefaultDueDays = days
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: use json or text", cfg.LogFormat)
	}

	return cfg, nil
}

// EventsEnabled reports whether a broker is configured.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
