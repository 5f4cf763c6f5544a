package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration, populated from the environment.
// Lifecycle thresholds live here so the sweeper and the quotation engine never
// hard-code them at call sites.
type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	JWTSecret string `env:"JWT_SECRET" envDefault:"supersecret"`

	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBName     string `env:"DB_NAME" envDefault:"workhub"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`

	// SMTP settings for outbound mail. Mail is skipped when SMTPHost is empty.
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"465"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"no-reply@workhub.local"`

	// QuoteCreditCost is the credits debited from a provider per submitted
	// quotation.
	QuoteCreditCost int64 `env:"QUOTE_CREDIT_COST" envDefault:"1"`
	// CreditPrice is the money price of one credit when purchasing.
	CreditPrice int64 `env:"CREDIT_PRICE" envDefault:"100"`

	BookingGraceHours   int `env:"BOOKING_GRACE_HOURS" envDefault:"24"`
	ReminderWindowHours int `env:"REMINDER_WINDOW_HOURS" envDefault:"24"`
	SweepIntervalMins   int `env:"SWEEP_INTERVAL_MINUTES" envDefault:"5"`
	SweepPageSize       int `env:"SWEEP_PAGE_SIZE" envDefault:"100"`
}

// Load reads .env if present and parses the environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// DatabaseURL assembles the Postgres DSN.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// BookingGrace is how long past its start date a PENDING booking may sit
// before the sweeper expires it.
func (c *Config) BookingGrace() time.Duration {
	return time.Duration(c.BookingGraceHours) * time.Hour
}

// ReminderWindow is how far ahead the sweeper looks for upcoming bookings.
func (c *Config) ReminderWindow() time.Duration {
	return time.Duration(c.ReminderWindowHours) * time.Hour
}

// SweepInterval is the external scheduler tick.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMins) * time.Minute
}
