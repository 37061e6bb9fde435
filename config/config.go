package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv string `env:"APP_ENV" default:"development"`
	Port   string `env:"PORT" default:"3001"`

	// DatabaseURL wins over the individual DB_* parts when set.
	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST" default:"127.0.0.1"`
	DBPort      string `env:"DB_PORT" default:"5432"`
	DBUser      string `env:"DB_USER" default:"postgres"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBName      string `env:"DB_NAME" default:"biblioteca"`
	DBSSLMode   string `env:"DB_SSLMODE" default:"disable"`

	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" default:"10"`
	DBMinIdleConns    int           `env:"DB_MIN_IDLE_CONNS" default:"2"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" default:"30m"`
	DBConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" default:"10m"`
	DBConnectTimeout  time.Duration `env:"DB_CONNECT_TIMEOUT" default:"30s"`

	RedisAddr string `env:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPwd  string `env:"REDIS_PASSWORD"`

	WebOrigin string `env:"WEB_ORIGIN" default:"http://localhost:5173"`

	LoanDays      int           `env:"LOAN_DAYS" default:"14"`
	SweepEnabled  bool          `env:"SWEEP_ENABLED" default:"true"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" default:"24h"`
	SeedData      bool          `env:"SEED_DATA" default:"false"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" && (cfg.DBHost == "" || cfg.DBName == "" || cfg.DBUser == "") {
		return errors.New("DATABASE_URL or DB_HOST, DB_NAME and DB_USER are required")
	}
	if cfg.DBMaxOpenConns <= 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be positive, got %d", cfg.DBMaxOpenConns)
	}
	if cfg.DBMinIdleConns < 0 || cfg.DBMinIdleConns > cfg.DBMaxOpenConns {
		return fmt.Errorf("DB_MIN_IDLE_CONNS must be between 0 and %d, got %d", cfg.DBMaxOpenConns, cfg.DBMinIdleConns)
	}
	if cfg.LoanDays <= 0 {
		return fmt.Errorf("LOAN_DAYS must be positive, got %d", cfg.LoanDays)
	}
	if cfg.SweepInterval < time.Minute {
		return fmt.Errorf("SWEEP_INTERVAL must be at least 1m, got %s", cfg.SweepInterval)
	}
	return nil
}

// DSN returns the postgres connection string in keyword/value form.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	dsn := fmt.Sprintf(
		"host=%s user=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBName, c.DBPort, c.DBSSLMode,
	)
	if c.DBPassword != "" {
		dsn += " password=" + c.DBPassword
	}
	if c.DBConnectTimeout > 0 {
		dsn += fmt.Sprintf(" connect_timeout=%d", int(c.DBConnectTimeout.Seconds()))
	}
	return dsn
}

// RedactedDSN is safe to log.
func (c *Config) RedactedDSN() string {
	if c.DatabaseURL != "" {
		u, err := url.Parse(c.DatabaseURL)
		if err != nil {
			return "invalid DATABASE_URL"
		}
		return u.Redacted()
	}
	return fmt.Sprintf("host=%s user=%s dbname=%s port=%s", c.DBHost, c.DBUser, c.DBName, c.DBPort)
}

func (c *Config) IsProduction() bool { return c.AppEnv == "production" }
