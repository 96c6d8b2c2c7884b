package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"slotbook"`
	Env         string `envconfig:"APP_ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":6060"`

	// DB
	DBDriver          string        `envconfig:"DB_DRIVER" default:"sqlite"`
	SQLitePath        string        `envconfig:"SQLITE_PATH" default:"./database.db"`
	PGDSN             string        `envconfig:"PG_DSN"`
	DBMaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"50"`
	DBMaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	DBConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`
	DBLogLevel        string        `envconfig:"DB_LOG_LEVEL" default:"warn"`

	// Auth
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// Booking transactions
	TxTimeout      time.Duration `envconfig:"TX_TIMEOUT" default:"5s"`
	TxMaxAttempts  int           `envconfig:"TX_MAX_ATTEMPTS" default:"5"`
	TxBaseBackoff  time.Duration `envconfig:"TX_BASE_BACKOFF" default:"20ms"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
	PurgeSchedule  string        `envconfig:"IDEMPOTENCY_PURGE_SCHEDULE" default:"@every 1h"`

	// Events, empty URL disables publishing
	RabbitURL       string `envconfig:"RABBIT_URL"`
	BookingExchange string `envconfig:"BOOKING_EXCHANGE" default:"booking.exchange"`

	// Tracing, empty endpoint disables export
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite":
	case "postgres":
		if c.PGDSN == "" {
			return fmt.Errorf("PG_DSN is required when DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.TxMaxAttempts < 1 {
		return fmt.Errorf("TX_MAX_ATTEMPTS must be at least 1")
	}
	if c.TxTimeout <= 0 {
		return fmt.Errorf("TX_TIMEOUT must be positive")
	}
	return nil
}

// LogFields returns the non-secret settings for the startup log line.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Env),
		zap.String("http_addr", c.HTTPAddr),
		zap.String("db_driver", c.DBDriver),
		zap.Duration("tx_timeout", c.TxTimeout),
		zap.Int("tx_max_attempts", c.TxMaxAttempts),
		zap.Bool("events_enabled", c.RabbitURL != ""),
		zap.Bool("tracing_enabled", c.OTLPEndpoint != ""),
	}
}

// GormLogLevel maps DB_LOG_LEVEL onto a gorm log level.
func (c *Config) GormLogLevel() logger.LogLevel {
	switch c.DBLogLevel {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
