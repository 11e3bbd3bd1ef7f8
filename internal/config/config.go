package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config captures runtime configuration for the API service.
type Config struct {
	HTTP        HTTPConfig
	Catalog     CatalogConfig
	Database    DatabaseConfig
	Events      EventsConfig
	Maintenance MaintenanceConfig
	Telemetry   TelemetryConfig
	Service     ServiceConfig
}

type HTTPConfig struct {
	Port          int    `envconfig:"API_HTTP_PORT" default:"8080"`
	MetricsPath   string `envconfig:"API_METRICS_PATH" default:"/metrics"`
	ShutdownGrace int    `envconfig:"API_SHUTDOWN_GRACE_SECONDS" default:"15"`
}

const (
	CatalogDriverMemory   = "memory"
	CatalogDriverPostgres = "postgres"
	CatalogDriverSQLite   = "sqlite"

	EventsDriverNoop = "noop"
	EventsDriverAMQP = "amqp"
)

type CatalogConfig struct {
	Driver     string `envconfig:"CATALOG_DRIVER" default:"memory"`
	Seed       bool   `envconfig:"CATALOG_SEED" default:"true"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"./data/catalog.db"`
}

type DatabaseConfig struct {
	URL            string `envconfig:"DATABASE_URL"`
	AutoMigrate    bool   `envconfig:"AUTO_MIGRATE" default:"true"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"migrations"`

	Host        string `envconfig:"DB_HOST" default:"localhost"`
	Port        string `envconfig:"DB_PORT" default:"5432"`
	User        string `envconfig:"DB_USER" default:"postgres"`
	Password    string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name        string `envconfig:"DB_NAME" default:"bookstore"`
	SSLMode     string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns    string `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns    string `envconfig:"DB_MIN_CONNS" default:"5"`
	MaxLifetime string `envconfig:"DB_MAX_CONN_LIFETIME" default:"5m"`
}

type EventsConfig struct {
	Driver      string `envconfig:"EVENTS_DRIVER" default:"noop"`
	RabbitMQURL string `envconfig:"RABBITMQ_URL"`
	Exchange    string `envconfig:"RABBITMQ_EXCHANGE" default:"bookstore_events"`
}

type MaintenanceConfig struct {
	Interval time.Duration `envconfig:"MAINTENANCE_INTERVAL" default:"1m"`
}

type TelemetryConfig struct {
	LogLevel      string  `envconfig:"LOG_LEVEL" default:"info"`
	OTelEndpoint  string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	EnableTracing bool    `envconfig:"OTEL_ENABLE_TRACING" default:"true"`
	EnableMetrics bool    `envconfig:"OTEL_ENABLE_METRICS" default:"true"`
	SampleRate    float64 `envconfig:"OTEL_SAMPLE_RATE" default:"1.0"`
}

type ServiceConfig struct {
	Name        string `envconfig:"API_SERVICE_NAME" default:"bookstore-api"`
	Version     string `envconfig:"SERVICE_VERSION" default:"0.1.0"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

// Load reads configuration from environment variables, applying defaults when needed.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = cfg.Database.buildURL()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Catalog.Driver {
	case CatalogDriverMemory, CatalogDriverSQLite:
	case CatalogDriverPostgres:
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL is required for the postgres catalog")
		}
	default:
		return fmt.Errorf("unknown CATALOG_DRIVER %q", c.Catalog.Driver)
	}

	switch c.Events.Driver {
	case EventsDriverNoop:
	case EventsDriverAMQP:
		if c.Events.RabbitMQURL == "" {
			return errors.New("RABBITMQ_URL is required for the amqp events driver")
		}
	default:
		return fmt.Errorf("unknown EVENTS_DRIVER %q", c.Events.Driver)
	}

	if c.Maintenance.Interval <= 0 {
		return fmt.Errorf("MAINTENANCE_INTERVAL must be positive, got %s", c.Maintenance.Interval)
	}
	if c.HTTP.ShutdownGrace <= 0 {
		return fmt.Errorf("API_SHUTDOWN_GRACE_SECONDS must be positive, got %d", c.HTTP.ShutdownGrace)
	}
	return nil
}

func (d DatabaseConfig) buildURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   d.Host + ":" + d.Port,
		Path:   "/" + d.Name,
	}
	q := url.Values{}
	q.Set("sslmode", d.SSLMode)
	q.Set("pool_max_conns", d.MaxConns)
	q.Set("pool_min_conns", d.MinConns)
	q.Set("pool_max_conn_lifetime", d.MaxLifetime)
	u.RawQuery = q.Encode()
	return u.String()
}
