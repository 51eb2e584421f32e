package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// DevelopmentJWTSecret is the well-known secret used when JWT_SECRET is unset.
// Tokens signed with it must never be trusted outside local development.
const DevelopmentJWTSecret = "default_secret_key_for_development_only"

var ErrMissingJWTSecret = errors.New("JWT_SECRET is required when APP_ENV=production")

type Config struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	Server      ServerConfig
	Logging     LoggingConfig
	Security    SecurityConfig
	Websocket   WebsocketConfig
	Groups      GroupsConfig
	Kafka       KafkaConfig
	NATS        NATSConfig
	Telemetry   TelemetryConfig
}

type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" envDefault:"127.0.0.1"`
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Address returns the host:port pair the HTTP server listens on.
func (s ServerConfig) Address() string {
	return strings.TrimSpace(s.Host) + ":" + strings.TrimSpace(s.Port)
}

type LoggingConfig struct {
	Directory string `env:"LOG_DIR" envDefault:"./logs"`
	Level     string `env:"LOG_LEVEL" envDefault:"info"`
	Format    string `env:"LOG_FORMAT" envDefault:"text"`
}

type SecurityConfig struct {
	JWTSecret string        `env:"JWT_SECRET"`
	Leeway    time.Duration `env:"JWT_LEEWAY" envDefault:"5s"`
	// InsecureSecret is set by Load when the development fallback secret is in use.
	InsecureSecret bool
}

type WebsocketConfig struct {
	ChannelCapacity int           `env:"WS_CHANNEL_CAPACITY" envDefault:"100"`
	OutboundQueue   int           `env:"WS_OUTBOUND_QUEUE" envDefault:"100"`
	PingInterval    time.Duration `env:"WS_PING_INTERVAL" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"WS_IDLE_TIMEOUT" envDefault:"0s"`
	ReadLimit       int64         `env:"WS_READ_LIMIT" envDefault:"65536"`
	InboundRate     float64       `env:"WS_INBOUND_RATE" envDefault:"0"`
	InboundBurst    int           `env:"WS_INBOUND_BURST" envDefault:"20"`
}

type GroupsConfig struct {
	IdleTTL       time.Duration `env:"GROUP_IDLE_TTL" envDefault:"0s"`
	SweepInterval time.Duration `env:"GROUP_SWEEP_INTERVAL" envDefault:"1m"`
}

type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	GroupID string   `env:"KAFKA_GROUP_ID" envDefault:"mesaya-relay"`
	Topics  []string `env:"KAFKA_TOPICS" envSeparator:","`
}

type NATSConfig struct {
	URL      string   `env:"NATS_URL"`
	Name     string   `env:"NATS_CLIENT_NAME" envDefault:"mesaya-relay"`
	Subjects []string `env:"NATS_SUBJECTS" envSeparator:","`
	Queue    string   `env:"NATS_QUEUE"`
}

type TelemetryConfig struct {
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"mesaya-relay"`
	Endpoint    string `env:"OTEL_ENDPOINT"`
}

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "prod", "production":
		return true
	default:
		return false
	}
}

func (c *Config) normalize() error {
	c.Security.JWTSecret = strings.TrimSpace(c.Security.JWTSecret)
	if c.Security.JWTSecret == "" {
		if c.IsProduction() {
			return ErrMissingJWTSecret
		}
		c.Security.JWTSecret = DevelopmentJWTSecret
		c.Security.InsecureSecret = true
	}

	if c.Websocket.ChannelCapacity <= 0 {
		return fmt.Errorf("WS_CHANNEL_CAPACITY must be positive, got %d", c.Websocket.ChannelCapacity)
	}
	if c.Websocket.OutboundQueue <= 0 {
		return fmt.Errorf("WS_OUTBOUND_QUEUE must be positive, got %d", c.Websocket.OutboundQueue)
	}
	if c.Websocket.InboundRate < 0 {
		return fmt.Errorf("WS_INBOUND_RATE must not be negative, got %v", c.Websocket.InboundRate)
	}
	if c.Groups.IdleTTL > 0 && c.Groups.SweepInterval <= 0 {
		return fmt.Errorf("GROUP_SWEEP_INTERVAL must be positive when GROUP_IDLE_TTL is set")
	}

	c.Kafka.Brokers = compact(c.Kafka.Brokers)
	c.Kafka.Topics = compact(c.Kafka.Topics)
	c.NATS.Subjects = compact(c.NATS.Subjects)
	c.NATS.URL = strings.TrimSpace(c.NATS.URL)
	return nil
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
