package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	SourceSimulator = "simulator"
	SourceRedis     = "redis"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"28040"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
	StaticDir string `env:"STATIC_DIR" default:"./static"`

	Source           string        `env:"SOURCE" default:"simulator"`
	RedisURL         string        `env:"REDIS_URL"`
	RedisChannel     string        `env:"REDIS_CHANNEL" default:"heart-rate:notifications"`
	RedisIdleTimeout time.Duration `env:"REDIS_IDLE_TIMEOUT" default:"15s"`

	SimulatorInterval time.Duration `env:"SIMULATOR_INTERVAL" default:"1s"`
	SimulatorSession  time.Duration `env:"SIMULATOR_SESSION" default:"0s"`
	SimulatorBaseline int           `env:"SIMULATOR_BASELINE" default:"70"`

	HubSubscriberBuffer    int           `env:"HUB_SUBSCRIBER_BUFFER" default:"1"`
	HubMaxConsecutiveDrops int           `env:"HUB_MAX_CONSECUTIVE_DROPS" default:"30"`
	ReconnectDelay         time.Duration `env:"RECONNECT_DELAY" default:"5s"`
	ReconnectMaxBackoff    time.Duration `env:"RECONNECT_MAX_BACKOFF" default:"1m"`

	WSPushCurrent    bool   `env:"WS_PUSH_CURRENT" default:"true"`
	WSAllowedOrigins string `env:"WS_ALLOWED_ORIGINS"`

	MaxWebSocketConnections      int     `env:"MAX_WEBSOCKET_CONNECTIONS" default:"1000"`
	MaxWebSocketConnectionsPerIP int     `env:"MAX_WEBSOCKET_CONNECTIONS_PER_IP" default:"20"`
	WebSocketConnectRate         float64 `env:"WEBSOCKET_CONNECT_RATE" default:"5"`
	WebSocketConnectBurst        int     `env:"WEBSOCKET_CONNECT_BURST" default:"10"`

	APIRateLimit float64 `env:"API_RATE_LIMIT" default:"20"`
	APIRateBurst int     `env:"API_RATE_BURST" default:"40"`
}

// AllowedOrigins splits WS_ALLOWED_ORIGINS. An empty result means any origin.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.WSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
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
	port, err := strconv.Atoi(cfg.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", cfg.Port)
	}

	switch cfg.Source {
	case SourceSimulator:
		if cfg.SimulatorInterval <= 0 {
			return errors.New("SIMULATOR_INTERVAL must be positive")
		}
		if cfg.SimulatorSession < 0 {
			return errors.New("SIMULATOR_SESSION must not be negative")
		}
	case SourceRedis:
		if cfg.RedisURL == "" {
			return errors.New("REDIS_URL is required when SOURCE=redis")
		}
		if cfg.RedisChannel == "" {
			return errors.New("REDIS_CHANNEL is required when SOURCE=redis")
		}
		if cfg.RedisIdleTimeout < 0 {
			return errors.New("REDIS_IDLE_TIMEOUT must not be negative")
		}
	default:
		return fmt.Errorf("SOURCE must be %q or %q, got %q", SourceSimulator, SourceRedis, cfg.Source)
	}

	if cfg.HubSubscriberBuffer < 1 {
		return errors.New("HUB_SUBSCRIBER_BUFFER must be at least 1")
	}
	if cfg.HubMaxConsecutiveDrops < 0 {
		return errors.New("HUB_MAX_CONSECUTIVE_DROPS must not be negative")
	}
	if cfg.ReconnectDelay <= 0 {
		return errors.New("RECONNECT_DELAY must be positive")
	}
	if cfg.ReconnectMaxBackoff <= 0 {
		return errors.New("RECONNECT_MAX_BACKOFF must be positive")
	}

	if cfg.MaxWebSocketConnections < 1 || cfg.MaxWebSocketConnectionsPerIP < 1 {
		return errors.New("websocket connection limits must be at least 1")
	}
	if cfg.WebSocketConnectRate <= 0 || cfg.APIRateLimit <= 0 {
		return errors.New("rate limits must be positive")
	}

	return nil
}
