package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "28040", cfg.Port)
	assert.Equal(t, "./static", cfg.StaticDir)
	assert.Equal(t, SourceSimulator, cfg.Source)
	assert.Equal(t, "heart-rate:notifications", cfg.RedisChannel)
	assert.Equal(t, 15*time.Second, cfg.RedisIdleTimeout)
	assert.Equal(t, time.Second, cfg.SimulatorInterval)
	assert.Equal(t, time.Duration(0), cfg.SimulatorSession)
	assert.Equal(t, 70, cfg.SimulatorBaseline)
	assert.Equal(t, 1, cfg.HubSubscriberBuffer)
	assert.Equal(t, 30, cfg.HubMaxConsecutiveDrops)
	assert.Equal(t, 5*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, time.Minute, cfg.ReconnectMaxBackoff)
	assert.True(t, cfg.WSPushCurrent)
	assert.Empty(t, cfg.AllowedOrigins())
	assert.Equal(t, 1000, cfg.MaxWebSocketConnections)
	assert.Equal(t, 20, cfg.MaxWebSocketConnectionsPerIP)
	assert.Equal(t, 5.0, cfg.WebSocketConnectRate)
	assert.Equal(t, 10, cfg.WebSocketConnectBurst)
	assert.Equal(t, 20.0, cfg.APIRateLimit)
	assert.Equal(t, 40, cfg.APIRateBurst)
}

func TestLoad_RedisSource(t *testing.T) {
	t.Setenv("SOURCE", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("REDIS_CHANNEL", "strap:frames")
	t.Setenv("REDIS_IDLE_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SourceRedis, cfg.Source)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, "strap:frames", cfg.RedisChannel)
	assert.Equal(t, 30*time.Second, cfg.RedisIdleTimeout)
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("RECONNECT_DELAY", "250ms")
	t.Setenv("WS_PUSH_CURRENT", "false")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.ReconnectDelay)
	assert.False(t, cfg.WSPushCurrent)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"non-numeric port", map[string]string{"PORT": "http"}, "PORT must be a number"},
		{"port out of range", map[string]string{"PORT": "70000"}, "PORT must be a number"},
		{"unknown source", map[string]string{"SOURCE": "bluetooth"}, "SOURCE must be"},
		{"redis without url", map[string]string{"SOURCE": "redis"}, "REDIS_URL is required when SOURCE=redis"},
		{"zero buffer", map[string]string{"HUB_SUBSCRIBER_BUFFER": "0"}, "HUB_SUBSCRIBER_BUFFER must be at least 1"},
		{"negative drops", map[string]string{"HUB_MAX_CONSECUTIVE_DROPS": "-1"}, "HUB_MAX_CONSECUTIVE_DROPS must not be negative"},
		{"zero reconnect delay", map[string]string{"RECONNECT_DELAY": "0s"}, "RECONNECT_DELAY must be positive"},
		{"zero backoff cap", map[string]string{"RECONNECT_MAX_BACKOFF": "0s"}, "RECONNECT_MAX_BACKOFF must be positive"},
		{"zero simulator interval", map[string]string{"SIMULATOR_INTERVAL": "0s"}, "SIMULATOR_INTERVAL must be positive"},
		{"zero connection cap", map[string]string{"MAX_WEBSOCKET_CONNECTIONS": "0"}, "websocket connection limits"},
		{"zero api rate", map[string]string{"API_RATE_LIMIT": "0"}, "rate limits must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
