package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("API_KEY_SECRET", "secret")
	t.Setenv("NOTIFICATION_MODE", "")
	t.Setenv("AGENT_TIMEOUT", "")
	t.Setenv("AGENT_API_KEY", "")
	t.Setenv("PORT", "")
	t.Setenv("WORKFLOW_TIMEOUT", "")

	cfg := Load()

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, 90*time.Second, cfg.Agent.Timeout)
	assert.Equal(t, "secret", cfg.Agent.APIKey, "agent key falls back to the shared secret")
	assert.Equal(t, NotificationModeMock, cfg.Notification.Mode)
	assert.Equal(t, 5*time.Minute, cfg.Worker.WorkflowTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadProductionDefaultsToLiveNotifications(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("API_KEY_SECRET", "secret")
	t.Setenv("NOTIFICATION_MODE", "")

	cfg := Load()

	assert.Equal(t, NotificationModeLive, cfg.Notification.Mode)
}

func TestLoadInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("AGENT_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 90*time.Second, cfg.Agent.Timeout)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:       ServerConfig{APIKeySecret: "secret"},
			Agent:        AgentConfig{Timeout: time.Second},
			Notification: NotificationConfig{Mode: NotificationModeMock},
			Worker:       WorkerConfig{Concurrency: 1, QueueSize: 1, WorkflowTimeout: time.Minute},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing secret", func(c *Config) { c.Server.APIKeySecret = "" }, "API_KEY_SECRET"},
		{"bad mode", func(c *Config) { c.Notification.Mode = "silent" }, "NOTIFICATION_MODE"},
		{"zero agent timeout", func(c *Config) { c.Agent.Timeout = 0 }, "AGENT_TIMEOUT"},
		{"zero concurrency", func(c *Config) { c.Worker.Concurrency = 0 }, "WORKER_CONCURRENCY"},
		{"zero queue", func(c *Config) { c.Worker.QueueSize = 0 }, "WORKER_QUEUE_SIZE"},
		{"zero workflow timeout", func(c *Config) { c.Worker.WorkflowTimeout = 0 }, "WORKFLOW_TIMEOUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
