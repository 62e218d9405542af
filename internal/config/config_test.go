package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/seatwatch")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.SchedulerIdleInterval)
	assert.Equal(t, 10*time.Second, cfg.SchedulerActiveInterval)
	assert.Equal(t, time.Minute, cfg.SchedulerCadenceCheck)
	assert.Equal(t, "Asia/Seoul", cfg.Location().String())
	assert.Equal(t, TransportLog, cfg.NotifyTransport)
	assert.Equal(t, 8000, cfg.APIPort)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/seatwatch")
	t.Setenv("SCHEDULER_ACTIVE_INTERVAL", "30")
	t.Setenv("SCHEDULER_IDLE_INTERVAL", "6h")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("NOTIFY_TRANSPORT", "AMQP")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.SchedulerActiveInterval)
	assert.Equal(t, 6*time.Hour, cfg.SchedulerIdleInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
	assert.Equal(t, TransportAMQP, cfg.NotifyTransport)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "transport", env: map[string]string{"NOTIFY_TRANSPORT": "sms"}, want: "NOTIFY_TRANSPORT"},
		{name: "cadence", env: map[string]string{"SCHEDULER_ACTIVE_INTERVAL": "2h", "SCHEDULER_IDLE_INTERVAL": "1h"}, want: "exceeds"},
		{name: "timezone", env: map[string]string{"SCHEDULER_TIMEZONE": "Mars/Olympus"}, want: "SCHEDULER_TIMEZONE"},
		{name: "jwt in production", env: map[string]string{"ENVIRONMENT": "production"}, want: "JWT_SECRET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/seatwatch")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
