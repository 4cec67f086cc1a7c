package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "mongo", cfg.Store)
	assert.Equal(t, "fleet", cfg.MongoDB)
	assert.Equal(t, "@every 15m", cfg.CronSchedule)
	assert.Equal(t, 0.0, cfg.EscalationRatio)
	assert.Equal(t, 30*time.Second, cfg.BreakerTimeout)
	assert.Equal(t, []string{"fleet/inspections", "fleet/usage"}, cfg.MQTTTopics)
	assert.Empty(t, cfg.MQTTBroker)
	assert.Equal(t, 600, cfg.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STORE", "memory")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("ESCALATION_RATIO", "0.25")
	t.Setenv("RETRY_INITIAL_INTERVAL", "50ms")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 0.25, cfg.EscalationRatio)
	assert.Equal(t, 50*time.Millisecond, cfg.RetryInitialInterval)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown store", "STORE", "dynamo"},
		{"bad log format", "LOG_FORMAT", "xml"},
		{"bad cron", "CRON_SCHEDULE", "every now and then"},
		{"negative ratio", "ESCALATION_RATIO", "-1"},
		{"bad qos", "MQTT_QOS", "3"},
		{"negative rate limit", "RATE_LIMIT_REQUESTS", "-1"},
		{"zero rate window", "RATE_LIMIT_WINDOW", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidate_MemoryStoreInProduction(t *testing.T) {
	cfg := Config{AppEnv: "production", Store: "memory", LogFormat: "json", CronSchedule: "@hourly", BreakerMaxFailures: 1}
	assert.Error(t, validate(&cfg))

	cfg.AppEnv = "staging"
	assert.NoError(t, validate(&cfg))
}
