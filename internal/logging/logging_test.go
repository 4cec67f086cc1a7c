package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("debug", "json", &buf)

	logger.WithField("work_order_id", "wo-1").Debug("Work order created")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "Work order created", entry["msg"])
	assert.Equal(t, "wo-1", entry["work_order_id"])
}

func TestNewWithOutput_Levels(t *testing.T) {
	tests := []struct {
		level    string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"nonsense", logrus.InfoLevel},
		{"", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := NewWithOutput(tt.level, "text", &bytes.Buffer{})
			assert.Equal(t, tt.expected, logger.GetLevel())
		})
	}
}

func TestNewWithOutput_TextFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("warn", "text", &buf)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
	_, isText := logger.Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)
}
