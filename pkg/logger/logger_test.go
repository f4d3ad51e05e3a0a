package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavsocial/wavscan/pkg/logger"
)

func TestNew_JSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.Config{Level: "info", Format: logger.FormatJSON},
		logger.WithOutput(&buf),
		logger.WithAttr(slog.String("service", "wavscan")),
	)

	log.Info("hello", logger.Component("test"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "wavscan", record["service"])
	assert.Equal(t, "test", record["component"])
}

func TestNew_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: "error", Format: logger.FormatText}, logger.WithOutput(&buf))

	log.Info("dropped")
	assert.Empty(t, buf.String())

	log.Error("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestError_NilIsEmpty(t *testing.T) {
	t.Parallel()

	attr := logger.Error(nil)
	assert.True(t, attr.Equal(slog.Attr{}))
}
