package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkdeck/linkdeck/pkg/logger"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json output with service attr", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer

		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithService("billing"),
		)
		log.Info("hello", slog.String("key", "value"))

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "hello", record["msg"])
		assert.Equal(t, "billing", record["service"])
		assert.Equal(t, "value", record["key"])
	})

	t.Run("info level filters debug by default", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer

		log := logger.New(logger.WithOutput(&buf))
		log.Debug("invisible")

		assert.Zero(t, buf.Len())
	})

	t.Run("development preset is text at debug level", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer

		log := logger.New(logger.WithOutput(&buf), logger.WithDevelopment())
		log.Debug("visible")

		assert.True(t, strings.Contains(buf.String(), "msg=visible"))
	})
}
