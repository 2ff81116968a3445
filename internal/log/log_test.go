package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/pantry-sync/internal/config"
	"github.com/tuanvumaihuynh/pantry-sync/pkg/correlationid"
)

func TestEnrichedHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, config.Log{Format: config.LogFormatJSON, Level: slog.LevelInfo}))

	t.Run("Should add correlation id from context", func(t *testing.T) {
		buf.Reset()
		ctx := correlationid.NewContext(context.Background(), "abc-123")
		logger.With(slog.String("service", "test")).InfoContext(ctx, "hello")

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "abc-123", record["correlation_id"])
		assert.Equal(t, "test", record["service"])
		assert.Equal(t, "hello", record["msg"])
	})

	t.Run("Should skip enrichment without context values", func(t *testing.T) {
		buf.Reset()
		logger.InfoContext(context.Background(), "plain")

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.NotContains(t, record, "correlation_id")
		assert.NotContains(t, record, "trace_id")
	})

	t.Run("Should respect level", func(t *testing.T) {
		buf.Reset()
		logger.DebugContext(context.Background(), "hidden")
		assert.Empty(t, buf.String())
	})
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, config.Log{Format: config.LogFormatText, Level: slog.LevelInfo}))

	logger.Info("text output", slog.Int("count", 2))
	assert.Contains(t, buf.String(), "text output")
	assert.Contains(t, buf.String(), "count")
}
