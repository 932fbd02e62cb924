package logger

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Levels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "unknown"} {
		logger := New(level)
		assert.NotNil(t, logger)
	}
}

func TestNewJSON(t *testing.T) {
	logger := NewJSON("info")
	assert.NotNil(t, logger)
}

func TestTruncateText_ShortUnchanged(t *testing.T) {
	assert.Equal(t, "select 1", TruncateText("select 1", 100))
}

func TestTruncateText_Long(t *testing.T) {
	long := "select " + string(make([]byte, 200))
	truncated := TruncateText(long, 10)
	assert.True(t, len(truncated) < len(long))
	assert.Contains(t, truncated, "truncated")
}

func TestPrettyHandler_WithAttrs_CarriesBoundAttrsIntoEveryRecord(t *testing.T) {
	h := &PrettyHandler{opts: &slog.HandlerOptions{Level: slog.LevelInfo}}
	bound := h.WithAttrs([]slog.Attr{slog.String("deployment_id", "prod-1")})

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "load manager listening", 0)
	assert.NoError(t, bound.Handle(context.Background(), record))

	// The original handler must be unaffected (WithAttrs returns a copy).
	assert.Empty(t, h.attrs)
	pretty, ok := bound.(*PrettyHandler)
	assert.True(t, ok)
	assert.Len(t, pretty.attrs, 1)
	assert.Equal(t, "deployment_id", pretty.attrs[0].Key)
}

func TestPrettyHandler_WithGroup_PrefixesKeys(t *testing.T) {
	h := &PrettyHandler{opts: &slog.HandlerOptions{Level: slog.LevelInfo}}
	grouped := h.WithGroup("admission")

	pretty, ok := grouped.(*PrettyHandler)
	assert.True(t, ok)
	assert.Equal(t, "admission.shape", pretty.prefixedKey("shape"))
}
