package logctx

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerFromContext_Fallback(t *testing.T) {
	if got := LoggerFromContext(context.Background()); got != slog.Default() {
		t.Error("expected default logger for bare context")
	}
}

func TestWith_CarriesAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := WithLogger(context.Background(), logger)
	ctx = With(ctx, "task_id", 42)

	LoggerFromContext(ctx).Info("hello")

	if !strings.Contains(buf.String(), `"task_id":42`) {
		t.Errorf("expected task_id attribute in output, got %s", buf.String())
	}
}
