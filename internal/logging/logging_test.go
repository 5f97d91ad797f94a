package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestDiscard(t *testing.T) {
	logger := Discard()
	if logger == nil {
		t.Fatal("Discard() returned nil")
	}

	// Should not panic when logging.
	logger.Info("test message")
	logger.Debug("debug message")
}

func TestDefault(t *testing.T) {
	t.Run("nil returns discard", func(t *testing.T) {
		logger := Default(nil)
		if logger == nil {
			t.Fatal("Default(nil) returned nil")
		}
		// Verify it's a discard logger by checking Enabled returns false.
		if logger.Enabled(context.Background(), slog.LevelInfo) {
			t.Error("Default(nil) should return a discard logger")
		}
	})

	t.Run("non-nil returns same logger", func(t *testing.T) {
		var buf bytes.Buffer
		original := slog.New(slog.NewTextHandler(&buf, nil))
		result := Default(original)
		if result != original {
			t.Error("Default should return the same logger when non-nil")
		}
	})
}

// TestDefaultScopedForDeserializer exercises the exact call-site pattern
// stream.Create uses: Default(options.Logger).With("component", ...), so a
// stream opened without an explicit logger still discards silently, and one
// opened with a real logger gets the "component" attribute attached rather
// than logging under no scope at all.
func TestDefaultScopedForDeserializer(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	scoped := Default(base).With("component", "stream.Deserializer")
	scoped.Info("stream opened", "version", "v0.1")

	out := buf.String()
	if !bytes.Contains([]byte(out), []byte("component=stream.Deserializer")) {
		t.Errorf("expected component attribute in output, got: %s", out)
	}
	if !bytes.Contains([]byte(out), []byte("stream opened")) {
		t.Errorf("expected log message in output, got: %s", out)
	}

	buf.Reset()
	discardScoped := Default(nil).With("component", "stream.Deserializer")
	discardScoped.Info("stream opened", "version", "v0.1")
	if buf.Len() != 0 {
		t.Errorf("expected no output for a discard-scoped logger, got: %s", buf.String())
	}
}
