package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestInitLogger_Development(t *testing.T) {
	InitLogger(false)

	if Logger == nil {
		t.Error("Logger should not be nil after initialization")
	}
}

func TestInitLogger_Production(t *testing.T) {
	InitLogger(true)

	if Logger == nil {
		t.Error("Logger should not be nil after initialization")
	}
}

func TestInitLoggerWithLevel(t *testing.T) {
	InitLoggerWithLevel(false, slog.LevelDebug)

	if Logger == nil {
		t.Error("Logger should not be nil after initialization")
	}
}

func TestConfigure(t *testing.T) {
	var buf bytes.Buffer

	Configure(&buf, "debug", "json")
	Debug("configured", "key", "value")

	output := buf.String()
	if !strings.Contains(output, `"msg":"configured"`) {
		t.Errorf("expected JSON output with debug message, got %q", output)
	}

	buf.Reset()
	Configure(&buf, "warn", "text")
	Info("hidden")
	Warn("shown")

	output = buf.String()
	if strings.Contains(output, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(output, "msg=shown") {
		t.Errorf("expected text output with warn message, got %q", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestWithContext(t *testing.T) {
	Logger = nil // Reset
	ctx := context.Background()
	logger := WithContext(ctx)

	if logger == nil {
		t.Error("WithContext should not return nil")
	}
}

func TestWithContext_RequestID(t *testing.T) {
	var buf bytes.Buffer
	Logger = slog.New(slog.NewTextHandler(&buf, nil))

	ctx := ContextWithRequestID(context.Background(), "req-42")
	WithContext(ctx).Info("test message")

	if !strings.Contains(buf.String(), "request_id=req-42") {
		t.Errorf("expected request_id field, got %q", buf.String())
	}
}

func TestLoggingFunctions(t *testing.T) {
	// Create a buffer to capture log output
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	Logger = slog.New(handler)

	t.Run("Info", func(t *testing.T) {
		buf.Reset()
		Info("test info message", "key", "value")
		if !strings.Contains(buf.String(), "test info message") {
			t.Error("Info should log the message")
		}
		if !strings.Contains(buf.String(), "key=value") {
			t.Error("Info should log the key-value pair")
		}
	})

	t.Run("Warn", func(t *testing.T) {
		buf.Reset()
		Warn("test warn message", "warning_key", "warning_value")
		if !strings.Contains(buf.String(), "WARN") {
			t.Error("Warn should log at WARN level")
		}
	})

	t.Run("Error", func(t *testing.T) {
		buf.Reset()
		Error("test error message", "error_key", "error_value")
		if !strings.Contains(buf.String(), "ERROR") {
			t.Error("Error should log at ERROR level")
		}
	})

	t.Run("Debug", func(t *testing.T) {
		buf.Reset()
		Debug("test debug message", "debug_key", "debug_value")
		if !strings.Contains(buf.String(), "DEBUG") {
			t.Error("Debug should log at DEBUG level")
		}
	})
}

func TestFieldLoggers(t *testing.T) {
	tests := []struct {
		name   string
		logger func() *slog.Logger
		want   string
	}{
		{"symbol", func() *slog.Logger { return WithSymbol("ACME") }, "symbol=ACME"},
		{"company", func() *slog.Logger { return WithCompany("Acme") }, "company=Acme"},
		{"provider", func() *slog.Logger { return WithProvider("newsapi") }, "provider=newsapi"},
		{"error", func() *slog.Logger { return WithError(errors.New("boom")) }, "error=boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Logger = slog.New(slog.NewTextHandler(&buf, nil))

			tt.logger().Info("test message")

			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected %q in %q", tt.want, buf.String())
			}
		})
	}
}

func TestLoggingWithNilLogger(t *testing.T) {
	// Test that functions handle nil Logger by initializing
	Logger = nil
	Info("test message") // Should not panic

	Logger = nil
	Warn("test message") // Should not panic

	Logger = nil
	Error("test message") // Should not panic

	Logger = nil
	Debug("test message") // Should not panic

	Logger = nil
	_ = WithSymbol("ACME") // Should not panic

	Logger = nil
	_ = WithProvider("openai") // Should not panic

	Logger = nil
	_ = WithError(errors.New("test")) // Should not panic

	Logger = nil
	_ = WithContext(context.Background()) // Should not panic
}
