package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the global logger instance
var Logger *slog.Logger

// InitLogger initializes the global logger with the appropriate handler
// For production, use JSON format; for development, use text format
func InitLogger(production bool) {
	InitLoggerWithLevel(production, slog.LevelInfo)
}

// InitLoggerWithLevel initializes the logger with a specific log level
func InitLoggerWithLevel(production bool, level slog.Level) {
	Logger = slog.New(newHandler(os.Stdout, production, level))
	slog.SetDefault(Logger)
}

// Configure initializes the logger from the LOG_LEVEL / LOG_FORMAT settings.
// Output goes to w; the CLI passes stderr so reports on stdout stay clean.
func Configure(w io.Writer, level, format string) {
	Logger = slog.New(newHandler(w, strings.EqualFold(format, "json"), ParseLevel(level)))
	slog.SetDefault(Logger)
}

// ParseLevel maps a level name to a slog.Level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHandler(w io.Writer, production bool, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
	}
	if production {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func ensureLogger() {
	if Logger == nil {
		InitLogger(false)
	}
}

// WithContext returns a logger carrying the request ID stored in ctx, if any
func WithContext(ctx context.Context) *slog.Logger {
	ensureLogger()
	if id := RequestIDFromContext(ctx); id != "" {
		return Logger.With("request_id", id)
	}
	return Logger
}

// Info logs an info message
func Info(msg string, args ...any) {
	ensureLogger()
	Logger.Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	ensureLogger()
	Logger.Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	ensureLogger()
	Logger.Error(msg, args...)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	ensureLogger()
	Logger.Debug(msg, args...)
}

// Fatal logs an error message and exits
func Fatal(msg string, args ...any) {
	ensureLogger()
	Logger.Error(msg, args...)
	os.Exit(1)
}

// WithSymbol returns a logger with symbol field
func WithSymbol(symbol string) *slog.Logger {
	ensureLogger()
	return Logger.With("symbol", symbol)
}

// WithCompany returns a logger with the requested company field
func WithCompany(company string) *slog.Logger {
	ensureLogger()
	return Logger.With("company", company)
}

// WithProvider returns a logger with provider field
func WithProvider(provider string) *slog.Logger {
	ensureLogger()
	return Logger.With("provider", provider)
}

// WithError returns a logger with error field
func WithError(err error) *slog.Logger {
	ensureLogger()
	return Logger.With("error", err)
}

type requestIDKey struct{}

// ContextWithRequestID stores a request ID for WithContext to pick up
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID stored in ctx or ""
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
