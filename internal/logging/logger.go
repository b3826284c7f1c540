// Package logging provides structured JSON logging with call ID
// propagation. It wraps Go's built-in log/slog with conduit-specific
// helpers: a per-call ID injected into context by the protocol engines (or
// by the HTTP middleware on the serving side) and extracted wherever a log
// line is emitted.
package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"os"
)

type contextKey string

const callIDKey contextKey = "call_id"

// Logger is the package-level structured logger. Callers should prefer
// FromContext(ctx) to automatically attach the call ID.
var Logger *slog.Logger

func init() {
	Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

// Setup (re-)initialises the package logger. level is one of
// debug/info/warn/error (default info). format is "json" (default) or
// "text".
func Setup(level, format string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// NewCallID generates a random 16-byte hex call ID.
func NewCallID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// WithCallID stores a call ID in the context.
func WithCallID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callIDKey, id)
}

// CallIDFromContext retrieves the call ID stored in the context.
func CallIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(callIDKey).(string)
	return v
}

// FromContext returns a *slog.Logger pre-annotated with the call_id from ctx.
func FromContext(ctx context.Context) *slog.Logger {
	if id := CallIDFromContext(ctx); id != "" {
		return Logger.With("call_id", id)
	}
	return Logger
}

// Middleware injects a call ID into every request context and echoes it in
// the X-Request-ID response header. Uses the incoming X-Request-ID header
// if present, otherwise generates a new one.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = NewCallID()
		}
		ctx := WithCallID(r.Context(), id)
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
