// Package logger provides a cross-cutting logging plugin that emits a
// structured log entry for every request, response, error, and stream
// connect flowing through a scope, optionally persisting call records to a
// requestlog store. Enable it from config with a blank import:
//
//	_ "github.com/conduit-labs/conduit/plugins/logger"
package logger

import (
	"context"
	"log/slog"

	"github.com/conduit-labs/conduit/internal/logging"
	"github.com/conduit-labs/conduit/internal/requestlog"
	"github.com/conduit-labs/conduit/plugin"
)

// Token identifies the plugin kind in registration scopes.
const Token plugin.Token = "request-logger"

func init() {
	plugin.RegisterFactory("request-logger", func(config map[string]interface{}) (plugin.Plugin, error) {
		cfg := Config{}
		if level, ok := config["level"].(string); ok {
			cfg.Level = level
		}
		if dsn, ok := config["sqlite"].(string); ok {
			w, err := requestlog.NewSQLiteWriter(dsn)
			if err != nil {
				return nil, err
			}
			cfg.Writer = w
			cfg.ownsWriter = true
		}
		return New(cfg), nil
	})
}

// Config controls log level and the optional persistent sink.
type Config struct {
	// Level is one of debug/info/warn/error; default info.
	Level string
	// Writer, when set, receives a call record for every response and
	// error.
	Writer requestlog.Writer

	ownsWriter bool
}

// RequestLogger logs every hook invocation at the configured level.
type RequestLogger struct {
	level  slog.Level
	sink   requestlog.Writer
	closer interface{ Close() error }
}

// New creates a logging plugin.
func New(cfg Config) *RequestLogger {
	l := &RequestLogger{level: slog.LevelInfo, sink: cfg.Writer}
	switch cfg.Level {
	case "debug":
		l.level = slog.LevelDebug
	case "warn":
		l.level = slog.LevelWarn
	case "error":
		l.level = slog.LevelError
	}
	if cfg.ownsWriter {
		if c, ok := cfg.Writer.(interface{ Close() error }); ok {
			l.closer = c
		}
	}
	return l
}

// Token returns the plugin identifier.
func (l *RequestLogger) Token() plugin.Token { return Token }

// OnRequest logs the outgoing request and passes it through unchanged.
func (l *RequestLogger) OnRequest(ctx context.Context, req *plugin.RequestContext) (*plugin.RequestContext, *plugin.ShortCircuit, error) {
	logging.FromContext(ctx).Log(ctx, l.level, "outgoing request",
		"method", string(req.Method),
		"url", req.URL,
		"body_bytes", len(req.Body),
	)
	return req, nil, nil
}

// OnResponse logs the response and records it in the sink, if any.
func (l *RequestLogger) OnResponse(ctx context.Context, res *plugin.ResponseContext) (*plugin.ResponseContext, error) {
	logging.FromContext(ctx).Log(ctx, l.level, "incoming response",
		"status", res.Status,
		"body_bytes", len(res.Data),
	)
	if l.sink != nil {
		_ = l.sink.Write(ctx, requestlog.Entry{
			CallID: logging.CallIDFromContext(ctx),
			Status: res.Status,
		})
	}
	return res, nil
}

// OnError logs the fault and passes it through unrecovered.
func (l *RequestLogger) OnError(ctx context.Context, req *plugin.RequestContext, callErr error) (*plugin.ResponseContext, error) {
	logging.FromContext(ctx).Error("request failed",
		"method", string(req.Method),
		"url", req.URL,
		"error", callErr.Error(),
	)
	if l.sink != nil {
		_ = l.sink.Write(ctx, requestlog.Entry{
			CallID:       logging.CallIDFromContext(ctx),
			Method:       string(req.Method),
			URL:          req.URL,
			ErrorMessage: callErr.Error(),
		})
	}
	return nil, callErr
}

// OnConnect logs the connect and passes it through unchanged.
func (l *RequestLogger) OnConnect(ctx context.Context, cc *plugin.ConnectContext) (*plugin.ConnectContext, plugin.StreamHandle, error) {
	logging.FromContext(ctx).Log(ctx, l.level, "stream connect", "url", cc.URL)
	return cc, nil, nil
}

// Destroy closes the persistent sink when this plugin owns it.
func (l *RequestLogger) Destroy() {
	if l.closer != nil {
		_ = l.closer.Close()
	}
}
