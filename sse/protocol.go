package sse

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/conduit-labs/conduit/internal/logging"
	"github.com/conduit-labs/conduit/internal/metrics"
	"github.com/conduit-labs/conduit/internal/urlutil"
	"github.com/conduit-labs/conduit/plugin"
)

// ErrNotConfigured reports use of a Protocol that was never built with New.
// This is a programming error, not a recoverable runtime condition.
var ErrNotConfigured = errors.New("sse: protocol not configured")

// Config carries the construction parameters for a streaming protocol
// binding.
type Config struct {
	// Name labels log lines and metrics, usually the owning service key.
	Name string
	// BaseURL is prepended to relative connect paths.
	BaseURL string
	// Headers are sent on every real connection.
	Headers map[string]string
	// Client is the transport; http.DefaultClient when nil. Streaming
	// clients must not carry a global timeout.
	Client *http.Client
	// Scope supplies the merged interceptor chain. A nil scope runs no
	// plugins.
	Scope *plugin.Scope
}

// Protocol opens long-lived event streams through the connect interceptor
// chain and tracks every open connection by generated id.
type Protocol struct {
	cfg    Config
	client *http.Client
	scope  *plugin.Scope

	mu         sync.Mutex
	conns      map[string]plugin.StreamHandle
	configured bool
}

// New creates a streaming protocol binding.
func New(cfg Config) *Protocol {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	scope := cfg.Scope
	if scope == nil {
		scope = plugin.NewScope(nil)
	}
	return &Protocol{
		cfg:        cfg,
		client:     client,
		scope:      scope,
		conns:      make(map[string]plugin.StreamHandle),
		configured: true,
	}
}

// Connect runs the connect interceptor chain, opens a stream (real, or
// plugin-supplied on short-circuit), wires the caller's callbacks, and
// returns the connection id.
//
// onMessage fires for every plain message. onComplete, when non-nil, fires
// once if the server terminates the stream with a "done" event; the
// connection then auto-disconnects. Transport errors are logged and
// auto-disconnect the stream.
func (p *Protocol) Connect(ctx context.Context, path string, onMessage func(ev plugin.StreamEvent), onComplete func()) (string, error) {
	if p == nil || !p.configured {
		return "", ErrNotConfigured
	}
	// Mirror the request path: each connect carries a unique call ID unless
	// the caller stamped one.
	if logging.CallIDFromContext(ctx) == "" {
		ctx = logging.WithCallID(ctx, logging.NewCallID())
	}
	log := logging.FromContext(ctx)

	cc := &plugin.ConnectContext{
		URL:     urlutil.Join(p.cfg.BaseURL, path),
		Headers: maps.Clone(p.cfg.Headers),
	}
	if cc.Headers == nil {
		cc.Headers = make(map[string]string)
	}

	// Connect phase: globals then instance plugins, FIFO. The first handle
	// returned wins.
	var handle plugin.StreamHandle
	for _, pl := range p.scope.Merged() {
		ci, ok := pl.(plugin.ConnectInterceptor)
		if !ok {
			continue
		}
		next, h, err := ci.OnConnect(ctx, cc)
		if err != nil {
			metrics.PluginErrors.WithLabelValues(string(pl.Token()), "connect").Inc()
			return "", fmt.Errorf("connect phase plugin %s: %w", pl.Token(), err)
		}
		if next != nil {
			cc = next
		}
		if h != nil {
			handle = h
			break
		}
	}

	shortCircuited := handle != nil
	if handle == nil {
		handle = NewEventSource(p.client, cc.URL, cc.Headers)
	}

	// From here on, mock and real handles take the identical path: every
	// downstream consumer observes the same wiring regardless of origin.
	id := uuid.NewString()
	handle.OnMessage(func(ev plugin.StreamEvent) {
		metrics.StreamEventsTotal.WithLabelValues(p.cfg.Name).Inc()
		if onMessage != nil {
			onMessage(ev)
		}
	})
	handle.OnError(func(err error) {
		log.Error("stream error",
			"service", p.cfg.Name,
			"connection_id", id,
			"url", cc.URL,
			"error", err.Error(),
		)
		p.Disconnect(id)
	})
	handle.AddEventListener(plugin.EventDone, func(plugin.StreamEvent) {
		if onComplete != nil {
			onComplete()
		}
		p.Disconnect(id)
	})

	p.mu.Lock()
	p.conns[id] = handle
	p.mu.Unlock()
	metrics.ActiveStreams.WithLabelValues(p.cfg.Name).Inc()

	if s, ok := handle.(Starter); ok {
		s.Start()
	}

	log.Debug("stream connected",
		"service", p.cfg.Name,
		"connection_id", id,
		"url", cc.URL,
		"mocked", shortCircuited,
	)
	return id, nil
}

// Disconnect closes and deregisters the connection. Unknown or
// already-closed ids are a no-op.
func (p *Protocol) Disconnect(id string) {
	p.mu.Lock()
	handle, ok := p.conns[id]
	if ok {
		delete(p.conns, id)
	}
	p.mu.Unlock()
	if !ok {
		return
	}
	handle.Close()
	metrics.ActiveStreams.WithLabelValues(p.cfg.Name).Dec()
}

// Connections returns the number of currently registered connections.
func (p *Protocol) Connections() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// Close closes every open connection and destroys instance-scoped plugins.
func (p *Protocol) Close() {
	p.mu.Lock()
	conns := p.conns
	p.conns = make(map[string]plugin.StreamHandle)
	p.mu.Unlock()
	for range conns {
		metrics.ActiveStreams.WithLabelValues(p.cfg.Name).Dec()
	}
	for _, h := range conns {
		h.Close()
	}
	p.scope.Close()
}
