// Package rest implements conduit's request/response protocol: one
// HTTP-style call executed through the merged interceptor chain, with onion
// ordering between the request and response phases, plugin short-circuits,
// the deprecated legacy hook chain, and error-phase recovery.
package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/conduit-labs/conduit/internal/logging"
	"github.com/conduit-labs/conduit/internal/metrics"
	"github.com/conduit-labs/conduit/internal/urlutil"
	"github.com/conduit-labs/conduit/plugin"
)

// ErrNotConfigured reports use of a Protocol that was never built with New.
// This is a programming error, not a recoverable runtime condition.
var ErrNotConfigured = errors.New("rest: protocol not configured")

// StatusError is the transport fault for an HTTP response with status 400
// or above. It is routed through the error interceptor phase, where plugins
// may recover or transform it.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Status)
}

// Config carries the construction parameters for a request/response
// protocol binding.
type Config struct {
	// Name labels log lines and metrics, usually the owning service key.
	Name string
	// BaseURL is prepended to relative call paths.
	BaseURL string
	// Headers are the base headers applied to every request before the
	// interceptor chains run.
	Headers map[string]string
	// Client is the opaque transport; a default client with a 30s timeout
	// is used when nil.
	Client *http.Client
	// Scope supplies the merged interceptor chain. A nil scope runs no
	// plugins.
	Scope *plugin.Scope
	// Legacy is the deprecated string-keyed hook chain; an empty chain is
	// created when nil.
	Legacy *plugin.LegacyChain
}

// Protocol executes calls through the interceptor pipeline.
type Protocol struct {
	cfg        Config
	client     *http.Client
	scope      *plugin.Scope
	legacy     *plugin.LegacyChain
	configured bool
}

// New creates a request/response protocol binding.
func New(cfg Config) *Protocol {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	scope := cfg.Scope
	if scope == nil {
		scope = plugin.NewScope(nil)
	}
	legacy := cfg.Legacy
	if legacy == nil {
		legacy = plugin.NewLegacyChain()
	}
	return &Protocol{
		cfg:        cfg,
		client:     client,
		scope:      scope,
		legacy:     legacy,
		configured: true,
	}
}

// Legacy exposes the deprecated hook chain for callers that still register
// string-keyed hooks.
func (p *Protocol) Legacy() *plugin.LegacyChain {
	return p.legacy
}

// Execute runs one call through both interceptor chains and the transport.
//
// Phase order on the way in is token request phase (merged FIFO), then
// legacy request phase (priority order); on the way out, legacy response
// phase runs before the token response phase, which iterates the full
// merged order in reverse. A short-circuit from either chain skips the
// transport but the response phases still run, so observers fire. Transport
// faults go through the token error phase in reverse order, where a plugin
// may recover by supplying a response.
func (p *Protocol) Execute(ctx context.Context, method plugin.Method, path string, body []byte, query url.Values) (*plugin.ResponseContext, error) {
	if p == nil || !p.configured {
		return nil, ErrNotConfigured
	}
	start := time.Now()
	// Every call carries a unique ID unless the caller stamped one. Plugins
	// that keep per-call state key it off this ID, and it lands in every log
	// line for the call.
	if logging.CallIDFromContext(ctx) == "" {
		ctx = logging.WithCallID(ctx, logging.NewCallID())
	}
	log := logging.FromContext(ctx)

	req := p.buildRequest(method, path, body, query)
	merged := p.scope.Merged()

	// Token request phase, FIFO.
	var sc *plugin.ShortCircuit
	var scToken plugin.Token
	for _, pl := range merged {
		ri, ok := pl.(plugin.RequestInterceptor)
		if !ok {
			continue
		}
		next, out, err := ri.OnRequest(ctx, req)
		if err != nil {
			metrics.PluginErrors.WithLabelValues(string(pl.Token()), "request").Inc()
			p.count(method, "error")
			return nil, fmt.Errorf("request phase plugin %s: %w", pl.Token(), err)
		}
		if next != nil {
			req = next
		}
		if out != nil {
			sc = out
			scToken = pl.Token()
			break
		}
	}

	var res *plugin.ResponseContext
	var transportErr error
	switch {
	case sc != nil:
		resp := sc.Response
		res = &resp
		metrics.ShortCircuitsTotal.WithLabelValues(p.cfg.Name, string(scToken)).Inc()
	default:
		// Legacy request phase runs closer to the transport.
		var resolvedBy string
		var err error
		req, resolvedBy, err = p.legacy.RunRequest(ctx, req)
		if err != nil {
			p.count(method, "error")
			return nil, err
		}
		if req.Resolved != nil {
			res = req.Resolved
			metrics.ShortCircuitsTotal.WithLabelValues(p.cfg.Name, resolvedBy).Inc()
		} else {
			res, transportErr = p.transport(ctx, req)
		}
	}

	if transportErr != nil {
		recovered, finalErr := p.runErrorPhase(ctx, merged, req, transportErr)
		if recovered == nil {
			p.count(method, "error")
			log.Error("request failed",
				"service", p.cfg.Name,
				"method", string(method),
				"url", req.URL,
				"latency_ms", time.Since(start).Milliseconds(),
				"error", finalErr.Error(),
			)
			return nil, finalErr
		}
		p.count(method, "recovered")
		return recovered, nil
	}

	// Legacy response phase, then token response phase over the full merged
	// order in reverse. Plugins skipped by a short-circuit still observe the
	// response.
	res, err := p.legacy.RunResponse(ctx, res)
	if err != nil {
		p.count(method, "error")
		return nil, err
	}
	for i := len(merged) - 1; i >= 0; i-- {
		pi, ok := merged[i].(plugin.ResponseInterceptor)
		if !ok {
			continue
		}
		next, err := pi.OnResponse(ctx, res)
		if err != nil {
			metrics.PluginErrors.WithLabelValues(string(merged[i].Token()), "response").Inc()
			p.count(method, "error")
			return nil, fmt.Errorf("response phase plugin %s: %w", merged[i].Token(), err)
		}
		if next != nil {
			res = next
		}
	}

	latency := time.Since(start)
	if sc != nil {
		p.count(method, "short_circuit")
	} else {
		p.count(method, "success")
	}
	metrics.RequestDuration.WithLabelValues(p.cfg.Name, string(method)).Observe(latency.Seconds())
	log.Debug("request completed",
		"service", p.cfg.Name,
		"method", string(method),
		"url", req.URL,
		"status", res.Status,
		"latency_ms", latency.Milliseconds(),
		"short_circuit", sc != nil,
	)
	return res, nil
}

func (p *Protocol) buildRequest(method plugin.Method, path string, body []byte, query url.Values) *plugin.RequestContext {
	u := urlutil.Join(p.cfg.BaseURL, path)
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + query.Encode()
	}
	headers := maps.Clone(p.cfg.Headers)
	if headers == nil {
		headers = make(map[string]string)
	}
	if len(body) > 0 {
		if _, ok := headers["Content-Type"]; !ok {
			headers["Content-Type"] = "application/json"
		}
	}
	return &plugin.RequestContext{
		Method:  method,
		URL:     u,
		Headers: headers,
		Body:    body,
	}
}

// runErrorPhase feeds the transport fault through error interceptors in
// reverse merged order. The first non-nil response recovers the call.
func (p *Protocol) runErrorPhase(ctx context.Context, merged []plugin.Plugin, req *plugin.RequestContext, callErr error) (*plugin.ResponseContext, error) {
	err := callErr
	for i := len(merged) - 1; i >= 0; i-- {
		ei, ok := merged[i].(plugin.ErrorInterceptor)
		if !ok {
			continue
		}
		resp, nerr := ei.OnError(ctx, req, err)
		if resp != nil {
			return resp, nil
		}
		if nerr != nil {
			err = nerr
		}
	}
	return nil, err
}

func (p *Protocol) transport(ctx context.Context, req *plugin.RequestContext) (*plugin.ResponseContext, error) {
	var rd io.Reader
	if len(req.Body) > 0 {
		rd = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), req.URL, rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode >= 400 {
		return nil, &StatusError{Status: httpResp.StatusCode, Body: data}
	}

	headers := make(map[string]string, len(httpResp.Header))
	for k := range httpResp.Header {
		headers[k] = httpResp.Header.Get(k)
	}
	return &plugin.ResponseContext{
		Status:  httpResp.StatusCode,
		Headers: headers,
		Data:    data,
	}, nil
}

func (p *Protocol) count(method plugin.Method, status string) {
	metrics.RequestsTotal.WithLabelValues(p.cfg.Name, string(method), status).Inc()
}

// Close destroys instance-scoped plugins. Idempotent.
func (p *Protocol) Close() {
	p.scope.Close()
}
