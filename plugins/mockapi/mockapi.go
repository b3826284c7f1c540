// Package mockapi provides the reference short-circuit plugin: canned
// responses for request/response calls and replayed event sequences for
// streaming connects, without ever touching the transport. Services under
// test register one instance in their scope (or globally) and every
// downstream consumer observes responses indistinguishable from real ones,
// marked only by the X-Mock-Response header.
//
// Routes are built in code, so this plugin has no config factory.
package mockapi

import (
	"context"
	"net/url"
	"time"

	"github.com/conduit-labs/conduit/plugin"
	"github.com/conduit-labs/conduit/sse"
)

// Token identifies the plugin kind in registration scopes.
const Token plugin.Token = "mock-api"

// HeaderMock marks short-circuited responses.
const HeaderMock = "X-Mock-Response"

// Handler produces the response payload for one mocked route from the
// outgoing request body. It may block (e.g. to compute asynchronously).
type Handler func(body []byte) ([]byte, error)

// Config declares the mocked surface.
type Config struct {
	// Routes maps "<METHOD> <path>" keys (method upper-case, path including
	// the service's base path) to payload handlers.
	Routes map[string]Handler
	// Delay is applied before each short-circuit response is returned.
	Delay time.Duration
	// Streams maps connect paths to event sequences replayed through a
	// MockEventSource.
	Streams map[string][]plugin.StreamEvent
	// StreamDelay is the fixed inter-event delay for replayed streams.
	StreamDelay time.Duration
}

// Plugin short-circuits matching requests and connects.
type Plugin struct {
	cfg Config
}

// New creates a mock plugin over the given route tables.
func New(cfg Config) *Plugin {
	return &Plugin{cfg: cfg}
}

// Token returns the plugin identifier.
func (p *Plugin) Token() plugin.Token { return Token }

// OnRequest short-circuits requests whose method and path match a route.
// Unmatched requests pass through untouched.
func (p *Plugin) OnRequest(ctx context.Context, req *plugin.RequestContext) (*plugin.RequestContext, *plugin.ShortCircuit, error) {
	handler, ok := p.cfg.Routes[string(req.Method)+" "+pathOf(req.URL)]
	if !ok {
		return req, nil, nil
	}

	if p.cfg.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(p.cfg.Delay):
		}
	}

	data, err := handler(req.Body)
	if err != nil {
		return nil, nil, err
	}
	return req, &plugin.ShortCircuit{
		Response: plugin.ResponseContext{
			Status: 200,
			Headers: map[string]string{
				HeaderMock:     "true",
				"Content-Type": "application/json",
			},
			Data: data,
		},
	}, nil
}

// OnConnect short-circuits connects whose path matches a stream route,
// supplying a mock event source that replays the configured sequence.
func (p *Plugin) OnConnect(_ context.Context, cc *plugin.ConnectContext) (*plugin.ConnectContext, plugin.StreamHandle, error) {
	events, ok := p.cfg.Streams[pathOf(cc.URL)]
	if !ok {
		return cc, nil, nil
	}
	return cc, sse.NewMockEventSource(events, p.cfg.StreamDelay), nil
}

// pathOf extracts the path component of a resolved URL; URLs that do not
// parse are matched verbatim.
func pathOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return raw
	}
	return u.Path
}
