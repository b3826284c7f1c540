// Package sse implements the streaming side of conduit: a connect pipeline
// subject to the same interceptor model as the request/response protocol,
// long-lived server-sent event connections keyed by generated ids, and a
// deterministic mock stream for tests.
package sse

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/conduit-labs/conduit/plugin"
)

// Starter is implemented by stream handles that defer emission until the
// protocol has wired its callbacks. Both EventSource and MockEventSource
// implement it; plugin-supplied handles may too.
type Starter interface {
	Start()
}

// EventSource is a server-sent events stream over an HTTP client. It issues
// a GET with Accept: text/event-stream and parses event/data frames,
// dispatching each to the registered callbacks.
type EventSource struct {
	handlerSet

	url     string
	headers map[string]string
	client  *http.Client

	state     atomic.Int32
	cancel    context.CancelFunc
	runCtx    context.Context
	closeOnce sync.Once
}

// NewEventSource prepares a stream to the given URL. Nothing is sent until
// Start is called, so callbacks can be attached first.
func NewEventSource(client *http.Client, url string, headers map[string]string) *EventSource {
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &EventSource{
		url:     url,
		headers: headers,
		client:  client,
		runCtx:  ctx,
		cancel:  cancel,
	}
	e.state.Store(int32(plugin.StateConnecting))
	return e
}

// ReadyState reports the stream lifecycle state.
func (e *EventSource) ReadyState() plugin.ReadyState {
	return plugin.ReadyState(e.state.Load())
}

// Start opens the connection and begins delivering events on a background
// goroutine. The connection outlives the caller's context; Close is the
// cancellation mechanism.
func (e *EventSource) Start() {
	go e.run()
}

// Close terminates the stream. No callback fires after Close returns the
// state to closed; events already read but not yet dispatched are dropped.
func (e *EventSource) Close() {
	e.closeOnce.Do(func() {
		e.state.Store(int32(plugin.StateClosed))
		e.cancel()
	})
}

func (e *EventSource) run() {
	req, err := http.NewRequestWithContext(e.runCtx, http.MethodGet, e.url, nil)
	if err != nil {
		e.fail(fmt.Errorf("build stream request: %w", err))
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	for k, v := range e.headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		e.fail(fmt.Errorf("open stream: %w", err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		e.fail(fmt.Errorf("open stream: unexpected status %d", resp.StatusCode))
		return
	}

	if !e.state.CompareAndSwap(int32(plugin.StateConnecting), int32(plugin.StateOpen)) {
		return // closed before the connection came up
	}
	e.fireOpen()

	var event string
	var data []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(data) > 0 || event != "" {
				e.deliver(plugin.StreamEvent{Event: event, Data: strings.Join(data, "\n")})
			}
			event = ""
			data = nil
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil && e.ReadyState() == plugin.StateOpen {
		e.fail(fmt.Errorf("read stream: %w", err))
		return
	}
	// Server closed the stream.
	e.state.Store(int32(plugin.StateClosed))
}

func (e *EventSource) deliver(ev plugin.StreamEvent) {
	if e.ReadyState() != plugin.StateOpen {
		return
	}
	e.dispatch(ev)
}

func (e *EventSource) fail(err error) {
	if e.ReadyState() == plugin.StateClosed {
		return
	}
	e.state.Store(int32(plugin.StateClosed))
	e.fireError(err)
}
