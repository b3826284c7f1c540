package sse

import (
	"sync"

	"github.com/conduit-labs/conduit/plugin"
)

// handlerSet holds the callbacks registered on a stream handle. It is
// embedded by both EventSource and MockEventSource so the two dispatch
// events through identical code.
type handlerSet struct {
	mu      sync.Mutex
	open    []func()
	message []func(plugin.StreamEvent)
	errs    []func(error)
	named   map[string][]func(plugin.StreamEvent)
}

// OnOpen registers a callback fired once when the stream opens.
func (h *handlerSet) OnOpen(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.open = append(h.open, fn)
}

// OnMessage registers a callback for plain messages.
func (h *handlerSet) OnMessage(fn func(ev plugin.StreamEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.message = append(h.message, fn)
}

// OnError registers a callback for stream errors.
func (h *handlerSet) OnError(fn func(err error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, fn)
}

// AddEventListener registers a callback for a named event.
func (h *handlerSet) AddEventListener(event string, fn func(ev plugin.StreamEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.named == nil {
		h.named = make(map[string][]func(plugin.StreamEvent))
	}
	h.named[event] = append(h.named[event], fn)
}

func (h *handlerSet) fireOpen() {
	for _, fn := range h.snapshotOpen() {
		fn()
	}
}

func (h *handlerSet) fireError(err error) {
	h.mu.Lock()
	fns := make([]func(error), len(h.errs))
	copy(fns, h.errs)
	h.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}

// dispatch routes an event to the plain-message callbacks when it has no
// event name (or the default "message" name), otherwise to the listeners
// registered for that name.
func (h *handlerSet) dispatch(ev plugin.StreamEvent) {
	h.mu.Lock()
	var fns []func(plugin.StreamEvent)
	if ev.Event == "" || ev.Event == "message" {
		fns = make([]func(plugin.StreamEvent), len(h.message))
		copy(fns, h.message)
	} else {
		fns = make([]func(plugin.StreamEvent), len(h.named[ev.Event]))
		copy(fns, h.named[ev.Event])
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (h *handlerSet) snapshotOpen() []func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	fns := make([]func(), len(h.open))
	copy(fns, h.open)
	return fns
}
