package sse

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/conduit-labs/conduit/plugin"
)

// MockEventSource replays a finite, pre-supplied sequence of events with a
// fixed inter-event delay, transitioning open, each event, closed. Close
// aborts the replay deterministically: no event fires after Close returns,
// including ones whose delay had already elapsed.
//
// A ConnectInterceptor returns one of these from OnConnect to short-circuit
// a real connection; the protocol then wires and starts it exactly like an
// EventSource.
type MockEventSource struct {
	handlerSet

	events []plugin.StreamEvent
	delay  time.Duration

	state     atomic.Int32
	done      chan struct{}
	closeOnce sync.Once
}

// NewMockEventSource prepares a replay of the given events. Emission starts
// when Start is called.
func NewMockEventSource(events []plugin.StreamEvent, delay time.Duration) *MockEventSource {
	m := &MockEventSource{
		events: events,
		delay:  delay,
		done:   make(chan struct{}),
	}
	m.state.Store(int32(plugin.StateConnecting))
	return m
}

// ReadyState reports the replay lifecycle state.
func (m *MockEventSource) ReadyState() plugin.ReadyState {
	return plugin.ReadyState(m.state.Load())
}

// Start begins the replay on a background goroutine.
func (m *MockEventSource) Start() {
	go m.replay()
}

// Close aborts the replay. Closing a closed source is a no-op.
func (m *MockEventSource) Close() {
	m.closeOnce.Do(func() {
		m.state.Store(int32(plugin.StateClosed))
		close(m.done)
	})
}

func (m *MockEventSource) replay() {
	if !m.state.CompareAndSwap(int32(plugin.StateConnecting), int32(plugin.StateOpen)) {
		return
	}
	m.fireOpen()

	timer := time.NewTimer(m.delay)
	defer timer.Stop()
	for _, ev := range m.events {
		select {
		case <-m.done:
			return
		case <-timer.C:
		}
		// The abort may have raced the timer; never emit after Close.
		if m.ReadyState() != plugin.StateOpen {
			return
		}
		m.dispatch(ev)
		timer.Reset(m.delay)
	}
	m.Close()
}
