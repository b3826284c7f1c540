package plugin

// ReadyState reports the lifecycle position of a stream handle.
type ReadyState int32

// Stream handle states, in lifecycle order.
const (
	StateConnecting ReadyState = iota
	StateOpen
	StateClosed
)

// EventDone is the distinguished event name that terminates a stream and
// triggers the caller's completion callback.
const EventDone = "done"

// StreamEvent is one record delivered over a streaming connection. An empty
// Event name means a plain message.
type StreamEvent struct {
	Event string
	Data  string
}

// StreamHandle abstracts one server-to-client event stream. Real transport
// streams and mock replays implement the same interface so the streaming
// protocol wires both through identical code.
//
// Callback registration is not safe to interleave with delivery; attach all
// handlers before the handle starts emitting.
type StreamHandle interface {
	// ReadyState reports the current lifecycle state.
	ReadyState() ReadyState

	// OnOpen registers a callback fired once when the stream opens.
	OnOpen(fn func())

	// OnMessage registers a callback for plain messages (no event name).
	OnMessage(fn func(ev StreamEvent))

	// OnError registers a callback for transport or protocol errors.
	OnError(fn func(err error))

	// AddEventListener registers a callback for a named event.
	AddEventListener(event string, fn func(ev StreamEvent))

	// Close terminates the stream. Events already scheduled but not yet
	// delivered are dropped. Closing a closed handle is a no-op.
	Close()
}
