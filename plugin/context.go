package plugin

import "maps"

// Method is an HTTP request method accepted by the request/response protocol.
type Method string

// Supported request methods.
const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

// RequestContext carries one outgoing request through the interceptor
// chains. Interceptors must not mutate a received context in place; Clone
// it, modify the copy, and return that.
type RequestContext struct {
	Method  Method
	URL     string
	Headers map[string]string
	Body    []byte

	// Resolved is the legacy chain's short-circuit sentinel: a legacy
	// request hook that sets it skips the transport and later legacy hooks.
	Resolved *ResponseContext
}

// Clone returns a deep-enough copy for copy-on-write chain semantics.
// The body is shared (treated as opaque and read-only); headers are copied.
func (rc *RequestContext) Clone() *RequestContext {
	cp := *rc
	cp.Headers = maps.Clone(rc.Headers)
	if cp.Headers == nil {
		cp.Headers = make(map[string]string)
	}
	return &cp
}

// ResponseContext carries a response (transport-produced or plugin-supplied)
// back out through the interceptor chains.
type ResponseContext struct {
	Status  int
	Headers map[string]string
	Data    []byte
}

// Clone returns a copy with its own header map.
func (rc *ResponseContext) Clone() *ResponseContext {
	cp := *rc
	cp.Headers = maps.Clone(rc.Headers)
	if cp.Headers == nil {
		cp.Headers = make(map[string]string)
	}
	return &cp
}

// ShortCircuit wraps a response supplied by a request interceptor in place
// of a transport call.
type ShortCircuit struct {
	Response ResponseContext
}

// ConnectContext carries one streaming connect through the connect chain.
type ConnectContext struct {
	URL     string
	Headers map[string]string
}

// Clone returns a copy with its own header map.
func (cc *ConnectContext) Clone() *ConnectContext {
	cp := *cc
	cp.Headers = maps.Clone(cc.Headers)
	if cp.Headers == nil {
		cp.Headers = make(map[string]string)
	}
	return &cp
}
