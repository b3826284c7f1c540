// Package plugin defines the interceptor contract and the registration
// scopes used by the conduit protocol engines.
//
// A plugin is any value with a stable Token identity that implements one or
// more of the optional capability interfaces: RequestInterceptor,
// ResponseInterceptor, ErrorInterceptor, ConnectInterceptor, Destroyer.
// The protocols probe for each capability at chain-execution time, so a
// single plugin instance may intercept both HTTP calls and streaming
// connects (cross-cutting plugins such as auth or logging).
//
// Built-in plugins live in the plugins/* packages and register config
// factories by importing them with a blank import
// (e.g. _ "github.com/conduit-labs/conduit/plugins/mockapi").
package plugin

import "context"

// Token identifies a plugin kind. Registration scopes key entries by Token,
// so two instances of the same kind cannot coexist within one scope. Tokens
// are assigned at plugin definition time; a plugin type returns a constant.
type Token string

// Plugin is the minimal contract every interceptor must satisfy.
// Interception hooks are optional capability interfaces.
type Plugin interface {
	Token() Token
}

// RequestInterceptor observes or rewrites an outgoing request.
//
// The returned context is handed to the next interceptor; returning the
// input unchanged is allowed. A non-nil ShortCircuit stops the request
// phase: no later interceptor runs and the transport is never called.
type RequestInterceptor interface {
	Plugin
	OnRequest(ctx context.Context, req *RequestContext) (*RequestContext, *ShortCircuit, error)
}

// ResponseInterceptor observes or rewrites a response on the way out.
// The response phase never short-circuits.
type ResponseInterceptor interface {
	Plugin
	OnResponse(ctx context.Context, res *ResponseContext) (*ResponseContext, error)
}

// ErrorInterceptor handles a transport fault. Returning a non-nil response
// recovers the call: the error phase stops and that response becomes the
// final result. Otherwise the returned error is handed to the next
// interceptor in the phase.
type ErrorInterceptor interface {
	Plugin
	OnError(ctx context.Context, req *RequestContext, callErr error) (*ResponseContext, error)
}

// ConnectInterceptor observes or rewrites a streaming connect. Returning a
// non-nil StreamHandle short-circuits the connect: the handle is used in
// place of a real transport stream and is wired exactly like one.
type ConnectInterceptor interface {
	Plugin
	OnConnect(ctx context.Context, cc *ConnectContext) (*ConnectContext, StreamHandle, error)
}

// Destroyer is implemented by plugins that hold resources. Destroy is called
// at most once per registration scope, when the plugin is removed or the
// scope is torn down.
type Destroyer interface {
	Destroy()
}
