package plugin

import (
	"context"
	"testing"
)

func TestLegacyChainPriorityOrder(t *testing.T) {
	var order []string
	c := NewLegacyChain()
	record := func(name string) func(context.Context, *RequestContext) (*RequestContext, error) {
		return func(_ context.Context, req *RequestContext) (*RequestContext, error) {
			order = append(order, name)
			return req, nil
		}
	}

	c.Register(LegacyHook{Name: "last", Priority: 20, Request: record("last")})
	c.Register(LegacyHook{Name: "first", Priority: 5, Request: record("first")})
	c.Register(LegacyHook{Name: "mid", Priority: 10, Request: record("mid")})

	if _, _, err := c.RunRequest(context.Background(), &RequestContext{}); err != nil {
		t.Fatalf("RunRequest: %v", err)
	}
	if len(order) != 3 || order[0] != "first" || order[1] != "mid" || order[2] != "last" {
		t.Errorf("got order %v, want [first mid last]", order)
	}
}

func TestLegacyChainResponseRunsReversed(t *testing.T) {
	var order []string
	c := NewLegacyChain()
	respond := func(name string) func(context.Context, *ResponseContext) (*ResponseContext, error) {
		return func(_ context.Context, res *ResponseContext) (*ResponseContext, error) {
			order = append(order, name)
			return res, nil
		}
	}

	c.Register(LegacyHook{Name: "a", Priority: 1, Response: respond("a")})
	c.Register(LegacyHook{Name: "b", Priority: 2, Response: respond("b")})

	if _, err := c.RunResponse(context.Background(), &ResponseContext{}); err != nil {
		t.Fatalf("RunResponse: %v", err)
	}
	if len(order) != 2 || order[0] != "b" || order[1] != "a" {
		t.Errorf("got order %v, want [b a]", order)
	}
}

func TestLegacyChainSentinelShortCircuit(t *testing.T) {
	canned := &ResponseContext{Status: 200, Data: []byte(`{"mock":true}`)}
	var laterRan bool

	c := NewLegacyChain()
	c.Register(LegacyHook{Name: "resolve", Priority: 1, Request: func(_ context.Context, req *RequestContext) (*RequestContext, error) {
		next := req.Clone()
		next.Resolved = canned
		return next, nil
	}})
	c.Register(LegacyHook{Name: "later", Priority: 2, Request: func(_ context.Context, req *RequestContext) (*RequestContext, error) {
		laterRan = true
		return req, nil
	}})

	out, resolvedBy, err := c.RunRequest(context.Background(), &RequestContext{})
	if err != nil {
		t.Fatalf("RunRequest: %v", err)
	}
	if out.Resolved != canned {
		t.Error("sentinel response lost")
	}
	if resolvedBy != "resolve" {
		t.Errorf("resolvedBy = %q, want %q", resolvedBy, "resolve")
	}
	if laterRan {
		t.Error("hook after the sentinel still ran")
	}
}

func TestLegacyChainRegisterReplacesByName(t *testing.T) {
	var hits int
	c := NewLegacyChain()
	hook := func(_ context.Context, req *RequestContext) (*RequestContext, error) {
		hits++
		return req, nil
	}
	c.Register(LegacyHook{Name: "dup", Priority: 1, Request: hook})
	c.Register(LegacyHook{Name: "dup", Priority: 2, Request: hook})

	if c.Len() != 1 {
		t.Fatalf("got %d hooks, want 1", c.Len())
	}
	_, _, _ = c.RunRequest(context.Background(), &RequestContext{})
	if hits != 1 {
		t.Errorf("hook ran %d times, want 1", hits)
	}
}

func TestLegacyChainDeregister(t *testing.T) {
	c := NewLegacyChain()
	c.Register(LegacyHook{Name: "x", Priority: 1})
	c.Deregister("x")
	if c.Len() != 0 {
		t.Errorf("got %d hooks after deregister, want 0", c.Len())
	}
	// Unknown name is a no-op.
	c.Deregister("missing")
}
