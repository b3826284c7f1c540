package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// LegacyHook is one entry in the deprecated string-keyed interceptor chain.
// Hooks are ordered by ascending Priority (ties by registration order) and
// run closer to the transport than token plugins: the legacy request phase
// runs after the token request phase, and the legacy response phase runs
// before the token response phase.
//
// A Request hook short-circuits by setting RequestContext.Resolved; later
// hooks and the transport are then skipped. New code should implement the
// token-based capability interfaces instead.
type LegacyHook struct {
	Name     string
	Priority int
	Request  func(ctx context.Context, req *RequestContext) (*RequestContext, error)
	Response func(ctx context.Context, res *ResponseContext) (*ResponseContext, error)
}

// LegacyChain is a priority-ordered list of LegacyHooks keyed by name.
type LegacyChain struct {
	mu    sync.RWMutex
	hooks []LegacyHook
}

// NewLegacyChain creates an empty legacy chain.
func NewLegacyChain() *LegacyChain {
	return &LegacyChain{}
}

// Register adds a hook, replacing any existing hook with the same name.
func (c *LegacyChain) Register(h LegacyHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.hooks {
		if c.hooks[i].Name == h.Name {
			c.hooks[i] = h
			c.resort()
			return
		}
	}
	c.hooks = append(c.hooks, h)
	c.resort()
}

// Deregister removes the hook with the given name, if present.
func (c *LegacyChain) Deregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.hooks {
		if c.hooks[i].Name == name {
			c.hooks = append(c.hooks[:i], c.hooks[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered hooks.
func (c *LegacyChain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.hooks)
}

// RunRequest feeds the context through the request hooks in priority order.
// The chain stops as soon as a hook resolves the request; resolvedBy names
// that hook, and is empty when the chain runs to completion.
func (c *LegacyChain) RunRequest(ctx context.Context, req *RequestContext) (out *RequestContext, resolvedBy string, err error) {
	for _, h := range c.ordered() {
		if h.Request == nil {
			continue
		}
		next, err := h.Request(ctx, req)
		if err != nil {
			return nil, "", fmt.Errorf("legacy hook %s: %w", h.Name, err)
		}
		if next != nil {
			req = next
		}
		if req.Resolved != nil {
			return req, h.Name, nil
		}
	}
	return req, "", nil
}

// RunResponse feeds the response through the response hooks in reverse
// priority order. The response phase never short-circuits.
func (c *LegacyChain) RunResponse(ctx context.Context, res *ResponseContext) (*ResponseContext, error) {
	hooks := c.ordered()
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if h.Response == nil {
			continue
		}
		next, err := h.Response(ctx, res)
		if err != nil {
			return nil, fmt.Errorf("legacy hook %s: %w", h.Name, err)
		}
		if next != nil {
			res = next
		}
	}
	return res, nil
}

// resort must be called with the lock held. Sorting is stable so hooks with
// equal priority keep registration order.
func (c *LegacyChain) resort() {
	sort.SliceStable(c.hooks, func(i, j int) bool {
		return c.hooks[i].Priority < c.hooks[j].Priority
	})
}

func (c *LegacyChain) ordered() []LegacyHook {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]LegacyHook, len(c.hooks))
	copy(out, c.hooks)
	return out
}
