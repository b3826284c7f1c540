// Package cache provides a response-cache plugin that short-circuits
// repeated GET calls with a stored response, marked with an X-Cache: HIT
// header. Enable it from config with a blank import:
//
//	_ "github.com/conduit-labs/conduit/plugins/cache"
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/conduit-labs/conduit/internal/cache"
	"github.com/conduit-labs/conduit/internal/logging"
	"github.com/conduit-labs/conduit/plugin"
)

// Token identifies the plugin kind in registration scopes.
const Token plugin.Token = "response-cache"

// pendingTTL bounds how long an unanswered in-flight entry is kept. A call
// whose response and error phases never ran (another plugin faulted after
// our OnRequest) would otherwise leave its entry behind forever.
const pendingTTL = time.Minute

func init() {
	plugin.RegisterFactory("response-cache", func(config map[string]interface{}) (plugin.Plugin, error) {
		maxAge := 300
		// JSON delivers numeric values as float64; YAML may deliver int.
		switch v := config["max_age"].(type) {
		case int:
			maxAge = v
		case float64:
			maxAge = int(v)
		}
		maxEntries := 1000
		switch v := config["max_entries"].(type) {
		case int:
			maxEntries = v
		case float64:
			maxEntries = int(v)
		}
		return New(maxEntries, time.Duration(maxAge)*time.Second), nil
	})
}

// ResponseCache serves exact-match cache hits for GET requests and stores
// misses when the response comes back. Per-call state is keyed by the call
// ID the engine stamps into the context, so concurrent calls through one
// instance never interfere even when they share a parent context.
type ResponseCache struct {
	store *cache.Memory

	mu        sync.Mutex
	pending   map[string]pendingEntry // call ID -> in-flight cache key
	lastPrune time.Time
}

type pendingEntry struct {
	key string
	at  time.Time
}

// New creates a response cache holding up to capacity entries for ttl.
func New(capacity int, ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		store:   cache.NewMemory(capacity, ttl),
		pending: make(map[string]pendingEntry),
	}
}

// Token returns the plugin identifier.
func (c *ResponseCache) Token() plugin.Token { return Token }

// OnRequest short-circuits on a cache hit; on a miss it records the cache
// key under this call's ID so OnResponse can store the result.
func (c *ResponseCache) OnRequest(ctx context.Context, req *plugin.RequestContext) (*plugin.RequestContext, *plugin.ShortCircuit, error) {
	if req.Method != plugin.MethodGet {
		return req, nil, nil
	}
	key := string(req.Method) + " " + req.URL

	if res, ok := c.store.Get(key); ok {
		hit := res.Clone()
		hit.Headers["X-Cache"] = "HIT"
		return req, &plugin.ShortCircuit{Response: *hit}, nil
	}

	// Without a call ID there is nothing to correlate OnResponse with, so
	// the miss simply goes unstored.
	if id := logging.CallIDFromContext(ctx); id != "" {
		now := time.Now()
		c.mu.Lock()
		c.prune(now)
		c.pending[id] = pendingEntry{key: key, at: now}
		c.mu.Unlock()
	}
	return req, nil, nil
}

// OnResponse stores successful responses for keys recorded by OnRequest.
func (c *ResponseCache) OnResponse(ctx context.Context, res *plugin.ResponseContext) (*plugin.ResponseContext, error) {
	id := logging.CallIDFromContext(ctx)
	if id == "" {
		return res, nil
	}
	c.mu.Lock()
	entry, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if !ok {
		return res, nil
	}
	if res.Status >= 200 && res.Status < 300 {
		c.store.Set(entry.key, res.Clone())
	}
	return res, nil
}

// OnError drops the pending key so a failed call leaves no state behind.
func (c *ResponseCache) OnError(ctx context.Context, _ *plugin.RequestContext, callErr error) (*plugin.ResponseContext, error) {
	if id := logging.CallIDFromContext(ctx); id != "" {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}
	return nil, callErr
}

// Destroy clears the store and any in-flight bookkeeping.
func (c *ResponseCache) Destroy() {
	c.store.Clear()
	c.mu.Lock()
	c.pending = make(map[string]pendingEntry)
	c.mu.Unlock()
}

// prune must be called with the lock held. It runs at most once per
// pendingTTL and drops entries whose call never reached OnResponse or
// OnError.
func (c *ResponseCache) prune(now time.Time) {
	if now.Sub(c.lastPrune) < pendingTTL {
		return
	}
	c.lastPrune = now
	for id, e := range c.pending {
		if now.Sub(e.at) >= pendingTTL {
			delete(c.pending, id)
		}
	}
}
