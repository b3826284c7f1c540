package cache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/conduit-labs/conduit/internal/logging"
	"github.com/conduit-labs/conduit/plugin"
	"github.com/conduit-labs/conduit/rest"
)

// callCtx builds a context the way the engine hands one to plugin hooks,
// with a unique call ID stamped in.
func callCtx() context.Context {
	return logging.WithCallID(context.Background(), logging.NewCallID())
}

func getReq(url string) *plugin.RequestContext {
	return &plugin.RequestContext{Method: plugin.MethodGet, URL: url}
}

func TestMissThenHit(t *testing.T) {
	c := New(10, time.Minute)
	ctx := callCtx()

	// Miss: no short-circuit, key pending.
	_, sc, err := c.OnRequest(ctx, getReq("https://api.example.com/users"))
	if err != nil {
		t.Fatalf("OnRequest: %v", err)
	}
	if sc != nil {
		t.Fatal("cold cache short-circuited")
	}

	// The response comes back and is stored.
	res := &plugin.ResponseContext{Status: 200, Data: []byte(`[1,2]`)}
	if _, err := c.OnResponse(ctx, res); err != nil {
		t.Fatalf("OnResponse: %v", err)
	}

	// Second call hits.
	_, sc, err = c.OnRequest(callCtx(), getReq("https://api.example.com/users"))
	if err != nil {
		t.Fatalf("OnRequest: %v", err)
	}
	if sc == nil {
		t.Fatal("warm cache did not short-circuit")
	}
	if sc.Response.Headers["X-Cache"] != "HIT" {
		t.Error("hit marker header missing")
	}
	if string(sc.Response.Data) != `[1,2]` {
		t.Errorf("cached payload = %s", sc.Response.Data)
	}
}

func TestNonGetBypassed(t *testing.T) {
	c := New(10, time.Minute)
	ctx := callCtx()

	req := &plugin.RequestContext{Method: plugin.MethodPost, URL: "https://api.example.com/users"}
	_, sc, err := c.OnRequest(ctx, req)
	if err != nil {
		t.Fatalf("OnRequest: %v", err)
	}
	if sc != nil {
		t.Fatal("POST short-circuited")
	}

	// No pending key was recorded, so the response is not stored.
	if _, err := c.OnResponse(ctx, &plugin.ResponseContext{Status: 200, Data: []byte("x")}); err != nil {
		t.Fatalf("OnResponse: %v", err)
	}
	_, sc, _ = c.OnRequest(callCtx(), getReq("https://api.example.com/users"))
	if sc != nil {
		t.Error("POST response leaked into the GET cache")
	}
}

func TestNon2xxNotStored(t *testing.T) {
	c := New(10, time.Minute)
	ctx := callCtx()

	if _, _, err := c.OnRequest(ctx, getReq("https://api.example.com/flaky")); err != nil {
		t.Fatalf("OnRequest: %v", err)
	}
	if _, err := c.OnResponse(ctx, &plugin.ResponseContext{Status: 404}); err != nil {
		t.Fatalf("OnResponse: %v", err)
	}

	_, sc, _ := c.OnRequest(callCtx(), getReq("https://api.example.com/flaky"))
	if sc != nil {
		t.Error("404 response was cached")
	}
}

func TestErrorClearsPendingState(t *testing.T) {
	c := New(10, time.Minute)
	ctx := callCtx()

	if _, _, err := c.OnRequest(ctx, getReq("https://api.example.com/down")); err != nil {
		t.Fatalf("OnRequest: %v", err)
	}
	boom := errors.New("transport down")
	if _, err := c.OnError(ctx, nil, boom); !errors.Is(err, boom) {
		t.Fatalf("OnError swallowed the error: %v", err)
	}

	// A later response on the same call must not be stored against the
	// stale key.
	if _, err := c.OnResponse(ctx, &plugin.ResponseContext{Status: 200, Data: []byte("late")}); err != nil {
		t.Fatalf("OnResponse: %v", err)
	}
	_, sc, _ := c.OnRequest(callCtx(), getReq("https://api.example.com/down"))
	if sc != nil {
		t.Error("stale pending key stored a response after OnError")
	}
}

func TestConcurrentCallsIsolated(t *testing.T) {
	c := New(10, time.Minute)
	// Both calls descend from the same base context; only the call IDs
	// stamped by the engine tell them apart.
	base := context.Background()
	ctxA := logging.WithCallID(base, logging.NewCallID())
	ctxB := logging.WithCallID(base, logging.NewCallID())

	if _, _, err := c.OnRequest(ctxA, getReq("https://api.example.com/a")); err != nil {
		t.Fatalf("OnRequest a: %v", err)
	}
	if _, _, err := c.OnRequest(ctxB, getReq("https://api.example.com/b")); err != nil {
		t.Fatalf("OnRequest b: %v", err)
	}

	// A's response lands while b is still in flight; each is stored under
	// its own key.
	if _, err := c.OnResponse(ctxA, &plugin.ResponseContext{Status: 200, Data: []byte("a")}); err != nil {
		t.Fatalf("OnResponse a: %v", err)
	}
	if _, err := c.OnResponse(ctxB, &plugin.ResponseContext{Status: 200, Data: []byte("b")}); err != nil {
		t.Fatalf("OnResponse b: %v", err)
	}

	_, sc, _ := c.OnRequest(callCtx(), getReq("https://api.example.com/a"))
	if sc == nil || string(sc.Response.Data) != "a" {
		t.Error("interleaved calls crossed cache keys")
	}
	_, sc, _ = c.OnRequest(callCtx(), getReq("https://api.example.com/b"))
	if sc == nil || string(sc.Response.Data) != "b" {
		t.Error("interleaved calls crossed cache keys")
	}
}

// Two in-flight calls through the full engine share one caller context; the
// second request starts before the first response lands. Each path must be
// cached under its own key.
func TestInterleavedCallsSharingCallerContext(t *testing.T) {
	aArrived := make(chan struct{})
	bArrived := make(chan struct{})
	releaseA := make(chan struct{})
	releaseB := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a":
			close(aArrived)
			<-releaseA
			_, _ = w.Write([]byte("payload-a"))
		case "/b":
			close(bArrived)
			<-releaseB
			_, _ = w.Write([]byte("payload-b"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	scope := plugin.NewScope(nil)
	if err := scope.Use(New(10, time.Minute)); err != nil {
		t.Fatalf("Use: %v", err)
	}
	p := rest.New(rest.Config{Name: "cache-interleave", BaseURL: srv.URL, Scope: scope})

	ctx := context.Background()
	errA := make(chan error, 1)
	go func() {
		_, err := p.Execute(ctx, plugin.MethodGet, "/a", nil, nil)
		errA <- err
	}()
	<-aArrived

	errB := make(chan error, 1)
	go func() {
		_, err := p.Execute(ctx, plugin.MethodGet, "/b", nil, nil)
		errB <- err
	}()
	<-bArrived

	// A's response completes first, while b is still waiting on the server.
	close(releaseA)
	if err := <-errA; err != nil {
		t.Fatalf("Execute /a: %v", err)
	}
	close(releaseB)
	if err := <-errB; err != nil {
		t.Fatalf("Execute /b: %v", err)
	}

	// Warm calls must serve each path's own payload.
	res, err := p.Execute(ctx, plugin.MethodGet, "/b", nil, nil)
	if err != nil {
		t.Fatalf("Execute warm /b: %v", err)
	}
	if res.Headers["X-Cache"] != "HIT" {
		t.Fatal("warm /b did not short-circuit")
	}
	if string(res.Data) != "payload-b" {
		t.Errorf("warm /b served %q, want payload-b", res.Data)
	}
	res, err = p.Execute(ctx, plugin.MethodGet, "/a", nil, nil)
	if err != nil {
		t.Fatalf("Execute warm /a: %v", err)
	}
	if res.Headers["X-Cache"] != "HIT" {
		t.Fatal("warm /a did not short-circuit")
	}
	if string(res.Data) != "payload-a" {
		t.Errorf("warm /a served %q, want payload-a", res.Data)
	}
}

func TestNoCallIDStoresNothing(t *testing.T) {
	c := New(10, time.Minute)
	ctx := context.Background()

	if _, _, err := c.OnRequest(ctx, getReq("https://api.example.com/users")); err != nil {
		t.Fatalf("OnRequest: %v", err)
	}
	if _, err := c.OnResponse(ctx, &plugin.ResponseContext{Status: 200, Data: []byte("x")}); err != nil {
		t.Fatalf("OnResponse: %v", err)
	}
	_, sc, _ := c.OnRequest(callCtx(), getReq("https://api.example.com/users"))
	if sc != nil {
		t.Error("response stored without a call ID to correlate it")
	}
}

func TestAbandonedEntryPruned(t *testing.T) {
	c := New(10, time.Minute)
	// Simulate a call whose response phase never ran.
	old := time.Now().Add(-2 * pendingTTL)
	c.mu.Lock()
	c.pending["stale"] = pendingEntry{key: "GET https://api.example.com/gone", at: old}
	c.lastPrune = old
	c.mu.Unlock()

	if _, _, err := c.OnRequest(callCtx(), getReq("https://api.example.com/fresh")); err != nil {
		t.Fatalf("OnRequest: %v", err)
	}

	c.mu.Lock()
	_, ok := c.pending["stale"]
	c.mu.Unlock()
	if ok {
		t.Error("abandoned in-flight entry survived the prune")
	}
}

func TestHitDoesNotAliasStoredEntry(t *testing.T) {
	c := New(10, time.Minute)
	ctx := callCtx()

	if _, _, err := c.OnRequest(ctx, getReq("https://api.example.com/users")); err != nil {
		t.Fatalf("OnRequest: %v", err)
	}
	if _, err := c.OnResponse(ctx, &plugin.ResponseContext{Status: 200, Headers: map[string]string{"Content-Type": "application/json"}}); err != nil {
		t.Fatalf("OnResponse: %v", err)
	}

	_, first, _ := c.OnRequest(callCtx(), getReq("https://api.example.com/users"))
	first.Response.Headers["Mutated"] = "yes"

	_, second, _ := c.OnRequest(callCtx(), getReq("https://api.example.com/users"))
	if _, ok := second.Response.Headers["Mutated"]; ok {
		t.Error("hit response shares the stored entry's header map")
	}
	if second.Response.Headers["X-Cache"] != "HIT" {
		t.Error("hit marker missing on second hit")
	}
}

func TestDestroyClearsStore(t *testing.T) {
	c := New(10, time.Minute)
	ctx := callCtx()

	if _, _, err := c.OnRequest(ctx, getReq("https://api.example.com/users")); err != nil {
		t.Fatalf("OnRequest: %v", err)
	}
	if _, err := c.OnResponse(ctx, &plugin.ResponseContext{Status: 200}); err != nil {
		t.Fatalf("OnResponse: %v", err)
	}
	c.Destroy()

	_, sc, _ := c.OnRequest(callCtx(), getReq("https://api.example.com/users"))
	if sc != nil {
		t.Error("entry survived Destroy")
	}
}

func TestFactory(t *testing.T) {
	factory, ok := plugin.GetFactory("response-cache")
	if !ok {
		t.Fatal("factory not registered")
	}
	p, err := factory(map[string]interface{}{"max_age": float64(60), "max_entries": float64(5)})
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if p.Token() != Token {
		t.Errorf("token = %s", p.Token())
	}
}
