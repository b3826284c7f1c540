package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/conduit-labs/conduit/internal/requestlog"
	"github.com/conduit-labs/conduit/plugin"
)

// recordingSink captures entries instead of persisting them.
type recordingSink struct {
	entries []requestlog.Entry
}

func (s *recordingSink) Write(_ context.Context, e requestlog.Entry) error {
	s.entries = append(s.entries, e)
	return nil
}

func TestPassThrough(t *testing.T) {
	l := New(Config{})
	ctx := context.Background()

	req := &plugin.RequestContext{Method: plugin.MethodGet, URL: "https://api.example.com/x"}
	next, sc, err := l.OnRequest(ctx, req)
	if err != nil || sc != nil || next != req {
		t.Errorf("OnRequest = %v, %v, %v; want pass-through", next, sc, err)
	}

	res := &plugin.ResponseContext{Status: 200}
	out, err := l.OnResponse(ctx, res)
	if err != nil || out != res {
		t.Errorf("OnResponse = %v, %v; want pass-through", out, err)
	}

	cc := &plugin.ConnectContext{URL: "wss://api.example.com/stream"}
	nextCC, handle, err := l.OnConnect(ctx, cc)
	if err != nil || handle != nil || nextCC != cc {
		t.Errorf("OnConnect = %v, %v, %v; want pass-through", nextCC, handle, err)
	}
}

func TestErrorNotRecovered(t *testing.T) {
	l := New(Config{})
	boom := errors.New("boom")

	res, err := l.OnError(context.Background(), &plugin.RequestContext{Method: plugin.MethodGet}, boom)
	if res != nil {
		t.Error("logging plugin recovered the call")
	}
	if !errors.Is(err, boom) {
		t.Errorf("error transformed: %v", err)
	}
}

func TestSinkReceivesResponsesAndErrors(t *testing.T) {
	sink := &recordingSink{}
	l := New(Config{Writer: sink})
	ctx := context.Background()

	if _, err := l.OnResponse(ctx, &plugin.ResponseContext{Status: 201}); err != nil {
		t.Fatalf("OnResponse: %v", err)
	}
	if _, err := l.OnError(ctx, &plugin.RequestContext{Method: plugin.MethodGet, URL: "/x"}, errors.New("down")); err == nil {
		t.Fatal("OnError swallowed the fault")
	}

	if len(sink.entries) != 2 {
		t.Fatalf("sink got %d entries, want 2", len(sink.entries))
	}
	if sink.entries[0].Status != 201 {
		t.Errorf("response entry status = %d", sink.entries[0].Status)
	}
	if sink.entries[1].ErrorMessage != "down" {
		t.Errorf("error entry message = %q", sink.entries[1].ErrorMessage)
	}
}

func TestFactory(t *testing.T) {
	factory, ok := plugin.GetFactory("request-logger")
	if !ok {
		t.Fatal("factory not registered")
	}
	p, err := factory(map[string]interface{}{"level": "debug"})
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if p.Token() != Token {
		t.Errorf("token = %s", p.Token())
	}
}

func TestDestroyWithoutSink(t *testing.T) {
	New(Config{}).Destroy()
}
