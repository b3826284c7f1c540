package requestlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestWriter(t *testing.T) *SQLWriter {
	t.Helper()
	w, err := NewSQLiteWriter(filepath.Join(t.TempDir(), "calls.db"))
	if err != nil {
		t.Fatalf("NewSQLiteWriter: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestWriteAndRecent(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()

	entries := []Entry{
		{CallID: "c1", Service: "tickets", Method: "GET", URL: "/tickets", Status: 200, LatencyMS: 12},
		{CallID: "c2", Service: "tickets", Method: "POST", URL: "/tickets", Status: 201, LatencyMS: 40},
		{CallID: "c3", Service: "users", Method: "GET", URL: "/users", Status: 502, LatencyMS: 3, ErrorMessage: "unexpected status 502"},
	}
	for _, e := range entries {
		if err := w.Write(ctx, e); err != nil {
			t.Fatalf("Write %s: %v", e.CallID, err)
		}
	}

	got, err := w.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	// Newest first.
	if got[0].CallID != "c3" || got[2].CallID != "c1" {
		t.Errorf("order = %s, %s, %s", got[0].CallID, got[1].CallID, got[2].CallID)
	}
	if got[0].ErrorMessage != "unexpected status 502" {
		t.Errorf("error message = %q", got[0].ErrorMessage)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("CreatedAt was not stamped on write")
	}
}

func TestRecentLimit(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := w.Write(ctx, Entry{Method: "GET", URL: "/x", Status: 200}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	got, err := w.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d entries, want 2", len(got))
	}

	// A non-positive limit falls back to the default rather than failing.
	got, err = w.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent(0): %v", err)
	}
	if len(got) != 5 {
		t.Errorf("got %d entries with default limit, want 5", len(got))
	}
}

func TestWritePreservesExplicitTimestamp(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := w.Write(ctx, Entry{Method: "GET", URL: "/x", Status: 200, CreatedAt: at}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := w.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if !got[0].CreatedAt.Equal(at) {
		t.Errorf("CreatedAt = %v, want %v", got[0].CreatedAt, at)
	}
}

func TestNoopWriter(t *testing.T) {
	var w NoopWriter
	if err := w.Write(context.Background(), Entry{}); err != nil {
		t.Fatalf("NoopWriter.Write: %v", err)
	}
}

func TestCloseNil(t *testing.T) {
	var w *SQLWriter
	if err := w.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}
