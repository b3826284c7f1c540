package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/conduit-labs/conduit/internal/logging"
)

// newServeCmd returns the test-bench server: a small REST and SSE backend
// to exercise the client pipeline against during development.
func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local test-bench server (echo + event stream endpoints)",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8085", "listen address")
	return cmd
}

func runServe(addr string) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logging.Middleware)

	r.Get("/api/time", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"now": time.Now().UTC().Format(time.RFC3339Nano)})
	})

	r.Get("/api/echo", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{"message": req.URL.Query().Get("msg")})
	})

	r.Post("/api/echo", func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})

	r.Get("/api/events", serveEvents)

	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Logger.Info("test-bench server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// serveEvents emits ?count=N events at ?interval_ms spacing, then a "done"
// event, over SSE.
func serveEvents(w http.ResponseWriter, req *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	count, _ := strconv.Atoi(req.URL.Query().Get("count"))
	if count <= 0 {
		count = 5
	}
	interval, _ := strconv.Atoi(req.URL.Query().Get("interval_ms"))
	if interval <= 0 {
		interval = 250
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(time.Duration(interval) * time.Millisecond)
	defer ticker.Stop()

	for i := 0; i < count; i++ {
		select {
		case <-req.Context().Done():
			return
		case <-ticker.C:
		}
		fmt.Fprintf(w, "data: {\"seq\":%d}\n\n", i)
		flusher.Flush()
	}
	fmt.Fprint(w, "event: done\ndata: \n\n")
	flusher.Flush()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
