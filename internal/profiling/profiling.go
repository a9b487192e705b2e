package profiling

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // nolint:gosec // profiling endpoint listens on localhost.
	"time"
)

const (
	Endpoint          = "localhost:9091"
	ReadHeaderTimeout = 2 * time.Second
)

// Enable serves the pprof handlers on endpoint until ctx is done.
func Enable(ctx context.Context, endpoint string) {
	if endpoint == "" {
		endpoint = Endpoint
	}

	server := &http.Server{
		Addr:              endpoint,
		Handler:           http.DefaultServeMux,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to start profiling server", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	slog.Info("profiling enabled", "endpoint", endpoint+"/debug/pprof")
}
