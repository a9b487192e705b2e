package metrics

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DefaultEndpoint   = ":9090"
	ReadHeaderTimeout = 2 * time.Second
)

var (
	APIRequestDuration = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "snatt_api_request_duration_seconds",
			Help: "A summary metric to measure the time taken to serve API requests.",
		},
		[]string{"route", "code"},
	)

	PanelActionDuration = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "snatt_panel_action_duration_seconds",
			Help: "A summary metric to measure the time taken by dashboard panel actions.",
		},
		[]string{"panel", "action", "outcome"},
	)

	DevicesDiscovered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snatt_devices_discovered",
			Help: "The number of reachable devices found by the last scan.",
		},
	)

	BackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snatt_backups_total",
			Help: "A counter metric of configuration backups by status.",
		},
		[]string{"status"},
	)
)

// ListenAndServe exposes prometheus metrics as /metrics on the given address.
func ListenAndServe(endpoint string) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:              endpoint,
			Handler:           mux,
			ReadHeaderTimeout: ReadHeaderTimeout,
		}

		if err := server.ListenAndServe(); err != nil {
			slog.Error("Failed to start metrics server", "error", err)
		}
	}()
}

// ObserveAPIRequest records the duration of an API request.
func ObserveAPIRequest(route string, code int, started time.Time) {
	APIRequestDuration.With(
		prometheus.Labels{"route": route, "code": strconv.Itoa(code)},
	).Observe(time.Since(started).Seconds())
}

// ObservePanelAction records the duration of a dashboard action by outcome.
func ObservePanelAction(panel, action string, err error, started time.Time) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}

	PanelActionDuration.With(
		prometheus.Labels{"panel": panel, "action": action, "outcome": outcome},
	).Observe(time.Since(started).Seconds())
}
