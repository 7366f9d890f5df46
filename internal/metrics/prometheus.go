package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ActiveParties = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "partybot_active_parties",
			Help: "Number of parties currently in the registry",
		},
	)
	Sweeps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "partybot_sweeps_total",
			Help: "Total number of lifecycle sweeps run",
		},
	)
	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "partybot_sweep_duration_seconds",
			Help:    "Duration of one lifecycle sweep",
			Buckets: prometheus.DefBuckets,
		},
	)
	RemindersSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "partybot_reminders_sent_total",
			Help: "Total number of extension reminders sent to leaders",
		},
	)
	Disbands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partybot_disbands_total",
			Help: "Total number of disbanded parties",
		},
		[]string{"reason"},
	)
	JoinRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partybot_join_requests_total",
			Help: "Join request outcomes",
		},
		[]string{"outcome"}, // submitted, accepted, rejected, expired
	)
	ExtensionReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partybot_extension_replies_total",
			Help: "Classified leader replies to extension prompts",
		},
		[]string{"kind"},
	)
	PersistFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "partybot_persist_failures_total",
			Help: "Total number of failed registry snapshots",
		},
	)
)

var registerOnce sync.Once

// InitMetrics registers the collectors with the default registry. Safe to
// call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ActiveParties, Sweeps, SweepDuration, RemindersSent,
			Disbands, JoinRequests, ExtensionReplies, PersistFailures,
		)
	})
}

func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// ServeMetrics exposes /metrics on addr until ctx is done.
func ServeMetrics(ctx context.Context, addr string) {
	srv := &http.Server{Addr: addr, Handler: Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		slog.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err, "addr", addr)
		}
	}()
}
