// Package metrics exposes Prometheus counters for commands and post deliveries.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Command outcome labels.
const (
	StatusOK      = "ok"
	StatusDenied  = "denied"
	StatusInvalid = "invalid"
	StatusError   = "error"
)

var (
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "group_helper_commands_total",
			Help: "Bot commands handled, by command and outcome.",
		},
		[]string{"command", "status"},
	)

	postsScheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "group_helper_posts_scheduled_total",
			Help: "Posts scheduled through /newpost, by schedule type.",
		},
		[]string{"schedule"},
	)

	postsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "group_helper_posts_delivered_total",
			Help: "Scheduled posts sent by the ticker, by content kind and outcome.",
		},
		[]string{"kind", "status"},
	)
)

func init() {
	prometheus.MustRegister(commandsTotal, postsScheduled, postsDelivered)
}

// IncCommand counts a handled command.
func IncCommand(command, status string) {
	commandsTotal.WithLabelValues(command, status).Inc()
}

// IncScheduled counts a newly scheduled post.
func IncScheduled(recurring bool) {
	postsScheduled.WithLabelValues(scheduleLabel(recurring)).Inc()
}

// IncDelivered counts a delivery attempt of a scheduled post.
func IncDelivered(kind string, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	postsDelivered.WithLabelValues(kind, status).Inc()
}

func scheduleLabel(recurring bool) string {
	if recurring {
		return "weekly"
	}
	return "once"
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server", "error", err)
	}
}
