// Package metrics holds the prometheus collectors of the bot and the
// /metrics endpoint that exposes them.
package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "feedbackbot"

// Result label values.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
	ResultConflict = "conflict"
	ResultDenied   = "denied"
	ResultNotFound = "not_found"
)

var (
	// Intake counts submissions by kind (feedback, movie_request) and result.
	Intake = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "intake_total",
		Help:      "Submissions received from user rooms.",
	}, []string{"kind", "result"})

	// Transitions counts moderation decisions by action and result.
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Moderation transitions attempted.",
	}, []string{"action", "result"})

	// Callbacks counts button presses by payload kind and result.
	Callbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "callbacks_total",
		Help:      "Inline button presses handled.",
	}, []string{"kind", "result"})

	// CatalogRequests counts catalog calls by operation and result.
	CatalogRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_requests_total",
		Help:      "Requests sent to the title catalog.",
	}, []string{"op", "result"})

	// TokenRefresh counts catalog credential acquisitions.
	TokenRefresh = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_token_refresh_total",
		Help:      "Catalog credential acquisitions.",
	}, []string{"result"})
)

// RegisterPendingGauge exposes the number of pending items, computed by count
// on every scrape. Storage errors are reported as zero.
func RegisterPendingGauge(count func(ctx context.Context) (int64, error)) error {
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_items",
		Help:      "Feedback items and movie requests awaiting moderation.",
	}, func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		n, err := count(ctx)
		if err != nil || n < 0 {
			return 0
		}
		return float64(n)
	})
	return prometheus.Register(gauge)
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
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
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Metrics] Shutdown error: %v", err)
		}
	}()

	log.Printf("[Metrics] Listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
