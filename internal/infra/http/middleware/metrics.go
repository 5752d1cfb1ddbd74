package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

const namespace = "lifecycle"

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern and status.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"method", "route"})

	inFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_flight",
		Help:      "Requests being served.",
	})

	lifecycleEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Lifecycle events handled, by kind and outcome.",
	}, []string{"kind", "outcome"})

	sideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "side_effect_failures_total",
		Help:      "Failed side effects, by effect.",
	}, []string{"effect"})

	throttledRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "throttled_total",
		Help:      "Requests rejected by the rate limiter, by action.",
	}, []string{"action"})
)

// Metrics labels requests by chi route pattern so that path parameters
// (emails) never become label values.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inFlight.Inc()
		defer inFlight.Dec()

		began := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}

		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(code)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(began).Seconds())
	})
}

// PrometheusRecorder exports orchestration metrics.
type PrometheusRecorder struct{}

func (PrometheusRecorder) EventHandled(kind entity.EventKind, outcome string) {
	lifecycleEvents.WithLabelValues(string(kind), outcome).Inc()
}

func (PrometheusRecorder) SideEffectFailed(effect entity.Effect) {
	sideEffectFailures.WithLabelValues(string(effect)).Inc()
}

func (PrometheusRecorder) Throttled(action string) {
	throttledRequests.WithLabelValues(action).Inc()
}

var _ usecase.Recorder = PrometheusRecorder{}
