package http

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsOnce sync.Once

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	signInTotal         *prometheus.CounterVec
	throttledTotal      *prometheus.CounterVec
)

// RegisterMetrics inicializa las métricas y devuelve el handler de /metrics.
func RegisterMetrics(reg prometheus.Registerer) http.Handler {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	metricsOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		signInTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_sign_in_total",
			Help: "Intentos de sign-in por resultado",
		}, []string{"result"}) // ok|invalid|locked|restricted|throttled|error

		throttledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Requests rechazados por rate limit, por scope",
		}, []string{"scope"})

		reg.MustRegister(httpRequestsTotal, httpRequestDuration, signInTotal, throttledTotal)
	})

	if g, ok := reg.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

// ObserveRequest registra una request completada.
func ObserveRequest(method, path string, status int, dur time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(dur.Seconds())
}

// CountSignIn registra el resultado de un intento de sign-in.
func CountSignIn(result string) {
	if signInTotal != nil {
		signInTotal.WithLabelValues(result).Inc()
	}
}

// CountThrottled registra un rechazo por rate limit.
func CountThrottled(scope string) {
	if throttledTotal != nil {
		throttledTotal.WithLabelValues(scope).Inc()
	}
}
