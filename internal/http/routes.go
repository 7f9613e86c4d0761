package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/sentinela/internal/http/middlewares"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// SessionHandlers agrupa los handlers del controller de sesión.
type SessionHandlers struct {
	SignIn  http.HandlerFunc
	Refresh http.HandlerFunc
	SignOut http.HandlerFunc
}

// RouterConfig arma el router completo.
type RouterConfig struct {
	Session       SessionHandlers
	Metrics       http.Handler
	Ready         func(ctx context.Context) error
	ThrottleRPS   float64
	ThrottleBurst int
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(req.Context()); err != nil {
				WriteError(w, http.StatusServiceUnavailable, "not_ready", err.Error(), 0)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/v1/session", func(r chi.Router) {
		r.Post("/sign-in", cfg.Session.SignIn)
		r.Post("/refresh", cfg.Session.Refresh)
		r.Post("/sign-out", cfg.Session.SignOut)
	})

	return middlewares.Chain(r,
		middlewares.WithRequestID(),
		middlewares.WithLogging(),
		withMetrics,
		middlewares.WithThrottle(cfg.ThrottleRPS, cfg.ThrottleBurst),
	)
}

func withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		ObserveRequest(r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
