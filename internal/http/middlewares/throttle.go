package middlewares

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// WithThrottle es el freno grueso de toda la API: un token bucket por IP.
// Es independiente del rate limiter de login (scopes con presupuesto y
// bloqueo); esto solo corta abuso evidente antes de tocar handlers.
// rps <= 0 deshabilita el middleware.
func WithThrottle(rps float64, burst int) Middleware {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	// una entrada por IP; cada uso renueva el TTL, así solo expiran las
	// ociosas y el mapa no crece sin límite en procesos de vida larga
	buckets := gocache.New(10*time.Minute, 5*time.Minute)

	limiterFor := func(ip string) *rate.Limiter {
		if v, ok := buckets.Get(ip); ok {
			lim := v.(*rate.Limiter)
			buckets.SetDefault(ip, lim)
			return lim
		}
		lim := rate.NewLimiter(rate.Limit(rps), burst)
		// Add pierde la carrera ante un creador concurrente; en ese caso
		// se relee el bucket ganador
		if err := buckets.Add(ip, lim, gocache.DefaultExpiration); err != nil {
			if v, ok := buckets.Get(ip); ok {
				return v.(*rate.Limiter)
			}
		}
		return lim
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiterFor(ClientIP(r)).Allow() {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{"error": "rate_limited"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extrae la IP del cliente (primer hop de X-Forwarded-For si hay
// proxy, si no RemoteAddr).
func ClientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
