package middlewares

import (
	"net/http"
	"time"

	"github.com/dropDatabas3/sentinela/internal/observability/logger"
)

// statusRecorder captura el status code y bytes escritos de la respuesta.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.wroteHeader {
		return
	}
	s.status = code
	s.wroteHeader = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.status = http.StatusOK
		s.wroteHeader = true
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// WithLogging registra cada request con campos estructurados e inyecta un
// logger scoped (request_id, method, path) en el contexto.
func WithLogging() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLog := logger.L().With(
				logger.RequestID(w.Header().Get("X-Request-ID")),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
			)
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(logger.ToContext(r.Context(), reqLog)))

			dur := time.Since(start)
			reqLog.Info("request completed",
				logger.Status(rec.status),
				logger.Int("bytes", rec.bytes),
				logger.DurationMs(dur),
			)
		})
	}
}
