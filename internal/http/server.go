package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/sentinela/internal/observability/logger"
	"golang.org/x/sync/errgroup"
)

// Serve levanta el servidor y lo apaga con gracia cuando el contexto se
// cancela (SIGINT/SIGTERM en main).
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Named("http").Info("listening", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
