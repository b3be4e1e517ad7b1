package ops

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusFunc supplies the document served at /statusz.
type StatusFunc func() any

func newRouter(status StatusFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/statusz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var body any = struct{}{}
		if status != nil {
			body = status()
		}
		_ = json.NewEncoder(w).Encode(body)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Serve runs the operational endpoint until ctx is cancelled.
func Serve(ctx context.Context, addr string, status StatusFunc) error {
	if strings.TrimSpace(addr) == "" {
		return errors.New("empty ops address")
	}
	srv := &http.Server{Addr: addr, Handler: newRouter(status)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ops server: %w", err)
	}
	return nil
}
