package logger

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Handler is the process-wide slog handler: text output on stdout.
type Handler struct {
	slog.Handler
}

// NewHandler creates a new Handler. A nil opts uses defaults.
func NewHandler(opts *slog.HandlerOptions) *Handler {
	return &Handler{
		Handler: slog.NewTextHandler(os.Stdout, opts),
	}
}

// NewLoggerMiddleware logs one line per finished request.
func NewLoggerMiddleware(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			log.Info("request finished",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
