package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey int

const ctxKeyMode ctxKey = iota

func newStructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// modeName reads the mode from ?mode=, falling back to the legacy
// ?demoMode=false switch.
func modeName(r *http.Request) string {
	q := r.URL.Query()
	if m := q.Get("mode"); m != "" {
		return m
	}
	switch q.Get("demoMode") {
	case "false":
		return ModeReal
	case "true":
		return ModeDemo
	}
	return ""
}

// modeMiddleware resolves the request's mode and stores it in the context.
func modeMiddleware(modes *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m, err := modes.Get(modeName(r))
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidMode, "unknown mode")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyMode, m)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func modeFrom(r *http.Request) *Mode {
	return r.Context().Value(ctxKeyMode).(*Mode)
}
