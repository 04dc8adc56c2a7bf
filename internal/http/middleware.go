package http

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/daily-scheduler/internal/application"
)

// RequireAPIKey authenticates requests against the configured argon2id key
// digest. An empty digest disables authentication.
func RequireAPIKey(digest string, logger *slog.Logger) func(http.Handler) http.Handler {
	base := defaultLogger(logger)
	responder := newResponder(base)

	return func(next http.Handler) http.Handler {
		if strings.TrimSpace(digest) == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			audit := LoggerFromContext(r.Context())
			if audit == nil {
				audit = base
			}
			audit = audit.With("middleware", "RequireAPIKey")

			key := strings.TrimSpace(extractKeyFromRequest(r))
			if key == "" {
				audit.ErrorContext(r.Context(), "api key missing", "error_kind", "unauthorized")
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingAPIKey)
				return
			}

			if err := application.VerifyKey(digest, key); err != nil {
				audit.ErrorContext(r.Context(), "api key rejected", "error", err, "error_kind", application.ErrorKind(err))
				responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Message: "API キーが無効です。"})
				return
			}

			if id, err := application.KeyID(digest); err == nil {
				audit.With("key_id", id).InfoContext(r.Context(), "api key accepted")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger attaches a request scoped logger and records request
// start/completion.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func extractKeyFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if strings.HasPrefix(strings.ToLower(header), "bearer ") {
			return header[len("bearer "):]
		}
	}
	return r.Header.Get("X-Api-Key")
}
