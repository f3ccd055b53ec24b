package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/hema22923/AgriConnect/internal/domain"
	"github.com/hema22923/AgriConnect/internal/logger"
	"github.com/rs/zerolog"
)

// UserIDHeader carries the uid the upstream auth provider verified.
const UserIDHeader = "X-User-ID"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	identityKey
)

// IdentityResolver maps a verified uid to the caller identity.
type IdentityResolver interface {
	Identity(ctx context.Context, uid string) (domain.Identity, error)
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggerMiddleware stores log, tagged with the request ID, in the request
// context. Must run after RequestIDMiddleware.
func LoggerMiddleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := log.With().Str("request_id", getRequestID(r.Context())).Logger()
			next.ServeHTTP(w, r.WithContext(l.WithContext(r.Context())))
		})
	}
}

// requestLogger returns the logger stored by LoggerMiddleware with the
// active span attached.
func requestLogger(r *http.Request) *zerolog.Logger {
	return logger.FromContext(r.Context(), *zerolog.Ctx(r.Context()))
}

// AuthMiddleware resolves the caller from UserIDHeader. Requests without
// the header continue anonymously; an unknown uid is anonymous too, so the
// handler decides whether authentication is required.
func AuthMiddleware(users IdentityResolver, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid := r.Header.Get(UserIDHeader)
			if uid == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := users.Identity(r.Context(), uid)
			if err != nil {
				if !errors.Is(err, domain.ErrAuthRequired) {
					logger.FromContext(r.Context(), log).Error().Err(err).
						Str("user_id", uid).
						Msg("failed to resolve identity")
					respondError(w, r, http.StatusServiceUnavailable, codeUnavailable, "identity lookup failed")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccessLogMiddleware writes one structured line per request.
func AccessLogMiddleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			evt := logger.FromContext(r.Context(), log).Info()
			if status >= http.StatusInternalServerError {
				evt = logger.FromContext(r.Context(), log).Error()
			}
			evt.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", getRequestID(r.Context())).
				Str("user_id", getIdentity(r.Context()).UserID).
				Msg("http request")
		})
	}
}

func getIdentity(ctx context.Context) domain.Identity {
	if id, ok := ctx.Value(identityKey).(domain.Identity); ok {
		return id
	}
	return domain.Identity{}
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}
