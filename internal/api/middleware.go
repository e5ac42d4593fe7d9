// internal/api/middleware.go
package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codr1/courtbook/internal/api/apiutil"
	"github.com/codr1/courtbook/internal/api/auth"
	"github.com/codr1/courtbook/internal/api/authz"
	"github.com/codr1/courtbook/internal/apperr"
	"github.com/codr1/courtbook/internal/ratelimit"
)

type Middleware func(http.Handler) http.Handler

type requestIDKey struct{}

// ChainMiddleware wraps h so that the first middleware listed runs innermost.
func ChainMiddleware(h http.Handler, middleware ...Middleware) http.Handler {
	for _, m := range middleware {
		h = m(h)
	}
	return h
}

// RequestIDFromContext returns the id assigned by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func WithLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create response wrapper to capture status code
		wrapped := wrapResponseWriter(w)

		next.ServeHTTP(wrapped, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.status).
			Dur("duration", time.Since(start)).
			Str("request_id", RequestIDFromContext(r.Context())).
			Msg("Request completed")
	})
}

func WithRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger := log.Ctx(r.Context())
				stack := debug.Stack()
				logger.Error().
					Interface("error", err).
					Str("stack", string(stack)).
					Msg("Panic recovered")

				apiutil.WriteError(w, r, apperr.Internal("panic", fmt.Errorf("%v", err)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()

		// Create a logger with the request ID
		logger := log.With().Str("request_id", requestID).Logger()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		ctx = logger.WithContext(ctx)

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithAuth attaches the bearer token's user to the request context. Requests
// without a token pass through anonymously; a token that fails verification
// is rejected with 401.
func WithAuth(verifier *auth.TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r)
			if errors.Is(err, auth.ErrMissingToken) {
				next.ServeHTTP(w, r)
				return
			}
			if err == nil {
				var user *authz.AuthUser
				user, err = verifier.Verify(token)
				if err == nil {
					ctx := authz.ContextWithUser(r.Context(), user)
					ctx = log.Ctx(ctx).With().Int64("user_id", user.ID).Logger().WithContext(ctx)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			log.Ctx(r.Context()).Warn().Err(err).Msg("Rejected bearer token")
			apiutil.WriteError(w, r, apperr.Unauthenticated("Invalid or expired token"))
		})
	}
}

// WithRateLimit limits requests per caller: authenticated users by id,
// anonymous callers by client IP.
func WithRateLimit(limiter *ratelimit.Limiter, scope string, trustProxy bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + ratelimit.GetClientIP(r, trustProxy)
			if user := authz.UserFromContext(r.Context()); user != nil {
				key = fmt.Sprintf("user:%d", user.ID)
			}
			result := limiter.Allow(scope + ":" + key)
			if !result.Allowed {
				ratelimit.LogRateLimitExceeded(r.Context(), scope, key, result.RetryAfter)
				w.Header().Set("Retry-After", fmt.Sprint(int(math.Ceil(result.RetryAfter.Seconds()))))
				apiutil.WriteJSON(w, http.StatusTooManyRequests, apiutil.ErrorBody{
					Code:    "rate_limited",
					Message: "Too many requests",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter wrapper to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
