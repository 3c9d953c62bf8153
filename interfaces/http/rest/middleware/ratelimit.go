package middleware

import (
	"net/http"

	"learnengine/pkg/auth"

	"go.uber.org/zap"
)

// RateLimit throttles API requests per client IP through the shared
// DynamoDB-backed limiter, so the limit holds across instances. A nil
// limiter disables throttling; limiter errors fail open.
func RateLimit(limiter *auth.DistributedRateLimiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), getClientIP(r))
			if err != nil && logger != nil {
				logger.Warn("Distributed rate limiter degraded", zap.Error(err))
			}
			if !allowed {
				respondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
