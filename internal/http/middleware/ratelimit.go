package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/royscompany/royscompany-api/internal/http/httpjson"
	"github.com/royscompany/royscompany-api/internal/observability/metrics"
	"github.com/royscompany/royscompany-api/internal/ratelimit"
	"github.com/royscompany/royscompany-api/pkg/logging"
)

// TooManyRequestsMessage is the body text for every throttled public endpoint.
const TooManyRequestsMessage = "Too many requests. Please try again later."

// RateLimit returns an HTTP middleware that rejects requests exceeding the
// limiter's quota with 429 Too Many Requests and a Retry-After header.
// Limiter failures are logged and the request is let through.
func RateLimit(limiter ratelimit.Limiter, scope string, logger *logging.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ratelimit.KeyFromRequest(r)
			dec, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("rate limiter unavailable", "scope", scope, "error", err)
			}
			m.ObserveRateLimit(scope, dec.Allowed)
			if !dec.Allowed {
				if wait := dec.RetryAfter(time.Now()); wait > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				}
				logger.Info("request throttled", "scope", scope, "client", key, "path", r.URL.Path)
				httpjson.Error(w, http.StatusTooManyRequests, TooManyRequestsMessage)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
