package router

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/royscompany/royscompany-api/internal/http/httpjson"
)

const metricsTokenHeader = "X-Metrics-Token"
const metricsTokenQuery = "token"

// requireMetricsToken guards the prometheus endpoint with a shared scrape token.
// When expected is empty, the middleware is a no-op.
func requireMetricsToken(expected string) func(http.Handler) http.Handler {
	expected = strings.TrimSpace(expected)
	return func(next http.Handler) http.Handler {
		if expected == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get(metricsTokenHeader))
			if token == "" {
				token = strings.TrimSpace(r.URL.Query().Get(metricsTokenQuery))
			}
			if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
				httpjson.Error(w, http.StatusUnauthorized, "invalid metrics token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
