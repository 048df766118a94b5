package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/royscompany/royscompany-api/internal/automation"
	"github.com/royscompany/royscompany-api/internal/leads"
	"github.com/royscompany/royscompany-api/internal/notify"
	"github.com/royscompany/royscompany-api/internal/observability/metrics"
	"github.com/royscompany/royscompany-api/internal/payments"
	"github.com/royscompany/royscompany-api/internal/ratelimit"
	"github.com/royscompany/royscompany-api/internal/secrets"
	"github.com/royscompany/royscompany-api/internal/voice"
	"github.com/royscompany/royscompany-api/pkg/logging"
)

const testAdminSecret = "router-test-secret"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := logging.NewWithWriter(io.Discard, "error")
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	leadRepo := leads.NewInMemoryRepository()
	leadLimiter := ratelimit.NewFixedWindow(ratelimit.NewMemoryStore(), 10, time.Minute, ratelimit.WithPrefix("leads"))
	checkoutLimiter := ratelimit.NewFixedWindow(ratelimit.NewMemoryStore(), 2, time.Minute, ratelimit.WithPrefix("checkout"))

	stripe := payments.NewStripeCheckoutService("sk_test", payments.Prices{Foundation: "price_f", Growth: "price_g"}, logger).WithDryRun(true)
	cipher, err := secrets.NewCipher("router-key", "salt")
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}

	return New(&Config{
		Logger:             logger,
		Metrics:            m,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		MetricsToken:       "scrape",
		CORSAllowedOrigins: []string{"*"},
		AdminAuthSecret:    testAdminSecret,
		LeadsHandler:       leads.NewHandler(leadRepo, leadLimiter, leads.DefaultConfig(), logger, leads.WithMetrics(m)),
		CheckoutHandler:    payments.NewCheckoutHandler(stripe, "", logger),
		CheckoutLimiter:    checkoutLimiter,
		NotifyHandler:      notify.NewHandler(notify.NewTelegramClient("", "", logger), nil, logger),
		VoiceHandler:       voice.NewHandler(voice.NewElevenLabsClient("", ""), voice.NewDeepgramClient(""), logger),
		AutomationHandler:  automation.NewHandler(automation.NewProxy(map[string]string{"call-lead": "http://127.0.0.1:0/unused"}, logger), logger),
		SecretsHandler:     secrets.NewHandler(cipher, logger),
	})
}

func adminToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "rory",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
	})
	signed, err := token.SignedString([]byte(testAdminSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterCreateLeadRoutes(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/leads", "/functions/create-lead"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"contact_name":"Router Test","email":"router@example.com"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", "203.0.113.10")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected status %d, got %d: %s", path, http.StatusOK, rr.Code, rr.Body.String())
		}

		var created leads.CreateLeadResponse
		if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !created.Success || created.LeadID == "" {
			t.Errorf("%s: unexpected response %+v", path, created)
		}
		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("%s: expected CORS header '*', got %q", path, got)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: expected request id header", path)
		}
	}
}

func TestRouterPreflight(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/leads", "/checkout", "/n8n", "/does-not-exist"} {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		req.Header.Set("Origin", "https://www.royscompany.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusNoContent {
			t.Errorf("%s: expected 204, got %d", path, rr.Code)
		}
		if rr.Body.Len() != 0 {
			t.Errorf("%s: expected empty preflight body, got %q", path, rr.Body.String())
		}
	}
}

func TestRouterCheckoutRateLimited(t *testing.T) {
	router := newTestRouter(t)

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(`{"packageType":"foundation"}`))
		req.Header.Set("X-Forwarded-For", "198.51.100.7")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		statuses = append(statuses, rr.Code)
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("expected statuses %v, got %v", want, statuses)
		}
	}
}

func TestRouterAdminRequiresToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/leads", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/leads", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRouterAdminLeadLookup(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/leads/does-not-exist", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown lead, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRouterAdminSecrets(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/secrets", strings.NewReader(`{"action":"decrypt","password":"plain"}`))
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"decrypted":"plain"`) {
		t.Errorf("unexpected body %s", rr.Body.String())
	}
}

func TestRouterAdminNotMountedWithoutSecret(t *testing.T) {
	r := New(&Config{Logger: logging.NewWithWriter(io.Discard, "error")})

	req := httptest.NewRequest(http.MethodGet, "/admin/leads", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when admin secret is unset, got %d", rr.Code)
	}
}

func TestRouterMetricsToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without scrape token, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("X-Metrics-Token", "scrape")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with scrape token, got %d", rr.Code)
	}
}

func TestRouterUnconfiguredUpstreams(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		method string
		path   string
		body   string
		want   string
	}{
		{http.MethodGet, "/voice/token", "", "ElevenLabs configuration not set"},
		{http.MethodPost, "/telegram/forward", `{"name":"A","email":"a@example.com"}`, "Missing Telegram configuration"},
		{http.MethodPost, "/notify/new-lead", `{"leadName":"A","email":"a@example.com"}`, "Email service not configured"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("%s: expected 500, got %d", tt.path, rr.Code)
		}
		var resp map[string]string
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("%s: decode: %v", tt.path, err)
		}
		if resp["error"] != tt.want {
			t.Errorf("%s: expected error %q, got %q", tt.path, tt.want, resp["error"])
		}
	}
}
