package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/royscompany/royscompany-api/internal/observability/metrics"
	"github.com/royscompany/royscompany-api/pkg/logging"
)

var stripeTracer = otel.Tracer("royscompany.internal.payments.stripe")

// ErrPriceNotConfigured is returned when the package has no Stripe price ID.
var ErrPriceNotConfigured = errors.New("payments: stripe price not configured")

// SessionParams describes one Checkout Session to create.
type SessionParams struct {
	Package Package
	Email   string
	Name    string
	// Origin is the site the buyer returns to after checkout.
	Origin string
}

// Session is the subset of Stripe's Checkout Session the site needs.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// StripeCheckoutService creates Stripe Checkout Sessions for package purchases.
type StripeCheckoutService struct {
	secretKey  string
	prices     Prices
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *logging.Logger
	metrics    *metrics.Metrics
	dryRun     bool
}

// NewStripeCheckoutService creates a new Stripe checkout service.
func NewStripeCheckoutService(secretKey string, prices Prices, logger *logging.Logger) *StripeCheckoutService {
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeCheckoutService{
		secretKey:  secretKey,
		prices:     prices,
		baseURL:    "https://api.stripe.com",
		apiVersion: "2025-08-27.basil",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithBaseURL overrides the Stripe API base URL (for testing).
func (s *StripeCheckoutService) WithBaseURL(baseURL string) *StripeCheckoutService {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

// WithDryRun enables dry-run mode (returns fake URLs without calling Stripe).
func (s *StripeCheckoutService) WithDryRun(enabled bool) *StripeCheckoutService {
	s.dryRun = enabled
	return s
}

// WithMetrics records Stripe call latency.
func (s *StripeCheckoutService) WithMetrics(m *metrics.Metrics) *StripeCheckoutService {
	s.metrics = m
	return s
}

// CreateSession reuses an existing customer matched by email when there is one
// and creates a Checkout Session for the package.
func (s *StripeCheckoutService) CreateSession(ctx context.Context, params SessionParams) (*Session, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.create_checkout_session")
	defer span.End()
	span.SetAttributes(
		attribute.String("royscompany.package", string(params.Package)),
		attribute.Bool("royscompany.has_email", params.Email != ""),
	)

	price := s.prices.For(params.Package)
	if price == "" {
		return nil, fmt.Errorf("%w: %s", ErrPriceNotConfigured, params.Package)
	}

	if s.dryRun {
		fakeID := "cs_dryrun_" + uuid.New().String()[:8]
		s.logger.Info("stripe dry run: skipping checkout session creation", "package", params.Package)
		return &Session{
			ID:  fakeID,
			URL: fmt.Sprintf("https://checkout.stripe.com/dry-run/%s", fakeID),
		}, nil
	}

	var customerID string
	if params.Email != "" {
		id, err := s.findCustomer(ctx, params.Email)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "customer lookup failed")
			return nil, err
		}
		customerID = id
		if id != "" {
			s.logger.Info("stripe customer found", "customer_id", id)
		}
	}

	origin := strings.TrimRight(params.Origin, "/")
	form := url.Values{}
	form.Set("mode", params.Package.Mode())
	form.Set("line_items[0][price]", price)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", origin+"/?payment=success")
	form.Set("cancel_url", origin+"/?payment=canceled")
	form.Set("metadata[package]", string(params.Package))
	form.Set("metadata[customer_name]", params.Name)
	switch {
	case customerID != "":
		form.Set("customer", customerID)
	case params.Email != "":
		form.Set("customer_email", params.Email)
	}

	var session Session
	if err := s.do(ctx, http.MethodPost, "/v1/checkout/sessions", strings.NewReader(form.Encode()), &session); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create session failed")
		return nil, err
	}
	if session.URL == "" {
		return nil, fmt.Errorf("payments: stripe response missing checkout url")
	}
	span.SetAttributes(attribute.String("stripe.session_id", session.ID))
	return &session, nil
}

type customerList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (s *StripeCheckoutService) findCustomer(ctx context.Context, email string) (string, error) {
	q := url.Values{}
	q.Set("email", email)
	q.Set("limit", "1")
	var list customerList
	if err := s.do(ctx, http.MethodGet, "/v1/customers?"+q.Encode(), nil, &list); err != nil {
		return "", fmt.Errorf("payments: stripe customer lookup: %w", err)
	}
	if len(list.Data) == 0 {
		return "", nil
	}
	return list.Data[0].ID, nil
}

func (s *StripeCheckoutService) do(ctx context.Context, method, path string, body io.Reader, out any) (err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveUpstream("stripe", time.Since(start).Seconds(), err) }()

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("payments: stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Stripe-Version", s.apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("payments: stripe http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("payments: stripe api status %d: %s", resp.StatusCode, readStripeError(resp.Body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("payments: stripe decode: %w", err)
	}
	return nil
}

// stripeErrorResponse represents a Stripe API error.
type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// readStripeError extracts the message from a Stripe error body.
func readStripeError(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return "unknown error"
	}
	var parsed stripeErrorResponse
	if json.Unmarshal(data, &parsed) == nil && parsed.Error.Message != "" {
		return parsed.Error.Type + ": " + parsed.Error.Message
	}
	return string(data)
}
