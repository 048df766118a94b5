package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/royscompany/royscompany-api/internal/observability/metrics"
	"github.com/royscompany/royscompany-api/pkg/logging"
)

var tracer = otel.Tracer("royscompany.internal.automation")

// ErrUnknownAction is returned when an action has no webhook mapping.
var ErrUnknownAction = errors.New("automation: unknown action")

// WebhookResult is the relayed n8n response.
type WebhookResult struct {
	Status int
	Body   json.RawMessage
}

// Proxy forwards named actions to n8n webhooks.
type Proxy struct {
	webhooks   map[string]string
	httpClient *http.Client
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewProxy creates a proxy over an action -> webhook URL map.
func NewProxy(webhooks map[string]string, logger *logging.Logger) *Proxy {
	if logger == nil {
		logger = logging.Default()
	}
	copied := make(map[string]string, len(webhooks))
	for action, url := range webhooks {
		copied[action] = url
	}
	return &Proxy{
		webhooks:   copied,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// WithMetrics records n8n latency.
func (p *Proxy) WithMetrics(m *metrics.Metrics) *Proxy {
	p.metrics = m
	return p
}

// WithHTTPClient overrides the HTTP client (for testing).
func (p *Proxy) WithHTTPClient(c *http.Client) *Proxy {
	if c != nil {
		p.httpClient = c
	}
	return p
}

// Actions returns the configured action names in sorted order.
func (p *Proxy) Actions() []string {
	actions := make([]string, 0, len(p.webhooks))
	for action := range p.webhooks {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	return actions
}

// Forward POSTs payload to the webhook for action. A non-JSON upstream body is
// wrapped as {"message": text}, with "Request processed" for an empty body.
func (p *Proxy) Forward(ctx context.Context, action string, payload map[string]json.RawMessage) (result *WebhookResult, err error) {
	target, ok := p.webhooks[action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	ctx, span := tracer.Start(ctx, "n8n.webhook")
	defer span.End()
	span.SetAttributes(attribute.String("n8n.action", action))

	start := time.Now()
	defer func() {
		p.metrics.ObserveUpstream("n8n", time.Since(start).Seconds(), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "webhook call failed")
		}
	}()

	if payload == nil {
		payload = map[string]json.RawMessage{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("automation: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("automation: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("automation: webhook %s: %w", action, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("automation: read response: %w", err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	p.logger.Info("n8n webhook responded", "action", action, "status", resp.StatusCode)

	return &WebhookResult{Status: resp.StatusCode, Body: relayBody(raw)}, nil
}

func relayBody(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	msg := string(raw)
	if msg == "" {
		msg = "Request processed"
	}
	wrapped, _ := json.Marshal(map[string]string{"message": msg})
	return wrapped
}
