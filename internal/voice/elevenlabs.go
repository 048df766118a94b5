package voice

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/royscompany/royscompany-api/internal/observability/metrics"
)

var tracer = otel.Tracer("royscompany.internal.voice")

// ErrElevenLabsNotConfigured is returned when the API key or agent id is missing.
var ErrElevenLabsNotConfigured = errors.New("ElevenLabs configuration not set")

// upstreamStatusError carries a non-2xx status from a voice provider. Its
// message is safe to return to the browser.
type upstreamStatusError struct {
	service string
	status  int
}

func (e *upstreamStatusError) Error() string {
	return fmt.Sprintf("%s API error: %d", e.service, e.status)
}

// ElevenLabsClient issues conversation tokens for the browser voice widget.
type ElevenLabsClient struct {
	apiKey     string
	agentID    string
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// NewElevenLabsClient creates a client for one conversational agent.
func NewElevenLabsClient(apiKey, agentID string) *ElevenLabsClient {
	return &ElevenLabsClient{
		apiKey:     apiKey,
		agentID:    agentID,
		baseURL:    "https://api.elevenlabs.io",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL overrides the API base URL (for testing).
func (c *ElevenLabsClient) WithBaseURL(baseURL string) *ElevenLabsClient {
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// WithMetrics records ElevenLabs latency.
func (c *ElevenLabsClient) WithMetrics(m *metrics.Metrics) *ElevenLabsClient {
	c.metrics = m
	return c
}

// ConversationToken fetches a short-lived token scoped to the configured agent.
func (c *ElevenLabsClient) ConversationToken(ctx context.Context) (token string, err error) {
	if c == nil || c.apiKey == "" || c.agentID == "" {
		return "", ErrElevenLabsNotConfigured
	}
	ctx, span := tracer.Start(ctx, "elevenlabs.conversation_token")
	defer span.End()
	span.SetAttributes(attribute.String("elevenlabs.agent_id", c.agentID))

	start := time.Now()
	defer func() {
		c.metrics.ObserveUpstream("elevenlabs", time.Since(start).Seconds(), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "token request failed")
		}
	}()

	endpoint := c.baseURL + "/v1/convai/conversation/token?agent_id=" + url.QueryEscape(c.agentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("voice: elevenlabs request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("voice: elevenlabs http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 8<<10))
		return "", &upstreamStatusError{service: "ElevenLabs", status: resp.StatusCode}
	}

	var parsed struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("voice: elevenlabs decode: %w", err)
	}
	return parsed.Token, nil
}
