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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/royscompany/royscompany-api/internal/observability/metrics"
)

// ErrDeepgramNotConfigured is returned when no API key is set.
var ErrDeepgramNotConfigured = errors.New("Deepgram API Key is not configured")

// DeepgramClient transcribes prerecorded audio.
type DeepgramClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// NewDeepgramClient creates a client using the nova-2 model.
func NewDeepgramClient(apiKey string) *DeepgramClient {
	return &DeepgramClient{
		apiKey:     apiKey,
		model:      "nova-2",
		baseURL:    "https://api.deepgram.com",
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// WithBaseURL overrides the API base URL (for testing).
func (c *DeepgramClient) WithBaseURL(baseURL string) *DeepgramClient {
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// WithMetrics records Deepgram latency.
func (c *DeepgramClient) WithMetrics(m *metrics.Metrics) *DeepgramClient {
	c.metrics = m
	return c
}

// Configured reports whether an API key is set.
func (c *DeepgramClient) Configured() bool { return c != nil && c.apiKey != "" }

type listenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe sends audio to Deepgram and returns the first transcript, or ""
// when Deepgram heard nothing.
func (c *DeepgramClient) Transcribe(ctx context.Context, audio io.Reader, contentType string) (text string, err error) {
	if !c.Configured() {
		return "", ErrDeepgramNotConfigured
	}
	ctx, span := tracer.Start(ctx, "deepgram.listen")
	defer span.End()
	span.SetAttributes(attribute.String("deepgram.model", c.model))

	start := time.Now()
	defer func() {
		c.metrics.ObserveUpstream("deepgram", time.Since(start).Seconds(), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "transcription failed")
		}
	}()

	q := url.Values{}
	q.Set("model", c.model)
	q.Set("smart_format", "true")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/listen?"+q.Encode(), audio)
	if err != nil {
		return "", fmt.Errorf("voice: deepgram request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("voice: deepgram http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 8<<10))
		return "", &upstreamStatusError{service: "Deepgram", status: resp.StatusCode}
	}

	var parsed listenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("voice: deepgram decode: %w", err)
	}
	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}
	return parsed.Results.Channels[0].Alternatives[0].Transcript, nil
}
