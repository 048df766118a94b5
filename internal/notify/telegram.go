package notify

import (
	"bytes"
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
	"go.opentelemetry.io/otel/codes"

	"github.com/royscompany/royscompany-api/internal/observability/metrics"
	"github.com/royscompany/royscompany-api/pkg/logging"
)

var telegramTracer = otel.Tracer("royscompany.internal.notify.telegram")

// ErrTelegramNotConfigured is returned when the bot token or chat id is missing.
var ErrTelegramNotConfigured = errors.New("notify: telegram not configured")

// TelegramError carries the body of a non-2xx Bot API response.
type TelegramError struct {
	Status int
	Body   string
}

func (e *TelegramError) Error() string {
	return fmt.Sprintf("notify: telegram status %d: %s", e.Status, e.Body)
}

// TelegramClient posts messages to one chat through the Bot API.
type TelegramClient struct {
	token      string
	chatID     string
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *logging.Logger
}

// NewTelegramClient creates a client for the given bot and chat.
func NewTelegramClient(token, chatID string, logger *logging.Logger) *TelegramClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &TelegramClient{
		token:      token,
		chatID:     chatID,
		baseURL:    "https://api.telegram.org",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithBaseURL overrides the Bot API base URL (for testing).
func (c *TelegramClient) WithBaseURL(baseURL string) *TelegramClient {
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// WithMetrics records Bot API latency.
func (c *TelegramClient) WithMetrics(m *metrics.Metrics) *TelegramClient {
	c.metrics = m
	return c
}

// Configured reports whether both the token and chat id are set.
func (c *TelegramClient) Configured() bool {
	return c != nil && c.token != "" && c.chatID != ""
}

// SendMessage posts text to the configured chat.
func (c *TelegramClient) SendMessage(ctx context.Context, text string) (err error) {
	if !c.Configured() {
		return ErrTelegramNotConfigured
	}
	ctx, span := telegramTracer.Start(ctx, "telegram.send_message")
	defer span.End()

	start := time.Now()
	defer func() {
		c.metrics.ObserveUpstream("telegram", time.Since(start).Seconds(), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "send failed")
		}
	}()

	payload, err := json.Marshal(map[string]string{"chat_id": c.chatID, "text": text})
	if err != nil {
		return fmt.Errorf("notify: telegram encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bot"+c.token+"/sendMessage", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The URL embeds the bot token; keep it out of the error.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("notify: telegram http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return &TelegramError{Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// WebsiteLead is the contact-form payload forwarded to Telegram.
type WebsiteLead struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
	Package string `json:"package"`
	Message string `json:"message"`
}

// Text renders the lead as the chat message body.
func (l WebsiteLead) Text() string {
	return "New website lead" +
		"\nName: " + l.Name +
		"\nEmail: " + l.Email +
		"\nCompany: " + l.Company +
		"\nPackage: " + l.Package +
		"\nMessage: " + l.Message
}
