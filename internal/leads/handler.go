package leads

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/royscompany/royscompany-api/internal/http/httpjson"
	"github.com/royscompany/royscompany-api/internal/observability/metrics"
	"github.com/royscompany/royscompany-api/internal/ratelimit"
	"github.com/royscompany/royscompany-api/pkg/logging"
)

const (
	maxBodyBytes = 64 << 10

	msgTooManyRequests = "Too many requests. Please try again later."
	msgInvalidInput    = "Invalid input"
	msgCreateFailed    = "Failed to create lead"
)

// Handler handles HTTP requests for leads
type Handler struct {
	repo     Repository
	limiter  ratelimit.Limiter
	cfg      Config
	sessions *SessionGenerator
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithSessionGenerator overrides the session token source.
func WithSessionGenerator(g *SessionGenerator) HandlerOption {
	return func(h *Handler) {
		if g != nil {
			h.sessions = g
		}
	}
}

// WithMetrics records intake outcomes.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// NewHandler creates a new leads handler. A nil limiter disables throttling.
func NewHandler(repo Repository, limiter ratelimit.Limiter, cfg Config, logger *logging.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{
		repo:     repo,
		limiter:  limiter,
		cfg:      cfg.normalized(),
		sessions: NewSessionGenerator(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// CreateLead handles POST /leads: quota check, validation, then a single insert.
// The quota is consumed before the body is read, so rejected submissions still count.
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientKey := ratelimit.KeyFromRequest(r)

	if h.limiter != nil {
		dec, err := h.limiter.Allow(ctx, clientKey)
		if err != nil {
			h.logger.Warn("lead rate limiter unavailable", "error", err)
		}
		h.metrics.ObserveRateLimit("leads", dec.Allowed)
		if !dec.Allowed {
			h.logger.Info("lead intake throttled", "client", clientKey, "count", dec.Count)
			h.metrics.ObserveLeadIntake(metrics.OutcomeThrottled)
			httpjson.Error(w, http.StatusTooManyRequests, msgTooManyRequests)
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.metrics.ObserveLeadIntake(metrics.OutcomeInvalid)
		httpjson.Write(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:   msgInvalidInput,
			Details: []FieldError{{Field: "body", Message: "could not read request body"}},
		})
		return
	}

	req, err := ParseCreateLeadRequest(body, h.cfg)
	if err != nil {
		h.metrics.ObserveLeadIntake(metrics.OutcomeInvalid)
		var verr *ValidationError
		details := []FieldError{{Field: "body", Message: ErrInvalidBody.Error()}}
		if errors.As(err, &verr) {
			details = verr.Details
		}
		h.logger.Info("lead intake rejected", "client", clientKey, "error", err)
		httpjson.Write(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:   msgInvalidInput,
			Details: details,
		})
		return
	}

	sessionID, err := h.sessions.Next()
	if err != nil {
		h.logger.Error("failed to generate lead session id", "error", err)
		h.metrics.ObserveLeadIntake(metrics.OutcomeFailed)
		httpjson.Error(w, http.StatusInternalServerError, msgCreateFailed)
		return
	}

	lead, err := h.repo.Create(ctx, req.NewLead(sessionID))
	if err != nil {
		h.logger.Error("failed to create lead", "error", err, "session_id", sessionID)
		h.metrics.ObserveLeadIntake(metrics.OutcomeFailed)
		httpjson.Error(w, http.StatusInternalServerError, msgCreateFailed)
		return
	}

	h.logger.Info("lead created",
		"lead_id", lead.ID,
		"session_id", lead.SessionID,
		"source", lead.Source,
		"priority", lead.Priority,
	)
	h.metrics.ObserveLeadIntake(metrics.OutcomeCreated)
	httpjson.Write(w, http.StatusOK, CreateLeadResponse{
		Success:   true,
		LeadID:    lead.ID,
		SessionID: lead.SessionID,
	})
}

// ListLeadsResponse is the response for listing leads
type ListLeadsResponse struct {
	Leads []*Lead `json:"leads"`
	Count int     `json:"count"`
	Limit int     `json:"limit"`
}

// ListLeads handles GET /admin/leads requests
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	leads, err := h.repo.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list leads", "error", err)
		httpjson.Error(w, http.StatusInternalServerError, "failed to list leads")
		return
	}
	if leads == nil {
		leads = []*Lead{}
	}

	httpjson.Write(w, http.StatusOK, ListLeadsResponse{
		Leads: leads,
		Count: len(leads),
		Limit: limit,
	})
}

// GetLead handles GET /admin/leads/{leadID} requests
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "leadID"))
	if id == "" {
		httpjson.Error(w, http.StatusBadRequest, "lead id required")
		return
	}

	lead, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			httpjson.Error(w, http.StatusNotFound, "lead not found")
			return
		}
		h.logger.Error("failed to get lead", "error", err, "lead_id", id)
		httpjson.Error(w, http.StatusInternalServerError, "failed to get lead")
		return
	}
	httpjson.Write(w, http.StatusOK, lead)
}
