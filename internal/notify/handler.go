package notify

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/royscompany/royscompany-api/internal/http/httpjson"
	"github.com/royscompany/royscompany-api/pkg/logging"
)

const maxNotifyBody = 32 << 10

// Handler serves the Telegram forward and new-lead email endpoints.
type Handler struct {
	telegram *TelegramClient
	leads    *LeadNotifier
	logger   *logging.Logger
}

func NewHandler(telegram *TelegramClient, leads *LeadNotifier, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{telegram: telegram, leads: leads, logger: logger}
}

type successResponse struct {
	Success bool `json:"success"`
}

// ForwardToTelegram handles POST /telegram/forward.
func (h *Handler) ForwardToTelegram(w http.ResponseWriter, r *http.Request) {
	var lead WebsiteLead
	if err := json.NewDecoder(io.LimitReader(r.Body, maxNotifyBody)).Decode(&lead); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if !h.telegram.Configured() {
		httpjson.Error(w, http.StatusInternalServerError, "Missing Telegram configuration")
		return
	}

	if err := h.telegram.SendMessage(r.Context(), lead.Text()); err != nil {
		h.logger.Error("telegram forward failed", "error", err)
		var tgErr *TelegramError
		if errors.As(err, &tgErr) {
			httpjson.Error(w, http.StatusInternalServerError, tgErr.Body)
			return
		}
		httpjson.Error(w, http.StatusInternalServerError, "Failed to reach Telegram")
		return
	}
	httpjson.Write(w, http.StatusOK, successResponse{Success: true})
}

// NotifyNewLead handles POST /notify/new-lead.
func (h *Handler) NotifyNewLead(w http.ResponseWriter, r *http.Request) {
	if h.leads == nil || h.leads.email == nil {
		httpjson.Error(w, http.StatusInternalServerError, "Email service not configured")
		return
	}

	var req NewLeadNotification
	if err := json.NewDecoder(io.LimitReader(r.Body, maxNotifyBody)).Decode(&req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if err := h.leads.Notify(r.Context(), req); err != nil {
		switch {
		case errors.Is(err, ErrMissingFields):
			httpjson.Error(w, http.StatusBadRequest, "Missing required fields")
		case errors.Is(err, ErrEmailNotConfigured):
			httpjson.Error(w, http.StatusInternalServerError, "Email service not configured")
		default:
			h.logger.Error("new lead notification failed", "error", err)
			httpjson.Error(w, http.StatusInternalServerError, "Failed to send notification")
		}
		return
	}
	httpjson.Write(w, http.StatusOK, successResponse{Success: true})
}
