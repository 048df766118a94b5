package automation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/royscompany/royscompany-api/internal/http/httpjson"
	"github.com/royscompany/royscompany-api/pkg/logging"
)

// Handler serves POST /n8n.
type Handler struct {
	proxy  *Proxy
	logger *logging.Logger
}

func NewHandler(proxy *Proxy, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{proxy: proxy, logger: logger}
}

type invalidActionResponse struct {
	Error        string   `json:"error"`
	ValidActions []string `json:"validActions"`
}

func (h *Handler) Proxy(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 256<<10))
	if err != nil {
		httpjson.Error(w, http.StatusInternalServerError, "Failed to process request")
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		httpjson.Error(w, http.StatusInternalServerError, "Failed to process request")
		return
	}

	var action string
	if v, ok := fields["action"]; ok {
		_ = json.Unmarshal(v, &action)
	}
	delete(fields, "action")

	result, err := h.proxy.Forward(r.Context(), action, fields)
	if errors.Is(err, ErrUnknownAction) {
		h.logger.Warn("invalid n8n action", "action", action)
		httpjson.Write(w, http.StatusBadRequest, invalidActionResponse{
			Error:        "Invalid action",
			ValidActions: h.proxy.Actions(),
		})
		return
	}
	if err != nil {
		h.logger.Error("n8n proxy failed", "action", action, "error", err)
		httpjson.Error(w, http.StatusInternalServerError, "Failed to process request")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.Status)
	_, _ = w.Write(result.Body)
}
