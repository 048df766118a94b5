package secrets

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/royscompany/royscompany-api/internal/http/httpjson"
	"github.com/royscompany/royscompany-api/pkg/logging"
)

// Handler serves POST /admin/secrets.
type Handler struct {
	cipher *Cipher
	logger *logging.Logger
}

func NewHandler(c *Cipher, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{cipher: c, logger: logger}
}

type secretRequest struct {
	Action   string `json:"action"`
	Password string `json:"password"`
}

func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req secretRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil {
		httpjson.Error(w, http.StatusInternalServerError, "Invalid request body")
		return
	}
	if req.Password == "" {
		httpjson.Error(w, http.StatusBadRequest, "Password required")
		return
	}
	if h.cipher == nil {
		httpjson.Error(w, http.StatusInternalServerError, "Encryption key not configured")
		return
	}

	switch req.Action {
	case "encrypt":
		out, err := h.cipher.Encrypt(req.Password)
		if err != nil {
			h.logger.Error("encrypt failed", "error", err)
			httpjson.Error(w, http.StatusInternalServerError, "Encryption failed")
			return
		}
		httpjson.Write(w, http.StatusOK, map[string]string{"encrypted": out})
	case "decrypt":
		out, err := h.cipher.Decrypt(req.Password)
		if err != nil {
			h.logger.Warn("decrypt failed", "error", err)
			httpjson.Error(w, http.StatusInternalServerError, publicError(err))
			return
		}
		httpjson.Write(w, http.StatusOK, map[string]string{"decrypted": out})
	default:
		httpjson.Error(w, http.StatusBadRequest, "Invalid action")
	}
}

func publicError(err error) string {
	if errors.Is(err, ErrInvalidFormat) {
		return err.Error()
	}
	return "Decryption failed"
}
