package voice

import (
	"context"
	"errors"
	"net/http"

	"github.com/royscompany/royscompany-api/internal/http/httpjson"
	"github.com/royscompany/royscompany-api/pkg/logging"
)

// MaxUploadBytes caps audio uploads for transcription.
const MaxUploadBytes = 25 << 20

// TokenIssuer issues conversation tokens.
type TokenIssuer interface {
	ConversationToken(ctx context.Context) (string, error)
}

// Handler serves the voice widget endpoints.
type Handler struct {
	tokens   TokenIssuer
	deepgram *DeepgramClient
	logger   *logging.Logger
}

func NewHandler(tokens TokenIssuer, deepgram *DeepgramClient, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{tokens: tokens, deepgram: deepgram, logger: logger}
}

// Token handles GET|POST /voice/token.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	if h.tokens == nil {
		httpjson.Error(w, http.StatusInternalServerError, ErrElevenLabsNotConfigured.Error())
		return
	}
	token, err := h.tokens.ConversationToken(r.Context())
	if err != nil {
		h.logger.Error("voice token failed", "error", err)
		httpjson.Error(w, http.StatusInternalServerError, publicMessage(err, "Failed to get voice token"))
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"token": token})
}

// Transcribe handles POST /voice/transcribe with a multipart "file" field.
func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpjson.Error(w, http.StatusRequestEntityTooLarge, "Audio file too large")
			return
		}
		httpjson.Error(w, http.StatusInternalServerError, "No audio file uploaded")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		httpjson.Error(w, http.StatusInternalServerError, "No audio file uploaded")
		return
	}
	defer file.Close()

	if !h.deepgram.Configured() {
		httpjson.Error(w, http.StatusInternalServerError, ErrDeepgramNotConfigured.Error())
		return
	}

	text, err := h.deepgram.Transcribe(r.Context(), file, header.Header.Get("Content-Type"))
	if err != nil {
		h.logger.Error("transcription failed", "error", err, "size", header.Size)
		httpjson.Error(w, http.StatusInternalServerError, publicMessage(err, "Transcription failed"))
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"text": text})
}

// publicMessage returns the configuration or upstream status message for
// known failures and fallback for transport errors.
func publicMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, ErrElevenLabsNotConfigured), errors.Is(err, ErrDeepgramNotConfigured):
		return err.Error()
	}
	var status *upstreamStatusError
	if errors.As(err, &status) {
		return status.Error()
	}
	return fallback
}
