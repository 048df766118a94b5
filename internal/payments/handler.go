package payments

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/royscompany/royscompany-api/internal/http/httpjson"
	"github.com/royscompany/royscompany-api/pkg/logging"
)

const msgCheckoutFailed = "Unable to create checkout session"

// SessionCreator creates a hosted checkout page for a package.
type SessionCreator interface {
	CreateSession(ctx context.Context, params SessionParams) (*Session, error)
}

// CheckoutHandler serves POST /checkout. Throttling is applied by middleware.
type CheckoutHandler struct {
	sessions      SessionCreator
	defaultOrigin string
	logger        *logging.Logger
}

func NewCheckoutHandler(sessions SessionCreator, defaultOrigin string, logger *logging.Logger) *CheckoutHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if defaultOrigin == "" {
		defaultOrigin = "https://www.royscompany.com"
	}
	return &CheckoutHandler{
		sessions:      sessions,
		defaultOrigin: defaultOrigin,
		logger:        logger,
	}
}

type checkoutResponse struct {
	URL string `json:"url"`
}

func (h *CheckoutHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 16<<10))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, clientMessage(ErrInvalidRequest))
		return
	}

	req, err := ParseCheckoutRequest(body)
	if err != nil {
		h.logger.Info("checkout rejected", "error", err)
		httpjson.Error(w, http.StatusBadRequest, clientMessage(err))
		return
	}

	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		origin = h.defaultOrigin
	}

	session, err := h.sessions.CreateSession(r.Context(), SessionParams{
		Package: req.Package,
		Email:   req.Email,
		Name:    req.Name,
		Origin:  origin,
	})
	if err != nil {
		h.logger.Error("failed to create checkout session", "error", err, "package", req.Package)
		httpjson.Error(w, http.StatusInternalServerError, msgCheckoutFailed)
		return
	}

	h.logger.Info("checkout session created", "session_id", session.ID, "package", req.Package)
	httpjson.Write(w, http.StatusOK, checkoutResponse{URL: session.URL})
}
