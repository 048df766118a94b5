package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/royscompany/royscompany-api/internal/automation"
	"github.com/royscompany/royscompany-api/internal/http/httpjson"
	httpmiddleware "github.com/royscompany/royscompany-api/internal/http/middleware"
	"github.com/royscompany/royscompany-api/internal/leads"
	"github.com/royscompany/royscompany-api/internal/notify"
	"github.com/royscompany/royscompany-api/internal/observability/metrics"
	"github.com/royscompany/royscompany-api/internal/payments"
	"github.com/royscompany/royscompany-api/internal/ratelimit"
	"github.com/royscompany/royscompany-api/internal/secrets"
	"github.com/royscompany/royscompany-api/internal/voice"
	"github.com/royscompany/royscompany-api/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Metrics            *metrics.Metrics
	MetricsHandler     http.Handler
	MetricsToken       string
	CORSAllowedOrigins []string
	AdminAuthSecret    string

	LeadsHandler      *leads.Handler
	CheckoutHandler   *payments.CheckoutHandler
	CheckoutLimiter   ratelimit.Limiter
	NotifyHandler     *notify.Handler
	VoiceHandler      *voice.Handler
	AutomationHandler *automation.Handler
	SecretsHandler    *secrets.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpjson.Write(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.With(requireMetricsToken(cfg.MetricsToken)).Handle("/metrics", cfg.MetricsHandler)
	}

	// Public endpoints called from the marketing sites
	r.Group(func(public chi.Router) {
		if cfg.LeadsHandler != nil {
			public.Post("/leads", cfg.LeadsHandler.CreateLead)
			public.Post("/functions/create-lead", cfg.LeadsHandler.CreateLead)
		}
		if cfg.CheckoutHandler != nil {
			public.With(httpmiddleware.RateLimit(cfg.CheckoutLimiter, "checkout", cfg.Logger, cfg.Metrics)).
				Post("/checkout", cfg.CheckoutHandler.CreateCheckout)
		}
		if cfg.NotifyHandler != nil {
			public.Post("/telegram/forward", cfg.NotifyHandler.ForwardToTelegram)
			public.Post("/notify/new-lead", cfg.NotifyHandler.NotifyNewLead)
		}
		if cfg.VoiceHandler != nil {
			public.Get("/voice/token", cfg.VoiceHandler.Token)
			public.Post("/voice/token", cfg.VoiceHandler.Token)
			public.Post("/voice/transcribe", cfg.VoiceHandler.Transcribe)
		}
		if cfg.AutomationHandler != nil {
			public.Post("/n8n", cfg.AutomationHandler.Proxy)
		}
	})

	// Admin routes (protected by HMAC JWT)
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.LeadsHandler != nil {
				admin.Get("/leads", cfg.LeadsHandler.ListLeads)
				admin.Get("/leads/{leadID}", cfg.LeadsHandler.GetLead)
			}
			if cfg.SecretsHandler != nil {
				admin.Post("/secrets", cfg.SecretsHandler.Handle)
			}
		})
	}

	return r
}
