package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/royscompany/royscompany-api/internal/api/router"
	"github.com/royscompany/royscompany-api/internal/automation"
	appconfig "github.com/royscompany/royscompany-api/internal/config"
	"github.com/royscompany/royscompany-api/internal/leads"
	"github.com/royscompany/royscompany-api/internal/notify"
	"github.com/royscompany/royscompany-api/internal/observability/metrics"
	"github.com/royscompany/royscompany-api/internal/payments"
	"github.com/royscompany/royscompany-api/internal/secrets"
	"github.com/royscompany/royscompany-api/internal/voice"
	"github.com/royscompany/royscompany-api/pkg/logging"
)

// API is the fully wired HTTP surface plus the resources it holds open.
type API struct {
	Handler  http.Handler
	Limiters *Limiters
	closers  []func()
}

// Close releases pools and clients in reverse order of acquisition.
func (a *API) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// BuildAPI wires every handler from cfg. reg receives the prometheus
// collectors; a nil reg uses a fresh registry.
func BuildAPI(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, reg *prometheus.Registry) (*API, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := metrics.New(reg)
	api := &API{}

	var awsCfg *aws.Config
	if NeedsAWS(cfg) {
		loaded, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		awsCfg = &loaded
	}

	redisClient := BuildRedisClient(ctx, cfg, logger, cfg.RateLimitStore == StoreRedis)
	if redisClient != nil {
		api.closers = append(api.closers, func() { _ = redisClient.Close() })
	}

	limiters, err := BuildLimiters(ctx, cfg, redisClient, awsCfg, logger)
	if err != nil {
		api.Close()
		return nil, err
	}
	api.Limiters = limiters

	var leadRepo leads.Repository
	pool, err := BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		api.Close()
		return nil, err
	}
	if pool != nil {
		api.closers = append(api.closers, pool.Close)
		leadRepo = leads.NewPostgresRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set; leads are kept in memory")
		leadRepo = leads.NewInMemoryRepository()
	}

	leadsHandler := leads.NewHandler(leadRepo, limiters.Leads, leads.Config{
		DefaultSource:   cfg.LeadDefaultSource,
		DefaultPriority: cfg.LeadDefaultPriority,
	}, logger, leads.WithMetrics(m))

	stripe := payments.NewStripeCheckoutService(cfg.StripeSecretKey, payments.Prices{
		Foundation: cfg.StripePriceFoundation,
		Growth:     cfg.StripePriceGrowth,
	}, logger).WithDryRun(cfg.StripeDryRun).WithMetrics(m)

	emailSender, err := BuildEmailSender(cfg, awsCfg, logger)
	if err != nil {
		api.Close()
		return nil, err
	}
	var leadNotifier *notify.LeadNotifier
	if emailSender != nil {
		leadNotifier = notify.NewLeadNotifier(emailSender, cfg.NotificationEmail, logger)
	}
	telegram := notify.NewTelegramClient(cfg.TelegramBotToken, cfg.TelegramChatID, logger).WithMetrics(m)

	elevenLabs := voice.NewElevenLabsClient(cfg.ElevenLabsAPIKey, cfg.ElevenLabsAgentID).WithMetrics(m)
	deepgram := voice.NewDeepgramClient(cfg.DeepgramAPIKey).WithMetrics(m)

	proxy := automation.NewProxy(cfg.N8NWebhooks, logger).WithMetrics(m)

	cipher, err := secrets.NewCipher(cfg.EncryptionKey, cfg.EncryptionSalt)
	if err != nil {
		logger.Warn("credential encryption disabled", "error", err)
	}

	api.Handler = router.New(&router.Config{
		Logger:             logger,
		Metrics:            m,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		MetricsToken:       cfg.MetricsToken,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		LeadsHandler:       leadsHandler,
		CheckoutHandler:    payments.NewCheckoutHandler(stripe, cfg.CheckoutDefaultOrigin, logger),
		CheckoutLimiter:    limiters.Checkout,
		NotifyHandler:      notify.NewHandler(telegram, leadNotifier, logger),
		VoiceHandler:       voice.NewHandler(elevenLabs, deepgram, logger),
		AutomationHandler:  automation.NewHandler(proxy, logger),
		SecretsHandler:     secrets.NewHandler(cipher, logger),
	})
	return api, nil
}

// BuildEmailSender picks the notification email provider. SES is only offered
// when AWS config was loaded.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (notify.EmailSender, error) {
	var ses notify.SESAPI
	if awsCfg != nil {
		ses = sesv2.NewFromConfig(*awsCfg)
	}
	sender, err := notify.NewEmailSender(notify.SenderConfig{
		Provider:       cfg.EmailProvider,
		SendGridAPIKey: cfg.SendGridAPIKey,
		ResendAPIKey:   cfg.ResendAPIKey,
		FromEmail:      cfg.EmailFrom,
		FromName:       cfg.EmailFromName,
	}, ses, logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: email sender: %w", err)
	}
	if sender == nil {
		logger.Warn("no email provider configured; new-lead notifications disabled")
	}
	return sender, nil
}
