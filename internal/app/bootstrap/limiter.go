package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/royscompany/royscompany-api/internal/config"
	"github.com/royscompany/royscompany-api/internal/ratelimit"
	"github.com/royscompany/royscompany-api/pkg/logging"
)

// Rate limit backends selectable through RATE_LIMIT_STORE.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StoreDynamoDB = "dynamodb"
)

// Limiters holds the per-endpoint quotas. Both share one counter store and
// are separated by key prefix.
type Limiters struct {
	Leads    ratelimit.Limiter
	Checkout ratelimit.Limiter
	Backend  string
}

// BuildLimiters selects the counter store named by cfg.RateLimitStore. The
// Redis store needs redisClient; the DynamoDB store needs awsCfg. A memory
// store starts a janitor that stops when ctx is done.
func BuildLimiters(ctx context.Context, cfg *appconfig.Config, redisClient *redis.Client, awsCfg *aws.Config, logger *logging.Logger) (*Limiters, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var store ratelimit.Store
	backend := cfg.RateLimitStore
	switch backend {
	case StoreRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("bootstrap: RATE_LIMIT_STORE=redis requires REDIS_ADDR")
		}
		store = ratelimit.NewRedisStore(redisClient, "ratelimit")
	case StoreDynamoDB:
		if awsCfg == nil {
			return nil, fmt.Errorf("bootstrap: RATE_LIMIT_STORE=dynamodb requires AWS config")
		}
		store = ratelimit.NewDynamoStore(dynamodb.NewFromConfig(*awsCfg), cfg.RateLimitTable)
	case StoreMemory, "":
		backend = StoreMemory
		mem := ratelimit.NewMemoryStore()
		mem.StartJanitor(ctx, time.Minute)
		store = mem
	default:
		return nil, fmt.Errorf("bootstrap: unknown RATE_LIMIT_STORE %q", cfg.RateLimitStore)
	}

	logger.Info("rate limiting configured",
		"store", backend,
		"lead_limit", cfg.LeadRateLimit,
		"lead_window", cfg.LeadRateWindow.String(),
		"checkout_limit", cfg.CheckoutRateLimit,
	)
	return &Limiters{
		Leads:    ratelimit.NewFixedWindow(store, cfg.LeadRateLimit, cfg.LeadRateWindow, ratelimit.WithPrefix("leads")),
		Checkout: ratelimit.NewFixedWindow(store, cfg.CheckoutRateLimit, cfg.CheckoutRateWindow, ratelimit.WithPrefix("checkout")),
		Backend:  backend,
	}, nil
}
