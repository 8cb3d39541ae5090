package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/iota-uz/sedar/pkg/configuration"
	"github.com/iota-uz/sedar/pkg/httpapi"
	"github.com/iota-uz/sedar/pkg/kvstore"
)

type RateLimitConfig struct {
	RequestsPerPeriod int
	Period            time.Duration
	Store             limiter.Store
	KeyFunc           func(r *http.Request) string
}

func NewMemoryStore() limiter.Store {
	return memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          "sedar_rl",
		CleanUpInterval: time.Minute,
	})
}

// NewRedisStore connects to redisURL and shares counters across instances.
func NewRedisStore(redisURL string) (limiter.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	client, err := kvstore.Connect(ctx, redisURL)
	if err != nil {
		return nil, err
	}
	return sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: "sedar_rl"})
}

func RateLimit(cfg RateLimitConfig) mux.MiddlewareFunc {
	if cfg.Period <= 0 {
		cfg.Period = time.Second
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	instance := limiter.New(cfg.Store, limiter.Rate{
		Period: cfg.Period,
		Limit:  int64(cfg.RequestsPerPeriod),
	})
	opts := []stdlib.Option{
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			_ = httpapi.WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
		}),
	}
	if cfg.KeyFunc != nil {
		opts = append(opts, stdlib.WithKeyGetter(cfg.KeyFunc))
	}
	return stdlib.NewMiddleware(instance, opts...).Handler
}

// IPRateLimitPeriod limits each client IP to requests per period.
func IPRateLimitPeriod(requests int, period time.Duration) mux.MiddlewareFunc {
	conf := configuration.Use()
	return RateLimit(RateLimitConfig{
		RequestsPerPeriod: requests,
		Period:            period,
		KeyFunc: func(r *http.Request) string {
			return "ip:" + getRealIP(r, conf)
		},
	})
}
