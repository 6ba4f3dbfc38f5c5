package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"gatherly/internal/logging"
	"gatherly/internal/metrics"
	"gatherly/internal/shared/httpx"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Limiter struct {
	R   *redis.Client
	log *zap.Logger
}

func New(r *redis.Client, log *zap.Logger) *Limiter {
	log = logging.OrNop(log)
	return &Limiter{R: r, log: log}
}

// AllowSliding counts one hit on key inside window and reports whether the
// count is still within limit.
func (l *Limiter) AllowSliding(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	k := "rl:" + key
	pipe := l.R.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}
	n := incr.Val()
	return n <= limit, n, nil
}

// LimitHTTP limits next per authenticated user. route labels the metric and
// namespaces the key.
func (l *Limiter) LimitHTTP(route string, limit int64, window time.Duration, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, err := httpx.UserFromCtx(r)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrUnauthorized, "missing_user")
			return
		}
		ok, n, err := l.AllowSliding(r.Context(), route+":"+uid, limit, window)
		if err != nil {
			l.log.Warn("rate limiter unavailable", zap.String("route", route), zap.Error(err))
			httpx.WriteError(w, http.StatusTooManyRequests, fmt.Errorf("rate limiter error"), "rate_limiter_error")
			return
		}
		if !ok {
			metrics.RateLimited.WithLabelValues(route).Inc()
			httpx.WriteError(w, http.StatusTooManyRequests,
				fmt.Errorf("%w (count=%d, limit=%d)", httpx.ErrTooManyRequests, n, limit),
				"rate_limited")
			return
		}
		next.ServeHTTP(w, r)
	})
}
