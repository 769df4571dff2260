package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/outreach/internal/clock"
	"github.com/smallbiznis/outreach/internal/observability/metrics"
	"github.com/smallbiznis/outreach/internal/providers/email"
	"go.uber.org/zap"
)

const keySendBucket = "outreach:send"

var ErrSendThrottled = errors.New("send rate limit exceeded")

// SendLimiter gates a Provider behind the shared token bucket so concurrent
// batches in different processes respect one channel-wide rate.
type SendLimiter struct {
	next    email.Provider
	bucket  *TokenBucket
	clock   clock.Clock
	log     *zap.Logger
	metrics *metrics.Metrics
	rate    float64
	burst   int
	maxWait time.Duration
}

func NewSendLimiter(next email.Provider, bucket *TokenBucket, clk clock.Clock, log *zap.Logger, rate float64, burst int) *SendLimiter {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SendLimiter{
		next:    next,
		bucket:  bucket,
		clock:   clk,
		log:     log.Named("ratelimit.send"),
		rate:    rate,
		burst:   burst,
		maxWait: 10 * time.Second,
	}
}

// WithMetrics records bucket decisions on m.
func (l *SendLimiter) WithMetrics(m *metrics.Metrics) *SendLimiter {
	l.metrics = m
	return l
}

func (l *SendLimiter) Send(ctx context.Context, msg email.Message) (email.Receipt, error) {
	var waited time.Duration
	for {
		decision, err := l.bucket.Allow(ctx, keySendBucket, l.rate, l.burst)
		if err != nil {
			// local pacing still applies, so a Redis outage degrades to per-process limits
			l.log.Warn("send bucket unavailable", zap.Error(err))
			break
		}
		if decision.Allowed {
			l.metrics.RecordRateLimitAllowed(ctx, keySendBucket)
			break
		}
		if waited+decision.RetryAfter > l.maxWait {
			l.metrics.RecordRateLimitDenied(ctx, keySendBucket, "max_wait")
			return email.Receipt{}, ErrSendThrottled
		}
		l.metrics.RecordRateLimitDenied(ctx, keySendBucket, "retry")
		if err := l.clock.Sleep(ctx, decision.RetryAfter); err != nil {
			return email.Receipt{}, err
		}
		waited += decision.RetryAfter
	}
	return l.next.Send(ctx, msg)
}
