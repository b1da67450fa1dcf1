package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryTokenBucket is the single-process limiter used when no Redis address
// is configured. Buckets are never evicted.
type MemoryTokenBucket struct {
	capacity int
	limit    rate.Limit
	now      func() time.Time

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func NewMemoryTokenBucket(capacity int, window time.Duration) (*MemoryTokenBucket, error) {
	if err := validateBucket(capacity, window); err != nil {
		return nil, err
	}
	return &MemoryTokenBucket{
		capacity: capacity,
		limit:    rate.Limit(float64(capacity) / window.Seconds()),
		now:      time.Now,
		buckets:  make(map[string]*rate.Limiter),
	}, nil
}

func (l *MemoryTokenBucket) Allow(ctx context.Context, subject string, cost int) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	n := int(clampCost(cost, int64(l.capacity)))
	limiter := l.bucket(normalizeSubject(subject))
	now := l.now()

	reservation := limiter.ReserveN(now, n)
	if !reservation.OK() {
		return Decision{Allowed: false, RetryAfter: time.Second}, nil
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return Decision{
			Allowed:    false,
			Remaining:  remainingTokens(limiter, now),
			RetryAfter: delay,
		}, nil
	}

	return Decision{
		Allowed:   true,
		Remaining: remainingTokens(limiter, now),
	}, nil
}

func (l *MemoryTokenBucket) bucket(subject string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.buckets[subject]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.capacity)
		l.buckets[subject] = limiter
	}
	return limiter
}

func remainingTokens(limiter *rate.Limiter, now time.Time) int64 {
	tokens := limiter.TokensAt(now)
	if tokens < 0 {
		return 0
	}
	return int64(math.Floor(tokens))
}
