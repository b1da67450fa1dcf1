package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dunamismax/pixelpipe/internal/ratelimit"
)

type RateLimiter interface {
	Allow(ctx context.Context, subject string, cost int) (ratelimit.Decision, error)
}

// Limiter failures let the request through.
func (s *Server) allowRequest(w http.ResponseWriter, r *http.Request, operations int) bool {
	if s.rateLimiter == nil {
		return true
	}

	route := routeLabel(r)
	subject := strings.TrimSpace(r.Header.Get(s.rateLimitUserIDHeader))
	if subject == "" {
		subject = "anonymous"
	}
	subject = subject + ":" + route

	decision, err := s.rateLimiter.Allow(r.Context(), subject, operations)
	if err != nil {
		s.logger.Warnw("rate limiter check failed", "subject", subject, "error", err)
		return true
	}

	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
	if decision.Allowed {
		return true
	}

	retryAfter := int(decision.RetryAfter.Round(time.Second).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	s.metrics.rateLimitRejected.WithLabelValues(route).Inc()
	writeJSON(w, http.StatusTooManyRequests, map[string]string{
		"error": "rate limit exceeded",
	})
	return false
}
