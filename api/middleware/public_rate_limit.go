package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/questcraft/rewards-cms/api/responses"
	pkgerrors "github.com/questcraft/rewards-cms/pkg/errors"
	"github.com/questcraft/rewards-cms/pkg/logger"
)

const limiterIdleTTL = 10 * time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// PublicRateLimiter keeps one token bucket per client IP in process memory.
// It guards the unauthenticated manifest endpoints, which must stay up when
// redis is not.
type PublicRateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	clients  map[string]*ipLimiter
	now      func() time.Time
	lastScan time.Time
}

// NewPublicRateLimiter builds a limiter allowing perSecond sustained requests
// with the given burst. A non-positive rate disables limiting.
func NewPublicRateLimiter(perSecond float64, burst int) *PublicRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &PublicRateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		clients: make(map[string]*ipLimiter),
		now:     time.Now,
	}
}

func (p *PublicRateLimiter) allow(ip string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if now.Sub(p.lastScan) > limiterIdleTTL {
		for key, entry := range p.clients {
			if now.Sub(entry.lastSeen) > limiterIdleTTL {
				delete(p.clients, key)
			}
		}
		p.lastScan = now
	}

	entry, ok := p.clients[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.clients[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// Middleware rejects clients that exceed their bucket with 429.
func (p *PublicRateLimiter) Middleware(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if p == nil || p.limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !p.allow(ip) {
				ctx := r.Context()
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "ip", ip), "public.rate_limit.blocked")
				}
				w.Header().Set("Retry-After", "1")
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
