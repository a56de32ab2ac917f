package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/upb/publication-rag/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// clientIdleTTL is how long an unused client bucket is kept
const clientIdleTTL = 10 * time.Minute

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientRateLimiter applies a token bucket per client address
type ClientRateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientBucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
	logger    *zap.Logger
}

// NewClientRateLimiter creates a limiter allowing rps requests per second
// per client with the given burst
func NewClientRateLimiter(rps float64, burst int, logger *zap.Logger) *ClientRateLimiter {
	return &ClientRateLimiter{
		clients:   make(map[string]*clientBucket),
		limit:     rate.Limit(rps),
		burst:     burst,
		lastSweep: time.Now(),
		now:       time.Now,
		logger:    logger,
	}
}

// Allow reports whether the client may make a request now
func (l *ClientRateLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > clientIdleTTL {
		for key, b := range l.clients {
			if now.Sub(b.lastSeen) > clientIdleTTL {
				delete(l.clients, key)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.clients[client]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = b
	}
	b.lastSeen = now

	return b.limiter.AllowN(now, 1)
}

// Limit rejects requests over the client's budget with 429
func (l *ClientRateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientKey(r)
		if !l.Allow(client) {
			l.logger.Warn("rate limit exceeded",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("client", client),
				zap.String("path", r.URL.Path))
			w.Header().Set("Retry-After", "1")
			_ = utils.WriteTooManyRequests(w, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey strips the port so one host shares a bucket across connections
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
