package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limit struct {
	rate  rate.Limit
	burst int
}

// RateLimiter keeps one token bucket per client IP and route group.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	def      limit
	groups   map[string]limit
	idle     time.Duration
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	r := &RateLimiter{
		visitors: make(map[string]*visitor),
		def:      limit{rate: rate.Limit(perSecond), burst: burst},
		groups:   make(map[string]limit),
		idle:     10 * time.Minute,
	}
	go r.cleanup()
	return r
}

// SetGroupLimit overrides the limit for a named group, e.g. "login".
func (r *RateLimiter) SetGroupLimit(group string, every time.Duration, burst int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[group] = limit{rate: rate.Every(every), burst: burst}
}

func (r *RateLimiter) Allow(group, key string) bool {
	r.mu.Lock()
	k := group + "|" + key
	v, ok := r.visitors[k]
	if !ok {
		l, custom := r.groups[group]
		if !custom {
			l = r.def
		}
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		r.visitors[k] = v
	}
	v.lastSeen = time.Now()
	r.mu.Unlock()
	return v.limiter.Allow()
}

func (r *RateLimiter) cleanup() {
	tick := time.NewTicker(time.Minute)
	for range tick.C {
		r.mu.Lock()
		cutoff := time.Now().Add(-r.idle)
		for k, v := range r.visitors {
			if v.lastSeen.Before(cutoff) {
				delete(r.visitors, k)
			}
		}
		r.mu.Unlock()
	}
}

// RateLimit returns a middleware that limits by client IP within group.
func RateLimit(limiter *RateLimiter, group string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(group, c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
