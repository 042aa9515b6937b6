package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"bikeman/internal/config"
	"bikeman/pkg/metrics"
)

// SystemIDHeader lets a partner system identify itself so it is limited as one client
// regardless of how many addresses it calls from.
const SystemIDHeader = "X-IXSI-System-ID"

type Config struct {
	RPS             float64
	Burst           int
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

func DefaultConfig() Config {
	return Config{
		RPS:             10,
		Burst:           20,
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

// FromConfig overlays the gateway settings on DefaultConfig.
func FromConfig(cfg config.RateLimitConfig) Config {
	rl := DefaultConfig()
	if cfg.RPS > 0 {
		rl.RPS = cfg.RPS
	}
	if cfg.Burst > 0 {
		rl.Burst = cfg.Burst
	}
	if cfg.CleanupInterval > 0 {
		rl.CleanupInterval = cfg.CleanupInterval
	}
	if cfg.MaxAge > 0 {
		rl.MaxAge = cfg.MaxAge
	}
	return rl
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Buckets keeps one token bucket per client key.
type Buckets struct {
	cfg     Config
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewBuckets(cfg Config) *Buckets {
	return &Buckets{cfg: cfg, buckets: make(map[string]*bucket), now: time.Now}
}

// Take spends one token of key's bucket and reports whether it was available, along with
// the whole tokens left.
func (b *Buckets) Take(key string) (bool, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	bk, ok := b.buckets[key]
	if !ok {
		bk = &bucket{limiter: rate.NewLimiter(rate.Limit(b.cfg.RPS), b.cfg.Burst)}
		b.buckets[key] = bk
	}
	bk.lastSeen = now

	allowed := bk.limiter.AllowN(now, 1)
	return allowed, max(0, int(bk.limiter.TokensAt(now)))
}

// Sweep drops buckets idle for longer than MaxAge and returns how many remain.
func (b *Buckets) Sweep() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := b.now().Add(-b.cfg.MaxAge)
	for key, bk := range b.buckets {
		if bk.lastSeen.Before(cutoff) {
			delete(b.buckets, key)
		}
	}
	return len(b.buckets)
}

// Run sweeps every CleanupInterval until ctx is done.
func (b *Buckets) Run(ctx context.Context) {
	ticker := time.NewTicker(b.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Sweep()
		}
	}
}

func clientKey(c *gin.Context) string {
	if systemID := c.GetHeader(SystemIDHeader); systemID != "" {
		return "system:" + systemID
	}
	return "ip:" + c.ClientIP()
}

// Middleware limits each client to cfg.RPS. Idle buckets are swept until ctx is done.
func Middleware(ctx context.Context, cfg Config) gin.HandlerFunc {
	buckets := NewBuckets(cfg)
	go buckets.Run(ctx)

	limit := strconv.FormatFloat(cfg.RPS, 'f', -1, 64)

	return func(c *gin.Context) {
		allowed, remaining := buckets.Take(clientKey(c))
		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			metrics.RateLimitRequestsTotal.WithLabelValues("limited").Inc()
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "rate limit exceeded",
				"error_code": "RATE_LIMIT_EXCEEDED",
			})
			return
		}

		metrics.RateLimitRequestsTotal.WithLabelValues("allowed").Inc()
		c.Next()
	}
}
