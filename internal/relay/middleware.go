package relay

import (
	"errors"
	"sync"
	"time"

	"github.com/eleven-am/wastelens/internal/shared"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const DefaultMaxBody = "10M"

// BodyLimit rejects bodies larger than limit with a JSON 413, whether the
// size is known from Content-Length or only discovered while reading.
func BodyLimit(limit string) echo.MiddlewareFunc {
	if limit == "" {
		limit = DefaultMaxBody
	}
	inner := middleware.BodyLimit(limit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		h := inner(next)
		return func(c echo.Context) error {
			err := h(c)
			if errors.Is(err, echo.ErrStatusRequestEntityTooLarge) {
				return shared.PayloadTooLarge("payload_too_large", "Image payload exceeds the "+limit+"B limit")
			}
			return err
		}
	}
}

type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration
}

func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 5,
		Burst:             10,
		CleanupInterval:   5 * time.Minute,
	}
}

// RateLimiter keeps one token bucket per client IP. The buckets are dropped
// every CleanupInterval until Stop is called.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	config   RateLimiterConfig

	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter returns nil when the configured rate is not positive; a nil
// limiter lets every request through.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	rl := &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		config:   cfg,
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		go rl.cleanupLoop()
	} else {
		close(rl.exited)
	}
	return rl
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[key]
	rl.mu.RUnlock()

	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists = rl.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst)
	rl.limiters[key] = limiter
	return limiter
}

func (rl *RateLimiter) cleanupLoop() {
	defer close(rl.exited)
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			clear(rl.limiters)
			rl.mu.Unlock()
		}
	}
}

// Stop ends the cleanup loop. It is safe to call more than once and on nil.
func (rl *RateLimiter) Stop() {
	if rl == nil {
		return
	}
	rl.stopOnce.Do(func() { close(rl.done) })
	<-rl.exited
}

// Middleware limits requests per client IP.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if rl == nil {
			return next
		}
		return func(c echo.Context) error {
			if !rl.getLimiter(c.RealIP()).Allow() {
				return shared.TooManyRequests("rate_limit_exceeded", "too many requests")
			}
			return next(c)
		}
	}
}
