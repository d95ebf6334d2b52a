package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/deusflow/geonews/internal/logger"
)

// ErrBudgetExhausted is returned once a provider's daily allowance is spent.
var ErrBudgetExhausted = errors.New("AI request budget exhausted")

type provider struct {
	count   int
	max     int // 0 = unlimited
	limiter *rate.Limiter
}

// AIRateLimiter tracks daily request budgets for AI providers and smooths
// bursts with a token bucket per provider.
type AIRateLimiter struct {
	mu          sync.Mutex
	providers   map[string]*provider
	totalCount  int
	maxTotal    int
	resetTime   time.Time
	cacheHits   int
	cacheMisses int
	now         func() time.Time
	log         *slog.Logger
}

// NewAIRateLimiter creates a limiter with a shared daily cap (0 = unlimited).
func NewAIRateLimiter(maxTotal int) *AIRateLimiter {
	return &AIRateLimiter{
		providers: make(map[string]*provider),
		maxTotal:  maxTotal,
		resetTime: time.Now().Add(24 * time.Hour), // Reset daily
		now:       time.Now,
		log:       logger.With("ratelimit"),
	}
}

// Register sets a provider's daily cap and its sustained requests per second.
func (rl *AIRateLimiter) Register(name string, dailyMax int, perSecond float64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	rl.providers[name] = &provider{max: dailyMax, limiter: rate.NewLimiter(limit, 1)}
}

// CanUse reports whether the provider still has budget today.
func (rl *AIRateLimiter) CanUse(name string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.checkReset()
	return rl.canUseLocked(name) == nil
}

func (rl *AIRateLimiter) canUseLocked(name string) error {
	p, ok := rl.providers[name]
	if !ok {
		return fmt.Errorf("provider %q not registered", name)
	}
	if p.max > 0 && p.count >= p.max {
		return fmt.Errorf("%s: %w (%d/%d)", name, ErrBudgetExhausted, p.count, p.max)
	}
	if rl.maxTotal > 0 && rl.totalCount >= rl.maxTotal {
		return fmt.Errorf("total: %w (%d/%d)", ErrBudgetExhausted, rl.totalCount, rl.maxTotal)
	}
	return nil
}

// Use spends one request from the provider's budget.
func (rl *AIRateLimiter) Use(name string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.checkReset()
	if err := rl.canUseLocked(name); err != nil {
		rl.log.Warn("AI rate limit reached", "provider", name, "error", err)
		return err
	}

	p := rl.providers[name]
	p.count++
	rl.totalCount++
	rl.cacheMisses++

	rl.log.Debug("AI usage", "provider", name, "used", p.count, "limit", p.max, "total", rl.totalCount)
	return nil
}

// Wait blocks until the provider's token bucket admits a request, then
// spends budget.
func (rl *AIRateLimiter) Wait(ctx context.Context, name string) error {
	rl.mu.Lock()
	p, ok := rl.providers[name]
	rl.mu.Unlock()
	if !ok {
		return fmt.Errorf("provider %q not registered", name)
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	return rl.Use(name)
}

// RecordCacheHit records a request answered from a memo instead of the API.
func (rl *AIRateLimiter) RecordCacheHit() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.cacheHits++
}

func (rl *AIRateLimiter) cacheHitRate() float64 {
	total := rl.cacheHits + rl.cacheMisses
	if total == 0 {
		return 0
	}
	return float64(rl.cacheHits) / float64(total) * 100
}

func (rl *AIRateLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	stats := map[string]interface{}{
		"total_used":     rl.totalCount,
		"total_limit":    rl.maxTotal,
		"cache_hits":     rl.cacheHits,
		"cache_misses":   rl.cacheMisses,
		"cache_hit_rate": rl.cacheHitRate(),
		"reset_time":     rl.resetTime,
	}
	for name, p := range rl.providers {
		stats[name+"_used"] = p.count
		stats[name+"_limit"] = p.max
	}
	return stats
}

// checkReset resets counters if reset time has passed
func (rl *AIRateLimiter) checkReset() {
	now := rl.now()
	if !now.After(rl.resetTime) {
		return
	}
	rl.log.Info("resetting AI rate limiter counters", "total_used", rl.totalCount, "cache_hits", rl.cacheHits)

	for _, p := range rl.providers {
		p.count = 0
	}
	rl.totalCount = 0
	rl.cacheHits = 0
	rl.cacheMisses = 0
	rl.resetTime = now.Add(24 * time.Hour)
}
