package translate

import (
	"sync"
	"time"

	"github.com/deusflow/geonews/internal/metrics"
)

const DefaultCooldown = 5 * time.Minute

// Breaker guards the primary engine. One failure opens it; it closes again
// once the cooldown has elapsed and the next call re-tests the engine.
type Breaker struct {
	mu          sync.Mutex
	open        bool
	lastFailure time.Time
	cooldown    time.Duration
	now         func() time.Time
}

func NewBreaker(cooldown time.Duration, now func() time.Time) *Breaker {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if now == nil {
		now = time.Now
	}
	return &Breaker{cooldown: cooldown, now: now}
}

// Allow reports whether the primary engine may be called.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return true
	}
	if b.now().Sub(b.lastFailure) >= b.cooldown {
		b.open = false
		return true
	}
	return false
}

func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		metrics.Global.IncrementBreakerOpens()
	}
	b.open = true
	b.lastFailure = b.now()
}

func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
}

// Open reports the current state without closing an expired breaker.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}
