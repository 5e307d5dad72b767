package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyRateLimiter keeps a token bucket per key. Keys idle long enough to have refilled are
// forgotten, so the table only holds recently active clients.
type KeyRateLimiter struct {
	every time.Duration
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	limiters  map[string]*keyLimiter
	lastSweep time.Time
}

type keyLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewKeyRateLimiter allows burst requests per key, refilling one every `every`
func NewKeyRateLimiter(burst int, every time.Duration) *KeyRateLimiter {
	idle := every * time.Duration(burst)
	if idle < time.Minute {
		idle = time.Minute
	}
	return &KeyRateLimiter{
		every:    every,
		burst:    burst,
		idle:     idle,
		now:      time.Now,
		limiters: make(map[string]*keyLimiter),
	}
}

// ForKey reports whether a request for key may proceed and, if not, how long to wait
func (i *KeyRateLimiter) ForKey(key string) (bool, time.Duration) {
	now := i.now()

	i.mu.Lock()
	i.sweepLocked(now)
	k, ok := i.limiters[key]
	if !ok {
		k = &keyLimiter{lim: rate.NewLimiter(rate.Every(i.every), i.burst)}
		i.limiters[key] = k
	}
	k.seen = now
	i.mu.Unlock()

	r := k.lim.ReserveN(now, 1)
	if !r.OK() {
		return false, i.every
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Len is the number of keys currently tracked
func (i *KeyRateLimiter) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.limiters)
}

// sweepLocked drops keys that have sat idle past a full refill. It runs at most once per idle
// window so the cost stays proportional to traffic.
func (i *KeyRateLimiter) sweepLocked(now time.Time) {
	if now.Sub(i.lastSweep) < i.idle {
		return
	}
	i.lastSweep = now
	for key, k := range i.limiters {
		if now.Sub(k.seen) >= i.idle {
			delete(i.limiters, key)
		}
	}
}
