package throttle

import (
	"context"
	"sync"
	"time"
)

// ErrThrottleLocked is returned when the throttle is already locked for a given key. We do not block
// with a lock, but return this error instead.
type ErrThrottleLocked struct {
	Key string
}

func (e ErrThrottleLocked) Error() string {
	return "throttle locked: " + e.Key
}

// Locker makes sure a task keyed by name is not being done twice at the same time.
// Keys expire after the configured duration so a caller that never unlocks cannot wedge a key forever.
// A zero expiry keeps keys until they are unlocked.
type Locker struct {
	mu     sync.Mutex
	held   map[string]time.Time
	expiry time.Duration
	now    func() time.Time
}

// NewThrottleLocker creates a new throttle locker
func NewThrottleLocker(expiry time.Duration) *Locker {
	return &Locker{
		held:   make(map[string]time.Time),
		expiry: expiry,
		now:    time.Now,
	}
}

// Lock locks a key and returns ErrThrottleLocked if the key is already locked
func (t *Locker) Lock(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.isLockedLocked(key) {
		return ErrThrottleLocked{Key: key}
	}

	t.held[key] = t.now()
	return nil
}

// Unlock unlocks a key, whether or not it is locked
func (t *Locker) Unlock(ctx context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.held, key)
	return nil
}

func (t *Locker) isLockedLocked(key string) bool {
	at, ok := t.held[key]
	if !ok {
		return false
	}
	if t.expiry > 0 && t.now().Sub(at) >= t.expiry {
		delete(t.held, key)
		return false
	}
	return true
}
