package exam

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// saveThrottle is a leading-edge rate limiter keyed by session. The
// first save in a window goes through immediately; later saves inside
// the window are dropped, never queued. A dropped save is fine because
// the next allowed one carries the full current state anyway.
type saveThrottle struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[uuid.UUID]time.Time
	now      func() time.Time
}

func newSaveThrottle(interval time.Duration) *saveThrottle {
	return &saveThrottle{
		interval: interval,
		last:     make(map[uuid.UUID]time.Time),
		now:      time.Now,
	}
}

// allow reports whether a save for the session may proceed now, and
// marks the window open if so.
func (t *saveThrottle) allow(sessionID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.last[sessionID]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.last[sessionID] = now
	return true
}

// forget drops throttle state for a finished session
func (t *saveThrottle) forget(sessionID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.last, sessionID)
}
