package works

import (
	"sync"
	"time"
)

// ClickLimiter allows one click per visitor and work every interval.
// Entries older than ten intervals are swept when the map grows past
// maxEntries or every cleanup interval.
type ClickLimiter struct {
	mu              sync.Mutex
	lastClicks      map[string]time.Time
	minInterval     time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	lastCleanup     time.Time
	now             func() time.Time
}

// NewClickLimiter creates a limiter.
func NewClickLimiter(minInterval time.Duration, maxEntries int, cleanupInterval time.Duration) *ClickLimiter {
	return &ClickLimiter{
		lastClicks:      make(map[string]time.Time),
		minInterval:     minInterval,
		maxEntries:      maxEntries,
		cleanupInterval: cleanupInterval,
		lastCleanup:     time.Now(),
		now:             time.Now,
	}
}

// Allow reports whether ip may click workID now, and records the click
// when it may. A nil limiter allows everything.
func (l *ClickLimiter) Allow(ip, workID string) bool {
	if l == nil {
		return true
	}

	key := ip + "|" + workID

	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()

	if last, ok := l.lastClicks[key]; ok && now.Sub(last) < l.minInterval {
		return false
	}
	l.lastClicks[key] = now

	if len(l.lastClicks) > l.maxEntries || now.Sub(l.lastCleanup) >= l.cleanupInterval {
		expireBefore := now.Add(-l.minInterval * 10)
		for k, t := range l.lastClicks {
			if t.Before(expireBefore) {
				delete(l.lastClicks, k)
			}
		}
		l.lastCleanup = now
	}

	return true
}

// Len returns the number of tracked entries.
func (l *ClickLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lastClicks)
}
