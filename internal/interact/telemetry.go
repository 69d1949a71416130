package interact

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultInterval is the minimum gap between two beacons for one work.
const DefaultInterval = 2 * time.Second

// Limiter allows one event per key per interval, remembering the time of
// the last allowed event for each key.
type Limiter struct {
	interval time.Duration
	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewLimiter returns a limiter with the given interval. A non-positive
// interval selects DefaultInterval.
func NewLimiter(interval time.Duration) *Limiter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Limiter{interval: interval, lastSent: make(map[string]time.Time)}
}

// Allow reports whether key may fire at now and records it if so.
func (l *Limiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.lastSent[key]; ok && now.Sub(last) < l.interval {
		return false
	}
	l.lastSent[key] = now
	return true
}

// Sender delivers one click beacon.
type Sender interface {
	SendClick(ctx context.Context, workID string) error
}

// Telemetry consumes cube clicks: it advances the selection and, when a
// work becomes selected and the limiter allows it, sends a beacon in the
// background. Beacon failures are logged and otherwise ignored.
type Telemetry struct {
	selection *Selection
	limiter   *Limiter
	sender    Sender
	now       func() time.Time
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewTelemetry wires a selection, a limiter and a sender together.
func NewTelemetry(sel *Selection, limiter *Limiter, sender Sender) *Telemetry {
	return &Telemetry{
		selection: sel,
		limiter:   limiter,
		sender:    sender,
		now:       time.Now,
		timeout:   5 * time.Second,
	}
}

// Handle applies c and reports whether a beacon was dispatched.
func (t *Telemetry) Handle(c CubeClick) bool {
	if !t.selection.Apply(c) {
		return false
	}
	return t.Fire(c.WorkID, t.now())
}

// Fire sends a beacon for workID unless the limiter refuses it. It never
// blocks on the network.
func (t *Telemetry) Fire(workID string, now time.Time) bool {
	if !t.limiter.Allow(workID, now) {
		return false
	}
	if t.sender == nil {
		return true
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		if err := t.sender.SendClick(ctx, workID); err != nil {
			log.Printf("telemetry: click beacon for %s failed: %v", workID, err)
		}
	}()
	return true
}

// Wait blocks until in-flight beacons finish.
func (t *Telemetry) Wait() {
	t.wg.Wait()
}
