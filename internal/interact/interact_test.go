package interact

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBridgeHover(t *testing.T) {
	b := NewBridge()
	if b.Highlighted() != "" || b.Cursor() != CursorDefault {
		t.Fatal("bridge does not start cleared")
	}

	b.PointerEnter("w1")
	if b.Highlighted() != "w1" || b.Cursor() != CursorPointer {
		t.Errorf("after enter: %q, %v", b.Highlighted(), b.Cursor())
	}

	b.PointerLeave()
	if b.Highlighted() != "" || b.Cursor() != CursorDefault {
		t.Errorf("after leave: %q, %v", b.Highlighted(), b.Cursor())
	}
}

func TestBridgeHoverChanges(t *testing.T) {
	b := NewBridge()
	steps := []struct {
		hit     string
		changed bool
	}{
		{"", false},
		{"w1", true},
		{"w1", false},
		{"w2", true},
		{"", true},
		{"", false},
	}
	for i, s := range steps {
		if got := b.Hover(s.hit); got != s.changed {
			t.Errorf("step %d: Hover(%q) = %v, want %v", i, s.hit, got, s.changed)
		}
		if b.Highlighted() != s.hit {
			t.Errorf("step %d: highlighted = %q", i, b.Highlighted())
		}
	}
}

func TestBridgeClickNonce(t *testing.T) {
	b := NewBridge()
	first := b.Click("w1")
	second := b.Click("w1")
	third := b.Click("w2")

	if first.WorkID != "w1" || second.WorkID != "w1" || third.WorkID != "w2" {
		t.Errorf("work ids = %q %q %q", first.WorkID, second.WorkID, third.WorkID)
	}
	if !(first.Nonce < second.Nonce && second.Nonce < third.Nonce) {
		t.Errorf("nonces not increasing: %d %d %d", first.Nonce, second.Nonce, third.Nonce)
	}
}

func TestSelectionToggle(t *testing.T) {
	tests := []struct {
		name     string
		clicks   []string
		want     string
		wantFire []bool
	}{
		{"select", []string{"A"}, "A", []bool{true}},
		{"toggle off", []string{"A", "A"}, "", []bool{true, false}},
		{"switch", []string{"A", "B"}, "B", []bool{true, true}},
		{"reselect after toggle", []string{"A", "A", "A"}, "A", []bool{true, false, true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBridge()
			var s Selection
			for i, id := range tt.clicks {
				if got := s.Apply(b.Click(id)); got != tt.wantFire[i] {
					t.Errorf("click %d (%s) fired = %v, want %v", i, id, got, tt.wantFire[i])
				}
			}
			got, ok := s.Selected()
			if got != tt.want || ok != (tt.want != "") {
				t.Errorf("Selected() = %q, %v, want %q", got, ok, tt.want)
			}
		})
	}
}

func TestSelectionIgnoresReplayedClick(t *testing.T) {
	var s Selection
	c := CubeClick{WorkID: "A", Nonce: 7}
	s.Apply(c)
	if s.Apply(c) {
		t.Error("replayed click fired")
	}
	if got, _ := s.Selected(); got != "A" {
		t.Errorf("replayed click toggled selection to %q", got)
	}
}

func TestSelectionClear(t *testing.T) {
	var s Selection
	s.Apply(CubeClick{WorkID: "A", Nonce: 1})
	s.Clear()
	if _, ok := s.Selected(); ok {
		t.Error("selection not cleared")
	}
}

func TestLimiter(t *testing.T) {
	l := NewLimiter(2 * time.Second)
	t0 := time.Unix(1000, 0)

	if !l.Allow("w1", t0) {
		t.Error("t=0: want beacon")
	}
	if l.Allow("w1", t0.Add(1000*time.Millisecond)) {
		t.Error("t=1000: want no beacon")
	}
	if !l.Allow("w1", t0.Add(2100*time.Millisecond)) {
		t.Error("t=2100: want beacon")
	}
	if !l.Allow("w2", t0.Add(2200*time.Millisecond)) {
		t.Error("other work limited")
	}
}

func TestLimiterDefaultInterval(t *testing.T) {
	l := NewLimiter(0)
	t0 := time.Unix(0, 0)
	l.Allow("w", t0)
	if l.Allow("w", t0.Add(DefaultInterval-time.Millisecond)) {
		t.Error("default interval not applied")
	}
	if !l.Allow("w", t0.Add(DefaultInterval)) {
		t.Error("beacon refused at exactly the interval")
	}
}

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (r *recordingSender) SendClick(_ context.Context, workID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, workID)
	return r.err
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestTelemetryRateLimit(t *testing.T) {
	sender := &recordingSender{}
	tel := NewTelemetry(&Selection{}, NewLimiter(2*time.Second), sender)
	t0 := time.Unix(5000, 0)

	if !tel.Fire("w1", t0) {
		t.Error("t=0 not sent")
	}
	if tel.Fire("w1", t0.Add(time.Second)) {
		t.Error("t=1000 sent")
	}
	if !tel.Fire("w1", t0.Add(2100*time.Millisecond)) {
		t.Error("t=2100 not sent")
	}
	tel.Wait()
	if sender.count() != 2 {
		t.Errorf("sent %d beacons, want 2", sender.count())
	}
}

func TestTelemetryHandleFollowsSelection(t *testing.T) {
	sender := &recordingSender{}
	tel := NewTelemetry(&Selection{}, NewLimiter(2*time.Second), sender)
	now := time.Unix(0, 0)
	tel.now = func() time.Time { return now }
	b := NewBridge()

	if !tel.Handle(b.Click("A")) {
		t.Error("selecting A did not fire")
	}
	now = now.Add(3 * time.Second)
	if tel.Handle(b.Click("A")) {
		t.Error("deselecting A fired")
	}
	if !tel.Handle(b.Click("A")) {
		t.Error("reselecting A after the interval did not fire")
	}
	now = now.Add(500 * time.Millisecond)
	if !tel.Handle(b.Click("B")) {
		t.Error("selecting B did not fire")
	}
	if tel.Handle(b.Click("A")) {
		t.Error("A fired again within the interval")
	}
	tel.Wait()
	if sender.count() != 3 {
		t.Errorf("sent %d beacons, want 3", sender.count())
	}
}

func TestTelemetryFailureIgnored(t *testing.T) {
	sender := &recordingSender{err: errors.New("offline")}
	tel := NewTelemetry(&Selection{}, NewLimiter(time.Second), sender)
	if !tel.Fire("w1", time.Now()) {
		t.Error("beacon not dispatched")
	}
	tel.Wait()
	if sender.count() != 1 {
		t.Errorf("sent %d, want 1", sender.count())
	}
}

type blockingSender struct{ release chan struct{} }

func (b blockingSender) SendClick(ctx context.Context, _ string) error {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil
}

func TestTelemetryDoesNotBlock(t *testing.T) {
	sender := blockingSender{release: make(chan struct{})}
	tel := NewTelemetry(&Selection{}, NewLimiter(time.Second), sender)

	done := make(chan struct{})
	go func() {
		tel.Fire("w1", time.Now())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Fire blocked on the sender")
	}
	close(sender.release)
	tel.Wait()
}
