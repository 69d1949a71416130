package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// --- fakes ---

type fakeTimer struct {
	clock   *fakeClock
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, delay: d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *fakeClock) stopped(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timers[i].stopped
}

func (c *fakeClock) timer(i int) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timers[i]
}

// fire runs the i-th scheduled callback regardless of whether it was
// stopped, which models a timer that already fired when Stop raced it.
func (c *fakeClock) fire(i int) {
	c.mu.Lock()
	t := c.timers[i]
	t.fired = true
	c.mu.Unlock()
	t.fn()
}

func (c *fakeClock) waitFor(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.count() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d scheduled reconnects, have %d", n, c.count())
}

type fakeConn struct {
	frames  chan []byte
	closed  chan struct{}
	once    sync.Once
	readErr error // returned instead of io.EOF once closed
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte, 16), closed: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case b := <-f.frames:
		return websocket.TextMessage, b, nil
	case <-f.closed:
		if f.readErr != nil {
			return 0, nil, f.readErr
		}
		return 0, nil, io.EOF
	}
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

type fakeDialer struct {
	mu    sync.Mutex
	calls int
	conns []*fakeConn // handed out in order; dial fails once exhausted
}

func (d *fakeDialer) dial(ctx context.Context, url string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if len(d.conns) == 0 {
		return nil, errors.New("connection refused")
	}
	c := d.conns[0]
	d.conns = d.conns[1:]
	return c, nil
}

func (d *fakeDialer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func nextEvent(t *testing.T, c *Client, kind EventKind) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				t.Fatalf("events closed while waiting for %s", kind)
			}
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

// --- message handling ---

func TestHandleMessage_SeqMonotonic(t *testing.T) {
	c := NewClient("ws://unused", Options{})

	var accepted []float64
	for _, seq := range []string{"5", "3", "7", "7", "9"} {
		ev, ok := c.HandleMessage(websocket.TextMessage, []byte(`{"type":"work_click","workId":"w1","seq":`+seq+`}`))
		if ok {
			accepted = append(accepted, ev.Seq)
		}
	}

	want := []float64{5, 7, 9}
	if len(accepted) != len(want) {
		t.Fatalf("accepted = %v, want %v", accepted, want)
	}
	for i := range want {
		if accepted[i] != want[i] {
			t.Errorf("accepted[%d] = %v, want %v", i, accepted[i], want[i])
		}
	}
	if c.LastSeq() != 9 {
		t.Errorf("LastSeq() = %v, want 9", c.LastSeq())
	}
}

func TestHandleMessage_Rejects(t *testing.T) {
	tests := []struct {
		name string
		kind int
		raw  string
	}{
		{"binary frame", websocket.BinaryMessage, `{"type":"work_click","workId":"w1","seq":1}`},
		{"not json", websocket.TextMessage, `hello there`},
		{"json array", websocket.TextMessage, `[1,2,3]`},
		{"json null", websocket.TextMessage, `null`},
		{"missing workId", websocket.TextMessage, `{"type":"work_click","seq":1}`},
		{"empty workId", websocket.TextMessage, `{"type":"work_click","workId":"","seq":1}`},
		{"numeric workId", websocket.TextMessage, `{"type":"work_click","workId":5,"seq":1}`},
		{"wrong type", websocket.TextMessage, `{"type":"work_update","workId":"w1","seq":1}`},
		{"missing type", websocket.TextMessage, `{"workId":"w1","seq":1}`},
		{"missing seq", websocket.TextMessage, `{"type":"work_click","workId":"w1"}`},
		{"null seq", websocket.TextMessage, `{"type":"work_click","workId":"w1","seq":null}`},
		{"bool seq", websocket.TextMessage, `{"type":"work_click","workId":"w1","seq":true}`},
		{"non numeric seq", websocket.TextMessage, `{"type":"work_click","workId":"w1","seq":"abc"}`},
		{"zero seq", websocket.TextMessage, `{"type":"work_click","workId":"w1","seq":0}`},
		{"negative seq", websocket.TextMessage, `{"type":"work_click","workId":"w1","seq":-4}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient("ws://unused", Options{})
			if ev, ok := c.HandleMessage(tt.kind, []byte(tt.raw)); ok {
				t.Errorf("HandleMessage accepted %+v", ev)
			}
			if c.LastSeq() != 0 {
				t.Errorf("watermark moved to %v", c.LastSeq())
			}
		})
	}
}

func TestHandleMessage_NumericStringSeq(t *testing.T) {
	c := NewClient("ws://unused", Options{})
	ev, ok := c.HandleMessage(websocket.TextMessage, []byte(`{"type":"work_click","workId":"w1","seq":" 4 "}`))
	if !ok {
		t.Fatal("numeric string seq should be accepted")
	}
	if ev.Seq != 4 || ev.WorkID != "w1" {
		t.Errorf("event = %+v", ev)
	}
}

func TestHandleMessage_AfterDispose(t *testing.T) {
	c := NewClient("ws://unused", Options{})
	c.Dispose()
	if _, ok := c.HandleMessage(websocket.TextMessage, []byte(`{"type":"work_click","workId":"w1","seq":1}`)); ok {
		t.Error("disposed client accepted a message")
	}
}

// --- back-off ---

func TestBackoff(t *testing.T) {
	tests := []struct {
		retry int
		want  time.Duration
	}{
		{0, 500 * time.Millisecond},
		{1, 1000 * time.Millisecond},
		{2, 2000 * time.Millisecond},
		{3, 4000 * time.Millisecond},
		{4, 8000 * time.Millisecond},
		{5, 10000 * time.Millisecond},
		{6, 10000 * time.Millisecond},
		{10, 10000 * time.Millisecond},
		{-1, 500 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := Backoff(tt.retry); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.retry, got, tt.want)
		}
	}
}

func TestReconnectSchedule(t *testing.T) {
	clock := &fakeClock{}
	dialer := &fakeDialer{}
	c := NewClient("ws://feed", Options{Dial: dialer.dial, Clock: clock})
	defer c.Dispose()

	c.Start(context.Background())

	want := []time.Duration{
		500 * time.Millisecond,
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}
	for i, d := range want {
		clock.waitFor(t, i+1)
		if got := clock.timer(i).delay; got != d {
			t.Errorf("reconnect %d delay = %v, want %v", i+1, got, d)
		}
		clock.fire(i)
	}
	if got := c.Retry(); got != 6 {
		t.Errorf("Retry() = %d, want capped at 6", got)
	}
}

func TestReadErrorSchedulesReconnect(t *testing.T) {
	clock := &fakeClock{}
	reset := errors.New("connection reset by peer")
	conn := newFakeConn()
	conn.readErr = reset
	dialer := &fakeDialer{conns: []*fakeConn{conn}}
	c := NewClient("ws://feed", Options{Dial: dialer.dial, Clock: clock})
	defer c.Dispose()

	c.Start(context.Background())
	nextEvent(t, c, EventOpen)
	conn.Close()

	ev := nextEvent(t, c, EventClose)
	if !errors.Is(ev.Err, reset) {
		t.Errorf("close event error = %v, want %v", ev.Err, reset)
	}
	if ev.Delay != 500*time.Millisecond {
		t.Errorf("close event delay = %v", ev.Delay)
	}
	if c.Connected() {
		t.Error("client still reports a connection after read error")
	}
	clock.waitFor(t, 1)
}

func TestReconnectResetsRetryOnOpen(t *testing.T) {
	clock := &fakeClock{}
	conn := newFakeConn()
	dialer := &fakeDialer{}
	c := NewClient("ws://feed", Options{Dial: dialer.dial, Clock: clock})
	defer c.Dispose()

	c.Start(context.Background())
	clock.waitFor(t, 1)
	clock.fire(0)
	clock.waitFor(t, 2)
	if c.Retry() != 2 {
		t.Fatalf("Retry() = %d after two failures, want 2", c.Retry())
	}

	dialer.mu.Lock()
	dialer.conns = append(dialer.conns, conn)
	dialer.mu.Unlock()
	clock.fire(1)

	nextEvent(t, c, EventOpen)
	if c.Retry() != 0 {
		t.Errorf("Retry() = %d after open, want 0", c.Retry())
	}
	if !c.Connected() {
		t.Error("Connected() = false after open")
	}

	conn.frames <- []byte(`{"type":"work_click","workId":"w9","seq":3}`)
	ev := nextEvent(t, c, EventWorkClick)
	if ev.WorkID != "w9" || ev.Seq != 3 {
		t.Errorf("event = %+v", ev)
	}

	// A drop after a successful open starts back at the first tier.
	conn.Close()
	ev = nextEvent(t, c, EventClose)
	if ev.Delay != 500*time.Millisecond {
		t.Errorf("delay after reset = %v, want 500ms", ev.Delay)
	}
}

// --- teardown ---

func TestDisposeMidReconnectDelay(t *testing.T) {
	clock := &fakeClock{}
	dialer := &fakeDialer{}
	c := NewClient("ws://feed", Options{Dial: dialer.dial, Clock: clock})

	c.Start(context.Background())
	clock.waitFor(t, 1)
	if dialer.callCount() != 1 {
		t.Fatalf("dial calls = %d, want 1", dialer.callCount())
	}

	c.Dispose()
	if !clock.stopped(0) {
		t.Error("pending reconnect timer was not stopped")
	}

	clock.fire(0)
	time.Sleep(20 * time.Millisecond)
	if dialer.callCount() != 1 {
		t.Errorf("dial calls after dispose = %d, want 1", dialer.callCount())
	}

	// Idempotent, and the events channel ends.
	c.Dispose()
	for range c.Events() {
	}
}

func TestContextCancelDisposes(t *testing.T) {
	clock := &fakeClock{}
	dialer := &fakeDialer{}
	c := NewClient("ws://feed", Options{Dial: dialer.dial, Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	clock.waitFor(t, 1)
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for !clock.stopped(0) {
		if time.Now().After(deadline) {
			t.Fatal("cancelling the context did not dispose the client")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSuspendStopsReconnect(t *testing.T) {
	clock := &fakeClock{}
	conn := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{conn}}
	c := NewClient("ws://feed", Options{Dial: dialer.dial, Clock: clock})
	defer c.Dispose()

	c.Start(context.Background())
	nextEvent(t, c, EventOpen)

	c.Suspend()
	time.Sleep(20 * time.Millisecond)
	if clock.count() != 0 {
		t.Errorf("suspended client scheduled %d reconnects", clock.count())
	}
	if c.Connected() {
		t.Error("suspended client still connected")
	}
	select {
	case <-conn.closed:
	default:
		t.Error("suspend did not close the connection")
	}
}

func TestSingleActiveConnection(t *testing.T) {
	clock := &fakeClock{}
	conn := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{conn, newFakeConn()}}
	c := NewClient("ws://feed", Options{Dial: dialer.dial, Clock: clock})
	defer c.Dispose()

	c.Start(context.Background())
	nextEvent(t, c, EventOpen)

	c.connect()
	c.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	if dialer.callCount() != 1 {
		t.Errorf("dial calls = %d, want 1 while connected", dialer.callCount())
	}
}

// --- transport ---

func TestClientReceivesFromWebsocketServer(t *testing.T) {
	frames := []string{
		`{"type":"work_click","workId":"a","seq":5}`,
		`not json`,
		`{"type":"work_click","workId":"b","seq":3}`,
		`{"type":"work_click","workId":"c","seq":7}`,
		`{"type":"work_click","workId":"c","seq":7}`,
		`{"type":"work_click","seq":8}`,
		`{"type":"work_click","workId":"d","seq":9}`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// Keep the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := NewClient(wsURL, Options{})
	defer c.Dispose()
	c.Start(context.Background())

	var got []string
	for len(got) < 3 {
		ev := nextEvent(t, c, EventWorkClick)
		got = append(got, ev.WorkID)
	}
	want := []string{"a", "c", "d"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d workId = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestURLFromBase(t *testing.T) {
	tests := []struct {
		base    string
		path    string
		want    string
		wantErr bool
	}{
		{"http://127.0.0.1:4000", "/api/ws", "ws://127.0.0.1:4000/api/ws", false},
		{"https://example.com/", "/api/ws", "wss://example.com/api/ws", false},
		{"https://example.com/portfolio", "api/ws", "wss://example.com/portfolio/api/ws", false},
		{"ws://host:1", "/ws", "ws://host:1/ws", false},
		{"ftp://host", "/ws", "", true},
		{"http://", "/ws", "", true},
	}
	for _, tt := range tests {
		got, err := URLFromBase(tt.base, tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("URLFromBase(%q) error = %v, wantErr %v", tt.base, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("URLFromBase(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
		}
	}
}
