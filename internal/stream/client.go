// Package stream maintains the live "work clicked" feed. A Client keeps one
// websocket open to the feed server, drops duplicate and stale events using
// the server-assigned seq, and reconnects with capped exponential back-off.
// Connection failures are never surfaced as errors: the feed is an
// enhancement and the caller keeps working without it.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/client"
)

const (
	defaultBaseDelay = 500 * time.Millisecond
	defaultMaxDelay  = 10 * time.Second
	defaultMaxRetry  = 6
	eventBuffer      = 128
)

// Conn is the part of *websocket.Conn the client needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// DialFunc opens a connection to url.
type DialFunc func(ctx context.Context, url string) (Conn, error)

// DialWebsocket is the default DialFunc.
func DialWebsocket(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Timer is a pending reconnect.
type Timer interface {
	Stop() bool
}

// Clock schedules reconnects. Tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// EventKind classifies events delivered on Events().
type EventKind int

const (
	EventOpen      EventKind = iota // connection established
	EventWorkClick                  // accepted work click
	EventClose                      // connection lost, reconnect scheduled
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventWorkClick:
		return "work_click"
	case EventClose:
		return "close"
	default:
		return "unknown"
	}
}

// Event is delivered to the consumer in arrival order.
type Event struct {
	Kind   EventKind
	WorkID string
	Seq    float64
	Delay  time.Duration // reconnect delay, EventClose only
	Err    error
}

// Options tunes a Client. Zero values select the defaults.
type Options struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	MaxRetry  int
	Dial      DialFunc
	Clock     Clock
}

// Client is the live feed for one mounted view. It is safe for concurrent
// use; callbacks from the transport are serialised by mu.
type Client struct {
	url       string
	baseDelay time.Duration
	maxDelay  time.Duration
	maxRetry  int
	dial      DialFunc
	clock     Clock

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	started   bool
	conn      Conn
	dialing   bool
	retry     int
	lastSeq   float64
	disposed  bool
	suspended bool
	timer     Timer
	events    chan Event
}

// NewClient creates a client for the given websocket URL. Nothing is dialed
// until Start.
func NewClient(url string, opts Options) *Client {
	c := &Client{
		url:       url,
		baseDelay: opts.BaseDelay,
		maxDelay:  opts.MaxDelay,
		maxRetry:  opts.MaxRetry,
		dial:      opts.Dial,
		clock:     opts.Clock,
		events:    make(chan Event, eventBuffer),
	}
	if c.baseDelay <= 0 {
		c.baseDelay = defaultBaseDelay
	}
	if c.maxDelay <= 0 {
		c.maxDelay = defaultMaxDelay
	}
	if c.maxRetry <= 0 {
		c.maxRetry = defaultMaxRetry
	}
	if c.dial == nil {
		c.dial = DialWebsocket
	}
	if c.clock == nil {
		c.clock = realClock{}
	}
	return c
}

// Events returns the channel accepted clicks and connection changes are
// delivered on. It is closed by Dispose.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Start opens the connection. Cancelling ctx disposes the client.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.disposed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	context.AfterFunc(ctx, c.Dispose)
	c.connect()
}

// connect opens one connection unless the client is torn down, suspended,
// or already connected or dialing.
func (c *Client) connect() {
	c.mu.Lock()
	c.timer = nil
	if c.disposed || c.suspended || c.conn != nil || c.dialing {
		c.mu.Unlock()
		return
	}
	c.dialing = true
	ctx := c.ctx
	c.mu.Unlock()

	go c.run(ctx)
}

func (c *Client) run(ctx context.Context) {
	conn, err := c.dial(ctx, c.url)

	c.mu.Lock()
	c.dialing = false
	if err != nil {
		c.mu.Unlock()
		c.handleClose(err)
		return
	}
	if c.disposed || c.suspended {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.retry = 0
	c.mu.Unlock()

	c.emit(Event{Kind: EventOpen})

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			c.handleError(conn, err)
			return
		}
		if ev, ok := c.HandleMessage(kind, data); ok {
			c.emit(ev)
		}
	}
}

// HandleMessage applies the accept rules to one frame and advances the seq
// watermark on acceptance. Rejected frames are dropped without error.
func (c *Client) HandleMessage(messageType int, raw []byte) (Event, bool) {
	if messageType != websocket.TextMessage {
		return Event{}, false
	}

	var msg client.WorkClickEvent
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("stream: discarding malformed frame: %v", err)
		return Event{}, false
	}
	if msg.Type != client.MsgWorkClick || msg.WorkID == "" {
		return Event{}, false
	}
	seq, ok := parseSeq(msg.Seq)
	if !ok {
		log.Printf("stream: discarding frame with invalid seq %s", string(msg.Seq))
		return Event{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed || seq <= c.lastSeq {
		return Event{}, false
	}
	c.lastSeq = seq
	return Event{Kind: EventWorkClick, WorkID: msg.WorkID, Seq: seq}, true
}

// parseSeq accepts a JSON number or a numeric string and rejects anything
// that is not finite.
func parseSeq(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(s)
	}
	seq, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(seq) || math.IsInf(seq, 0) {
		return 0, false
	}
	return seq, true
}

// handleError closes the failed connection so errors and clean closes share
// the same retry path.
func (c *Client) handleError(conn Conn, err error) {
	conn.Close()
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	c.handleClose(err)
}

func (c *Client) handleClose(err error) {
	c.mu.Lock()
	if c.disposed || c.suspended {
		c.mu.Unlock()
		return
	}
	delay := backoff(c.retry, c.baseDelay, c.maxDelay, c.maxRetry)
	c.retry = min(c.retry+1, c.maxRetry)
	c.timer = c.clock.AfterFunc(delay, c.connect)
	c.mu.Unlock()

	log.Printf("stream: connection closed (%v), retry in %v", err, delay)
	c.emit(Event{Kind: EventClose, Delay: delay, Err: err})
}

func (c *Client) emit(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	select {
	case c.events <- ev:
	default:
		log.Printf("stream: event buffer full, dropping %s", ev.Kind)
	}
}

// Suspend stops the feed for good without disposing the client: the
// connection is closed and no reconnect is ever scheduled again.
func (c *Client) Suspend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suspended || c.disposed {
		return
	}
	c.suspended = true
	c.stopLocked()
}

// Dispose tears the client down. It is idempotent.
func (c *Client) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.disposed = true
	c.stopLocked()
	close(c.events)
}

func (c *Client) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	if c.cancel != nil {
		c.cancel()
	}
}

// Connected reports whether a connection is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Retry returns the current back-off tier.
func (c *Client) Retry() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retry
}

// LastSeq returns the seq watermark.
func (c *Client) LastSeq() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeq
}

// Backoff returns the default reconnect delay for a retry tier:
// min(10s, 500ms * 2^min(retry, 6)).
func Backoff(retry int) time.Duration {
	return backoff(retry, defaultBaseDelay, defaultMaxDelay, defaultMaxRetry)
}

func backoff(retry int, base, max time.Duration, maxRetry int) time.Duration {
	if retry < 0 {
		retry = 0
	}
	if retry > maxRetry {
		retry = maxRetry
	}
	d := base << uint(retry)
	if d > max || d <= 0 {
		d = max
	}
	return d
}

// URLFromBase derives the feed URL from the server's HTTP base, keeping the
// secure/insecure choice: https becomes wss and http becomes ws.
func URLFromBase(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing base url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("base url %q has no host", base)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = ""
	return u.String(), nil
}
