package ws

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/config"
)

// ErrTooManyConnections is returned by AddClient when the connection limit
// is reached.
var ErrTooManyConnections = errors.New("too many websocket connections")

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn, buffer int, writeWait, pingPeriod time.Duration) *client {
	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, buffer),
	}
	go c.writePump(writeWait, pingPeriod)
	return c
}

// writePump owns all writes to the connection. It pings every pingPeriod
// and sends a close frame once send is closed.
func (c *client) writePump(writeWait, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Broadcaster fans work click events out to every connected client.
type Broadcaster struct {
	mu         sync.RWMutex
	clients    map[*client]bool
	seq        atomic.Uint64
	sendBuffer int
	writeWait  time.Duration
	pingPeriod time.Duration
	maxConns   int
}

// NewBroadcaster creates a broadcaster. maxConns of zero means unlimited.
func NewBroadcaster(feed config.FeedConfig, maxConns int) *Broadcaster {
	b := &Broadcaster{
		clients:    make(map[*client]bool),
		sendBuffer: feed.SendBuffer,
		writeWait:  feed.WriteWait,
		pingPeriod: feed.PingPeriod,
		maxConns:   maxConns,
	}
	if b.sendBuffer <= 0 {
		b.sendBuffer = 32
	}
	if b.writeWait <= 0 {
		b.writeWait = 2 * time.Second
	}
	if b.pingPeriod <= 0 {
		b.pingPeriod = 50 * time.Second
	}
	return b
}

// AddClient registers conn and starts its writer.
func (b *Broadcaster) AddClient(conn *websocket.Conn) (*client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.maxConns > 0 && len(b.clients) >= b.maxConns {
		return nil, ErrTooManyConnections
	}
	c := newClient(conn, b.sendBuffer, b.writeWait, b.pingPeriod)
	b.clients[c] = true
	return c, nil
}

// RemoveClient unregisters c. The writer closes the connection.
func (b *Broadcaster) RemoveClient(c *client) {
	if c == nil {
		return
	}
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

// BroadcastWorkClick assigns the next seq and sends the event to every
// client. It returns the assigned seq. Seq assignment and queueing share
// one lock, so every client receives events in seq order.
func (b *Broadcaster) BroadcastWorkClick(workID string) uint64 {
	var slow []*client
	b.mu.Lock()
	seq := b.seq.Add(1)
	data, err := json.Marshal(WorkClickEvent{
		Type:   MsgWorkClick,
		WorkID: workID,
		Seq:    seq,
	})
	if err != nil {
		b.mu.Unlock()
		log.Printf("broadcast marshal error: %v", err)
		return seq
	}
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.Unlock()

	for _, c := range slow {
		// Client can't keep up, disconnect it
		log.Printf("ws client %s too slow, disconnecting", c.id)
		b.RemoveClient(c)
	}
	return seq
}

// Close disconnects every client.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		delete(b.clients, c)
		c.close()
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Seq returns the last assigned seq.
func (b *Broadcaster) Seq() uint64 {
	return b.seq.Load()
}
