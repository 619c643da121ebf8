package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// time allowed to write a frame to the peer
	writeWait = 10 * time.Second
	// ping interval; must be shorter than the read deadline the gate sets
	pingPeriod = 45 * time.Second
)

// wsConn is the write-side surface of a websocket connection. Tests
// substitute a fake; production code passes *websocket.Conn.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Conn is one live handle of a user. A user with several devices holds
// several Conns under the same UserID. All writes go through the send
// channel so only writeLoop ever touches the socket.
type Conn struct {
	ID     string
	UserID string

	ws   wsConn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newConn(id, userID string, ws wsConn, sendBuffer int) *Conn {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &Conn{
		ID:     id,
		UserID: userID,
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// enqueue queues a frame without blocking. Returns false when the
// buffer is full or the handle is closed; the caller decides what a
// failed enqueue means.
func (c *Conn) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// writeLoop drains the send channel onto the socket and keeps the peer
// alive with pings. It owns the socket's write side and closes the
// socket on exit, which unblocks the reader.
func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close stops the write loop. Safe to call more than once.
func (c *Conn) Close() {
	c.once.Do(func() { close(c.done) })
}
