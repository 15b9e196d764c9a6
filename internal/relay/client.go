package relay

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client is one authenticated socket.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int64

	// Buffered channel of outbound frames; never closed, done signals shutdown.
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// alive is set by any pong or ping frame and cleared by each sweep.
	alive atomic.Bool
}

func newClient(hub *Hub, conn *websocket.Conn, userID int64, buffer int) *Client {
	c := &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
	c.alive.Store(true)
	return c
}

// UserID returns the authenticated owner of the connection.
func (c *Client) UserID() int64 { return c.userID }

// Live reports whether the connection is still open.
func (c *Client) Live() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// enqueue hands a frame to the write pump. A closed connection drops the
// frame; a full buffer means the peer stopped reading and it is closed.
func (c *Client) enqueue(frame []byte) bool {
	if !c.Live() {
		return false
	}
	select {
	case c.send <- frame:
		return true
	case <-c.done:
		return false
	default:
		c.hub.logger.Warn("relay send buffer full; closing connection", zap.Int64("user_id", c.userID))
		c.close()
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.hub.opts.WriteWait))
			_ = c.conn.Close()
		}
	})
}

func (c *Client) ping(writeWait time.Duration) error {
	if c.conn == nil {
		return nil
	}
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// readPump pumps frames from the socket to the hub until the socket fails.
func (c *Client) readPump() {
	defer c.hub.detach(c)

	c.conn.SetReadLimit(c.hub.opts.MaxFrameBytes)
	c.conn.SetPongHandler(func(string) error {
		c.alive.Store(true)
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("relay read failed", zap.Int64("user_id", c.userID), zap.Error(err))
			}
			return
		}
		c.hub.handleFrame(c, raw)
	}
}

// writePump is the only writer of data frames on the socket.
func (c *Client) writePump() {
	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}
