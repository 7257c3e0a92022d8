package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
)

const maxInboundMessageSize = 4096

// Client is one authenticated websocket connection.
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	companyID string
	userID    string

	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn, companyID, userID string, opts Options) *Client {
	return &Client{
		conn:       conn,
		send:       make(chan []byte, opts.SendBuffer),
		companyID:  companyID,
		userID:     userID,
		writeWait:  opts.WriteWait,
		pongWait:   opts.PongWait,
		pingPeriod: (opts.PongWait * 9) / 10,
	}
}

// trySend queues payload without blocking. It returns false when the buffer is full.
func (c *Client) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump discards client frames and keeps the read deadline alive through
// pongs. It returns when the connection fails or is closed by the peer.
func (c *Client) readPump() {
	c.conn.SetReadLimit(maxInboundMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Debug("Realtime connection closed unexpectedly",
					zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}
	}
}

// writePump drains the send buffer and pings the peer.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
