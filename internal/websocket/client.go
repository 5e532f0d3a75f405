package websocket

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Client is one browser tab watching a tutor session.
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	SessionID string

	// Outbound frames; closed only by the hub.
	Send chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn, sessionID string) *Client {
	return &Client{Hub: hub, Conn: conn, SessionID: sessionID, Send: make(chan []byte, sendBuffer)}
}

// enqueue hands a frame to the write loop without blocking. A false return
// means the watcher is too slow and should be dropped.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case c.Send <- frame:
		return true
	default:
		return false
	}
}

// leave asks the hub to forget this client, unless the hub has already stopped.
func (c *Client) leave() {
	select {
	case c.Hub.unregister <- c:
	case <-c.Hub.done:
	}
}

// readPump discards anything the browser sends; it exists to service
// pongs and to notice when the tab goes away.
func (c *Client) readPump() {
	defer func() {
		c.leave()
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("WSClient", "Unexpected close", map[string]interface{}{
					"session_id": c.SessionID,
					"error":      err.Error(),
				})
			}
			return
		}
	}
}

// writePump sends each frame as its own text message, so clients can
// JSON-decode every message they receive.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			if !ok {
				c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(messageType, data)
}
