package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs registers the connection with the hub, then blocks reading until the
// peer goes away. initial, when non-nil, is sent before any live frame.
func ServeWs(hub *Hub, c *websocket.Conn, sessionID string, initial []byte) {
	client := newClient(hub, c, sessionID)
	if initial != nil {
		client.Send <- initial
	}
	if !hub.attach(client) {
		c.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
