package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs registers the connection and blocks until the peer goes away.
// initial, when not nil, is queued before any broadcast.
func ServeWs(hub *Hub, c *websocket.Conn, initial []byte) {
	client := &Client{Hub: hub, Conn: c, Id: uuid.New(), Send: make(chan []byte, sendBuffer)}
	if initial != nil {
		client.Send <- initial
	}
	client.Hub.register <- client

	go client.writePump()
	client.readPump()
}
