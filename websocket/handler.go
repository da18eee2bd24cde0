package websocket

import (
	"log"
	"net/http"
	"time"

	"podium/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Client is one websocket connection bound to an owner key.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	ownerKey string
	send     chan []byte
}

func (c *Client) trySend(payload []byte) {
	select {
	case c.send <- payload:
	default:
		// Client is not draining; drop it.
		go c.hub.unregister(c)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Clients only listen; inbound frames just keep the connection alive.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Handler upgrades the connection and registers it for the caller's events.
// Identity comes from query parameters since websocket clients cannot set
// custom headers.
func Handler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var owner models.Owner
		if userID := c.Query("userId"); userID != "" {
			owner = models.RegisteredOwner(userID)
		} else if sessionID := c.Query("sessionId"); sessionID != "" {
			owner = models.GuestOwner(sessionID)
		} else {
			c.String(http.StatusUnauthorized, "userId or sessionId required")
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("websocket: upgrade failed: %v", err)
			return
		}

		client := &Client{
			hub:      hub,
			conn:     conn,
			ownerKey: owner.Key(),
			send:     make(chan []byte, 16),
		}
		hub.register(client)

		go client.writePump()
		go client.readPump()
	}
}
