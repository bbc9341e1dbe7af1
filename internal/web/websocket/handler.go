package websocket

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// viewers never send anything larger than a close frame
const (
	writeTimeout = 10 * time.Second
	readLimit    = 512
)

var upgrader = websocket.Upgrader{
	// the panel binds to loopback by default
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades the request and attaches the connection to hub
func Handler(hub *Hub, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.WithField("component", "websocket").WithError(err).Error("Failed to upgrade connection to WebSocket")
			return
		}

		client := &Client{
			ID:   uuid.New().String(),
			Send: make(chan []byte, 64),
			hub:  hub,
		}
		if !hub.add(client) {
			conn.Close()
			return
		}

		entry := log.WithFields(logrus.Fields{
			"component": "websocket",
			"client_id": client.ID,
		})
		go client.forward(conn, entry)
		go client.watch(conn, entry)

		entry.Info("New WebSocket connection established")
	}
}

// watch unregisters the client once the peer closes or the socket fails
func (c *Client) watch(conn *websocket.Conn, log *logrus.Entry) {
	defer func() {
		c.hub.remove(c)
		conn.Close()
		log.Debug("WebSocket connection closed")
	}()

	conn.SetReadLimit(readLimit)
	for {
		if _, _, err := conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("WebSocket read error")
			}
			return
		}
	}
}

// forward writes each queued message as its own text frame until the hub
// closes Send
func (c *Client) forward(conn *websocket.Conn, log *logrus.Entry) {
	defer conn.Close()

	for message := range c.Send {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.WithError(err).Warn("Error writing message")
			return
		}
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
