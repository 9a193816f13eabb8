package websocket

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebSocketHandler upgrades the request and attaches the connection to the activity feed
func WebSocketHandler(hub *Hub, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.WithFields(logrus.Fields{
				"component": "websocket",
				"error":     err,
			}).Error("Failed to upgrade connection to WebSocket")
			return
		}

		client := newClient(uuid.New().String(), hub)
		if !hub.Register(client) {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			conn.Close()
			return
		}

		go writePump(client, conn, log)
		go readPump(client, conn, log)
	}
}

// readPump drains the connection so control frames are processed and a
// closed peer is noticed
func readPump(client *Client, conn *websocket.Conn, log *logrus.Logger) {
	defer func() {
		client.Close()
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithFields(logrus.Fields{
					"component": "websocket",
					"client":    client.ID,
					"error":     err,
				}).Warn("WebSocket read error")
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func writePump(client *Client, conn *websocket.Conn, log *logrus.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One event per frame so dashboards can parse each message as JSON
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.WithFields(logrus.Fields{
					"component": "websocket",
					"client":    client.ID,
					"error":     err,
				}).Warn("Failed to write activity event")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-client.closeCh:
			return
		}
	}
}
