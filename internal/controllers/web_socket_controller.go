package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"barmap/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The map is public and read-only.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketController streams bar changes to open map pages.
type WebSocketController struct {
	hub *events.Hub
}

func NewWebSocketController(hub *events.Hub) *WebSocketController {
	return &WebSocketController{hub: hub}
}

// HandleBarsWebSocket upgrades the request and keeps the client registered
// until it disconnects. Incoming messages are ignored.
func (wc *WebSocketController) HandleBarsWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade to websocket")
		return
	}
	defer conn.Close()

	wc.hub.Register(conn)
	defer wc.hub.Unregister(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("Map client connected")

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithError(err).Warn("Map client read error")
			}
			return
		}
	}
}
