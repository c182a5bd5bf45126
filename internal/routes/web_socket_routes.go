package routes

import (
	"github.com/gin-gonic/gin"
)

func WebSocketRoutes(r *gin.Engine, d Deps) {
	if d.WebSocket == nil {
		return
	}
	wsRoutes := r.Group("/ws")
	{
		wsRoutes.GET("/bars", d.WebSocket.HandleBarsWebSocket)
	}
}
