package routes

import (
	"github.com/gin-gonic/gin"
)

func MapRoutes(r *gin.Engine, d Deps) {
	if d.Map == nil {
		return
	}
	r.GET("/", d.Map.Page)
	r.GET("/api/map", d.Map.MapJSON)
}
