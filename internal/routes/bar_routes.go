package routes

import (
	"github.com/gin-gonic/gin"
)

func BarRoutes(r *gin.Engine, d Deps) {
	if d.Bars == nil {
		return
	}
	api := r.Group("/api")
	{
		api.GET("/bars", d.Bars.ListBars)
		api.GET("/bars.geojson", d.Bars.GeoJSON)
		api.GET("/bars/:id", d.Bars.GetBar)
	}
}
