package routes

import (
	"github.com/gin-gonic/gin"

	"barmap/internal/models"
)

func AdminRoutes(r *gin.Engine, d Deps) {
	if d.Auth == nil {
		return
	}
	admin := r.Group("/admin")
	admin.Use(d.Auth.RequireAuthWithRole(models.RoleAdmin))
	{
		if d.Bars != nil {
			admin.POST("/bars", d.Bars.CreateBar)
			admin.PUT("/bars/:id", d.Bars.UpdateBar)
			admin.DELETE("/bars/:id", d.Bars.DeleteBar)
		}
		if d.Imports != nil {
			admin.POST("/import/:source", d.Imports.Import)
		}
		if d.Snapshots != nil {
			admin.GET("/snapshots/:source", d.Snapshots.GetSnapshot)
		}
	}
}
