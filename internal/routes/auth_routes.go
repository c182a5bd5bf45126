package routes

import (
	"github.com/gin-gonic/gin"
)

func AuthRoutes(r *gin.Engine, d Deps) {
	if d.Login == nil {
		return
	}
	auth := r.Group("/auth")
	{
		auth.POST("/login", d.Login.Login)
		if d.Auth != nil {
			auth.GET("/me", d.Auth.RequireAuth(), d.Login.Me)
		}
	}
}
