package routes

import (
	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"

	"barmap/internal/controllers"
	"barmap/internal/mapview"
	"barmap/internal/middleware"
)

// Deps are the controllers and middleware the router mounts.
type Deps struct {
	Auth      *middleware.Auth
	Map       *controllers.MapController
	Bars      *controllers.BarController
	Login     *controllers.AuthController
	Imports   *controllers.ImportController
	Snapshots *controllers.SnapshotController
	WebSocket *controllers.WebSocketController
}

// SetupRouter builds the gin engine. Nil controllers leave their routes out.
func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ginlog.SetLogger())
	r.SetHTMLTemplate(mapview.Templates())

	r.GET("/health", controllers.Health)

	MapRoutes(r, d)
	BarRoutes(r, d)
	AuthRoutes(r, d)
	AdminRoutes(r, d)
	WebSocketRoutes(r, d)

	return r
}
