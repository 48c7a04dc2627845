package routes

import (
	"github.com/gin-gonic/gin"

	"fareroute/internal/controllers"
	"fareroute/internal/middleware"
)

func AdminRoutes(r *gin.Engine, rc *controllers.RouteController) {
	admin := r.Group("/admin")
	admin.Use(middleware.RequireAuthWithRole("admin"))
	{
		admin.GET("/routes", rc.ListAllRoutes)
	}
}
