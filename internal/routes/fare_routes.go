package routes

import (
	"github.com/gin-gonic/gin"

	"fareroute/internal/controllers"
	"fareroute/internal/middleware"
)

func FareRoutes(r *gin.Engine, rc *controllers.RouteController, ec *controllers.ExportController) {
	routes := r.Group("/routes")
	routes.Use(middleware.RequireAuth())
	{
		routes.GET("", rc.ListRoutes)
		routes.POST("", rc.CreateRoute)
		routes.POST("/export", ec.ExportBulk)
		routes.GET("/:id", rc.GetRoute)
		routes.PUT("/:id/info", rc.UpdateInfo)
		routes.PUT("/:id/stops", rc.UpdateStops)
		routes.PUT("/:id/prices", rc.UpdatePrices)
		routes.DELETE("/:id", rc.DeleteRoute)
		routes.GET("/:id/export", ec.ExportRoute)
	}
}
