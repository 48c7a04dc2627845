package routes

import (
	"io"
	"net/http"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fareroute/internal/controllers"
	"fareroute/internal/middleware"
)

// Deps are the controllers the router dispatches to.
type Deps struct {
	Auth    *controllers.AuthController
	Routes  *controllers.RouteController
	Exports *controllers.ExportController
	// AccessLog receives one line per request. Nil disables access logging.
	AccessLog io.Writer
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID())
	if d.AccessLog != nil {
		r.Use(ginlog.SetLogger(
			ginlog.WithWriter(d.AccessLog),
			ginlog.WithUTC(true),
			ginlog.WithSkipPath([]string{"/metrics", "/health"}),
		))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	AuthRoutes(r, d.Auth)
	FareRoutes(r, d.Routes, d.Exports)
	AdminRoutes(r, d.Routes)

	return r
}
