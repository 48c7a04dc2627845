package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"fareroute/internal/config"
	"fareroute/internal/controllers"
	"fareroute/internal/logger"
	"fareroute/internal/metrics"
	"fareroute/internal/middleware"
	"fareroute/internal/routes"
	"fareroute/internal/service"
	"fareroute/internal/store"
)

func main() {
	cfg := config.Load()

	// Initialize structured logging to file
	accessLog := logger.Setup(cfg.LogFile, cfg.LogLevel)
	middleware.SetSecret(cfg.JWTSecret)
	metrics.Register(prometheus.DefaultRegisterer)

	// Connect to the database
	db, err := config.InitDB(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("could not connect to database")
	}
	st := store.NewGormStore(db)

	gin.SetMode(gin.ReleaseMode)
	r := routes.SetupRouter(routes.Deps{
		Auth:      controllers.NewAuthController(st),
		Routes:    controllers.NewRouteController(service.NewRouteService(st)),
		Exports:   controllers.NewExportController(service.NewExporter(st, cfg.ExportCacheTTL)),
		AccessLog: accessLog,
	})

	// Wrap with CORS
	handler := middleware.EnableCORS(r)

	addr := "0.0.0.0:" + cfg.Port
	logrus.WithField("addr", addr).Info("server running")
	if err := http.ListenAndServe(addr, handler); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
