// internal/web/server.go
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/John-MustangGT/vantage/internal/config"
	"github.com/John-MustangGT/vantage/internal/engine"
	"github.com/John-MustangGT/vantage/internal/metrics"
)

// Server serves the JSON API and the websocket feed.
type Server struct {
	config  *config.Config
	engine  *engine.Engine
	metrics *metrics.Collector
	router  *gin.Engine
	hub     *Hub
	server  *http.Server
}

// NewServer creates a server and registers its websocket hub as the
// engine's broadcaster.
func NewServer(cfg *config.Config, eng *engine.Engine, metricsCollector *metrics.Collector) *Server {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(cfg.Web.CORSOrigins))

	server := &Server{
		config:  cfg,
		engine:  eng,
		metrics: metricsCollector,
		router:  router,
		hub:     NewHub(metricsCollector),
	}
	eng.SetBroadcaster(server.hub)

	server.setupRoutes()
	return server
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start launches the HTTP listener and the metrics refresh loop in the
// background.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	logrus.WithField("port", s.config.Server.Port).Info("Starting web server")

	// Start metrics update routine
	go s.updateMetricsRoutine(ctx)

	// Start server in goroutine
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	return nil
}

// Stop disconnects websocket clients and shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.CloseAll()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api/v1")
	{
		api.GET("/build-info", s.getBuildInfo)

		monitors := api.Group("/monitors/:id")
		{
			monitors.GET("/stats", s.getMonitorStats)
			monitors.GET("/uptime", s.getUptimeDetails)
			monitors.GET("/hardware", s.getHardwareDetails)
			monitors.GET("/checks", s.getChecks)
			monitors.GET("/maintenance", s.getMaintenanceWindows)
			monitors.POST("/maintenance", s.createMaintenanceWindow)
		}
		api.DELETE("/maintenance/:id", s.deleteMaintenanceWindow)

		api.POST("/checks", s.ingestCheck)
		api.GET("/teams/:team/monitors", s.getMonitorsByTeam)
		api.GET("/status-pages/:url", s.getStatusPage)
	}
	s.setupAdminRoutes(api)

	// WebSocket endpoint
	s.router.GET("/ws", s.handleWebSocket)

	// Prometheus metrics
	if s.config.Prometheus.Enabled {
		s.router.GET(s.config.Prometheus.MetricsPath, gin.WrapH(promhttp.Handler()))
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"version":   Version,
		"clients":   s.hub.Len(),
		"snapshots": s.engine.Snapshots().Len(),
	})
}

func (s *Server) updateMetricsRoutine(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.metrics.UpdateSystemMetrics(ctx); err != nil {
				logrus.WithError(err).Error("Failed to update system metrics")
			}
		}
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With", "Cache-Control"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}

	return cors.New(cfg)
}
