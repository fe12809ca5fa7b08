// internal/web/purge_handlers.go
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// setupAdminRoutes exposes the retention boundary used by the external
// retention process.
func (s *Server) setupAdminRoutes(api *gin.RouterGroup) {
	admin := api.Group("/admin")
	{
		admin.DELETE("/checks", s.purgeChecksBefore)
		admin.DELETE("/monitors/:id/checks", s.purgeMonitorChecks)
		admin.GET("/database", s.getDatabaseStats)
		admin.POST("/compact", s.compactDatabase)
	}
}

// DELETE /api/v1/admin/checks?before=RFC3339 - Purge checks older than a cutoff
func (s *Server) purgeChecksBefore(c *gin.Context) {
	cutoff, err := time.Parse(time.RFC3339, c.Query("before"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "before must be an RFC3339 timestamp"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	deleted, err := s.engine.PurgeChecksBefore(ctx, cutoff)
	if err != nil {
		respondError(c, err, "Failed to purge checks")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Checks purged successfully",
		"deleted":   deleted,
		"timestamp": time.Now(),
	})
}

// DELETE /api/v1/admin/monitors/:id/checks - Purge one monitor's history
func (s *Server) purgeMonitorChecks(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	deleted, err := s.engine.PurgeMonitorChecks(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to purge monitor checks")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Monitor checks purged successfully",
		"deleted":   deleted,
		"timestamp": time.Now(),
	})
}

// GET /api/v1/admin/database - Database size and health
func (s *Server) getDatabaseStats(c *gin.Context) {
	dbStats, err := s.engine.DatabaseStats(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to get database stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": dbStats})
}

// POST /api/v1/admin/compact - Compact the database file
func (s *Server) compactDatabase(c *gin.Context) {
	logrus.Info("Database compaction requested")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Minute)
	defer cancel()

	if err := s.engine.CompactDatabase(ctx); err != nil {
		respondError(c, err, "Database compaction failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Database compacted successfully",
		"timestamp": time.Now(),
	})
}
