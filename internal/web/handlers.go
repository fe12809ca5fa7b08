// internal/web/handlers.go
package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/John-MustangGT/vantage/internal/database"
	"github.com/John-MustangGT/vantage/internal/engine"
)

// MaintenanceWindowRequest is the body of a window create call. Repeat is
// in milliseconds, 0 for a one-shot window.
type MaintenanceWindowRequest struct {
	Name   string    `json:"name"`
	Start  time.Time `json:"start" binding:"required"`
	End    time.Time `json:"end" binding:"required"`
	Repeat int64     `json:"repeat"`
	Active *bool     `json:"active"`
}

// respondError maps store and engine errors onto HTTP statuses.
func respondError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error(message)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if value, err := strconv.Atoi(c.Query(key)); err == nil {
		return value
	}
	return fallback
}

func queryBool(c *gin.Context, key string) *bool {
	value, err := strconv.ParseBool(c.Query(key))
	if err != nil {
		return nil
	}
	return &value
}

func queryOrder(c *gin.Context, key string) database.SortOrder {
	if strings.EqualFold(c.Query(key), string(database.SortAsc)) {
		return database.SortAsc
	}
	return database.SortDesc
}

func queryTypes(c *gin.Context) []database.MonitorType {
	var types []database.MonitorType
	for _, raw := range c.QueryArray("type") {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, database.MonitorType(t))
			}
		}
	}
	return types
}

// GET /api/v1/monitors/:id/stats
func (s *Server) getMonitorStats(c *gin.Context) {
	result, err := s.engine.GetMonitorStats(c.Request.Context(), c.Param("id"), engine.MonitorStatsQuery{
		SortOrder:    queryOrder(c, "sortOrder"),
		DateRange:    c.Query("dateRange"),
		NumToDisplay: queryInt(c, "numToDisplay", 0),
		Normalize:    c.Query("normalize") == "true",
	})
	if err != nil {
		respondError(c, err, "Failed to get monitor stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GET /api/v1/monitors/:id/uptime
func (s *Server) getUptimeDetails(c *gin.Context) {
	result, err := s.engine.GetUptimeDetails(c.Request.Context(), c.Param("id"), c.Query("dateRange"))
	if err != nil {
		respondError(c, err, "Failed to get uptime details")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GET /api/v1/monitors/:id/hardware
func (s *Server) getHardwareDetails(c *gin.Context) {
	result, err := s.engine.GetHardwareDetails(c.Request.Context(), c.Param("id"), c.Query("dateRange"))
	if err != nil {
		respondError(c, err, "Failed to get hardware details")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GET /api/v1/monitors/:id/checks
func (s *Server) getChecks(c *gin.Context) {
	q := database.CheckQuery{
		MonitorID: c.Param("id"),
		Status:    queryBool(c, "status"),
		Order:     queryOrder(c, "sortOrder"),
		Page:      queryInt(c, "page", 0),
		PerPage:   queryInt(c, "rowsPerPage", 25),
	}
	if dateRange := c.Query("dateRange"); dateRange != "" {
		q.Range = s.engine.ResolveRange(dateRange).TimeRange()
	}

	page, err := s.engine.ListChecks(c.Request.Context(), q)
	if err != nil {
		respondError(c, err, "Failed to get checks")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  page.Items,
		"count": page.Total,
	})
}

// POST /api/v1/checks
func (s *Server) ingestCheck(c *gin.Context) {
	var check database.Check
	if err := c.ShouldBindJSON(&check); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.engine.IngestCheck(c.Request.Context(), &check); err != nil {
		respondError(c, err, "Failed to ingest check")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": check})
}

// GET /api/v1/teams/:team/monitors
func (s *Server) getMonitorsByTeam(c *gin.Context) {
	result, err := s.engine.GetMonitorsByTeam(c.Request.Context(), c.Param("team"), engine.TeamQuery{
		Limit:       queryInt(c, "limit", 0),
		Types:       queryTypes(c),
		Page:        queryInt(c, "page", 0),
		RowsPerPage: queryInt(c, "rowsPerPage", 0),
		Filter:      c.Query("filter"),
		Field:       c.Query("field"),
		Order:       queryOrder(c, "order"),
		Status:      queryBool(c, "status"),
		Active:      queryBool(c, "active"),
	})
	if err != nil {
		respondError(c, err, "Failed to get team monitors")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GET /api/v1/status-pages/:url
func (s *Server) getStatusPage(c *gin.Context) {
	result, err := s.engine.GetStatusPage(c.Request.Context(), c.Param("url"))
	if err != nil {
		respondError(c, err, "Failed to get status page")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GET /api/v1/monitors/:id/maintenance
func (s *Server) getMaintenanceWindows(c *gin.Context) {
	statuses, err := s.engine.MaintenanceStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get maintenance windows")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  statuses,
		"count": len(statuses),
	})
}

// POST /api/v1/monitors/:id/maintenance
func (s *Server) createMaintenanceWindow(c *gin.Context) {
	var req MaintenanceWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	window := &database.MaintenanceWindow{
		MonitorID: c.Param("id"),
		Name:      req.Name,
		Start:     req.Start,
		End:       req.End,
		Repeat:    req.Repeat,
		Active:    req.Active == nil || *req.Active,
	}
	if err := s.engine.CreateMaintenanceWindow(c.Request.Context(), window); err != nil {
		respondError(c, err, "Failed to create maintenance window")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": window})
}

// DELETE /api/v1/maintenance/:id
func (s *Server) deleteMaintenanceWindow(c *gin.Context) {
	if err := s.engine.DeleteMaintenanceWindow(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete maintenance window")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Maintenance window deleted"})
}
