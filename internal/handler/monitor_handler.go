package handler

import (
	"net/http"

	"Planora/internal/hub"

	"github.com/gin-gonic/gin"
)

// MonitorHandler exposes hub statistics
type MonitorHandler struct {
	monitorService *hub.MonitorService
}

// NewMonitorHandler creates a new monitor handler
func NewMonitorHandler(monitorService *hub.MonitorService) *MonitorHandler {
	return &MonitorHandler{monitorService: monitorService}
}

// GetHubStats returns current hub statistics
func (h *MonitorHandler) GetHubStats(c *gin.Context) {
	stats := h.monitorService.GetStats()
	c.JSON(http.StatusOK, stats)
}

// GetPresence returns the tracker's view of every known actor's presence
func (h *MonitorHandler) GetPresence(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"presence": h.monitorService.Presence()})
}
