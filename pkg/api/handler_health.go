package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// healthHandler handles GET /health: {status: healthy|constrained, resources}
// (spec §4.12).
func (s *Server) healthHandler(c *gin.Context) {
	status, err := s.monitor.Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "constrained", "error": err.Error()})
		return
	}

	healthStatus := "healthy"
	if !status.Healthy || s.monitor.Degraded() {
		healthStatus = "constrained"
	}
	c.JSON(http.StatusOK, gin.H{
		"status": healthStatus,
		"resources": gin.H{
			"ram_percent":      status.RAMPercent,
			"swap_mb":          status.SwapMB,
			"gpu_vram_gb":      status.GPUVRAMGB,
			"gpu_vram_percent": status.GPUVRAMPercent,
			"degraded":         s.monitor.Degraded(),
		},
	})
}
