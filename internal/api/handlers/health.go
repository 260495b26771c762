package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/glamhair/patglam-agent/pkg/metrics"
)

// HandleHealth reports liveness. GET /health.
func (h *Handler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "patglam-agent",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleMetrics exposes the in-process counters. GET /metrics (JWT protected).
func (h *Handler) HandleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.Snapshot())
}
