package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/otslabs/tsgallery/internal/app"
	"github.com/otslabs/tsgallery/internal/monitoring"
)

// Health probes answer on the bare engine and under /api so the host
// pipeline and the tab reach them without caring about the prefix.
func registerHealthRoutes(r *gin.Engine, cfg *app.Config, manager *monitoring.HealthManager) {
	if cfg == nil {
		return
	}

	enabled := cfg.Monitoring.Health.Enabled && manager != nil
	for _, g := range []gin.IRouter{r, r.Group("/api")} {
		if !enabled {
			g.GET("/health", healthDisabled)
			g.GET("/health/live", healthDisabled)
			g.GET("/health/ready", healthDisabled)
			continue
		}
		g.GET("/health", healthOverview(manager))
		g.GET("/health/live", healthLive(manager))
		g.GET("/health/ready", healthReady(manager))
	}
}

// healthOverview condenses readiness to a yes or no. The ready endpoint
// carries the per-check breakdown.
func healthOverview(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := manager.EvaluateReadiness(c.Request.Context())
		c.JSON(healthStatusCode(report), gin.H{
			"success":    report.Success,
			"status":     report.Status,
			"checked_at": time.Now().UTC(),
		})
	}
}

func healthLive(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		writeHealthReport(c, manager.Liveness())
	}
}

func healthReady(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		writeHealthReport(c, manager.EvaluateReadiness(c.Request.Context()))
	}
}

func healthDisabled(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
}

func healthStatusCode(report monitoring.HealthReport) int {
	if report.Success {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

func writeHealthReport(c *gin.Context, report monitoring.HealthReport) {
	c.JSON(healthStatusCode(report), gin.H{
		"success":    report.Success,
		"status":     report.Status,
		"checks":     report.Checks,
		"checked_at": time.Now().UTC(),
	})
}
