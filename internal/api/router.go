package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/otslabs/tsgallery/internal/app"
	"github.com/otslabs/tsgallery/internal/handlers"
	"github.com/otslabs/tsgallery/internal/middleware"
	"github.com/otslabs/tsgallery/internal/monitoring"
	"github.com/otslabs/tsgallery/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers every
// route the gallery serves: the record API, the stats API, image
// delivery, gallery sessions, health probes, and the embedded tab.
func NewRouter(records *services.RecordService, galleries *services.GalleryService, cfg *app.Config, health *monitoring.HealthManager) (*gin.Engine, error) {
	if records == nil {
		return nil, fmt.Errorf("record service must be provided")
	}
	if galleries == nil {
		return nil, fmt.Errorf("gallery service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.AccessLog())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())

	limits := handlers.PageLimits{
		Default: cfg.Gallery.PageSize,
		Max:     cfg.Gallery.MaxPageSize,
	}

	api := r.Group("/api")
	registerRecordRoutes(api, records, limits)
	registerStatsRoutes(api, records)
	registerImageRoutes(api, records)
	registerGalleryRoutes(api, galleries, limits)

	registerHealthRoutes(r, cfg, health)

	if err := registerWebRoutes(r); err != nil {
		return nil, err
	}

	// Metrics endpoint
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
