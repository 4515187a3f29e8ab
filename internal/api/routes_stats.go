package api

import (
	"github.com/gin-gonic/gin"

	"github.com/otslabs/tsgallery/internal/handlers"
	"github.com/otslabs/tsgallery/internal/services"
)

func registerStatsRoutes(api gin.IRouter, svc *services.RecordService) {
	h := handlers.NewStatsHandler(svc)

	stats := api.Group("/stats")
	{
		stats.GET("/overview", h.Overview)
		stats.GET("/groups/:field", h.Groups)
	}
}
