package api

import (
	"github.com/gin-gonic/gin"

	"github.com/otslabs/tsgallery/internal/handlers"
	"github.com/otslabs/tsgallery/internal/services"
)

func registerRecordRoutes(api gin.IRouter, svc *services.RecordService, limits handlers.PageLimits) {
	h := handlers.NewRecordsHandler(svc, limits)

	records := api.Group("/records")
	{
		records.POST("", h.Create)
		records.GET("", h.List)
		records.GET("/catalogs", h.Catalogs)
		records.GET("/:id", h.Get)
		records.DELETE("/:id", h.Delete)
	}
}
