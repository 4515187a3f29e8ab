package api

import (
	"github.com/gin-gonic/gin"

	"github.com/otslabs/tsgallery/internal/handlers"
	"github.com/otslabs/tsgallery/internal/services"
)

func registerImageRoutes(api gin.IRouter, svc *services.RecordService) {
	h := handlers.NewImagesHandler(svc)

	images := api.Group("/images")
	{
		images.GET("/:id", h.Show)
		images.GET("/:id/thumb", h.Thumbnail)
	}
}
