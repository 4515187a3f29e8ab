package api

import (
	"github.com/gin-gonic/gin"

	"github.com/otslabs/tsgallery/internal/handlers"
	"github.com/otslabs/tsgallery/internal/services"
)

func registerGalleryRoutes(api gin.IRouter, svc *services.GalleryService, limits handlers.PageLimits) {
	h := handlers.NewGalleryHandler(svc, limits)

	sessions := api.Group("/gallery/sessions")
	{
		sessions.POST("", h.Open)
		sessions.GET("/:id", h.Show)
		sessions.POST("/:id/search", h.Search)
		sessions.POST("/:id/select", h.Select)
		sessions.POST("/:id/close", h.CloseDetail)
		sessions.DELETE("/:id", h.End)
	}
}
