package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/otslabs/tsgallery/pkg/response"

	"github.com/otslabs/tsgallery/internal/services"
)

// ImagesHandler serves record images and their cached thumbnails.
type ImagesHandler struct {
	svc *services.RecordService
}

// NewImagesHandler constructs the images handler.
func NewImagesHandler(svc *services.RecordService) *ImagesHandler {
	return &ImagesHandler{svc: svc}
}

// GET /api/images/:id
//
// Object-storage backends answer with a redirect to a presigned URL so
// the bytes never pass through this process; the local backend streams
// the file.
func (h *ImagesHandler) Show(c *gin.Context) {
	source, err := h.svc.Image(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	if source.URL != "" {
		c.Redirect(http.StatusFound, source.URL)
		return
	}

	defer source.Reader.Close()
	c.DataFromReader(http.StatusOK, -1, source.ContentType, source.Reader, nil)
}

// GET /api/images/:id/thumb
func (h *ImagesHandler) Thumbnail(c *gin.Context) {
	path, err := h.svc.Thumbnail(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.File(path)
}
