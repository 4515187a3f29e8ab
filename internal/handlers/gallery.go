package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/otslabs/tsgallery/pkg/response"

	"github.com/otslabs/tsgallery/internal/services"
	"github.com/otslabs/tsgallery/internal/store"
)

// GalleryHandler drives the web tab's session lifecycle. Every operation
// answers with the full session snapshot so the tab can re-render from
// one payload.
type GalleryHandler struct {
	svc    *services.GalleryService
	limits PageLimits
}

// NewGalleryHandler constructs the gallery handler.
func NewGalleryHandler(svc *services.GalleryService, limits PageLimits) *GalleryHandler {
	return &GalleryHandler{svc: svc, limits: limits}
}

// POST /api/gallery/sessions
func (h *GalleryHandler) Open(c *gin.Context) {
	response.Success(c, http.StatusCreated, h.svc.Open())
}

// GET /api/gallery/sessions/:id
func (h *GalleryHandler) Show(c *gin.Context) {
	session, err := h.svc.Snapshot(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, session)
}

type gallerySearchRequest struct {
	Filter store.Filter `json:"filter"`
	Page   store.Page   `json:"page"`
}

// POST /api/gallery/sessions/:id/search
func (h *GalleryHandler) Search(c *gin.Context) {
	var req gallerySearchRequest
	if !bindAndValidate(c, &req) {
		return
	}

	req.Page.Size = h.limits.clamp(req.Page.Size)
	session, err := h.svc.Search(requestContext(c), c.Param("id"), req.Filter, req.Page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, session)
}

type gallerySelectRequest struct {
	Index *int `json:"index" validate:"required,min=0"`
}

// POST /api/gallery/sessions/:id/select
func (h *GalleryHandler) Select(c *gin.Context) {
	var req gallerySelectRequest
	if !bindAndValidate(c, &req) {
		return
	}

	session, err := h.svc.Select(c.Param("id"), *req.Index)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, session)
}

// POST /api/gallery/sessions/:id/close
func (h *GalleryHandler) CloseDetail(c *gin.Context) {
	session, err := h.svc.CloseDetail(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, session)
}

// DELETE /api/gallery/sessions/:id
func (h *GalleryHandler) End(c *gin.Context) {
	h.svc.EndSession(c.Param("id"))
	response.Success(c, http.StatusOK, nil)
}
