package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/otslabs/tsgallery/pkg/response"

	"github.com/otslabs/tsgallery/internal/services"
	"github.com/otslabs/tsgallery/internal/store"
)

// StatsHandler serves the aggregate views: overview totals and per-field
// value distributions.
type StatsHandler struct {
	svc *services.RecordService
}

// NewStatsHandler constructs the stats handler.
func NewStatsHandler(svc *services.RecordService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// GET /api/stats/overview
func (h *StatsHandler) Overview(c *gin.Context) {
	totals, err := h.svc.Totals(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, totals)
}

type groupDistribution struct {
	Field   string         `json:"field"`
	Buckets []store.Bucket `json:"buckets"`
}

// GET /api/stats/groups/:field
func (h *StatsHandler) Groups(c *gin.Context) {
	field := c.Param("field")
	size := parseIntQuery(c, "size", store.DefaultGroupSize)

	buckets, err := h.svc.GroupBy(requestContext(c), field, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, groupDistribution{Field: field, Buckets: buckets})
}
