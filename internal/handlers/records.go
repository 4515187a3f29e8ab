package handlers

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/otslabs/tsgallery/pkg/errors"
	"github.com/otslabs/tsgallery/pkg/response"

	"github.com/otslabs/tsgallery/internal/services"
	"github.com/otslabs/tsgallery/internal/store"
)

// RecordsHandler exposes the write/search/delete surface over generation
// records.
type RecordsHandler struct {
	svc    *services.RecordService
	limits PageLimits
}

// NewRecordsHandler constructs the records handler.
func NewRecordsHandler(svc *services.RecordService, limits PageLimits) *RecordsHandler {
	return &RecordsHandler{svc: svc, limits: limits}
}

type createRecordRequest struct {
	// ID lets the host pin the record id instead of having one minted.
	ID             string `json:"id" validate:"omitempty,uuid4"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
	Parameters     string `json:"parameters"`
	Comments       string `json:"comments"`

	// JobStartTime accepts RFC3339 or "2006-01-02 15:04:05" as emitted by
	// the host pipeline. Empty means "now".
	JobStartTime    string `json:"job_start_time"`
	UsedTimeSeconds int64  `json:"used_time_in_seconds" validate:"min=0"`

	Interrupted bool `json:"interrupted"`
	Skipped     bool `json:"skipped"`
	IsTxt2Img   bool `json:"is_txt2img"`
	IsImg2Img   bool `json:"is_img2img"`

	// ImagePath references an image the host already wrote to disk.
	// ImageBase64 is the inline alternative for hosts that stream bytes.
	ImagePath        string `json:"image_path"`
	ImageBase64      string `json:"image_base64"`
	ImageContentType string `json:"image_content_type"`
}

// POST /api/records
func (h *RecordsHandler) Create(c *gin.Context) {
	var req createRecordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.WriteRecordInput{
		ID:              req.ID,
		Prompt:          req.Prompt,
		NegativePrompt:  req.NegativePrompt,
		Parameters:      req.Parameters,
		Comments:        req.Comments,
		UsedTimeSeconds: req.UsedTimeSeconds,
		Interrupted:     req.Interrupted,
		Skipped:         req.Skipped,
		IsTxt2Img:       req.IsTxt2Img,
		IsImg2Img:       req.IsImg2Img,
		ImagePath:       req.ImagePath,
	}

	if raw := strings.TrimSpace(req.JobStartTime); raw != "" {
		start, err := parseTimeValue(raw)
		if err != nil {
			response.Error(c, appErrors.NewBadRequest("invalid job_start_time: expected RFC3339 or 2006-01-02 15:04:05"))
			return
		}
		input.JobStartTime = start
	}

	if req.ImageBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			response.Error(c, appErrors.NewBadRequest("image_base64 is not valid base64"))
			return
		}
		input.ImageBytes = data
		input.ImageContentType = req.ImageContentType
	}

	rec, err := h.svc.Write(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, rec)
}

// GET /api/records
func (h *RecordsHandler) List(c *gin.Context) {
	filter, err := filterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	page := store.Page{
		Size:  h.limits.clamp(parseIntQuery(c, "page_size", 0)),
		Token: strings.TrimSpace(c.Query("token")),
	}

	result, err := h.svc.Search(requestContext(c), filter, page)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, result.Records, &response.Meta{
		Total:     result.Total,
		PageSize:  page.Size,
		NextToken: result.NextToken,
	})
}

// GET /api/records/catalogs
func (h *RecordsHandler) Catalogs(c *gin.Context) {
	catalogs, err := h.svc.Catalogs(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, catalogs)
}

// GET /api/records/:id
func (h *RecordsHandler) Get(c *gin.Context) {
	rec, err := h.svc.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, rec)
}

// DELETE /api/records/:id
func (h *RecordsHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, nil)
}
