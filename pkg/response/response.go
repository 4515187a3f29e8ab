package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/otslabs/tsgallery/pkg/errors"
)

// Response is the envelope every API endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorInfo holds error details to send to clients. Kind lets the gallery
// tab distinguish configuration problems from storage problems inline.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta describes pagination metadata for search results. NextToken is the
// opaque continuation token; an empty token means the result set is exhausted.
type Meta struct {
	Total     int64  `json:"total"`
	PageSize  int    `json:"page_size,omitempty"`
	NextToken string `json:"next_token,omitempty"`
}

// Success writes data inside a success envelope.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMeta writes a JSON success response including pagination metadata.
func SuccessWithMeta(c *gin.Context, statusCode int, data interface{}, meta *Meta) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// Error renders err through the error envelope; anything that is not an
// AppError reports as an internal error.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, Response{
		Success: false,
		Error: &ErrorInfo{
			Kind:    string(appErr.Kind),
			Code:    appErr.Code,
			Message: appErr.Message,
		},
	})
}
