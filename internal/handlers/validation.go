package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/otslabs/tsgallery/pkg/errors"
	"github.com/otslabs/tsgallery/pkg/response"
	appValidator "github.com/otslabs/tsgallery/pkg/validator"
)

// bindAndValidate decodes the JSON body into dest and applies its
// validation tags. On failure the error envelope has already been
// written and the handler should just return.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest(formatValidationError(err)))
		return false
	}

	return true
}

func formatValidationError(err error) string {
	ve, ok := err.(appValidator.ValidationErrors)
	if !ok || len(ve) == 0 {
		return "invalid request payload"
	}

	messages := make([]string, len(ve))
	for i, failure := range ve {
		messages[i] = failure.Message()
	}
	return strings.Join(messages, "; ")
}

// parseIntQuery reads an integer query parameter, falling back when the
// value is absent or not a number.
func parseIntQuery(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	if parsed, err := strconv.Atoi(raw); err == nil {
		return parsed
	}
	return fallback
}
