package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
)

// requestContext unwraps the caller's request context. Handlers invoked
// outside a real HTTP exchange fall back to Background.
func requestContext(c *gin.Context) context.Context {
	if c == nil || c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}
