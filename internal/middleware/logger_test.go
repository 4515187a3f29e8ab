package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/otslabs/tsgallery/pkg/logger"
)

func TestAccessLogPassesRequestThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	require.NoError(t, logger.Init("error"))

	r := gin.New()
	r.Use(AccessLog())
	r.GET("/api/records", func(c *gin.Context) {
		c.String(http.StatusOK, "[]")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/records?prompt=castle", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "[]", w.Body.String())
}

func TestProbePathCoversHealthAndMetrics(t *testing.T) {
	quiet := []string{
		"/health",
		"/health/live",
		"/health/ready",
		"/metrics",
		"/api/health",
		"/api/health/ready",
	}
	for _, path := range quiet {
		require.True(t, probePath(path), path)
	}

	loud := []string{"/", "/api/records", "/api/images/rec-1/thumb", "/healthz"}
	for _, path := range loud {
		require.False(t, probePath(path), path)
	}
}
