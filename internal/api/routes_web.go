package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/otslabs/tsgallery/web"
)

// registerWebRoutes mounts the embedded gallery tab. The WebUI iframes
// /tab/, so the root path just points browsers at it.
func registerWebRoutes(r *gin.Engine) error {
	assets, err := web.FS()
	if err != nil {
		return err
	}

	r.StaticFS("/tab", http.FS(assets))
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/tab/")
	})
	return nil
}
