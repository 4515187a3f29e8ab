package middleware

import "github.com/gin-gonic/gin"

// DefaultContentSecurityPolicy restricts the embedded tab to same-origin
// resources. img-src stays open for presigned object-store redirects and
// frame-ancestors stays open so the WebUI can iframe the tab from its
// own port.
const DefaultContentSecurityPolicy = "default-src 'self'; img-src 'self' https: data:; frame-ancestors *"

// securityHeaders go on every response. The sidecar speaks plain HTTP on
// loopback, so HSTS is deliberately absent, and framing is allowed so
// the host UI can embed the tab.
var securityHeaders = map[string]string{
	"X-Content-Type-Options":  "nosniff",
	"X-XSS-Protection":        "1; mode=block",
	"Content-Security-Policy": DefaultContentSecurityPolicy,
	"Referrer-Policy":         "no-referrer",
	"Permissions-Policy":      "geolocation=(), microphone=(), camera=()",
}

// SecurityHeaders hardens the API and the embedded tab against MIME
// sniffing and script injection.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		for name, value := range securityHeaders {
			c.Header(name, value)
		}
		c.Next()
	}
}
