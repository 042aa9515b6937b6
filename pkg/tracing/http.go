package tracing

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

var untracedPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// GinMiddleware starts a server span per request. Probe and scrape endpoints are not traced.
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName,
		otelgin.WithFilter(func(r *http.Request) bool {
			return !untracedPaths[r.URL.Path]
		}),
	)
}
