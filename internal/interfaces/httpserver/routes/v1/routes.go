package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/hivoco/lens-kiosk/internal/interfaces/httpserver/handlers"
	"github.com/hivoco/lens-kiosk/internal/interfaces/httpserver/middlewares"
)

// Routes holds the v1 route configuration.
type Routes struct {
	handlers *handlers.Provider
}

// NewRoutes creates a new v1 routes instance.
func NewRoutes(handlerProvider *handlers.Provider) *Routes {
	return &Routes{
		handlers: handlerProvider,
	}
}

// Register registers all v1 routes on the engine. requireAdmin guards the
// operator routes; nil leaves them open.
func (r *Routes) Register(engine *gin.Engine, requireAdmin gin.HandlerFunc) {
	v1 := engine.Group("/v1")
	v1.Use(middlewares.SecureContext())

	RegisterCaptureRoutes(v1, r.handlers.Capture)
	RegisterVideoRoutes(v1, r.handlers.Video)
	RegisterAdminRoutes(v1, r.handlers.Admin, requireAdmin)
}
