package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"

	"github.com/hivoco/lens-kiosk/internal/infrastructure/auth"
	"github.com/hivoco/lens-kiosk/internal/interfaces/httpserver/handlers"
	v1 "github.com/hivoco/lens-kiosk/internal/interfaces/httpserver/routes/v1"
)

// Provider holds all route providers.
type Provider struct {
	V1            *v1.Routes
	authenticator *auth.Authenticator
}

// NewProvider creates a new route provider.
func NewProvider(handlerProvider *handlers.Provider, authenticator *auth.Authenticator) *Provider {
	return &Provider{
		V1:            v1.NewRoutes(handlerProvider),
		authenticator: authenticator,
	}
}

// Register registers all routes on the engine.
func (p *Provider) Register(engine *gin.Engine) {
	if p.authenticator != nil {
		p.V1.Register(engine, p.authenticator.RequireAdmin())
	} else {
		p.V1.Register(engine, nil)
	}
}

// RouteProvider provides routes for wire.
var RouteProvider = wire.NewSet(NewProvider)
