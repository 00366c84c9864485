package interfaces

import (
	"github.com/google/wire"

	"github.com/hivoco/lens-kiosk/internal/interfaces/httpserver"
	"github.com/hivoco/lens-kiosk/internal/interfaces/httpserver/handlers"
	"github.com/hivoco/lens-kiosk/internal/interfaces/httpserver/routes"
)

// InterfacesProvider wires the HTTP layer.
var InterfacesProvider = wire.NewSet(
	handlers.HandlerProvider,
	routes.RouteProvider,
	httpserver.New,
)
