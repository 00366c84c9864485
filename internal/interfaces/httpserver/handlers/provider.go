package handlers

import (
	"github.com/google/wire"
)

// Provider holds all HTTP handlers.
type Provider struct {
	Capture *CaptureHandler
	Video   *VideoHandler
	Admin   *AdminHandler
}

// NewProvider creates a new handler provider.
func NewProvider(captureHandler *CaptureHandler, videoHandler *VideoHandler, adminHandler *AdminHandler) *Provider {
	return &Provider{
		Capture: captureHandler,
		Video:   videoHandler,
		Admin:   adminHandler,
	}
}

// HandlerProvider provides all handlers for wire.
var HandlerProvider = wire.NewSet(
	NewCaptureHandler,
	NewVideoHandler,
	NewAdminHandler,
	NewProvider,
)
