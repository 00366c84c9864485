//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/hivoco/lens-kiosk/internal/config"
	"github.com/hivoco/lens-kiosk/internal/domain"
	"github.com/hivoco/lens-kiosk/internal/infrastructure"
	"github.com/hivoco/lens-kiosk/internal/interfaces"
)

// CreateApplication creates the application with all dependencies wired.
func CreateApplication(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Application, error) {
	wire.Build(
		infrastructure.InfrastructureProvider,
		domain.ServiceProvider,
		interfaces.InterfacesProvider,
		NewApplication,
	)
	return nil, nil
}
