// @title           Lens Kiosk API
// @version         1.0
// @description     Photo capture, validation and submission gateway for event kiosks.
// @description     Drives capture sessions, face search, ID linking and OTP-gated video requests.

// @host      localhost:8190
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Operator token from /v1/admin/login or Keycloak

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/pion/mediadevices/pkg/driver/camera"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hivoco/lens-kiosk/internal/config"
	"github.com/hivoco/lens-kiosk/internal/domain"
	"github.com/hivoco/lens-kiosk/internal/domain/capture"
	"github.com/hivoco/lens-kiosk/internal/infrastructure"
	"github.com/hivoco/lens-kiosk/internal/infrastructure/auth"
	"github.com/hivoco/lens-kiosk/internal/infrastructure/jobwatch"
	"github.com/hivoco/lens-kiosk/internal/infrastructure/logger"
	"github.com/hivoco/lens-kiosk/internal/infrastructure/observability"
	"github.com/hivoco/lens-kiosk/internal/infrastructure/store"
	"github.com/hivoco/lens-kiosk/internal/interfaces/httpserver"
	"github.com/hivoco/lens-kiosk/internal/interfaces/httpserver/handlers"
	"github.com/hivoco/lens-kiosk/internal/interfaces/httpserver/routes"
)

// Application holds the main application components.
type Application struct {
	httpServer *httpserver.HTTPServer
	reaper     *store.Reaper
	watcher    *jobwatch.Watcher
	captures   capture.Service
	keycloak   *auth.Validator
	log        zerolog.Logger
}

// NewApplication creates a new application instance.
func NewApplication(
	httpServer *httpserver.HTTPServer,
	reaper *store.Reaper,
	watcher *jobwatch.Watcher,
	captures capture.Service,
	keycloak *auth.Validator,
	log zerolog.Logger,
) *Application {
	return &Application{
		httpServer: httpServer,
		reaper:     reaper,
		watcher:    watcher,
		captures:   captures,
		keycloak:   keycloak,
		log:        log,
	}
}

// Start runs the application until ctx is cancelled or a component fails.
func (a *Application) Start(ctx context.Context) error {
	a.reaper.Start(ctx)
	defer a.reaper.Stop()
	defer a.keycloak.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.httpServer.Run(gctx) })
	g.Go(func() error { return a.watcher.Run(gctx) })
	err := g.Wait()

	// Release every camera and abort in-flight submissions.
	n, rerr := a.captures.ReapIdle(context.Background(), time.Now().Add(time.Hour))
	if rerr != nil {
		a.log.Warn().Err(rerr).Msg("failed to release capture sessions")
	} else if n > 0 {
		a.log.Info().Int("sessions", n).Msg("released capture sessions")
	}

	return err
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	app, err := buildApplication(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build application")
	}

	log.Info().
		Str("service", cfg.ServiceName).
		Int("port", cfg.HTTPPort).
		Str("environment", cfg.Environment).
		Str("camera_driver", cfg.CameraDriver).
		Int("profiles", len(cfg.Profiles)).
		Msg("starting application")

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

// buildApplication wires the object graph by hand. wire.go declares the
// same graph for code generation.
func buildApplication(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Application, error) {
	keycloak, err := infrastructure.ProvideKeycloakValidator(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init keycloak validator: %w", err)
	}

	client := infrastructure.ProvideBackend(cfg, log)
	sessionStore := infrastructure.ProvideSessionStore(log)
	device, err := infrastructure.ProvideCamera(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init camera: %w", err)
	}

	profiles, err := domain.ProvideProfiles(cfg)
	if err != nil {
		return nil, fmt.Errorf("init capture profiles: %w", err)
	}
	adapter := domain.ProvideAdapter(client, cfg, log)
	verifier := domain.ProvideVerificationService(client, log)
	captures := domain.ProvideCaptureService(sessionStore, device, adapter, verifier, profiles, cfg, log)

	videoService, err := domain.ProvideVideoService(client, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init video service: %w", err)
	}
	faceService := domain.ProvideFacesService(client, cfg, log)
	jobService := domain.ProvideJobService(client, log)

	admin := auth.NewAdmin(cfg)
	authenticator := auth.NewAuthenticator(admin, keycloak, log)

	handlerProvider := handlers.NewProvider(
		handlers.NewCaptureHandler(captures, profiles),
		handlers.NewVideoHandler(videoService),
		handlers.NewAdminHandler(admin, jobService, faceService),
	)
	routeProvider := routes.NewProvider(handlerProvider, authenticator)
	httpServer := httpserver.New(cfg, log, routeProvider)

	reaper := infrastructure.ProvideReaper(captures, cfg, log)
	watcher := infrastructure.ProvideJobWatcher(jobService, cfg, log)

	return NewApplication(httpServer, reaper, watcher, captures, keycloak, log), nil
}

func loadEnvFiles() {
	paths := []string{".env", "../.env", "../../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
