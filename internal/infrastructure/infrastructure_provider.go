package infrastructure

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/hivoco/lens-kiosk/internal/config"
	"github.com/hivoco/lens-kiosk/internal/domain/acquisition"
	"github.com/hivoco/lens-kiosk/internal/domain/capture"
	"github.com/hivoco/lens-kiosk/internal/domain/faces"
	"github.com/hivoco/lens-kiosk/internal/domain/jobs"
	"github.com/hivoco/lens-kiosk/internal/domain/submission"
	"github.com/hivoco/lens-kiosk/internal/domain/verification"
	"github.com/hivoco/lens-kiosk/internal/domain/videos"
	"github.com/hivoco/lens-kiosk/internal/infrastructure/auth"
	"github.com/hivoco/lens-kiosk/internal/infrastructure/backend"
	"github.com/hivoco/lens-kiosk/internal/infrastructure/camera"
	"github.com/hivoco/lens-kiosk/internal/infrastructure/jobwatch"
	"github.com/hivoco/lens-kiosk/internal/infrastructure/metrics"
	"github.com/hivoco/lens-kiosk/internal/infrastructure/store"
)

// ProvideBackend provides the remote backend client.
func ProvideBackend(cfg *config.Config, log zerolog.Logger) *backend.Client {
	return backend.NewClient(cfg, log)
}

// ProvideSessionStore provides the in-memory capture session store.
func ProvideSessionStore(log zerolog.Logger) capture.Store {
	return store.NewMemoryStore(log)
}

// ProvideCamera provides the configured capture device.
func ProvideCamera(cfg *config.Config, log zerolog.Logger) (acquisition.Camera, error) {
	return camera.New(cfg, log)
}

// ProvideReaper provides the stale session reaper.
func ProvideReaper(sessions capture.Service, cfg *config.Config, log zerolog.Logger) *store.Reaper {
	reaper := store.NewReaper(sessions, cfg.SessionStaleTTL, cfg.SessionCleanupInterval, log)
	reaper.OnReap(metrics.RecordSessionsReaped)
	return reaper
}

// ProvideJobWatcher provides the video job gauge poller.
func ProvideJobWatcher(jobService *jobs.Service, cfg *config.Config, log zerolog.Logger) *jobwatch.Watcher {
	return jobwatch.New(jobService, cfg.JobWatchSchedule, cfg.JobWatchEnabled, log)
}

// ProvideKeycloakValidator provides the optional Keycloak token validator.
func ProvideKeycloakValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*auth.Validator, error) {
	return auth.NewValidator(ctx, cfg, log)
}

// InfrastructureProvider provides all infrastructure dependencies.
var InfrastructureProvider = wire.NewSet(
	ProvideBackend,
	wire.Bind(new(submission.Backend), new(*backend.Client)),
	wire.Bind(new(verification.Verifier), new(*backend.Client)),
	wire.Bind(new(videos.Fetcher), new(*backend.Client)),
	wire.Bind(new(faces.Uploader), new(*backend.Client)),
	wire.Bind(new(jobs.Lister), new(*backend.Client)),
	ProvideSessionStore,
	ProvideCamera,
	ProvideReaper,
	ProvideJobWatcher,
	ProvideKeycloakValidator,
	auth.NewAdmin,
	auth.NewAuthenticator,
)
