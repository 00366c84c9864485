package domain

import (
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
	"github.com/hivoco/lens-kiosk/internal/infrastructure/metrics"
)

// ProvideProfiles builds the capture profiles from configuration.
func ProvideProfiles(cfg *config.Config) (capture.Profiles, error) {
	return capture.NewProfiles(cfg.Profiles)
}

// ProvideAdapter provides the submission adapter.
func ProvideAdapter(backend submission.Backend, cfg *config.Config, log zerolog.Logger) *submission.Adapter {
	return submission.NewAdapter(backend, submission.NewFieldValidator(cfg.DefaultCSVFile), log)
}

// ProvideVerificationService provides the OTP verification service.
func ProvideVerificationService(verifier verification.Verifier, log zerolog.Logger) *verification.Service {
	return verification.NewService(verifier, log)
}

// ProvideCaptureService provides the capture session service with metrics hooks.
func ProvideCaptureService(
	store capture.Store,
	camera acquisition.Camera,
	adapter *submission.Adapter,
	verifier *verification.Service,
	profiles capture.Profiles,
	cfg *config.Config,
	log zerolog.Logger,
) capture.Service {
	return capture.NewService(
		store,
		camera,
		adapter,
		verifier,
		profiles,
		log,
		capture.WithRequireSecureCamera(cfg.CameraRequireSecure),
		capture.WithTransitionHook(metrics.RecordStateTransition),
		capture.WithLifecycleHooks(metrics.RecordSessionCreated, metrics.RecordSessionDeleted),
	)
}

// ProvideVideoService provides the cached video lookup service.
func ProvideVideoService(fetcher videos.Fetcher, cfg *config.Config, log zerolog.Logger) (*videos.Service, error) {
	return videos.NewService(fetcher, cfg.VideoCacheSize, cfg.VideoCacheTTL, log)
}

// ProvideFacesService provides the faces archive ingestion service.
func ProvideFacesService(uploader faces.Uploader, cfg *config.Config, log zerolog.Logger) *faces.Service {
	return faces.NewService(uploader, cfg.FacesZipMaxBytes, log)
}

// ProvideJobService provides the video job listing service.
func ProvideJobService(lister jobs.Lister, log zerolog.Logger) *jobs.Service {
	return jobs.NewService(lister, log)
}

// ServiceProvider provides all domain services.
var ServiceProvider = wire.NewSet(
	ProvideProfiles,
	ProvideAdapter,
	ProvideVerificationService,
	ProvideCaptureService,
	ProvideVideoService,
	ProvideFacesService,
	ProvideJobService,
)
