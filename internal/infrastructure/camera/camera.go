package camera

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hivoco/lens-kiosk/internal/config"
	"github.com/hivoco/lens-kiosk/internal/domain/acquisition"
)

// New builds the camera driver selected by CAMERA_DRIVER.
func New(cfg *config.Config, log zerolog.Logger) (acquisition.Camera, error) {
	switch cfg.CameraDriver {
	case "static":
		return NewStatic(cfg.CameraStaticImage, cfg.CameraJPEGQuality, log), nil
	case "mediadevices", "":
		return NewMediaDevices(cfg.CameraJPEGQuality, log), nil
	default:
		return nil, fmt.Errorf("unsupported camera driver %q", cfg.CameraDriver)
	}
}
