package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pion/mediadevices"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivoco/lens-kiosk/internal/config"
	"github.com/hivoco/lens-kiosk/internal/domain/acquisition"
)

func writeFrameSource(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 10), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestStaticCaptureProducesJPEG(t *testing.T) {
	cam := NewStatic(writeFrameSource(t), 90, zerolog.Nop())

	stream, err := cam.Open(context.Background(), acquisition.Preference{})
	require.NoError(t, err)
	defer stream.Close()

	frame, err := stream.Capture(context.Background())
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Width)
	assert.Equal(t, 24, cfg.Height)
	assert.Equal(t, "static:frame.png", stream.Label())
}

func TestStaticEmulatesExclusiveLock(t *testing.T) {
	cam := NewStatic(writeFrameSource(t), 90, zerolog.Nop())

	first, err := cam.Open(context.Background(), acquisition.Preference{})
	require.NoError(t, err)

	_, err = cam.Open(context.Background(), acquisition.Preference{})
	assert.True(t, errors.Is(err, acquisition.ErrDeviceBusy))

	require.NoError(t, first.Close())
	require.NoError(t, first.Close())
	assert.False(t, cam.InUse())

	second, err := cam.Open(context.Background(), acquisition.Preference{})
	require.NoError(t, err)
	assert.NoError(t, second.Close())
}

func TestStaticCaptureAfterClose(t *testing.T) {
	cam := NewStatic(writeFrameSource(t), 90, zerolog.Nop())
	stream, err := cam.Open(context.Background(), acquisition.Preference{})
	require.NoError(t, err)
	require.NoError(t, stream.Close())

	_, err = stream.Capture(context.Background())
	assert.True(t, errors.Is(err, acquisition.ErrNotOpen))
}

func TestStaticMissingSourceClassifiesAsNotFound(t *testing.T) {
	cam := NewStatic(filepath.Join(t.TempDir(), "absent.png"), 90, zerolog.Nop())
	surface := acquisition.NewSurface(cam, false, zerolog.Nop())

	err := surface.Open(context.Background(), acquisition.Preference{})
	assert.True(t, errors.Is(err, acquisition.ErrDeviceNotFound))
}

func TestSelectDevice(t *testing.T) {
	devices := []mediadevices.MediaDeviceInfo{
		{DeviceID: "mic", Kind: mediadevices.AudioInput, Label: "Front Mic"},
		{DeviceID: "rear", Kind: mediadevices.VideoInput, Label: "Rear Camera"},
		{DeviceID: "front", Kind: mediadevices.VideoInput, Label: "Front Camera"},
	}

	got, err := selectDevice(devices, acquisition.FacingUser)
	require.NoError(t, err)
	assert.Equal(t, "front", got.DeviceID)

	got, err = selectDevice(devices, acquisition.FacingEnvironment)
	require.NoError(t, err)
	assert.Equal(t, "rear", got.DeviceID)

	got, err = selectDevice(devices[1:2], acquisition.FacingUser)
	require.NoError(t, err)
	assert.Equal(t, "rear", got.DeviceID)

	_, err = selectDevice(devices[:1], acquisition.FacingUser)
	assert.True(t, errors.Is(err, acquisition.ErrDeviceNotFound))
}

func TestMediaDevicesOpenWithoutCameras(t *testing.T) {
	cam := NewMediaDevices(90, zerolog.Nop())
	cam.enumerate = func() []mediadevices.MediaDeviceInfo { return nil }

	_, err := cam.Open(context.Background(), acquisition.Preference{})
	assert.True(t, errors.Is(err, acquisition.ErrDeviceNotFound))
}

func TestNewSelectsDriver(t *testing.T) {
	cam, err := New(&config.Config{CameraDriver: "static", CameraStaticImage: "x.png", CameraJPEGQuality: 80}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &Static{}, cam)

	cam, err = New(&config.Config{CameraDriver: "mediadevices", CameraJPEGQuality: 80}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &MediaDevices{}, cam)

	_, err = New(&config.Config{CameraDriver: "v4l9"}, zerolog.Nop())
	assert.Error(t, err)
}
