package camera

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"strings"
	"sync"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/rs/zerolog"

	"github.com/hivoco/lens-kiosk/internal/domain/acquisition"
)

var frontHints = []string{"front", "user", "facetime", "integrated", "webcam"}
var rearHints = []string{"back", "rear", "environment", "world"}

// MediaDevices opens cameras through pion/mediadevices. Device drivers must be
// registered by a blank import in the binary.
type MediaDevices struct {
	quality int
	log     zerolog.Logger

	// enumerate is swapped in tests.
	enumerate func() []mediadevices.MediaDeviceInfo
}

// NewMediaDevices creates a mediadevices backed camera encoding stills at quality.
func NewMediaDevices(quality int, log zerolog.Logger) *MediaDevices {
	return &MediaDevices{
		quality:   quality,
		log:       log.With().Str("component", "camera-mediadevices").Logger(),
		enumerate: mediadevices.EnumerateDevices,
	}
}

// Open selects a video input matching pref.Facing and starts a stream on it.
func (m *MediaDevices) Open(ctx context.Context, pref acquisition.Preference) (acquisition.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	device, err := selectDevice(m.enumerate(), pref.Facing)
	if err != nil {
		return nil, err
	}

	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			c.DeviceID = prop.String(device.DeviceID)
			if pref.Width > 0 {
				c.Width = prop.Int(pref.Width)
			}
			if pref.Height > 0 {
				c.Height = prop.Int(pref.Height)
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get user media %s: %w", device.Label, err)
	}

	tracks := stream.GetVideoTracks()
	if len(tracks) == 0 {
		return nil, fmt.Errorf("device %s produced no video track: %w", device.Label, acquisition.ErrDeviceNotFound)
	}
	track, ok := tracks[0].(*mediadevices.VideoTrack)
	if !ok {
		for _, t := range tracks {
			_ = t.Close()
		}
		return nil, fmt.Errorf("unexpected track type %T", tracks[0])
	}

	m.log.Info().Str("device", device.Label).Str("facing", string(pref.Facing)).Msg("video track started")
	return &pionStream{track: track, label: device.Label, quality: m.quality}, nil
}

func selectDevice(devices []mediadevices.MediaDeviceInfo, facing acquisition.Facing) (mediadevices.MediaDeviceInfo, error) {
	var cameras []mediadevices.MediaDeviceInfo
	for _, d := range devices {
		if d.Kind == mediadevices.VideoInput {
			cameras = append(cameras, d)
		}
	}
	if len(cameras) == 0 {
		return mediadevices.MediaDeviceInfo{}, acquisition.ErrDeviceNotFound
	}

	hints := frontHints
	if facing == acquisition.FacingEnvironment {
		hints = rearHints
	}
	for _, d := range cameras {
		label := strings.ToLower(d.Label)
		for _, h := range hints {
			if strings.Contains(label, h) {
				return d, nil
			}
		}
	}
	return cameras[0], nil
}

type pionStream struct {
	mu      sync.Mutex
	track   *mediadevices.VideoTrack
	label   string
	quality int
	closed  bool
}

func (s *pionStream) Label() string { return s.label }

func (s *pionStream) Capture(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, acquisition.ErrNotOpen
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader := s.track.NewReader(false)
	frame, release, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	defer release()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *pionStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.track.Close()
}
