package acquisition

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Handle owns one open stream. Close is idempotent.
type Handle struct {
	stream Stream
	facing Facing
	once   sync.Once
	err    error
}

// Facing returns the facing preference the handle was opened with.
func (h *Handle) Facing() Facing { return h.facing }

// Label returns the device label.
func (h *Handle) Label() string { return h.stream.Label() }

// Close stops the stream and releases the device. Safe to call repeatedly.
func (h *Handle) Close() error {
	h.once.Do(func() {
		h.err = h.stream.Close()
	})
	return h.err
}

// Surface is a capture surface holding at most one open handle. Opening a new
// handle implicitly closes the previous one.
type Surface struct {
	mu            sync.Mutex
	camera        Camera
	active        *Handle
	requireSecure bool
	log           zerolog.Logger
}

// NewSurface creates a capture surface backed by camera.
func NewSurface(camera Camera, requireSecure bool, log zerolog.Logger) *Surface {
	return &Surface{
		camera:        camera,
		requireSecure: requireSecure,
		log:           log.With().Str("component", "capture-surface").Logger(),
	}
}

// Open acquires a stream for pref, closing any stream this surface already holds.
func (s *Surface) Open(ctx context.Context, pref Preference) error {
	if s.requireSecure && !pref.Secure {
		return NewError(ErrInsecureContext, nil)
	}
	if pref.Facing == "" {
		pref.Facing = FacingUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.releaseLocked("reopen")

	stream, err := s.camera.Open(ctx, pref)
	if err != nil {
		return Classify(err)
	}
	s.active = &Handle{stream: stream, facing: pref.Facing}
	s.log.Debug().Str("device", stream.Label()).Str("facing", string(pref.Facing)).Msg("camera opened")
	return nil
}

// IsOpen reports whether the surface holds a stream.
func (s *Surface) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// Capture grabs one still from the open stream and releases the stream,
// whether or not the capture succeeded.
func (s *Surface) Capture(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return nil, NewError(ErrNotOpen, nil)
	}
	defer s.releaseLocked("captured")

	frame, err := s.active.stream.Capture(ctx)
	if err != nil {
		return nil, Classify(err)
	}
	return frame, nil
}

// Close releases the open stream, if any. Safe to call repeatedly.
func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseLocked("closed")
}

func (s *Surface) releaseLocked(reason string) error {
	if s.active == nil {
		return nil
	}
	h := s.active
	s.active = nil
	err := h.Close()
	if err != nil {
		s.log.Warn().Err(err).Str("reason", reason).Msg("camera close failed")
	} else {
		s.log.Debug().Str("reason", reason).Msg("camera released")
	}
	return err
}
