package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp"

	"github.com/hivoco/lens-kiosk/internal/domain/acquisition"
)

// Static serves frames from an image file. It emulates the exclusive device
// lock of real hardware so a second Open while a stream is live fails busy.
type Static struct {
	mu      sync.Mutex
	path    string
	quality int
	inUse   bool
	log     zerolog.Logger
}

// NewStatic creates a static camera reading frames from path.
func NewStatic(path string, quality int, log zerolog.Logger) *Static {
	return &Static{
		path:    path,
		quality: quality,
		log:     log.With().Str("component", "camera-static").Logger(),
	}
}

// Open locks the emulated device.
func (c *Static) Open(ctx context.Context, _ acquisition.Preference) (acquisition.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(c.path); err != nil {
		return nil, fmt.Errorf("stat %s: %w", c.path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inUse {
		return nil, acquisition.ErrDeviceBusy
	}
	c.inUse = true
	return &staticStream{cam: c}, nil
}

// InUse reports whether a stream currently holds the device.
func (c *Static) InUse() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inUse
}

func (c *Static) release() {
	c.mu.Lock()
	c.inUse = false
	c.mu.Unlock()
}

func (c *Static) frame() ([]byte, error) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read frame source: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode frame source: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

type staticStream struct {
	cam  *Static
	once sync.Once
	mu   sync.Mutex
	done bool
}

func (s *staticStream) Label() string { return "static:" + filepath.Base(s.cam.path) }

func (s *staticStream) Capture(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	closed := s.done
	s.mu.Unlock()
	if closed {
		return nil, acquisition.ErrNotOpen
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.cam.frame()
}

func (s *staticStream) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.done = true
		s.mu.Unlock()
		s.cam.release()
		s.cam.log.Debug().Msg("static stream released")
	})
	return nil
}
