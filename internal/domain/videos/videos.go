package videos

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"

	"github.com/hivoco/lens-kiosk/internal/utils/platformerrors"
)

var (
	ErrInvalidIdentifier = errors.New("invalid video identifier")
	ErrVideoNotFound     = errors.New("video not found")
	ErrUnavailable       = errors.New("video service unavailable")
)

var (
	mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)
	adaPattern    = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)
)

// Video is the playable result of a lookup.
type Video struct {
	VideoURL string `json:"video_url"`
	Cached   bool   `json:"cached"`
	AdaNo    string `json:"ada_no"`
}

// Fetcher resolves an identifier to a video on the faces backend.
type Fetcher interface {
	GetVideoURL(ctx context.Context, identifier string) (*Video, error)
}

type cacheEntry struct {
	video     Video
	expiresAt time.Time
}

// Service looks up videos and keeps recent answers in an LRU cache.
type Service struct {
	fetcher Fetcher
	cache   *lru.Cache
	ttl     time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// NewService creates a lookup service with a cache of size entries living ttl each.
func NewService(fetcher Fetcher, size int, ttl time.Duration, log zerolog.Logger) (*Service, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create video cache: %w", err)
	}
	return &Service{
		fetcher: fetcher,
		cache:   cache,
		ttl:     ttl,
		now:     time.Now,
		log:     log.With().Str("component", "video-lookup").Logger(),
	}, nil
}

// IsMobileNumber reports whether id is a 10-digit mobile number rather than an ADA number.
func IsMobileNumber(id string) bool {
	return mobilePattern.MatchString(id)
}

// Lookup resolves an ADA number or mobile number to its video.
func (s *Service) Lookup(ctx context.Context, identifier string) (*Video, error) {
	id := strings.TrimSpace(identifier)
	if !IsMobileNumber(id) && !adaPattern.MatchString(id) {
		return nil, ErrInvalidIdentifier
	}

	if v, ok := s.cached(id); ok {
		return v, nil
	}

	v, err := s.fetcher.GetVideoURL(ctx, id)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return nil, ErrVideoNotFound
		}
		s.log.Warn().Err(err).Str("identifier", id).Msg("video lookup failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if v == nil || strings.TrimSpace(v.VideoURL) == "" {
		return nil, ErrVideoNotFound
	}

	s.store(id, *v)
	return v, nil
}

// Forget drops any cached answer for identifier.
func (s *Service) Forget(identifier string) {
	s.cache.Remove(strings.TrimSpace(identifier))
}

func (s *Service) cached(id string) (*Video, bool) {
	val, found := s.cache.Get(id)
	if !found {
		return nil, false
	}

	entry := val.(cacheEntry)
	if s.now().After(entry.expiresAt) {
		s.cache.Remove(id)
		return nil, false
	}

	v := entry.video
	v.Cached = true
	return &v, true
}

func (s *Service) store(id string, v Video) {
	s.cache.Add(id, cacheEntry{video: v, expiresAt: s.now().Add(s.ttl)})
}
