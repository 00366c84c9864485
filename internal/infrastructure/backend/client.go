package backend

import (
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/hivoco/lens-kiosk/internal/config"
	"github.com/hivoco/lens-kiosk/internal/domain/faces"
	"github.com/hivoco/lens-kiosk/internal/domain/jobs"
	"github.com/hivoco/lens-kiosk/internal/domain/submission"
	"github.com/hivoco/lens-kiosk/internal/domain/verification"
	"github.com/hivoco/lens-kiosk/internal/domain/videos"
)

const userAgent = "Lens-Kiosk-Gateway/1.0"

const (
	apiFaces = "faces"
	apiVideo = "video"
)

var (
	_ submission.Backend    = (*Client)(nil)
	_ verification.Verifier = (*Client)(nil)
	_ jobs.Lister           = (*Client)(nil)
	_ videos.Fetcher        = (*Client)(nil)
	_ faces.Uploader        = (*Client)(nil)
)

// Options configures the backend clients.
type Options struct {
	FacesURL      string
	VideoURL      string
	Timeout       time.Duration
	UploadTimeout time.Duration
	TopK          int
	Similarity    float64
}

// Client talks to the face recognition API and the video API. It implements
// the submission, verification, jobs, videos and faces ports.
type Client struct {
	faces     *resty.Client
	upload    *resty.Client
	video     *resty.Client
	topK      int
	threshold float64
	sanitizer *bluemonday.Policy
	log       zerolog.Logger
}

// NewClient creates backend clients from the gateway configuration.
func NewClient(cfg *config.Config, log zerolog.Logger) *Client {
	return New(Options{
		FacesURL:      cfg.FacesAPIURL,
		VideoURL:      cfg.VideoAPIURL,
		Timeout:       cfg.BackendTimeout,
		UploadTimeout: cfg.UploadTimeout,
		TopK:          cfg.SearchTopK,
		Similarity:    cfg.SearchSimilarity,
	}, log)
}

// New creates backend clients from explicit options.
func New(opts Options, log zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 2 * time.Hour
	}
	if opts.TopK <= 0 {
		opts.TopK = 6
	}

	log = log.With().Str("component", "backend-client").Logger()
	return &Client{
		faces:     newResty(opts.FacesURL, opts.Timeout),
		upload:    newResty(opts.FacesURL, opts.UploadTimeout),
		video:     newResty(opts.VideoURL, opts.Timeout),
		topK:      opts.TopK,
		threshold: opts.Similarity,
		sanitizer: bluemonday.StrictPolicy(),
		log:       log,
	}
}

func newResty(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
}
