package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Status is the pipeline stage a video job is in.
type Status string

const (
	StatusQueued            Status = "queued"
	StatusPhotoProcessing   Status = "photo_processing"
	StatusPhotoDone         Status = "photo_done"
	StatusLipsyncProcessing Status = "lipsync_processing"
	StatusLipsyncDone       Status = "lipsync_done"
	StatusStitching         Status = "stitching"
	StatusUploaded          Status = "uploaded"
	StatusSent              Status = "sent"
	StatusFailed            Status = "failed"
)

var statuses = map[Status]struct{}{
	StatusQueued: {}, StatusPhotoProcessing: {}, StatusPhotoDone: {},
	StatusLipsyncProcessing: {}, StatusLipsyncDone: {}, StatusStitching: {},
	StatusUploaded: {}, StatusSent: {}, StatusFailed: {},
}

var failedStages = map[string]struct{}{
	"photo": {}, "lipsync": {}, "stitch": {}, "delivery": {},
}

var pageSizes = map[int]struct{}{10: {}, 20: {}, 50: {}, 100: {}}

const (
	DefaultPageSize = 20
	dateLayout      = "2006-01-02"
)

// ErrInvalidFilter marks a filter the backend would not accept.
var ErrInvalidFilter = errors.New("invalid job filter")

// Job is one personalised video request as tracked by the video backend.
type Job struct {
	ID                 int64   `json:"id"`
	UserID             string  `json:"user_id"`
	MobileNumber       string  `json:"mobile_number"`
	Gender             string  `json:"gender"`
	AttributeLove      string  `json:"attribute_love"`
	RelationshipStatus string  `json:"relationship_status"`
	Vibe               string  `json:"vibe"`
	Status             Status  `json:"status"`
	RetryCount         *int    `json:"retry_count"`
	FailedStage        *string `json:"failed_stage"`
	LastErrorCode      *string `json:"last_error_code"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}

// Filter narrows a job listing. Zero values mean "no filter".
type Filter struct {
	Status      Status
	FailedStage string
	UserID      string
	StartDate   string
	EndDate     string
	Page        int
	PageSize    int
}

// Page is one page of jobs.
type Page struct {
	Items      []Job  `json:"items"`
	Total      int    `json:"total"`
	TotalPages int    `json:"total_pages"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	Message    string `json:"message,omitempty"`
}

// Lister fetches job pages from the video backend.
type Lister interface {
	ListJobs(ctx context.Context, f Filter) (*Page, error)
}

// Normalize applies defaults and rejects out-of-range values.
func (f Filter) Normalize() (Filter, error) {
	f.UserID = strings.TrimSpace(f.UserID)
	f.FailedStage = strings.TrimSpace(f.FailedStage)

	if f.Status != "" {
		if _, ok := statuses[f.Status]; !ok {
			return f, fmt.Errorf("%w: unknown status %q", ErrInvalidFilter, f.Status)
		}
	}
	if f.FailedStage != "" {
		if _, ok := failedStages[f.FailedStage]; !ok {
			return f, fmt.Errorf("%w: unknown failed_stage %q", ErrInvalidFilter, f.FailedStage)
		}
	}

	var start, end time.Time
	var err error
	if f.StartDate != "" {
		if start, err = time.Parse(dateLayout, f.StartDate); err != nil {
			return f, fmt.Errorf("%w: start_date must be YYYY-MM-DD", ErrInvalidFilter)
		}
	}
	if f.EndDate != "" {
		if end, err = time.Parse(dateLayout, f.EndDate); err != nil {
			return f, fmt.Errorf("%w: end_date must be YYYY-MM-DD", ErrInvalidFilter)
		}
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return f, fmt.Errorf("%w: start_date is after end_date", ErrInvalidFilter)
	}

	if f.Page == 0 {
		f.Page = 1
	}
	if f.Page < 1 {
		return f, fmt.Errorf("%w: page must be at least 1", ErrInvalidFilter)
	}
	if f.PageSize == 0 {
		f.PageSize = DefaultPageSize
	}
	if _, ok := pageSizes[f.PageSize]; !ok {
		return f, fmt.Errorf("%w: page_size must be one of 10, 20, 50, 100", ErrInvalidFilter)
	}
	return f, nil
}

// Service lists video jobs for operators.
type Service struct {
	lister Lister
	log    zerolog.Logger
}

// NewService creates a job listing service.
func NewService(lister Lister, log zerolog.Logger) *Service {
	return &Service{
		lister: lister,
		log:    log.With().Str("component", "video-jobs").Logger(),
	}
}

// List validates f and fetches the matching page.
func (s *Service) List(ctx context.Context, f Filter) (*Page, error) {
	f, err := f.Normalize()
	if err != nil {
		return nil, err
	}

	page, err := s.lister.ListJobs(ctx, f)
	if err != nil {
		return nil, err
	}
	if page.Items == nil {
		page.Items = []Job{}
	}
	page.Page = f.Page
	page.PageSize = f.PageSize
	if page.TotalPages == 0 && page.Total > 0 {
		page.TotalPages = (page.Total + f.PageSize - 1) / f.PageSize
	}

	s.log.Debug().
		Str("status", string(f.Status)).
		Int("page", f.Page).
		Int("total", page.Total).
		Msg("listed video jobs")
	return page, nil
}

// Count returns the number of jobs currently in status.
func (s *Service) Count(ctx context.Context, status Status) (int, error) {
	page, err := s.List(ctx, Filter{Status: status, PageSize: 10})
	if err != nil {
		return 0, err
	}
	return page.Total, nil
}
