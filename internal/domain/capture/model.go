package capture

import (
	"context"
	"sync"
	"time"

	"github.com/hivoco/lens-kiosk/internal/domain/acquisition"
	"github.com/hivoco/lens-kiosk/internal/domain/submission"
	"github.com/hivoco/lens-kiosk/internal/domain/verification"
)

// Status is the state of a capture session.
type Status string

const (
	StatusIdle                 Status = "idle"
	StatusCameraOpen           Status = "camera_open"
	StatusPreviewing           Status = "previewing"
	StatusSubmitting           Status = "submitting"
	StatusAwaitingVerification Status = "awaiting_verification"
	StatusSucceeded            Status = "succeeded"
	StatusFailed               Status = "failed"
)

// SourceKind records where the session bytes came from.
type SourceKind string

const (
	SourceFile   SourceKind = "file"
	SourceCamera SourceKind = "camera"
)

// Problem is a recoverable, user-facing error kept on the session.
type Problem struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// FileInput is a file chosen by the user.
type FileInput struct {
	Name     string
	MimeType string
	Data     []byte
	// Size is the size reported by the client, zero when unknown.
	Size int64
}

// Session is one photo attempt. All fields are guarded by mu; read them
// through Snapshot.
type Session struct {
	mu sync.Mutex

	ID        string
	Profile   Profile
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time

	Source        SourceKind
	FileName      string
	MimeType      string
	Data          []byte
	OriginalBytes int64
	Width         int
	Height        int
	Compressed    bool

	Fields map[string]string

	ValidationError  *Problem
	CameraError      *Problem
	TransformWarning string

	Outcome  *submission.Outcome
	Attempts int

	surface   *acquisition.Surface
	cancel    context.CancelFunc
	done      chan struct{}
	attempt   int
	challenge *verification.Challenge
}

// View is a point-in-time copy of a session, safe to serialise.
type View struct {
	ID               string              `json:"id"`
	Object           string              `json:"object"`
	Profile          string              `json:"profile"`
	Status           Status              `json:"status"`
	Source           SourceKind          `json:"source,omitempty"`
	FileName         string              `json:"file_name,omitempty"`
	MimeType         string              `json:"mime_type,omitempty"`
	ByteSize         int64               `json:"byte_size,omitempty"`
	OriginalBytes    int64               `json:"original_bytes,omitempty"`
	Width            int                 `json:"width,omitempty"`
	Height           int                 `json:"height,omitempty"`
	Compressed       bool                `json:"compressed"`
	HasPreview       bool                `json:"has_preview"`
	CameraOpen       bool                `json:"camera_open"`
	RequiredFields   []string            `json:"required_fields"`
	Fields           map[string]string   `json:"fields,omitempty"`
	ValidationError  *Problem            `json:"validation_error,omitempty"`
	CameraError      *Problem            `json:"camera_error,omitempty"`
	TransformWarning string              `json:"transform_warning,omitempty"`
	Outcome          *submission.Outcome `json:"outcome,omitempty"`
	Challenge        *verification.View  `json:"challenge,omitempty"`
	Attempts         int                 `json:"attempts"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// Snapshot copies the session for callers outside the service.
func (s *Session) Snapshot() *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() *View {
	v := &View{
		ID:               s.ID,
		Object:           "capture.session",
		Profile:          s.Profile.Name,
		Status:           s.Status,
		Source:           s.Source,
		FileName:         s.FileName,
		MimeType:         s.MimeType,
		ByteSize:         int64(len(s.Data)),
		OriginalBytes:    s.OriginalBytes,
		Width:            s.Width,
		Height:           s.Height,
		Compressed:       s.Compressed,
		HasPreview:       len(s.Data) > 0,
		CameraOpen:       s.surface != nil && s.surface.IsOpen(),
		RequiredFields:   append([]string{}, s.Profile.RequiredFields...),
		ValidationError:  s.ValidationError,
		CameraError:      s.CameraError,
		TransformWarning: s.TransformWarning,
		Outcome:          s.Outcome,
		Attempts:         s.Attempts,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
	if len(s.Fields) > 0 {
		v.Fields = make(map[string]string, len(s.Fields))
		for k, val := range s.Fields {
			v.Fields[k] = val
		}
	}
	if s.challenge != nil {
		cv := s.challenge.Snapshot()
		v.Challenge = &cv
	}
	return v
}

// clearMediaLocked drops bytes and all derived metadata.
func (s *Session) clearMediaLocked() {
	s.Source = ""
	s.FileName = ""
	s.MimeType = ""
	s.Data = nil
	s.OriginalBytes = 0
	s.Width = 0
	s.Height = 0
	s.Compressed = false
	s.TransformWarning = ""
}
