package faces

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/hivoco/lens-kiosk/internal/domain/validation"
)

const (
	zipMIME     = "application/zip"
	sniffLength = 3072
)

var (
	ErrNotZip        = errors.New("archive is not a zip file")
	ErrTooLarge      = errors.New("archive too large")
	ErrUploadAborted = errors.New("upload cancelled")
)

// Archive is a face-photo zip streamed from an operator.
type Archive struct {
	Name     string
	MimeType string
	// Size is the declared length, or -1 when unknown.
	Size int64
	Body io.Reader
}

// Result mirrors the backend ingestion reply.
type Result struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// Uploader streams an archive to the faces backend.
type Uploader interface {
	UploadFaces(ctx context.Context, name string, body io.Reader) (*Result, error)
}

// Service validates archives and hands them to the backend without buffering them.
type Service struct {
	uploader Uploader
	maxBytes int64
	log      zerolog.Logger
}

// NewService creates an ingestion service bounded to maxBytes per archive.
func NewService(uploader Uploader, maxBytes int64, log zerolog.Logger) *Service {
	return &Service{
		uploader: uploader,
		maxBytes: maxBytes,
		log:      log.With().Str("component", "face-ingestion").Logger(),
	}
}

// Ingest checks that a is a zip within the size bound and uploads it.
// Cancelling ctx aborts the transfer.
func (s *Service) Ingest(ctx context.Context, a Archive) (*Result, error) {
	if a.Body == nil {
		return nil, ErrNotZip
	}
	if a.Size > s.maxBytes {
		return nil, s.tooLarge(a.Size)
	}

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(a.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	if n == 0 {
		return nil, ErrNotZip
	}
	head = head[:n]

	if !isZip(a.Name, a.MimeType, head) {
		return nil, ErrNotZip
	}

	body := &boundedReader{r: io.MultiReader(bytes.NewReader(head), a.Body), remaining: s.maxBytes}
	res, err := s.uploader.UploadFaces(ctx, a.Name, body)
	if body.exceeded.Load() {
		return nil, s.tooLarge(s.maxBytes + 1)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			s.log.Info().Str("archive", a.Name).Int64("sent_bytes", body.read.Load()).Msg("face upload aborted")
			return nil, ErrUploadAborted
		}
		return nil, err
	}

	out := &Result{Status: res.Status, Message: strings.TrimSpace(res.Message)}
	if out.Status {
		out.Message = strings.TrimSpace("Upload successful " + out.Message)
	} else if out.Message == "" {
		out.Message = "Upload failed"
	}

	s.log.Info().
		Str("archive", a.Name).
		Int64("bytes", body.read.Load()).
		Bool("status", out.Status).
		Msg("face archive uploaded")
	return out, nil
}

func (s *Service) tooLarge(actual int64) error {
	return fmt.Errorf("%w: File size must be less than %s (Your file: %s)",
		ErrTooLarge, validation.FormatSize(s.maxBytes), validation.FormatSize(actual))
}

// isZip requires a zip name or label, and zip content either way.
func isZip(name, declared string, head []byte) bool {
	labelled := false
	switch validation.NormalizeType(declared) {
	case zipMIME, "application/x-zip-compressed":
		labelled = true
	}
	if !labelled && !strings.HasSuffix(strings.ToLower(name), ".zip") {
		return false
	}
	return mimetype.Detect(head).Is(zipMIME)
}

// boundedReader fails once more than remaining bytes have been read.
type boundedReader struct {
	r         io.Reader
	remaining int64
	read      atomic.Int64
	exceeded  atomic.Bool
}

func (b *boundedReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	b.read.Add(int64(n))
	b.remaining -= int64(n)
	if b.remaining < 0 {
		b.exceeded.Store(true)
		return n, ErrTooLarge
	}
	return n, err
}
