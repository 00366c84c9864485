package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/hivoco/lens-kiosk/internal/domain/acquisition"
	"github.com/hivoco/lens-kiosk/internal/domain/capture"
	"github.com/hivoco/lens-kiosk/internal/domain/validation"
	capturereq "github.com/hivoco/lens-kiosk/internal/interfaces/httpserver/requests/capture"
)

// MaxImageUpload caps how much of an uploaded image is read into memory.
// Profiles enforce their own, smaller limits.
const MaxImageUpload = 64 << 20

// CaptureHandler handles capture session requests.
type CaptureHandler struct {
	service  capture.Service
	profiles capture.Profiles
}

// NewCaptureHandler creates a new capture handler.
func NewCaptureHandler(service capture.Service, profiles capture.Profiles) *CaptureHandler {
	return &CaptureHandler{service: service, profiles: profiles}
}

// Profiles returns the configured capture profiles.
func (h *CaptureHandler) Profiles() capture.Profiles {
	return h.profiles
}

func (h *CaptureHandler) Create(ctx context.Context, req *capturereq.CreateSessionRequest) (*capture.View, error) {
	return h.service.Create(ctx, req.Profile)
}

func (h *CaptureHandler) Get(ctx context.Context, id string) (*capture.View, error) {
	return h.service.Get(ctx, id)
}

func (h *CaptureHandler) List(ctx context.Context) ([]*capture.View, error) {
	return h.service.List(ctx)
}

func (h *CaptureHandler) Delete(ctx context.Context, id string) error {
	return h.service.Delete(ctx, id)
}

// ChooseFile reads the uploaded file and hands it to the session.
func (h *CaptureHandler) ChooseFile(ctx context.Context, id string, fh *multipart.FileHeader) (*capture.View, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxImageUpload))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return h.service.ChooseFile(ctx, id, capture.FileInput{
		Name:     fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Data:     data,
		Size:     fh.Size,
	})
}

// RejectOversized reports an upload cut off at the transport limit against the
// session's profile bound. The session itself is left untouched.
func (h *CaptureHandler) RejectOversized(ctx context.Context, id string, size int64) (*capture.View, error) {
	view, err := h.service.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	limit := int64(MaxImageUpload)
	if p, ok := h.profiles[view.Profile]; ok && p.Policy.MaxBytes > 0 {
		limit = p.Policy.MaxBytes
	}
	return view, validation.TooLarge(limit, size)
}

// OpenCamera opens the camera for the session. secure reports whether the
// calling page runs in a secure context.
func (h *CaptureHandler) OpenCamera(ctx context.Context, id string, req *capturereq.OpenCameraRequest, secure bool) (*capture.View, error) {
	facing := acquisition.FacingUser
	if req.Facing == string(acquisition.FacingEnvironment) {
		facing = acquisition.FacingEnvironment
	}
	return h.service.OpenCamera(ctx, id, acquisition.Preference{
		Facing: facing,
		Width:  req.Width,
		Height: req.Height,
		Secure: secure,
	})
}

func (h *CaptureHandler) Capture(ctx context.Context, id string) (*capture.View, error) {
	return h.service.Capture(ctx, id)
}

func (h *CaptureHandler) CancelCamera(ctx context.Context, id string) (*capture.View, error) {
	return h.service.CancelCamera(ctx, id)
}

func (h *CaptureHandler) Retake(ctx context.Context, id string) (*capture.View, error) {
	return h.service.Retake(ctx, id)
}

func (h *CaptureHandler) SetFields(ctx context.Context, id string, req *capturereq.SetFieldsRequest) (*capture.View, error) {
	return h.service.SetFields(ctx, id, req.Fields)
}

// Submit starts a submission and, when wait is set, blocks until it settles.
func (h *CaptureHandler) Submit(ctx context.Context, id string, wait bool) (*capture.View, error) {
	view, err := h.service.Submit(ctx, id)
	if err != nil || !wait {
		return view, err
	}
	return h.service.Wait(ctx, id)
}

func (h *CaptureHandler) CancelSubmission(ctx context.Context, id string) (*capture.View, error) {
	return h.service.CancelSubmission(ctx, id)
}

func (h *CaptureHandler) Reset(ctx context.Context, id string) (*capture.View, error) {
	return h.service.Reset(ctx, id)
}

func (h *CaptureHandler) Preview(ctx context.Context, id string) ([]byte, string, error) {
	return h.service.Preview(ctx, id)
}

func (h *CaptureHandler) EnterDigit(ctx context.Context, id string, req *capturereq.DigitRequest) (*capture.View, error) {
	return h.service.EnterDigit(ctx, id, *req.Index, req.Value)
}

func (h *CaptureHandler) Paste(ctx context.Context, id string, req *capturereq.PasteRequest) (*capture.View, error) {
	return h.service.PasteCode(ctx, id, req.Code)
}

func (h *CaptureHandler) Backspace(ctx context.Context, id string, req *capturereq.BackspaceRequest) (*capture.View, error) {
	return h.service.Backspace(ctx, id, *req.Index)
}

func (h *CaptureHandler) Verify(ctx context.Context, id string) (*capture.View, error) {
	return h.service.Verify(ctx, id)
}

func (h *CaptureHandler) Resend(ctx context.Context, id string) (*capture.View, error) {
	return h.service.ResendCode(ctx, id)
}

func (h *CaptureHandler) AbandonChallenge(ctx context.Context, id string) (*capture.View, error) {
	return h.service.AbandonChallenge(ctx, id)
}
