package acquisition

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"syscall"
)

// Facing is the requested camera direction.
type Facing string

const (
	FacingUser        Facing = "user"
	FacingEnvironment Facing = "environment"
)

// Preference describes the stream a caller would like. Width and Height are
// ideal values; drivers fall back to whatever the device offers.
type Preference struct {
	Facing Facing
	Width  int
	Height int
	// Secure reports whether the requesting client reached us over TLS or loopback.
	Secure bool
}

// Camera opens streams on a physical or emulated device.
type Camera interface {
	Open(ctx context.Context, pref Preference) (Stream, error)
}

// Stream is an open device stream. Holding one holds the device lock.
type Stream interface {
	// Capture encodes the current frame as a JPEG still.
	Capture(ctx context.Context) ([]byte, error)
	Close() error
	Label() string
}

var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrDeviceNotFound   = errors.New("camera not found")
	ErrDeviceBusy       = errors.New("camera busy")
	ErrInsecureContext  = errors.New("camera requires secure context")
	// ErrNotOpen is returned when capturing from a closed or missing stream.
	ErrNotOpen = errors.New("camera not open")
)

// Error is an acquisition failure with per-category user guidance.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

var guidance = map[error]string{
	ErrPermissionDenied: "Camera permission denied. Check device access settings.",
	ErrDeviceNotFound:   "No camera found on this device.",
	ErrDeviceBusy:       "Camera in use by another app.",
	ErrInsecureContext:  "Camera requires HTTPS or localhost.",
	ErrNotOpen:          "Camera is not open.",
}

// NewError builds an Error for one of the sentinel kinds.
func NewError(kind, cause error) *Error {
	msg, ok := guidance[kind]
	if !ok {
		msg = "Unable to access camera."
	}
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// Classify maps a driver or OS error onto the acquisition taxonomy by
// category. Errors that already carry a kind are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var aerr *Error
	if errors.As(err, &aerr) {
		return err
	}

	for _, kind := range []error{ErrPermissionDenied, ErrDeviceNotFound, ErrDeviceBusy, ErrInsecureContext} {
		if errors.Is(err, kind) {
			return NewError(kind, err)
		}
	}

	switch {
	case errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		return NewError(ErrPermissionDenied, err)
	case errors.Is(err, syscall.EBUSY):
		return NewError(ErrDeviceBusy, err)
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENODEV), errors.Is(err, syscall.ENXIO):
		return NewError(ErrDeviceNotFound, err)
	}

	// Some drivers only surface the errno text.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission denied"):
		return NewError(ErrPermissionDenied, err)
	case strings.Contains(msg, "busy"):
		return NewError(ErrDeviceBusy, err)
	case strings.Contains(msg, "no such device"), strings.Contains(msg, "not found"):
		return NewError(ErrDeviceNotFound, err)
	}
	return NewError(ErrDeviceBusy, err)
}
