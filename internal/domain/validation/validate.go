// Package validation enforces the local file-type and size policy that every
// image must pass before it can be previewed or submitted.
package validation

import (
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrUnsupportedType is matched by errors.Is for disallowed or unrecognised encodings.
	ErrUnsupportedType = errors.New("unsupported image type")
	// ErrTooLarge is matched by errors.Is for payloads over the size bound.
	ErrTooLarge = errors.New("image too large")
)

// Policy is the per-profile validation configuration.
type Policy struct {
	MaxBytes     int64
	AllowedTypes []string
}

// Error is a validation failure with a user-facing message.
type Error struct {
	Kind        error
	Message     string
	MimeType    string
	ActualBytes int64
}

func (e *Error) Error() string { return e.Message }

// Is makes errors.Is(err, ErrTooLarge) and friends work.
func (e *Error) Is(target error) bool { return target == e.Kind }

var typeLabels = map[string]string{
	"image/jpeg": "JPEG",
	"image/png":  "PNG",
	"image/webp": "WebP",
	"image/gif":  "GIF",
	"image/bmp":  "BMP",
	"image/tiff": "TIFF",
}

// Validate checks data against the policy. It returns the effective MIME type
// on success. Sniffed content wins over the declared type, so a renamed
// executable declared as image/png is still rejected.
func Validate(data []byte, declaredType string, byteSize int64, policy Policy) (string, error) {
	size := byteSize
	if n := int64(len(data)); n > size {
		size = n
	}

	if size == 0 {
		return "", &Error{Kind: ErrUnsupportedType, Message: "File is empty"}
	}

	declared := NormalizeType(declaredType)
	effective := declared
	if len(data) > 0 {
		sniffed := NormalizeType(mimetype.Detect(data).String())
		switch {
		case allowed(sniffed, policy.AllowedTypes):
			effective = sniffed
		case declared == "", declared == "application/octet-stream", allowed(declared, policy.AllowedTypes):
			effective = sniffed
		}
	}

	if !allowed(effective, policy.AllowedTypes) {
		got := effective
		if got == "" {
			got = "unknown"
		}
		return "", &Error{
			Kind:        ErrUnsupportedType,
			Message:     fmt.Sprintf("File type must be %s. Got %s", describeTypes(policy.AllowedTypes), got),
			MimeType:    got,
			ActualBytes: size,
		}
	}

	if policy.MaxBytes > 0 && size > policy.MaxBytes {
		err := TooLarge(policy.MaxBytes, size)
		err.MimeType = effective
		return "", err
	}

	return effective, nil
}

// TooLarge builds the ErrTooLarge error reporting the bound and the actual size.
func TooLarge(maxBytes, actual int64) *Error {
	return &Error{
		Kind: ErrTooLarge,
		Message: fmt.Sprintf("File size must be less than %.1fMB. Got %.2fMB",
			float64(maxBytes)/1024/1024, float64(actual)/1024/1024),
		ActualBytes: actual,
	}
}

// NormalizeType lower-cases a MIME type, drops parameters and folds common aliases.
func NormalizeType(t string) string {
	t = strings.TrimSpace(strings.ToLower(t))
	if t == "" {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(t); err == nil {
		t = parsed
	}
	switch t {
	case "image/jpg", "image/pjpeg":
		return "image/jpeg"
	case "image/x-png":
		return "image/png"
	}
	return t
}

// FormatSize renders a byte count with 1024-based units, e.g. "2.5 MB".
func FormatSize(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
	return s + " " + units[i]
}

func allowed(t string, list []string) bool {
	if t == "" {
		return false
	}
	for _, a := range list {
		if NormalizeType(a) == t {
			return true
		}
	}
	return false
}

func describeTypes(list []string) string {
	labels := make([]string, 0, len(list))
	for _, t := range list {
		label, ok := typeLabels[NormalizeType(t)]
		if !ok {
			label = t
		}
		labels = append(labels, label)
	}
	switch len(labels) {
	case 0:
		return "an allowed image type"
	case 1:
		return labels[0]
	case 2:
		return labels[0] + " or " + labels[1]
	}
	return strings.Join(labels[:len(labels)-1], ", ") + ", or " + labels[len(labels)-1]
}
