// Package imaging implements the optional resize/re-encode step applied to a
// capture before submission. Output is always baseline JPEG and is a pure
// function of the input bytes and Options.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	// Decoders for the accepted input encodings.
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// OutputMimeType is the single normalized encoding produced by Compress.
const OutputMimeType = "image/jpeg"

var (
	// ErrEncodeFailure is matched by errors.Is when an image cannot be decoded or re-encoded.
	ErrEncodeFailure = errors.New("image encode failure")
	// ErrTooManyPixels is returned before decoding when the header declares
	// more pixels than Options.MaxPixels allows.
	ErrTooManyPixels = errors.New("image dimensions too large")
)

// Options bounds the output of Compress.
type Options struct {
	MaxWidth  int
	MaxHeight int
	// Quality is in (0, 1]; 0 means DefaultQuality.
	Quality float64
	// MaxPixels bounds width*height of the decoded source; 0 means DefaultMaxPixels.
	MaxPixels int64
}

const (
	// DefaultQuality is used when Options.Quality is zero.
	DefaultQuality = 0.85
	// DefaultMaxPixels is used when Options.MaxPixels is zero.
	DefaultMaxPixels = 40_000_000
)

// Size is an image's pixel dimensions.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Result is the outcome of Compress.
type Result struct {
	Data     []byte
	MimeType string
	Size     Size
	// Unchanged is true when the input bytes were returned as-is.
	Unchanged bool
}

// Dimensions returns the upright pixel size of an encoded image.
func Dimensions(data []byte) (Size, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Size{}, fmt.Errorf("%w: decode: %v", ErrEncodeFailure, err)
	}
	if swapsAxes(jpegOrientation(data)) {
		return Size{Width: cfg.Height, Height: cfg.Width}, nil
	}
	return Size{Width: cfg.Width, Height: cfg.Height}, nil
}

// Fit returns the size src should be scaled to so that it fits inside
// maxW x maxH, keeping the aspect ratio. It never upscales.
func Fit(src Size, maxW, maxH int) Size {
	if src.Width <= maxW && src.Height <= maxH {
		return src
	}
	ratio := math.Min(float64(maxW)/float64(src.Width), float64(maxH)/float64(src.Height))
	w := int(math.Round(float64(src.Width) * ratio))
	h := int(math.Round(float64(src.Height) * ratio))
	return Size{Width: min(max(w, 1), maxW), Height: min(max(h, 1), maxH)}
}

// Compress checks the declared pixel count, decodes data, applies EXIF orientation, downsizes it to fit the
// bounds and re-encodes it as JPEG. When the input is already an upright JPEG
// within bounds and re-encoding would not make it smaller, the input is
// returned unchanged, so compressing an output again never grows it.
func Compress(data []byte, opts Options) (*Result, error) {
	if opts.MaxWidth <= 0 || opts.MaxHeight <= 0 {
		return nil, fmt.Errorf("%w: bounds must be positive", ErrEncodeFailure)
	}
	quality := opts.Quality
	if quality == 0 {
		quality = DefaultQuality
	}
	if quality < 0 || quality > 1 {
		return nil, fmt.Errorf("%w: quality %.2f out of range", ErrEncodeFailure, quality)
	}

	maxPixels := opts.MaxPixels
	if maxPixels == 0 {
		maxPixels = DefaultMaxPixels
	}
	hdr, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrEncodeFailure, err)
	}
	if pixels := int64(hdr.Width) * int64(hdr.Height); maxPixels > 0 && pixels > maxPixels {
		return nil, fmt.Errorf("%w: Image must be at most %.1f megapixels. Got %dx%d",
			ErrTooManyPixels, float64(maxPixels)/1e6, hdr.Width, hdr.Height)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrEncodeFailure, err)
	}

	orientation := 1
	if format == "jpeg" {
		orientation = jpegOrientation(data)
	}
	upright := applyOrientation(src, orientation)

	b := upright.Bounds()
	current := Size{Width: b.Dx(), Height: b.Dy()}
	target := Fit(current, opts.MaxWidth, opts.MaxHeight)

	// JPEG has no alpha channel; flatten onto white like a canvas export would.
	dst := image.NewRGBA(image.Rect(0, 0, target.Width, target.Height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if target == current {
		draw.Draw(dst, dst.Bounds(), upright, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), upright, b, draw.Over, nil)
	}

	var out bytes.Buffer
	q := int(math.Round(quality * 100))
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: max(q, 1)}); err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrEncodeFailure, err)
	}

	if format == "jpeg" && orientation == 1 && target == current && out.Len() >= len(data) {
		return &Result{Data: data, MimeType: OutputMimeType, Size: current, Unchanged: true}, nil
	}

	return &Result{Data: out.Bytes(), MimeType: OutputMimeType, Size: target}, nil
}
