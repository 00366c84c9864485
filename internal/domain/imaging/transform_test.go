package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var kioskBounds = Options{MaxWidth: 1920, MaxHeight: 1440, Quality: 0.85}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: uint8((x ^ y) & 0xff), A: 255})
		}
	}
	return img
}

func jpegBytes(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}))
	return buf.Bytes()
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// withOrientation splices a big-endian EXIF APP1 segment right after SOI.
func withOrientation(data []byte, orientation uint16) []byte {
	tiff := []byte{'M', 'M', 0, 42, 0, 0, 0, 8, 0, 1}
	entry := make([]byte, 12)
	binary.BigEndian.PutUint16(entry[0:], exifOrientationTag)
	binary.BigEndian.PutUint16(entry[2:], tiffTypeShort)
	binary.BigEndian.PutUint32(entry[4:], 1)
	binary.BigEndian.PutUint16(entry[8:], orientation)
	tiff = append(tiff, entry...)
	tiff = append(tiff, 0, 0, 0, 0)

	payload := append([]byte("Exif\x00\x00"), tiff...)
	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	seg = append(seg, payload...)

	out := append([]byte{}, data[:2]...)
	out = append(out, seg...)
	return append(out, data[2:]...)
}

func TestFit(t *testing.T) {
	tests := []struct {
		name string
		in   Size
		want Size
	}{
		{name: "within bounds untouched", in: Size{800, 600}, want: Size{800, 600}},
		{name: "exact bounds untouched", in: Size{1920, 1440}, want: Size{1920, 1440}},
		{name: "wide image limited by width", in: Size{3840, 1080}, want: Size{1920, 540}},
		{name: "tall image limited by height", in: Size{1000, 2880}, want: Size{500, 1440}},
		{name: "proportional 4:3", in: Size{4000, 3000}, want: Size{1920, 1440}},
		{name: "extreme strip keeps one pixel", in: Size{100000, 10}, want: Size{1920, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fit(tt.in, 1920, 1440))
		})
	}
}

func TestCompressDownscalesIntoBounds(t *testing.T) {
	data := pngBytes(t, gradient(2400, 1800))

	res, err := Compress(data, kioskBounds)
	require.NoError(t, err)

	assert.Equal(t, OutputMimeType, res.MimeType)
	assert.Equal(t, Size{1920, 1440}, res.Size)

	got, err := Dimensions(res.Data)
	require.NoError(t, err)
	assert.Equal(t, res.Size, got)
	assert.LessOrEqual(t, got.Width, kioskBounds.MaxWidth)
	assert.LessOrEqual(t, got.Height, kioskBounds.MaxHeight)
}

func TestCompressNeverUpscales(t *testing.T) {
	data := pngBytes(t, gradient(120, 80))

	res, err := Compress(data, kioskBounds)
	require.NoError(t, err)
	assert.Equal(t, Size{120, 80}, res.Size)
	assert.Equal(t, OutputMimeType, res.MimeType)
}

func TestCompressIsDeterministic(t *testing.T) {
	data := pngBytes(t, gradient(640, 480))

	a, err := Compress(data, kioskBounds)
	require.NoError(t, err)
	b, err := Compress(data, kioskBounds)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a.Data, b.Data))
}

func TestCompressIsIdempotentOnSize(t *testing.T) {
	inputs := map[string][]byte{
		"png":             pngBytes(t, gradient(2400, 1800)),
		"low quality jpg": jpegBytes(t, gradient(800, 600), 30),
		"high quality":    jpegBytes(t, gradient(800, 600), 100),
	}

	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			first, err := Compress(data, kioskBounds)
			require.NoError(t, err)
			second, err := Compress(first.Data, kioskBounds)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(second.Data), len(first.Data))
		})
	}
}

func TestCompressKeepsSmallerJPEG(t *testing.T) {
	data := jpegBytes(t, gradient(320, 240), 20)

	res, err := Compress(data, Options{MaxWidth: 1920, MaxHeight: 1440, Quality: 1})
	require.NoError(t, err)
	assert.True(t, res.Unchanged)
	assert.True(t, bytes.Equal(data, res.Data))
}

func TestCompressAppliesOrientation(t *testing.T) {
	data := withOrientation(jpegBytes(t, gradient(40, 20), 90), 6)

	dims, err := Dimensions(data)
	require.NoError(t, err)
	assert.Equal(t, Size{20, 40}, dims)

	res, err := Compress(data, kioskBounds)
	require.NoError(t, err)
	assert.False(t, res.Unchanged)
	assert.Equal(t, Size{20, 40}, res.Size)
}

func TestJPEGOrientation(t *testing.T) {
	base := jpegBytes(t, gradient(8, 8), 90)
	for o := uint16(1); o <= 8; o++ {
		assert.Equal(t, int(o), jpegOrientation(withOrientation(base, o)))
	}
	assert.Equal(t, 1, jpegOrientation(base))
	assert.Equal(t, 1, jpegOrientation([]byte("nope")))
}

func TestApplyOrientationMovesTopLeftPixel(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	marker := color.RGBA{R: 255, A: 255}
	src.Set(0, 0, marker)

	tests := []struct {
		orientation int
		want        image.Point
	}{
		{2, image.Pt(2, 0)},
		{3, image.Pt(2, 1)},
		{4, image.Pt(0, 1)},
		{5, image.Pt(0, 0)},
		{6, image.Pt(1, 0)},
		{7, image.Pt(1, 2)},
		{8, image.Pt(0, 2)},
	}
	for _, tt := range tests {
		out := applyOrientation(src, tt.orientation)
		r, _, _, _ := out.At(tt.want.X, tt.want.Y).RGBA()
		if r>>8 != 255 {
			t.Errorf("orientation %d: marker not at %v", tt.orientation, tt.want)
		}
	}
}

func TestCompressErrors(t *testing.T) {
	_, err := Compress([]byte("definitely not an image"), kioskBounds)
	assert.True(t, errors.Is(err, ErrEncodeFailure))

	_, err = Compress(pngBytes(t, gradient(4, 4)), Options{MaxWidth: 0, MaxHeight: 10})
	assert.True(t, errors.Is(err, ErrEncodeFailure))

	_, err = Compress(pngBytes(t, gradient(4, 4)), Options{MaxWidth: 10, MaxHeight: 10, Quality: 2})
	assert.True(t, errors.Is(err, ErrEncodeFailure))

	_, err = Dimensions([]byte{0x00})
	assert.True(t, errors.Is(err, ErrEncodeFailure))
}

// withDeclaredSize rewrites the IHDR dimensions of a PNG without touching its pixel data.
func withDeclaredSize(data []byte, w, h uint32) []byte {
	out := append([]byte{}, data...)
	binary.BigEndian.PutUint32(out[16:], w)
	binary.BigEndian.PutUint32(out[20:], h)
	binary.BigEndian.PutUint32(out[29:], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestCompressRejectsOversizedDimensionsBeforeDecoding(t *testing.T) {
	bomb := withDeclaredSize(pngBytes(t, gradient(2, 2)), 60000, 60000)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(bomb))
	require.NoError(t, err)
	require.Equal(t, 60000, cfg.Width)

	_, err = Compress(bomb, kioskBounds)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooManyPixels))
	assert.False(t, errors.Is(err, ErrEncodeFailure))
	assert.Contains(t, err.Error(), "at most 40.0 megapixels")
	assert.Contains(t, err.Error(), "60000x60000")
}

func TestCompressMaxPixelsOption(t *testing.T) {
	data := pngBytes(t, gradient(100, 100))

	_, err := Compress(data, Options{MaxWidth: 50, MaxHeight: 50, MaxPixels: 9999})
	assert.True(t, errors.Is(err, ErrTooManyPixels))

	res, err := Compress(data, Options{MaxWidth: 50, MaxHeight: 50, MaxPixels: 10000})
	require.NoError(t, err)
	assert.Equal(t, Size{Width: 50, Height: 50}, res.Size)
}
