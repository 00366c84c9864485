package imaging

import (
	"encoding/binary"
	"image"

	"golang.org/x/image/draw"
)

const (
	exifOrientationTag = 0x0112
	tiffTypeShort      = 3
)

// jpegOrientation returns the EXIF orientation (1-8) of a JPEG, or 1 when the
// file carries none.
func jpegOrientation(b []byte) int {
	if len(b) < 4 || b[0] != 0xFF || b[1] != 0xD8 {
		return 1
	}
	for i := 2; i+4 <= len(b); {
		if b[i] != 0xFF {
			return 1
		}
		marker := b[i+1]
		if marker == 0xD9 || marker == 0xDA {
			return 1
		}
		segLen := int(binary.BigEndian.Uint16(b[i+2 : i+4]))
		start, end := i+4, i+2+segLen
		if segLen < 2 || end > len(b) {
			return 1
		}
		if marker == 0xE1 && end-start >= 6 && string(b[start:start+6]) == "Exif\x00\x00" {
			return tiffOrientation(b[start+6 : end])
		}
		i = end
	}
	return 1
}

func tiffOrientation(t []byte) int {
	if len(t) < 8 {
		return 1
	}
	var order binary.ByteOrder
	switch string(t[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 1
	}
	if order.Uint16(t[2:4]) != 42 {
		return 1
	}

	ifd := int(order.Uint32(t[4:8]))
	if ifd < 8 || ifd+2 > len(t) {
		return 1
	}
	entries := int(order.Uint16(t[ifd : ifd+2]))
	for n, off := 0, ifd+2; n < entries && off+12 <= len(t); n, off = n+1, off+12 {
		if order.Uint16(t[off:off+2]) != exifOrientationTag {
			continue
		}
		if order.Uint16(t[off+2:off+4]) != tiffTypeShort {
			return 1
		}
		if v := int(order.Uint16(t[off+8 : off+10])); v >= 1 && v <= 8 {
			return v
		}
		return 1
	}
	return 1
}

// swapsAxes reports whether an orientation turns the image on its side.
func swapsAxes(orientation int) bool {
	return orientation >= 5 && orientation <= 8
}

// applyOrientation returns src rendered upright for the given EXIF orientation.
func applyOrientation(src image.Image, orientation int) image.Image {
	if orientation <= 1 || orientation > 8 {
		return src
	}

	b := src.Bounds()
	in := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(in, in.Bounds(), src, b.Min, draw.Src)
	w, h := b.Dx(), b.Dy()

	dw, dh := w, h
	if swapsAxes(orientation) {
		dw, dh = h, w
	}
	out := image.NewRGBA(image.Rect(0, 0, dw, dh))

	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			var sx, sy int
			switch orientation {
			case 2:
				sx, sy = w-1-x, y
			case 3:
				sx, sy = w-1-x, h-1-y
			case 4:
				sx, sy = x, h-1-y
			case 5:
				sx, sy = y, x
			case 6:
				sx, sy = y, h-1-x
			case 7:
				sx, sy = w-1-y, h-1-x
			case 8:
				sx, sy = w-1-y, x
			}
			si := in.PixOffset(sx, sy)
			di := out.PixOffset(x, y)
			copy(out.Pix[di:di+4], in.Pix[si:si+4])
		}
	}
	return out
}
