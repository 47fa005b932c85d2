// Package imaging holds the image file plumbing shared by capture and
// analysis: decode, encode by extension, and NRGBA normalization.
package imaging

import (
	"errors"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format is an output image encoding.
type Format int

const (
	JPEG Format = iota
	PNG
	GIF
)

var ErrUnsupportedFormat = errors.New("imaging: unsupported image format")

var formats = map[string]Format{
	".jpg":  JPEG,
	".jpeg": JPEG,
	".png":  PNG,
	".gif":  GIF,
}

// Open loads an image from file and normalizes it to NRGBA.
func Open(filename string) (*image.NRGBA, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Decode(file)
}

// Decode reads an image from r and normalizes it to NRGBA.
func Decode(r io.Reader) (*image.NRGBA, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgba, nil
	}
	return Clone(img), nil
}

// Save writes img to filename; the format comes from the extension.
func Save(img image.Image, filename string) error {
	f, ok := formats[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return ErrUnsupportedFormat
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return Encode(file, img, f)
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format Format) error {
	switch format {
	case JPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case PNG:
		return png.Encode(w, img)
	case GIF:
		return gif.Encode(w, img, &gif.Options{NumColors: 256})
	default:
		return ErrUnsupportedFormat
	}
}

// Clone copies img into a fresh NRGBA with a zero-based bounds rectangle.
func Clone(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// ToNRGBA returns img as NRGBA without copying when possible.
func ToNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Rect.Min == image.Pt(0, 0) {
		return nrgba
	}
	return Clone(img)
}
