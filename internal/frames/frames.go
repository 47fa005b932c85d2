// Package frames implements a snappy-compressed append-only archive of raw
// NRGBA screen frames. Encoding raw RGB avoids the PNG encode cost on the
// capture path; the archive exists for lossless after-the-fact review.
//
// Record layout (inside one snappy stream):
//
//	'R' | uvarint width | uvarint height | width*height*3 RGB bytes
package frames

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/golang/snappy"
)

var ErrBadRecord = errors.New("frames: malformed frame record")

const recordTag = 'R'

// maxDim rejects absurd dimensions before allocating pixel buffers.
const maxDim = 1 << 15

// Writer appends frames to an archive file.
type Writer struct {
	f *os.File
	w *snappy.Writer
}

// Create opens (truncating) an archive at path.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Writer{f: f, w: snappy.NewBufferedWriter(f)}, nil
}

// Append writes one frame. Alpha is dropped.
func (w *Writer) Append(img *image.NRGBA) error {
	dX := img.Bounds().Dx()
	dY := img.Bounds().Dy()

	hdr := make([]byte, 0, 1+2*binary.MaxVarintLen64)
	hdr = append(hdr, recordTag)
	hdr = binary.AppendUvarint(hdr, uint64(dX))
	hdr = binary.AppendUvarint(hdr, uint64(dY))
	if _, err := w.w.Write(hdr); err != nil {
		return err
	}

	row := make([]byte, dX*3)
	for y := 0; y < dY; y++ {
		for x := 0; x < dX; x++ {
			si := img.PixOffset(x+img.Rect.Min.X, y+img.Rect.Min.Y)
			ti := x * 3
			row[ti+0], row[ti+1], row[ti+2] = img.Pix[si+0], img.Pix[si+1], img.Pix[si+2]
		}
		if _, err := w.w.Write(row); err != nil {
			return err
		}
	}
	return w.w.Flush()
}

// Close flushes and closes the archive.
func (w *Writer) Close() error {
	if err := w.w.Close(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// Reader iterates frames from an archive.
type Reader struct {
	f *os.File
	r *bufio.Reader
}

// Open opens an archive for reading.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{f: f, r: bufio.NewReader(snappy.NewReader(f))}, nil
}

// Next returns the next frame, or io.EOF at the end of the archive.
func (r *Reader) Next() (*image.NRGBA, error) {
	tag, err := r.r.ReadByte()
	if err != nil {
		return nil, err // io.EOF passes through
	}
	if tag != recordTag {
		return nil, fmt.Errorf("%w: tag 0x%02x", ErrBadRecord, tag)
	}

	dX, err := binary.ReadUvarint(r.r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRecord, err)
	}
	dY, err := binary.ReadUvarint(r.r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRecord, err)
	}
	if dX == 0 || dY == 0 || dX > maxDim || dY > maxDim {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrBadRecord, dX, dY)
	}

	img := image.NewNRGBA(image.Rect(0, 0, int(dX), int(dY)))
	row := make([]byte, int(dX)*3)
	for y := 0; y < int(dY); y++ {
		if _, err := io.ReadFull(r.r, row); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRecord, err)
		}
		for x := 0; x < int(dX); x++ {
			si := img.PixOffset(x, y)
			ti := x * 3
			img.Pix[si+0], img.Pix[si+1], img.Pix[si+2], img.Pix[si+3] = row[ti+0], row[ti+1], row[ti+2], 0xff
		}
	}
	return img, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}
