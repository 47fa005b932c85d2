package imaging

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestSaveOpenRoundtripPNG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shot.png")

	src := solid(8, 6, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	require.NoError(t, Save(src, path))

	got, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), got.Bounds())
	assert.Equal(t, src.Pix, got.Pix)
}

func TestSaveUnsupportedExtension(t *testing.T) {
	err := Save(solid(2, 2, color.NRGBA{A: 255}), filepath.Join(t.TempDir(), "shot.bmp"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestCloneNormalizesBounds(t *testing.T) {
	src := solid(10, 10, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	sub := src.SubImage(image.Rect(2, 2, 6, 6))

	got := Clone(sub)
	assert.Equal(t, image.Rect(0, 0, 4, 4), got.Bounds())
	assert.Equal(t, uint8(1), got.Pix[0])
}

func TestDistanceIdentical(t *testing.T) {
	a := solid(4, 4, color.NRGBA{R: 9, G: 9, B: 9, A: 255})
	b := solid(4, 4, color.NRGBA{R: 9, G: 9, B: 9, A: 255})
	assert.Equal(t, int64(0), Distance(a, b))
}

func TestDistanceSingleChannel(t *testing.T) {
	a := solid(2, 2, color.NRGBA{R: 10, A: 255})
	b := solid(2, 2, color.NRGBA{R: 13, A: 255})
	// 4 pixels, one channel off by 3
	assert.Equal(t, int64(4*3*3), Distance(a, b))
}

func TestDistanceSizeMismatch(t *testing.T) {
	a := solid(2, 2, color.NRGBA{A: 255})
	b := solid(3, 2, color.NRGBA{A: 255})
	assert.Equal(t, int64(-1), Distance(a, b))
}

func TestDistanceIgnoresAlpha(t *testing.T) {
	a := solid(2, 2, color.NRGBA{R: 5, A: 255})
	b := solid(2, 2, color.NRGBA{R: 5, A: 0})
	assert.Equal(t, int64(0), Distance(a, b))
}

func TestDistanceCapped(t *testing.T) {
	a := solid(100, 100, color.NRGBA{A: 255})
	b := solid(100, 100, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	got := DistanceCapped(a, b, 1000)
	assert.Greater(t, got, int64(1000))
	assert.Less(t, got, Distance(a, b))
}

func TestMeanDistance(t *testing.T) {
	a := solid(4, 4, color.NRGBA{A: 255})
	assert.Equal(t, 0.0, MeanDistance(a, a))

	b := solid(4, 4, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	assert.InDelta(t, 1.0, MeanDistance(a, b), 1e-9)

	c := solid(5, 4, color.NRGBA{A: 255})
	assert.Equal(t, 1.0, MeanDistance(a, c))
}
