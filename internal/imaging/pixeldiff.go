package imaging

import "image"

func sq(a, b uint8) int64 {
	c := int64(a) - int64(b)
	return c * c
}

// Distance returns the summed squared RGB difference between two images of
// equal size. Alpha is ignored. Images of different sizes return -1.
func Distance(a, b *image.NRGBA) int64 {
	return DistanceCapped(a, b, -1)
}

// DistanceCapped is Distance with an early exit: once the running sum
// exceeds limit the scan stops and the partial sum is returned. A negative
// limit disables the cap.
func DistanceCapped(a, b *image.NRGBA, limit int64) int64 {
	dX := a.Bounds().Dx()
	dY := a.Bounds().Dy()
	if dX != b.Bounds().Dx() || dY != b.Bounds().Dy() {
		return -1
	}

	var diff int64
	for y := 0; y < dY; y++ {
		for x := 0; x < dX; x++ {
			ai := a.PixOffset(x+a.Rect.Min.X, y+a.Rect.Min.Y)
			bi := b.PixOffset(x+b.Rect.Min.X, y+b.Rect.Min.Y)

			diff += sq(a.Pix[ai+0], b.Pix[bi+0])
			diff += sq(a.Pix[ai+1], b.Pix[bi+1])
			diff += sq(a.Pix[ai+2], b.Pix[bi+2])

			if limit >= 0 && diff > limit {
				return diff
			}
		}
	}
	return diff
}

// MeanDistance normalizes Distance to a per-pixel [0, 1] dissimilarity,
// with 195075 (3 * 255^2) as the per-pixel maximum.
func MeanDistance(a, b *image.NRGBA) float64 {
	d := Distance(a, b)
	if d < 0 {
		return 1
	}
	px := int64(a.Bounds().Dx()) * int64(a.Bounds().Dy())
	if px == 0 {
		return 0
	}
	return float64(d) / float64(px*3*255*255)
}
