package compose

import (
	"image"
	"image/color"
	"math"
)

// BlurImage returns a Gaussian-blurred copy of img with identical bounds.
// The convolution runs on a float-converted buffer with a separable
// kernel, so it processes one frame at a time in bounded memory. This is
// the in-process counterpart of the gblur stage the encoder applies
// per frame.
func BlurImage(img image.Image, sigma float64) *image.RGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	if w == 0 || h == 0 {
		return out
	}
	if sigma <= 0 {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Set(x, y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
		return out
	}

	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2

	// Float buffers, RGB interleaved
	src := make([]float64, w*h*3)
	tmp := make([]float64, w*h*3)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			i := (y*w + x) * 3
			src[i] = float64(r >> 8)
			src[i+1] = float64(g >> 8)
			src[i+2] = float64(b >> 8)
		}
	}

	// Horizontal pass
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var r, g, b float64
			for k, weight := range kernel {
				sx := clampIndex(x+k-radius, w)
				i := (y*w + sx) * 3
				r += src[i] * weight
				g += src[i+1] * weight
				b += src[i+2] * weight
			}
			i := (y*w + x) * 3
			tmp[i], tmp[i+1], tmp[i+2] = r, g, b
		}
	}

	// Vertical pass
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var r, g, b float64
			for k, weight := range kernel {
				sy := clampIndex(y+k-radius, h)
				i := (sy*w + x) * 3
				r += tmp[i] * weight
				g += tmp[i+1] * weight
				b += tmp[i+2] * weight
			}
			out.SetRGBA(x, y, color.RGBA{
				R: clampByte(r),
				G: clampByte(g),
				B: clampByte(b),
				A: 255,
			})
		}
	}

	return out
}

// gaussianKernel builds a normalized 1D kernel covering three standard
// deviations on each side.
func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	kernel := make([]float64, 2*radius+1)

	sum := 0.0
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	return kernel
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(math.Round(v))
}
