package geometry

import "math"

// Rect is a crop window inside a source frame.
type Rect struct {
	Width  int
	Height int
	X      int
	Y      int
}

// CropRect computes the window that brings a width x height frame to the
// ratioW:ratioH aspect ratio. A source wider than the target keeps its
// height and narrows; otherwise it keeps its width and shortens. The window
// is centered on (xCenter, yCenter), expressed as fractions of the source
// dimensions, and clamped so it never extends outside the frame.
func CropRect(width, height, ratioW, ratioH int, xCenter, yCenter float64) Rect {
	cropW, cropH := width, height

	if float64(width)/float64(height) > float64(ratioW)/float64(ratioH) {
		cropW = int(math.Round(float64(height) * float64(ratioW) / float64(ratioH)))
	} else {
		cropH = int(math.Round(float64(width) / float64(ratioW) * float64(ratioH)))
	}

	x := clamp(int(math.Round(float64(width)*xCenter-float64(cropW)/2)), 0, width-cropW)
	y := clamp(int(math.Round(float64(height)*yCenter-float64(cropH)/2)), 0, height-cropH)

	return Rect{Width: cropW, Height: cropH, X: x, Y: y}
}

// BackgroundResolution picks the blurred-background canvas size for a
// foreground of the given width. The canvas is a class larger than the
// foreground so upscaling artifacts stay bounded. Tiers are half-open:
// width 839 maps to (720, 1280), width 840 to (900, 1600).
func BackgroundResolution(width int) (int, int) {
	switch {
	case width < 840:
		return 720, 1280
	case width < 1020:
		return 900, 1600
	case width < 1320:
		return 1080, 1920
	case width < 1680:
		return 1440, 2560
	case width < 2040:
		return 1800, 3200
	default:
		return 2160, 3840
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
