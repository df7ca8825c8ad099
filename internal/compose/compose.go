package compose

import (
	"fmt"
	"math"

	"github.com/keagan/clipforge/internal/config"
	"github.com/keagan/clipforge/internal/ffmpeg"
	"github.com/keagan/clipforge/internal/geometry"
)

// Blur strength for the background fill layer
const backgroundBlurSigma = 8.0

// Stage is one named transform applied to a clip. Stages are pure values;
// applying one returns a new Clip and never mutates in place.
type Stage interface {
	// Filter renders the stage as an ffmpeg video filter
	Filter() string
}

// CropStage narrows a clip to a window inside its frame
type CropStage struct {
	Rect geometry.Rect
}

func (s CropStage) Filter() string {
	return fmt.Sprintf("crop=%d:%d:%d:%d", s.Rect.Width, s.Rect.Height, s.Rect.X, s.Rect.Y)
}

// ScaleStage resizes a clip. Height -2 keeps the aspect ratio.
type ScaleStage struct {
	Width  int
	Height int
}

func (s ScaleStage) Filter() string {
	return fmt.Sprintf("scale=%d:%d", s.Width, s.Height)
}

// BlurStage applies a Gaussian blur frame by frame
type BlurStage struct {
	Sigma float64
}

func (s BlurStage) Filter() string {
	return fmt.Sprintf("gblur=sigma=%g", s.Sigma)
}

// Clip is an immutable description of a video segment: where it comes
// from, its current dimensions, and the ordered transform stages to apply.
type Clip struct {
	Source   string
	Start    float64 // seconds into the source
	Length   float64 // seconds
	Width    int
	Height   int
	FPS      float64
	HasAudio bool
	Stages   []Stage
}

// FromInfo builds the root clip for a probed source video
func FromInfo(info *ffmpeg.VideoInfo) Clip {
	return Clip{
		Source:   info.FilePath,
		Start:    0,
		Length:   info.Duration.Seconds(),
		Width:    info.Width,
		Height:   info.Height,
		FPS:      info.FPS,
		HasAudio: info.HasAudio,
	}
}

func (c Clip) with(stage Stage) Clip {
	stages := make([]Stage, len(c.Stages), len(c.Stages)+1)
	copy(stages, c.Stages)
	c.Stages = append(stages, stage)
	return c
}

// Subclip returns the sub-range [start, start+length) of the source
func (c Clip) Subclip(start, length float64) Clip {
	c.Start = start
	c.Length = length
	c.Stages = nil
	return c
}

// Crop narrows the clip to the given window
func (c Clip) Crop(r geometry.Rect) Clip {
	next := c.with(CropStage{Rect: r})
	next.Width = r.Width
	next.Height = r.Height
	return next
}

// ScaleToWidth resizes the clip to the given width, preserving aspect
func (c Clip) ScaleToWidth(width int) Clip {
	next := c.with(ScaleStage{Width: width, Height: -2})
	if c.Width > 0 {
		next.Height = int(math.Round(float64(c.Height) * float64(width) / float64(c.Width)))
	}
	next.Width = width
	return next
}

// Scale resizes the clip to exact dimensions
func (c Clip) Scale(width, height int) Clip {
	next := c.with(ScaleStage{Width: width, Height: height})
	next.Width = width
	next.Height = height
	return next
}

// Blur applies a Gaussian blur to every frame
func (c Clip) Blur(sigma float64) Clip {
	return c.with(BlurStage{Sigma: sigma})
}

// Composition is a render-ready clip: a foreground, an optional blurred
// background fill layer centered under it, and the canvas they share.
// CanvasH is zero when there is no background layer; the canvas is then
// just the foreground's own frame.
type Composition struct {
	Foreground Clip
	Background *Clip
	CanvasW    int
	CanvasH    int
}

// Compose prepares the sub-range [start, start+length) of src for
// rendering as a short. The foreground is cropped to the target ratio when
// the source is wider than it (never padded), scaled to the background
// canvas width, and backed by a blurred fill layer when it does not
// already fill a 9:16-ish portrait frame.
func Compose(src Clip, start, length float64, cfg config.ProcessingConfig) (Composition, error) {
	if length <= 0 {
		return Composition{}, fmt.Errorf("clip length must be positive, got %g", length)
	}
	if start < 0 {
		return Composition{}, fmt.Errorf("clip start cannot be negative, got %g", start)
	}
	if src.Width <= 0 || src.Height <= 0 {
		return Composition{}, fmt.Errorf("source has no dimensions: %dx%d", src.Width, src.Height)
	}

	fg := src.Subclip(start, length)

	if float64(fg.Width)/float64(fg.Height) > float64(cfg.TargetRatioW)/float64(cfg.TargetRatioH) {
		fg = fg.Crop(geometry.CropRect(fg.Width, fg.Height, cfg.TargetRatioW, cfg.TargetRatioH, cfg.XCenter, cfg.YCenter))
	}

	width, height := fg.Width, fg.Height
	bgW, bgH := geometry.BackgroundResolution(width)
	fg = fg.ScaleToWidth(bgW)

	switch {
	case width >= height:
		// Landscape or square foreground: square blurred fill behind it
		bg := src.Subclip(start, length).
			Crop(geometry.CropRect(src.Width, src.Height, 1, 1, cfg.XCenter, cfg.YCenter)).
			Scale(720, 720).
			Blur(backgroundBlurSigma).
			Scale(bgW, bgW)
		return Composition{Foreground: fg, Background: &bg, CanvasW: bgW, CanvasH: bgW}, nil

	case width*16 < height*9:
		// Portrait but narrower than 9:16: full-canvas blurred fill
		bg := src.Subclip(start, length).
			Crop(geometry.CropRect(src.Width, src.Height, 9, 16, cfg.XCenter, cfg.YCenter)).
			Scale(720, 1280).
			Blur(backgroundBlurSigma).
			Scale(bgW, bgH)
		return Composition{Foreground: fg, Background: &bg, CanvasW: bgW, CanvasH: bgH}, nil

	default:
		// Already fills a 9:16-ish portrait frame
		return Composition{Foreground: fg, CanvasW: bgW}, nil
	}
}

// FilterGraph renders the composition as an ffmpeg filter_complex graph
// whose final video stream is labeled [outv]. Two-layer compositions split
// the decoded sub-range so foreground and background share frames.
func (c Composition) FilterGraph() string {
	fgChain := chainFilters(c.Foreground.Stages)

	if c.Background == nil {
		return fmt.Sprintf("[0:v]%s[outv]", fgChain)
	}

	bgChain := chainFilters(c.Background.Stages)
	return fmt.Sprintf(
		"[0:v]split=2[fgsrc][bgsrc];[fgsrc]%s[fg];[bgsrc]%s[bg];[bg][fg]overlay=(W-w)/2:(H-h)/2[outv]",
		fgChain, bgChain,
	)
}

func chainFilters(stages []Stage) string {
	fb := ffmpeg.NewFilterBuilder()
	for _, stage := range stages {
		fb.Custom(stage.Filter())
	}
	if chain := fb.Build(); chain != "" {
		return chain
	}
	return "null"
}
