package compose

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/draw"

	"github.com/keagan/clipforge/internal/ffmpeg"
	"github.com/keagan/clipforge/pkg/util"
)

// RenderPreview extracts the keyframe at the middle of the composed
// interval and pushes it through the same crop/scale/blur geometry the
// encoder will use, writing a JPEG to outPath. Previews let the selection
// be inspected even when the render itself later fails.
func RenderPreview(ctx context.Context, exec *ffmpeg.Executor, comp Composition, outPath string) error {
	fg := comp.Foreground
	keyframeAt := fg.Start + fg.Length/2

	keyframePath := filepath.Join(os.TempDir(), fmt.Sprintf("clipforge_keyframe_%d.jpg", time.Now().UnixNano()))
	defer util.CleanupFiles(keyframePath)

	if err := exec.ExtractFrame(ctx, fg.Source, keyframeAt, keyframePath); err != nil {
		return fmt.Errorf("keyframe extraction failed: %w", err)
	}

	file, err := os.Open(keyframePath)
	if err != nil {
		return err
	}
	frame, err := jpeg.Decode(file)
	file.Close()
	if err != nil {
		return fmt.Errorf("failed to decode keyframe: %w", err)
	}

	fgImg := applyStages(frame, fg.Stages)

	var canvas *image.RGBA
	if comp.Background != nil {
		bgImg := applyStages(frame, comp.Background.Stages)
		canvas = image.NewRGBA(image.Rect(0, 0, comp.CanvasW, comp.CanvasH))
		draw.Draw(canvas, canvas.Bounds(), bgImg, bgImg.Bounds().Min, draw.Src)

		// Foreground centered on top
		offset := image.Pt(
			(comp.CanvasW-fgImg.Bounds().Dx())/2,
			(comp.CanvasH-fgImg.Bounds().Dy())/2,
		)
		draw.Draw(canvas, fgImg.Bounds().Add(offset), fgImg, fgImg.Bounds().Min, draw.Over)
	} else {
		canvas = image.NewRGBA(image.Rect(0, 0, fgImg.Bounds().Dx(), fgImg.Bounds().Dy()))
		draw.Draw(canvas, canvas.Bounds(), fgImg, fgImg.Bounds().Min, draw.Src)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := jpeg.Encode(out, canvas, &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("failed to write preview: %w", err)
	}
	return nil
}

// applyStages runs the clip's transform stages over a single decoded frame
func applyStages(img image.Image, stages []Stage) *image.RGBA {
	current := toRGBA(img)

	for _, stage := range stages {
		switch s := stage.(type) {
		case CropStage:
			current = cropImage(current, s.Rect.X, s.Rect.Y, s.Rect.Width, s.Rect.Height)
		case ScaleStage:
			w, h := s.Width, s.Height
			if h == -2 {
				h = int(math.Round(float64(current.Bounds().Dy()) * float64(w) / float64(current.Bounds().Dx())))
			}
			current = scaleImage(current, w, h)
		case BlurStage:
			current = BlurImage(current, s.Sigma)
		}
	}

	return current
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	out := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

func cropImage(img *image.RGBA, x, y, w, h int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min.Add(image.Pt(x, y)), draw.Src)
	return out
}

func scaleImage(img *image.RGBA, w, h int) *image.RGBA {
	if w <= 0 || h <= 0 {
		return img
	}
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(out, out.Bounds(), img, img.Bounds(), draw.Src, nil)
	return out
}
