package layout

import (
	"image"
	"image/color"

	"stencil/internal/domain"
)

// maskSafetyMarginRatio erodes the generated mask inward so content placed
// against it never touches the silhouette edge.
const maskSafetyMarginRatio = 0.02

// Mask renders a binary content-safe clipping mask: white where content
// may be placed (void), black where the silhouette blocks it. The mask is
// eroded by a small safety margin relative to the image size.
func Mask(img *image.NRGBA) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	void := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			void[y*w+x] = alphaAt(img, b.Min.X+x, b.Min.Y+y) < VoidAlphaThreshold
		}
	}
	margin := int(float64(min(w, h)) * maskSafetyMarginRatio)
	if margin > 0 {
		void = erode(void, w, h, margin)
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if void[y*w+x] {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

var (
	overlayContentColor = color.NRGBA{R: 255, A: 255} // layout bounds
	overlaySafeColor    = color.NRGBA{G: 255, A: 255} // safe zone
)

// DebugOverlay draws the layout bounds (red) and safe zone (green) onto a
// copy of the image for visual verification of the analysis.
func DebugOverlay(img *image.NRGBA, layoutBounds, safeZone domain.Rect) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	copy(out.Pix, img.Pix)

	drawRectOutline(out, layoutBounds, overlayContentColor, 3)
	if !safeZone.Empty() {
		drawRectOutline(out, safeZone, overlaySafeColor, 2)
	}
	return out
}

func drawRectOutline(img *image.NRGBA, rect domain.Rect, c color.NRGBA, thickness int) {
	if rect.Empty() {
		return
	}
	b := img.Bounds()
	set := func(x, y int) {
		if x >= b.Min.X && x < b.Max.X && y >= b.Min.Y && y < b.Max.Y {
			img.SetNRGBA(x, y, c)
		}
	}
	for t := 0; t < thickness; t++ {
		for x := rect.X; x < rect.X+rect.Width; x++ {
			set(x, rect.Y+t)
			set(x, rect.Y+rect.Height-1-t)
		}
		for y := rect.Y; y < rect.Y+rect.Height; y++ {
			set(rect.X+t, y)
			set(rect.X+rect.Width-1-t, y)
		}
	}
}
