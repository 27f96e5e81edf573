package layout

import (
	"image"
	"math"

	"stencil/internal/domain"
)

// Content-zone layout strategy aspect thresholds.
const (
	wideAspectRatio = 1.5
	tallAspectRatio = 0.8
)

// VisibleBounds returns the bounding box of pixels whose alpha exceeds the
// threshold, in the image's own coordinate space.
func VisibleBounds(img *image.NRGBA, threshold uint8) domain.Rect {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if alphaAt(img, x, y) > threshold {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if maxX < minX || maxY < minY {
		return domain.Rect{}
	}
	return domain.Rect{
		X:      minX - b.Min.X,
		Y:      minY - b.Min.Y,
		Width:  maxX - minX + 1,
		Height: maxY - minY + 1,
	}
}

// AutoCrop returns a copy of img cropped to the bounding box of visible
// content, eliminating wasted canvas where the generator rendered a small
// subject on a larger canvas. Empty images are returned unchanged.
func AutoCrop(img *image.NRGBA) *image.NRGBA {
	bbox := VisibleBounds(img, ContentAlphaThreshold)
	if bbox.Empty() {
		return img
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bbox.Width, bbox.Height))
	for y := 0; y < bbox.Height; y++ {
		srcOff := img.PixOffset(b.Min.X+bbox.X, b.Min.Y+bbox.Y+y)
		dstOff := out.PixOffset(0, y)
		copy(out.Pix[dstOff:dstOff+bbox.Width*4], img.Pix[srcOff:srcOff+bbox.Width*4])
	}
	return out
}

// DetectContentZones scans each edge inward until the first content pixel,
// yielding the non-content margin plus percentage intrinsics and a layout
// strategy hint for the usable interior.
func DetectContentZones(img *image.NRGBA) domain.ContentZones {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	rowHasContent := func(y int) bool {
		for x := b.Min.X; x < b.Max.X; x++ {
			if alphaAt(img, x, y) > ContentAlphaThreshold {
				return true
			}
		}
		return false
	}
	colHasContent := func(x int) bool {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			if alphaAt(img, x, y) > ContentAlphaThreshold {
				return true
			}
		}
		return false
	}

	top, bottom, left, right := h, h, w, w
	for y := b.Min.Y; y < b.Max.Y; y++ {
		if rowHasContent(y) {
			top = y - b.Min.Y
			break
		}
	}
	for y := b.Max.Y - 1; y >= b.Min.Y; y-- {
		if rowHasContent(y) {
			bottom = b.Max.Y - 1 - y
			break
		}
	}
	for x := b.Min.X; x < b.Max.X; x++ {
		if colHasContent(x) {
			left = x - b.Min.X
			break
		}
	}
	for x := b.Max.X - 1; x >= b.Min.X; x-- {
		if colHasContent(x) {
			right = b.Max.X - 1 - x
			break
		}
	}

	zones := domain.ContentZones{
		InsetTop:    top,
		InsetRight:  right,
		InsetBottom: bottom,
		InsetLeft:   left,
	}
	if h > 0 {
		zones.InsetTopPct = pct(top, h)
		zones.InsetBottomPct = pct(bottom, h)
	}
	if w > 0 {
		zones.InsetLeftPct = pct(left, w)
		zones.InsetRightPct = pct(right, w)
	}
	zones.LayoutHint = layoutStrategy(w-left-right, h-top-bottom)
	return zones
}

func pct(part, whole int) float64 {
	return math.Round(float64(part)/float64(whole)*1000) / 10
}

// layoutStrategy suggests how to arrange content in the usable interior.
func layoutStrategy(width, height int) string {
	if width <= 0 || height <= 0 {
		return "centered"
	}
	aspect := float64(width) / float64(height)
	switch {
	case aspect >= wideAspectRatio:
		return "horizontal_row"
	case aspect <= tallAspectRatio:
		return "vertical_column"
	default:
		return "centered"
	}
}

// CenterTransparencyRatio measures how transparent the center 50% region
// is: 0 fully opaque, 1 fully transparent.
func CenterTransparencyRatio(img *image.NRGBA) float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	x1, x2 := b.Min.X+w/4, b.Min.X+w*3/4
	y1, y2 := b.Min.Y+h/4, b.Min.Y+h*3/4
	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	var sum, count float64
	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			sum += float64(alphaAt(img, x, y))
			count++
		}
	}
	return 1.0 - (sum/count)/255.0
}

// VerifyHollowCenter checks that a container asset's interior meets the
// minimum transparency policy. It returns the measured ratio and whether
// the gate passed.
func VerifyHollowCenter(img *image.NRGBA) (float64, bool) {
	ratio := CenterTransparencyRatio(img)
	return ratio, ratio >= HollowMinTransparency
}

// MeasureTransparency summarizes the alpha distribution of the image.
func MeasureTransparency(img *image.NRGBA) domain.Transparency {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return domain.Transparency{}
	}
	var transparent, opaque, semi int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			switch a := alphaAt(img, x, y); {
			case a == 0:
				transparent++
			case a == 255:
				opaque++
			default:
				semi++
			}
		}
	}
	return domain.Transparency{
		TransparentPct:     pct(transparent, total),
		SemiTransparentPct: pct(semi, total),
		OpaquePct:          pct(opaque, total),
		CenterTransparency: math.Round(CenterTransparencyRatio(img)*1000) / 1000,
	}
}
