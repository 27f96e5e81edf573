package layout

import (
	"image"
	"math"

	"stencil/internal/domain"
)

// Shape classification thresholds. Extent is the ratio of opaque area to
// bounding-box area: a full rectangle approaches 1.0, a circle pi/4.
const (
	rectMinExtent        = 0.95
	roundedRectMinExtent = 0.80
	circleExtent         = math.Pi / 4
	circleExtentSlack    = 0.06
	circleMinAspect      = 0.90
	minCornerRadius      = 2
)

// ClassifyShape classifies the opaque silhouette so the consumer knows
// whether to apply corner rounding or request a separate mask asset.
func ClassifyShape(img *image.NRGBA) domain.ShapeHint {
	b := img.Bounds()

	var minX, minY, maxX, maxY, opaque int
	minX, minY = b.Max.X, b.Max.Y
	maxX, maxY = b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if alphaAt(img, x, y) > OpaqueAlphaThreshold {
				opaque++
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
	if opaque == 0 {
		return domain.ShapeHint{Type: domain.ShapeEmpty}
	}

	bw := maxX - minX + 1
	bh := maxY - minY + 1
	boxArea := bw * bh
	extent := float64(opaque) / float64(boxArea)
	aspect := float64(min(bw, bh)) / float64(max(bw, bh))

	if aspect >= circleMinAspect && math.Abs(extent-circleExtent) <= circleExtentSlack {
		return domain.ShapeHint{
			Type:       domain.ShapeCircle,
			DiameterPx: max(bw, bh),
		}
	}
	if extent >= rectMinExtent {
		return domain.ShapeHint{Type: domain.ShapeRect}
	}
	if extent >= roundedRectMinExtent {
		radius := estimateCornerRadius(opaque, bw, bh)
		if radius < minCornerRadius {
			return domain.ShapeHint{Type: domain.ShapeRect}
		}
		return domain.ShapeHint{Type: domain.ShapeRoundedRect, CornerRadius: radius}
	}
	// Irregular silhouettes get a dedicated mask asset.
	return domain.ShapeHint{Type: domain.ShapePolygon, NeedsMask: true}
}

// estimateCornerRadius derives the corner radius of a rounded rectangle
// from the area missing relative to its bounding box: the four rounded
// corners remove (4 - pi) * r^2 pixels.
func estimateCornerRadius(opaqueArea, bw, bh int) int {
	boxArea := bw * bh
	missing := float64(boxArea - opaqueArea)
	if missing <= 0 {
		return 0
	}
	radius := math.Sqrt(missing / (4 - math.Pi))
	maxRadius := float64(min(bw, bh)) / 2
	return int(math.Min(radius, maxRadius))
}
