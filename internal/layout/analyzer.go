// Package layout derives placement metadata from a matted RGBA image so
// consumers can position content inside decorative or irregular assets
// without manual pixel measurement. All analysis is deterministic for a
// given input; every threshold is a named constant.
package layout

import (
	"errors"
	"image"

	"stencil/internal/domain"
)

// ErrNoContent reports an image with no opaque pixels above the content
// threshold. Structural: re-running the same inputs reproduces it.
var ErrNoContent = errors.New("layout: no opaque content found")

const (
	// ContentAlphaThreshold is the minimum alpha for a pixel to count as
	// content during edge scans and bounding-box computation.
	ContentAlphaThreshold = 10

	// OpaqueAlphaThreshold is the binarization level for silhouette
	// classification.
	OpaqueAlphaThreshold = 127

	// ObstacleAlphaThreshold is the level above which a pixel blocks the
	// safe zone.
	ObstacleAlphaThreshold = 100

	// VoidAlphaThreshold is the level below which a pixel counts as void
	// for mask generation.
	VoidAlphaThreshold = 13

	// SafeZoneMaxAreaRatio caps how much of the total asset area a naive
	// safe zone may cover before it is considered inflated by noise and
	// replaced with the slice-inset-derived rectangle.
	SafeZoneMaxAreaRatio = 0.90

	// HollowMinTransparency is the minimum transparent fraction of the
	// center region for a container asset to pass verification.
	HollowMinTransparency = 0.15
)

// SafeZone derivation strategies recorded in Metadata.
const (
	SafeZoneStrategyInscribed   = "inscribed"
	SafeZoneStrategySliceInsets = "slice_insets"
)

// Metadata is the geometric manifest derived from one RGBA image.
type Metadata struct {
	ContentZones     domain.ContentZones
	SliceInsets      domain.Insets
	SafeZone         domain.Rect
	SafeZoneStrategy string
	ShapeHint        domain.ShapeHint
	LayoutBounds     domain.Rect
	Transparency     domain.Transparency
}

// Analyze performs the full layout analysis of a matted image.
func Analyze(img *image.NRGBA) (Metadata, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if VisibleBounds(img, ContentAlphaThreshold).Empty() {
		return Metadata{}, ErrNoContent
	}

	shape := ClassifyShape(img)
	zones := DetectContentZones(img)

	layoutBounds := domain.Rect{
		X:      zones.InsetLeft,
		Y:      zones.InsetTop,
		Width:  w - zones.InsetLeft - zones.InsetRight,
		Height: h - zones.InsetTop - zones.InsetBottom,
	}

	slices := DetectSliceInsets(img)

	safeZone, strategy := DetectSafeZone(img, layoutBounds, slices)

	return Metadata{
		ContentZones:     zones,
		SliceInsets:      slices,
		SafeZone:         safeZone,
		SafeZoneStrategy: strategy,
		ShapeHint:        shape,
		LayoutBounds:     layoutBounds,
		Transparency:     MeasureTransparency(img),
	}, nil
}

func alphaAt(img *image.NRGBA, x, y int) uint8 {
	return img.Pix[img.PixOffset(x, y)+3]
}
