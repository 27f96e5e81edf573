package layout

import (
	"image"
	"math"

	"stencil/internal/domain"
)

// 9-slice detection parameters. A slice boundary is where consecutive
// rows/columns of the alpha channel become self-similar, marking the start
// of the stretchable region.
const (
	sliceMinInset           = 8
	sliceMaxRatio           = 0.4
	sliceSimilarityRatio    = 0.95
	sliceMatchToleranceU8   = 10
	sliceSimilarityAbsDiffF = float64(sliceMatchToleranceU8)
)

// DetectSliceInsets measures the distance from each edge to where the
// alpha pattern stabilizes, defining the fixed border widths for
// border-image style scaling. Distinct from content zones: decorative
// borders may be thinner or thicker than the semantic content margin.
func DetectSliceInsets(img *image.NRGBA) domain.Insets {
	return domain.Insets{
		Top:    findSliceBoundary(img, false, true),
		Right:  findSliceBoundary(img, true, false),
		Bottom: findSliceBoundary(img, false, false),
		Left:   findSliceBoundary(img, true, true),
	}
}

// findSliceBoundary walks inward from one edge looking for the first
// position where the next row/column repeats the current one.
func findSliceBoundary(img *image.NRGBA, vertical, fromStart bool) int {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	length := h
	if vertical {
		length = w
	}
	maxSlice := int(math.Min(float64(length)*sliceMaxRatio, float64(length/2)))
	if maxSlice <= sliceMinInset {
		return sliceMinInset
	}

	if fromStart {
		for i := sliceMinInset; i < maxSlice; i++ {
			if i+1 < length && linesSimilar(img, vertical, i, i+1) {
				return i
			}
		}
		return sliceMinInset
	}
	for i := length - sliceMinInset; i > length-maxSlice; i-- {
		if i-1 >= 0 && linesSimilar(img, vertical, i, i-1) {
			return length - i
		}
	}
	return sliceMinInset
}

// linesSimilar compares the alpha pattern of two rows (or columns when
// vertical) and reports whether enough pixels match within tolerance.
func linesSimilar(img *image.NRGBA, vertical bool, i, j int) bool {
	b := img.Bounds()
	var length int
	if vertical {
		length = b.Dy()
	} else {
		length = b.Dx()
	}
	if length == 0 {
		return false
	}
	matching := 0
	for k := 0; k < length; k++ {
		var a1, a2 uint8
		if vertical {
			a1 = alphaAt(img, b.Min.X+i, b.Min.Y+k)
			a2 = alphaAt(img, b.Min.X+j, b.Min.Y+k)
		} else {
			a1 = alphaAt(img, b.Min.X+k, b.Min.Y+i)
			a2 = alphaAt(img, b.Min.X+k, b.Min.Y+j)
		}
		if math.Abs(float64(a1)-float64(a2)) < sliceSimilarityAbsDiffF {
			matching++
		}
	}
	return float64(matching)/float64(length) >= sliceSimilarityRatio
}
