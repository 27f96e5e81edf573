package layout

import (
	"image"
	"math"

	"stencil/internal/domain"
)

// Squint-test parameters: obstacles are opened (eroded then dilated) with
// an adaptive kernel before the inscribed rectangle search, suppressing
// thin vines, splatter and single-pixel noise.
const (
	openingKernelRatio = 0.05
	openingKernelMin   = 3

	// Center bias for the inscribed rectangle search: candidates far from
	// the image center are discounted so peripheral voids do not win.
	centerBiasFalloff = 0.7
	centerBiasFloor   = 0.2
)

// DetectSafeZone computes the largest interior rectangle usable for
// foreground content. The policy prefers a perceptually safe rectangle
// over a mathematically tight one: a naive zone covering more than
// SafeZoneMaxAreaRatio of the asset is treated as noise-inflated and
// replaced by the slice-inset-derived rectangle, which is known
// structural.
func DetectSafeZone(img *image.NRGBA, layoutBounds domain.Rect, slices domain.Insets) (domain.Rect, string) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	void := voidMask(img)
	constrain(void, w, h, layoutBounds)

	naive := largestInscribedRect(void, w, h)

	totalArea := w * h
	if totalArea > 0 && float64(naive.Area())/float64(totalArea) > SafeZoneMaxAreaRatio {
		return sliceInsetRect(w, h, slices), SafeZoneStrategySliceInsets
	}
	return naive, SafeZoneStrategyInscribed
}

// sliceInsetRect derives a safe zone directly from the 9-slice border
// widths.
func sliceInsetRect(w, h int, slices domain.Insets) domain.Rect {
	rect := domain.Rect{
		X:      slices.Left,
		Y:      slices.Top,
		Width:  w - slices.Left - slices.Right,
		Height: h - slices.Top - slices.Bottom,
	}
	if rect.Width < 0 {
		rect.Width = 0
	}
	if rect.Height < 0 {
		rect.Height = 0
	}
	return rect
}

// voidMask marks usable pixels after the squint test: obstacles above
// ObstacleAlphaThreshold are opened to drop small artifacts, and the
// complement is the void.
func voidMask(img *image.NRGBA) []bool {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	obstacle := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			obstacle[y*w+x] = alphaAt(img, b.Min.X+x, b.Min.Y+y) > ObstacleAlphaThreshold
		}
	}

	k := int(float64(min(w, h)) * openingKernelRatio)
	if k < openingKernelMin {
		k = openingKernelMin
	}
	radius := k / 2
	opened := dilate(erode(obstacle, w, h, radius), w, h, radius)

	void := make([]bool, w*h)
	for i := range opened {
		void[i] = !opened[i]
	}
	return void
}

func constrain(mask []bool, w, h int, bounds domain.Rect) {
	if bounds.Empty() {
		return
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			inside := x >= bounds.X && x < bounds.X+bounds.Width &&
				y >= bounds.Y && y < bounds.Y+bounds.Height
			if !inside {
				mask[y*w+x] = false
			}
		}
	}
}

// erode shrinks true regions by radius using a separable square kernel.
func erode(mask []bool, w, h, radius int) []bool {
	return separableFilter(mask, w, h, radius, true)
}

// dilate grows true regions by radius using a separable square kernel.
func dilate(mask []bool, w, h, radius int) []bool {
	return separableFilter(mask, w, h, radius, false)
}

func separableFilter(mask []bool, w, h, radius int, all bool) []bool {
	if radius <= 0 {
		out := make([]bool, len(mask))
		copy(out, mask)
		return out
	}
	horiz := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := all
			for dx := -radius; dx <= radius; dx++ {
				xx := x + dx
				var sample bool
				if xx < 0 || xx >= w {
					sample = !all // out of bounds: void for erode, obstacle-free for dilate
				} else {
					sample = mask[y*w+xx]
				}
				if all {
					v = v && sample
					if !v {
						break
					}
				} else {
					v = v || sample
					if v {
						break
					}
				}
			}
			horiz[y*w+x] = v
		}
	}
	out := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := all
			for dy := -radius; dy <= radius; dy++ {
				yy := y + dy
				var sample bool
				if yy < 0 || yy >= h {
					sample = !all
				} else {
					sample = horiz[yy*w+x]
				}
				if all {
					v = v && sample
					if !v {
						break
					}
				} else {
					v = v || sample
					if v {
						break
					}
				}
			}
			out[y*w+x] = v
		}
	}
	return out
}

// largestInscribedRect finds the highest-scoring axis-aligned rectangle of
// void pixels using the histogram-of-heights method, scoring by area
// weighted toward the image center.
func largestInscribedRect(void []bool, w, h int) domain.Rect {
	if w == 0 || h == 0 {
		return domain.Rect{}
	}
	centerX, centerY := float64(w)/2.0, float64(h)/2.0

	var best domain.Rect
	var bestScore float64

	consider := func(x, y, width, height int) {
		area := float64(width * height)
		rectCX := float64(x) + float64(width)/2.0
		rectCY := float64(y) + float64(height)/2.0
		dx := (rectCX - centerX) / (float64(w) / 2.0)
		dy := (rectCY - centerY) / (float64(h) / 2.0)
		dist := math.Sqrt(dx*dx + dy*dy)
		weight := math.Max(centerBiasFloor, 1.0-dist*centerBiasFalloff)
		if score := area * weight; score > bestScore {
			bestScore = score
			best = domain.Rect{X: x, Y: y, Width: width, Height: height}
		}
	}

	heights := make([]int, w)
	type column struct{ start, height int }
	for row := 0; row < h; row++ {
		for x := 0; x < w; x++ {
			if void[row*w+x] {
				heights[x]++
			} else {
				heights[x] = 0
			}
		}

		stack := make([]column, 0, w)
		for x := 0; x <= w; x++ {
			current := 0
			if x < w {
				current = heights[x]
			}
			start := x
			for len(stack) > 0 && stack[len(stack)-1].height > current {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				consider(top.start, row-top.height+1, x-top.start, top.height)
				start = top.start
			}
			if x < w {
				stack = append(stack, column{start: start, height: current})
			}
		}
	}
	return best
}
