// Package matte recovers a straight-alpha RGBA image from two opaque
// renders of the same subject, one composited over solid white and one
// over solid black. Compositing over a solid color is linear in alpha, so
// the per-pixel difference between the passes encodes the true alpha.
package matte

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"
)

var (
	// ErrDimensionMismatch reports inputs of different sizes. Structural:
	// the passes cannot be trusted and are never cropped or resized.
	ErrDimensionMismatch = errors.New("matte: input dimensions differ")

	// ErrBlackPassAlignment reports a black pass whose background regions
	// are inconsistent with a solid-black edit, meaning the edit
	// instruction was not honored and the matte cannot be trusted.
	ErrBlackPassAlignment = errors.New("matte: black pass background check failed")

	// ErrEmptyInput reports a zero-area input image.
	ErrEmptyInput = errors.New("matte: empty input image")
)

const (
	// BlackBackgroundMaxLuma is the highest mean corner-patch luminance
	// accepted as a solid black background.
	BlackBackgroundMaxLuma = 16.0

	// cornerPatchSize is the side length of the sampled background patches
	// at each image corner.
	cornerPatchSize = 8

	// AlphaEpsilon is the recovered-alpha floor below which color is
	// undefined; such pixels become fully transparent black.
	AlphaEpsilon = 1.0 / 255.0

	// Adaptive noise gate parameters. The gate profiles the low-alpha
	// histogram and re-expands everything above a statistical cutoff,
	// removing background noise that would inflate content bounds.
	noiseGateMinSamples = 100
	noiseGateUpperBound = 128
	noiseGateSigma      = 4.0
	noiseGateCleanMean  = 2.0
	noiseGateHardFloor  = 5
)

// Extract recovers a straight (non-premultiplied) RGBA image from a white
// pass and a black pass of the identical subject. Inputs must be the same
// size and pixel-aligned.
func Extract(white, black image.Image) (*image.NRGBA, error) {
	wb, bb := white.Bounds(), black.Bounds()
	if wb.Dx() != bb.Dx() || wb.Dy() != bb.Dy() {
		return nil, fmt.Errorf("%w: white %dx%d, black %dx%d",
			ErrDimensionMismatch, wb.Dx(), wb.Dy(), bb.Dx(), bb.Dy())
	}
	width, height := wb.Dx(), wb.Dy()
	if width == 0 || height == 0 {
		return nil, ErrEmptyInput
	}

	w := toRGBA(white)
	b := toRGBA(black)

	if luma := cornerLuma(b); luma > BlackBackgroundMaxLuma {
		return nil, fmt.Errorf("%w: corner luminance %.1f exceeds %.1f",
			ErrBlackPassAlignment, luma, BlackBackgroundMaxLuma)
	}

	// Alpha recovery: alpha = 1 - mean(|white - black|) / 255.
	alpha := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			wi := w.PixOffset(x+wb.Min.X, y+wb.Min.Y)
			bi := b.PixOffset(x+bb.Min.X, y+bb.Min.Y)
			diff := math.Abs(float64(w.Pix[wi])-float64(b.Pix[bi])) +
				math.Abs(float64(w.Pix[wi+1])-float64(b.Pix[bi+1])) +
				math.Abs(float64(w.Pix[wi+2])-float64(b.Pix[bi+2]))
			a := 1.0 - (diff/3.0)/255.0
			if a < 0 {
				a = 0
			} else if a > 1 {
				a = 1
			}
			alpha[y*width+x] = a
		}
	}

	applyNoiseGate(alpha)

	// Color recovery: un-premultiply against the black pass, where
	// pixel = alpha * color. Below AlphaEpsilon the division is undefined
	// and color information is discarded as transparent black.
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			a := alpha[y*width+x]
			oi := out.PixOffset(x, y)
			if a < AlphaEpsilon {
				continue // zeroed buffer: fully transparent black
			}
			bi := b.PixOffset(x+bb.Min.X, y+bb.Min.Y)
			out.Pix[oi] = clampChannel(float64(b.Pix[bi]) / a)
			out.Pix[oi+1] = clampChannel(float64(b.Pix[bi+1]) / a)
			out.Pix[oi+2] = clampChannel(float64(b.Pix[bi+2]) / a)
			out.Pix[oi+3] = uint8(math.Round(a * 255.0))
		}
	}
	return out, nil
}

func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok {
		return rgba
	}
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}

// cornerLuma returns the mean channel value over the four corner patches.
func cornerLuma(img *image.RGBA) float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	patch := cornerPatchSize
	if patch > w {
		patch = w
	}
	if patch > h {
		patch = h
	}
	corners := [][2]int{
		{0, 0},
		{w - patch, 0},
		{0, h - patch},
		{w - patch, h - patch},
	}
	var sum float64
	var count int
	for _, c := range corners {
		for y := c[1]; y < c[1]+patch; y++ {
			for x := c[0]; x < c[0]+patch; x++ {
				i := img.PixOffset(x+bounds.Min.X, y+bounds.Min.Y)
				sum += float64(img.Pix[i]) + float64(img.Pix[i+1]) + float64(img.Pix[i+2])
				count += 3
			}
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// applyNoiseGate filters background noise out of the alpha channel in
// place. It profiles the distribution of faint alpha values, derives a
// cutoff at mean + 4 sigma, and re-expands the remaining range with a soft
// knee so genuine soft edges keep their gradients.
func applyNoiseGate(alpha []float64) {
	var sum, count float64
	for _, a := range alpha {
		u := a * 255.0
		if u > 0 && u < noiseGateUpperBound {
			sum += u
			count++
		}
	}
	if count < noiseGateMinSamples {
		return // already clean
	}
	mean := sum / count

	var variance float64
	for _, a := range alpha {
		u := a * 255.0
		if u > 0 && u < noiseGateUpperBound {
			d := u - mean
			variance += d * d
		}
	}
	std := math.Sqrt(variance / count)

	var cutoffU8 float64
	if mean < noiseGateCleanMean {
		cutoffU8 = noiseGateHardFloor
	} else {
		cutoffU8 = math.Min(noiseGateUpperBound, mean+noiseGateSigma*std)
	}
	cutoff := cutoffU8 / 255.0
	denom := 1.0 - cutoff
	if denom <= 0 {
		return
	}

	for i, a := range alpha {
		if a <= cutoff {
			alpha[i] = 0
			continue
		}
		alpha[i] = (a - cutoff) / denom
	}
}

func clampChannel(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}
