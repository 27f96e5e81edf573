package matte

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
)

// composePasses renders a straight-alpha truth image over solid white and
// solid black, mimicking what the two generation passes deliver.
func composePasses(truth *image.NRGBA) (white, black *image.RGBA) {
	b := truth.Bounds()
	white = image.NewRGBA(b)
	black = image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := truth.PixOffset(x, y)
			a := float64(truth.Pix[i+3]) / 255.0
			for c := 0; c < 3; c++ {
				ch := float64(truth.Pix[i+c])
				white.Pix[white.PixOffset(x, y)+c] = uint8(math.Round(a*ch + (1-a)*255))
				black.Pix[black.PixOffset(x, y)+c] = uint8(math.Round(a * ch))
			}
			white.Pix[white.PixOffset(x, y)+3] = 255
			black.Pix[black.PixOffset(x, y)+3] = 255
		}
	}
	return white, black
}

func fillRect(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func absDiff(a, b uint8) int {
	d := int(a) - int(b)
	if d < 0 {
		return -d
	}
	return d
}

func TestExtractRoundTrip(t *testing.T) {
	truth := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	fillRect(truth, 16, 16, 48, 48, color.NRGBA{R: 10, G: 250, B: 120, A: 255})
	fillRect(truth, 24, 24, 40, 40, color.NRGBA{R: 200, G: 80, B: 40, A: 160})

	white, black := composePasses(truth)
	got, err := Extract(white, black)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Bounds() != truth.Bounds() {
		t.Fatalf("Extract() bounds = %v, want %v", got.Bounds(), truth.Bounds())
	}

	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			wi := truth.PixOffset(x, y)
			gi := got.PixOffset(x, y)
			if d := absDiff(got.Pix[gi+3], truth.Pix[wi+3]); d > 2 {
				t.Fatalf("alpha at (%d,%d) = %d, want %d (+-2)", x, y, got.Pix[gi+3], truth.Pix[wi+3])
			}
			if truth.Pix[wi+3] < 128 {
				continue // color undefined at low alpha
			}
			for c := 0; c < 3; c++ {
				if d := absDiff(got.Pix[gi+c], truth.Pix[wi+c]); d > 3 {
					t.Fatalf("channel %d at (%d,%d) = %d, want %d (+-3)",
						c, x, y, got.Pix[gi+c], truth.Pix[wi+c])
				}
			}
		}
	}
}

func TestExtractTransparentPixelsAreZeroedBlack(t *testing.T) {
	truth := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	fillRect(truth, 12, 12, 20, 20, color.NRGBA{R: 90, G: 30, B: 140, A: 255})

	white, black := composePasses(truth)
	got, err := Extract(white, black)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	// A fully transparent pixel must carry no color information.
	i := got.PixOffset(2, 2)
	for c := 0; c < 4; c++ {
		if got.Pix[i+c] != 0 {
			t.Fatalf("transparent pixel channel %d = %d, want 0", c, got.Pix[i+c])
		}
	}
}

func TestExtractAlphaMonotonic(t *testing.T) {
	alphas := []uint8{0, 20, 60, 110, 150, 190, 220, 240, 255}
	w := len(alphas) + 2
	truth := image.NewNRGBA(image.Rect(0, 0, w, 1))
	for i, a := range alphas {
		truth.SetNRGBA(i+1, 0, color.NRGBA{R: 128, G: 128, B: 128, A: a})
	}

	white, black := composePasses(truth)
	got, err := Extract(white, black)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	prev := -1
	for i := range alphas {
		a := int(got.Pix[got.PixOffset(i+1, 0)+3])
		if a < prev {
			t.Fatalf("recovered alpha not monotonic: index %d has %d after %d", i, a, prev)
		}
		prev = a
	}
}

func TestExtractNoiseGate(t *testing.T) {
	truth := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	// Solid subject in the center.
	fillRect(truth, 24, 24, 40, 40, color.NRGBA{R: 180, G: 60, B: 220, A: 255})
	// 200 faint noise pixels, enough to trip the gate's sample minimum.
	fillRect(truth, 8, 8, 48, 13, color.NRGBA{R: 128, G: 128, B: 128, A: 3})

	white, black := composePasses(truth)
	got, err := Extract(white, black)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if a := got.Pix[got.PixOffset(10, 10)+3]; a != 0 {
		t.Fatalf("noise pixel alpha = %d, want 0 after gating", a)
	}
	if a := got.Pix[got.PixOffset(30, 30)+3]; a != 255 {
		t.Fatalf("subject pixel alpha = %d, want 255", a)
	}
}

func TestExtractDimensionMismatch(t *testing.T) {
	white := image.NewRGBA(image.Rect(0, 0, 10, 10))
	black := image.NewRGBA(image.Rect(0, 0, 12, 10))
	if _, err := Extract(white, black); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Extract() error = %v, want ErrDimensionMismatch", err)
	}
}

func TestExtractBlackPassAlignment(t *testing.T) {
	truth := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	fillRect(truth, 10, 10, 22, 22, color.NRGBA{R: 50, G: 50, B: 50, A: 255})
	white, _ := composePasses(truth)

	// Passing the white pass twice simulates an edit that was not honored:
	// the background stayed white.
	if _, err := Extract(white, white); !errors.Is(err, ErrBlackPassAlignment) {
		t.Fatalf("Extract() error = %v, want ErrBlackPassAlignment", err)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if _, err := Extract(empty, empty); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("Extract() error = %v, want ErrEmptyInput", err)
	}
}
