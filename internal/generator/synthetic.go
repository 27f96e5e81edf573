package generator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"stencil/internal/domain"
)

// Synthetic renders deterministic white/black pass pairs locally. It keeps
// the pipeline fully operational in environments without provider
// credentials and gives tests pixel-aligned inputs by construction.
type Synthetic struct{}

const (
	syntheticBaseSize = 512

	// editWhiteThreshold: channels at or above this count as background
	// when the synthetic edit swaps white for black.
	editWhiteThreshold = 240
)

// Subject colors stay far from white so the synthetic edit never eats the
// foreground.
var syntheticPalette = []color.NRGBA{
	{R: 0x2f, G: 0x6f, B: 0xba, A: 0xff},
	{R: 0xb5, G: 0x3d, B: 0x2e, A: 0xff},
	{R: 0x2e, G: 0x8b, B: 0x57, A: 0xff},
	{R: 0x6a, G: 0x3d, B: 0x9a, A: 0xff},
	{R: 0xc2, G: 0x77, B: 0x1b, A: 0xff},
}

// Generate renders the subject on a pure white canvas.
func (s *Synthetic) Generate(ctx context.Context, req GenerateRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h := syntheticCanvas(req)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	white := color.RGBA{255, 255, 255, 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, white)
		}
	}

	seed := syntheticSeed(req.RequestID, req.Prompt)
	fill := syntheticPalette[seed%uint64(len(syntheticPalette))]
	drawSyntheticSubject(img, domain.InferAssetType(req.Prompt), fill)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("generator: encode synthetic image: %w", err)
	}
	return buf.Bytes(), nil
}

// Edit swaps near-white background pixels to black, leaving the subject
// untouched, which is exactly the contract the black pass demands.
func (s *Synthetic) Edit(ctx context.Context, req EditRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := png.Decode(bytes.NewReader(req.Image))
	if err != nil {
		return nil, fmt.Errorf("generator: decode edit input: %w", err)
	}
	b := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := src.At(x, y).RGBA()
			r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(bl>>8)
			if r8 >= editWhiteThreshold && g8 >= editWhiteThreshold && b8 >= editWhiteThreshold {
				out.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{0, 0, 0, 255})
			} else {
				out.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{r8, g8, b8, 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("generator: encode synthetic edit: %w", err)
	}
	return buf.Bytes(), nil
}

func syntheticCanvas(req GenerateRequest) (int, int) {
	base := req.RenderSizeHint
	if base <= 0 {
		base = syntheticBaseSize
	}
	switch req.AspectRatio {
	case "16:9":
		return base, base * 9 / 16
	case "9:16":
		return base * 9 / 16, base
	default:
		return base, base
	}
}

func syntheticSeed(parts ...string) uint64 {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return binary.BigEndian.Uint64(sum[:8])
}

// drawSyntheticSubject paints a deterministic subject appropriate to the
// asset category: containers get a hollow frame, icons a circle, the rest
// a filled rounded block.
func drawSyntheticSubject(img *image.RGBA, assetType domain.AssetType, fill color.NRGBA) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	c := color.RGBA{fill.R, fill.G, fill.B, 255}

	switch assetType {
	case domain.AssetTypeContainer:
		// Hollow frame: border ring around a white center.
		border := min(w, h) / 8
		margin := min(w, h) / 16
		for y := margin; y < h-margin; y++ {
			for x := margin; x < w-margin; x++ {
				inner := x >= margin+border && x < w-margin-border &&
					y >= margin+border && y < h-margin-border
				if !inner {
					img.SetRGBA(x, y, c)
				}
			}
		}
	case domain.AssetTypeIcon:
		cx, cy := w/2, h/2
		radius := min(w, h) * 3 / 8
		for y := cy - radius; y <= cy+radius; y++ {
			for x := cx - radius; x <= cx+radius; x++ {
				dx, dy := x-cx, y-cy
				if dx*dx+dy*dy <= radius*radius {
					img.SetRGBA(x, y, c)
				}
			}
		}
	default:
		x0, y0 := w/4, h/4
		for y := y0; y < h-y0; y++ {
			for x := x0; x < w-x0; x++ {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

var _ Generator = (*Synthetic)(nil)
