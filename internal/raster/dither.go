package raster

import (
	"fmt"
	"image"
	"image/color"

	"github.com/jo-hoe/gopix/internal/imagekit"
)

// DefaultDitherPalette is plain black and white.
var DefaultDitherPalette = []string{"#000000", "#ffffff"}

// Dither maps img onto palette with Floyd-Steinberg error diffusion, left to
// right on every row. Transparent pixels are composited over white first and
// the result is opaque.
func Dither(img *image.NRGBA, palette []string) (*image.NRGBA, error) {
	if len(palette) == 0 {
		palette = DefaultDitherPalette
	}
	colors := make([]color.NRGBA, len(palette))
	for i, hex := range palette {
		c, err := ParseHexColor(hex)
		if err != nil {
			return nil, fmt.Errorf("palette entry %d: %w", i, err)
		}
		colors[i] = c
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", imagekit.ErrInvalidInput)
	}

	// errors are kept scaled by 16, the sum of the kernel weights
	const (
		fsScale    = 16
		wRight     = 7
		wDownLeft  = 3
		wDown      = 5
		wDownRight = 1
	)

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))

	var curr, next [3][]int
	for c := range curr {
		curr[c] = make([]int, w)
		next[c] = make([]int, w)
	}

	roundDiv := func(e int) int {
		if e >= 0 {
			return (e + fsScale/2) / fsScale
		}
		return (e - fsScale/2) / fsScale
	}

	for y := 0; y < h; y++ {
		start := img.PixOffset(b.Min.X, b.Min.Y+y)
		row := img.Pix[start : start+w*4]
		for x := 0; x < w; x++ {
			px := row[x*4 : x*4+4]
			a := int(px[3])

			var adj [3]int
			for c := 0; c < 3; c++ {
				over := (int(px[c])*a + 255*(255-a) + 127) / 255
				adj[c] = clampInt(over+roundDiv(curr[c][x]), 0, 255)
			}

			chosen := nearest(colors, adj)
			o := y*out.Stride + x*4
			out.Pix[o] = chosen.R
			out.Pix[o+1] = chosen.G
			out.Pix[o+2] = chosen.B
			out.Pix[o+3] = 0xFF

			diff := [3]int{adj[0] - int(chosen.R), adj[1] - int(chosen.G), adj[2] - int(chosen.B)}
			for c := 0; c < 3; c++ {
				if x+1 < w {
					curr[c][x+1] += diff[c] * wRight
				}
				if y+1 < h {
					if x > 0 {
						next[c][x-1] += diff[c] * wDownLeft
					}
					next[c][x] += diff[c] * wDown
					if x+1 < w {
						next[c][x+1] += diff[c] * wDownRight
					}
				}
			}
		}

		for c := 0; c < 3; c++ {
			curr[c], next[c] = next[c], curr[c]
			clear(next[c])
		}
	}
	return out, nil
}

// nearest picks the palette entry with the smallest squared RGB distance.
func nearest(palette []color.NRGBA, rgb [3]int) color.NRGBA {
	best := palette[0]
	bestDist := int(^uint(0) >> 1)
	for _, p := range palette {
		dr := rgb[0] - int(p.R)
		dg := rgb[1] - int(p.G)
		db := rgb[2] - int(p.B)
		if dist := dr*dr + dg*dg + db*db; dist < bestDist {
			bestDist = dist
			best = p
		}
	}
	return best
}
