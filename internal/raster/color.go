// Package raster holds the pixel helpers shared by the backends: tone and
// convolution filters, colour analysis, text drawing and thumbnail geometry.
package raster

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/jo-hoe/gopix/internal/imagekit"
)

// ParseHexColor parses "#rgb", "#rrggbb" or "#rrggbbaa"; the leading '#' is optional.
func ParseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("%w: invalid hex colour %q", imagekit.ErrInvalidInput, s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: invalid hex colour %q", imagekit.ErrInvalidInput, s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// HexColor formats the colour channels as lowercase "#rrggbb".
func HexColor(r, g, b uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}
