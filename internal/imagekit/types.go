package imagekit

import (
	"fmt"
	"image"
	"strings"
)

// Position anchors a watermark on the base image.
type Position string

const (
	TopLeft     Position = "top-left"
	TopRight    Position = "top-right"
	BottomLeft  Position = "bottom-left"
	BottomRight Position = "bottom-right"
	Center      Position = "center"
)

// ParsePosition accepts the five position names; "centre" is an alias of center.
func ParsePosition(s string) (Position, error) {
	switch p := Position(strings.ToLower(strings.TrimSpace(s))); p {
	case TopLeft, TopRight, BottomLeft, BottomRight, Center:
		return p, nil
	case "centre":
		return Center, nil
	}
	return "", fmt.Errorf("%w: unknown position %q", ErrInvalidInput, s)
}

// Offset returns where an overlay of size (w, h) goes on a base of size (baseW, baseH).
// Edges are anchored without margin.
func (p Position) Offset(baseW, baseH, w, h int) image.Point {
	switch p {
	case TopRight:
		return image.Pt(baseW-w, 0)
	case BottomLeft:
		return image.Pt(0, baseH-h)
	case BottomRight:
		return image.Pt(baseW-w, baseH-h)
	case Center:
		return image.Pt((baseW-w)/2, (baseH-h)/2)
	default:
		return image.Pt(0, 0)
	}
}

// FlipMode selects the mirror axis.
type FlipMode string

const (
	FlipHorizontal FlipMode = "horizontal"
	FlipVertical   FlipMode = "vertical"
	FlipBoth       FlipMode = "both"
)

func ParseFlipMode(s string) (FlipMode, error) {
	switch m := FlipMode(strings.ToLower(strings.TrimSpace(s))); m {
	case FlipHorizontal, FlipVertical, FlipBoth:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown flip mode %q", ErrInvalidInput, s)
}

// CompressOptions is consumed by a single Compress call.
type CompressOptions struct {
	// Format is the target format; empty lets the backend pick the most
	// compact one it can encode.
	Format        Format
	Lossless      bool
	StripMetadata bool
	Progressive   bool
}

// Histogram holds occurrence counts per channel value.
type Histogram struct {
	Red   [256]int `json:"red"`
	Green [256]int `json:"green"`
	Blue  [256]int `json:"blue"`
}

// Output is an encoded image ready to be served.
type Output struct {
	ContentType string
	Body        []byte
}
