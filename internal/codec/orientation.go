package codec

import (
	"bytes"
	"log/slog"

	"github.com/rwcarlsen/goexif/exif"
)

// Orientation is the EXIF orientation tag (1-8); 0 means unspecified.
type Orientation int

const (
	OrientationUnspecified Orientation = 0
	OrientationNormal      Orientation = 1
	OrientationFlipH       Orientation = 2
	OrientationRotate180   Orientation = 3
	OrientationFlipV       Orientation = 4
	OrientationTranspose   Orientation = 5
	OrientationRotate270   Orientation = 6
	OrientationTransverse  Orientation = 7
	OrientationRotate90    Orientation = 8
)

// ReadOrientation returns the orientation stored in the EXIF block of a JPEG
// or TIFF. Any other input, or a missing or out of range tag, yields
// OrientationUnspecified.
func ReadOrientation(data []byte) Orientation {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return OrientationUnspecified
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return OrientationUnspecified
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		slog.Debug("Decode: ignoring invalid orientation tag", "value", v, "error", err)
		return OrientationUnspecified
	}
	return Orientation(v)
}
