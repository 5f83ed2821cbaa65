package raster

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/jo-hoe/gopix/internal/codec"
)

// Orient undoes the transform recorded by an EXIF orientation tag so the image
// displays upright. Unspecified and normal orientations return a copy.
func Orient(img image.Image, o codec.Orientation) *image.NRGBA {
	switch o {
	case codec.OrientationFlipH:
		return imaging.FlipH(img)
	case codec.OrientationRotate180:
		return imaging.Rotate180(img)
	case codec.OrientationFlipV:
		return imaging.FlipV(img)
	case codec.OrientationTranspose:
		return imaging.Transpose(img)
	case codec.OrientationRotate270:
		return imaging.Rotate270(img)
	case codec.OrientationTransverse:
		return imaging.Transverse(img)
	case codec.OrientationRotate90:
		return imaging.Rotate90(img)
	}
	return imaging.Clone(img)
}
