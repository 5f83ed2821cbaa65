//go:build cgo

package codec

import (
	"image"
	"io"

	"github.com/chai2010/webp"
)

const webpEncoderAvailable = true

func encodeWebP(w io.Writer, img image.Image, o EncodeOptions) error {
	return webp.Encode(w, img, &webp.Options{
		Lossless: o.Lossless,
		Quality:  float32(o.Quality),
	})
}
