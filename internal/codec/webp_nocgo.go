//go:build !cgo

package codec

import (
	"fmt"
	"image"
	"io"

	"github.com/jo-hoe/gopix/internal/imagekit"
)

const webpEncoderAvailable = false

func encodeWebP(io.Writer, image.Image, EncodeOptions) error {
	return fmt.Errorf("%w: webp encoding needs a cgo build", imagekit.ErrUnsupportedFormat)
}
