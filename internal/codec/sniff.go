// Package codec classifies image bytes and decodes or encodes the formats the
// raster libraries do not cover on their own.
package codec

import (
	"bytes"

	"github.com/jo-hoe/gopix/internal/imagekit"
)

// hasCorrectPngSignature checks whether data begins with the PNG signature.
func hasCorrectPngSignature(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	expected := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	return bytes.Equal(data[:8], expected)
}

// Sniff inspects the header of data and returns its format, or
// imagekit.FormatUnknown.
func Sniff(data []byte) imagekit.Format {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return imagekit.FormatJPEG
	case hasCorrectPngSignature(data):
		return imagekit.FormatPNG
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return imagekit.FormatGIF
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return imagekit.FormatWebP
	case isAVIF(data):
		return imagekit.FormatAVIF
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return imagekit.FormatTIFF
	case bytes.HasPrefix(data, []byte("BM")):
		return imagekit.FormatBMP
	case isICO(data):
		return imagekit.FormatICO
	case isWBMP(data):
		return imagekit.FormatWBMP
	case isXBM(data):
		return imagekit.FormatXBM
	case isSVGData(data):
		return imagekit.FormatSVG
	}
	return imagekit.FormatUnknown
}

// isAVIF looks for an ISO-BMFF ftyp box with an AVIF brand.
func isAVIF(data []byte) bool {
	if len(data) < 12 || !bytes.Equal(data[4:8], []byte("ftyp")) {
		return false
	}
	brand := data[8:12]
	return bytes.Equal(brand, []byte("avif")) || bytes.Equal(brand, []byte("avis"))
}
