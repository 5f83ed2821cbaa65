package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/jo-hoe/gopix/internal/imagekit"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// DefaultQuality is used when a negative quality is requested.
const DefaultQuality = 75

// EncodeOptions tunes a single encode. Options a format has no use for are ignored.
type EncodeOptions struct {
	Quality     int
	Lossless    bool
	Progressive bool
}

var decodable = map[imagekit.Format]bool{
	imagekit.FormatJPEG: true,
	imagekit.FormatPNG:  true,
	imagekit.FormatGIF:  true,
	imagekit.FormatBMP:  true,
	imagekit.FormatWBMP: true,
	imagekit.FormatWebP: true,
	imagekit.FormatICO:  true,
	imagekit.FormatXBM:  true,
	imagekit.FormatTIFF: true,
	imagekit.FormatSVG:  true,
}

var encodable = map[imagekit.Format]bool{
	imagekit.FormatJPEG: true,
	imagekit.FormatPNG:  true,
	imagekit.FormatGIF:  true,
	imagekit.FormatBMP:  true,
	imagekit.FormatWBMP: true,
	imagekit.FormatWebP: webpEncoderAvailable,
	imagekit.FormatICO:  true,
	imagekit.FormatTIFF: true,
}

// CanDecode reports whether Decode has a dedicated decoder for f.
func CanDecode(f imagekit.Format) bool { return decodable[f] }

// CanEncode reports whether Encode can write f in this build.
func CanEncode(f imagekit.Format) bool { return encodable[f] }

// DecodeFormats returns a copy of the decoder table.
func DecodeFormats() map[imagekit.Format]bool { return copyTable(decodable) }

// EncodeFormats returns a copy of the encoder table.
func EncodeFormats() map[imagekit.Format]bool { return copyTable(encodable) }

func copyTable(m map[imagekit.Format]bool) map[imagekit.Format]bool {
	out := make(map[imagekit.Format]bool, len(m))
	for f, ok := range m {
		out[f] = ok
	}
	return out
}

// Decode classifies data by its header and runs the matching decoder. When no
// dedicated decoder succeeds, the generic image.Decode sniffing is tried. GIF
// and ICO yield their first frame.
func Decode(data []byte) (image.Image, imagekit.Format, error) {
	format := Sniff(data)
	img, err := decodeAs(data, format)
	if err == nil {
		return img, format, nil
	}

	slog.Debug("Decode: dedicated decoder failed, trying generic decode",
		"detected_format", format.String(),
		"error", err)

	img, name, genericErr := image.Decode(bytes.NewReader(data))
	if genericErr == nil {
		if f, ok := imagekit.ParseFormat(name); ok {
			format = f
		}
		return img, format, nil
	}

	return nil, format, fmt.Errorf("%w: cannot decode %s image: %v", imagekit.ErrUnsupportedFormat, format, err)
}

func decodeAs(data []byte, format imagekit.Format) (image.Image, error) {
	r := bytes.NewReader(data)
	switch format {
	case imagekit.FormatJPEG:
		return jpeg.Decode(r)
	case imagekit.FormatPNG:
		return png.Decode(r)
	case imagekit.FormatGIF:
		return gif.Decode(r)
	case imagekit.FormatBMP:
		return bmp.Decode(r)
	case imagekit.FormatTIFF:
		return tiff.Decode(r)
	case imagekit.FormatWebP:
		return webp.Decode(r)
	case imagekit.FormatWBMP:
		return decodeWBMP(data)
	case imagekit.FormatICO:
		return decodeICO(data)
	case imagekit.FormatXBM:
		return decodeXBM(data)
	case imagekit.FormatSVG:
		return decodeSVG(data)
	}
	return nil, fmt.Errorf("no decoder for %s", format)
}

// Encode writes img to w as format f.
func Encode(w io.Writer, img image.Image, f imagekit.Format, o EncodeOptions) error {
	q := ClampQuality(o.Quality)
	switch f {
	case imagekit.FormatJPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(q))
	case imagekit.FormatPNG, imagekit.FormatICO:
		// ICO output is PNG bytes; browsers and most readers accept it.
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(pngCompressionLevel(q, o.Lossless)))
	case imagekit.FormatGIF:
		return imaging.Encode(w, img, imaging.GIF)
	case imagekit.FormatBMP:
		return imaging.Encode(w, img, imaging.BMP)
	case imagekit.FormatTIFF:
		return imaging.Encode(w, img, imaging.TIFF)
	case imagekit.FormatWBMP:
		return encodeWBMP(w, img)
	case imagekit.FormatWebP:
		return encodeWebP(w, img, EncodeOptions{Quality: q, Lossless: o.Lossless})
	}
	return fmt.Errorf("%w: no encoder for %s", imagekit.ErrUnsupportedFormat, f)
}

// EncodeBytes is Encode into a fresh buffer.
func EncodeBytes(img image.Image, f imagekit.Format, o EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	bb := img.Bounds()
	// rough heuristic: 1 byte per pixel
	buf.Grow(bb.Dx() * bb.Dy())
	if err := Encode(&buf, img, f, o); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ClampQuality maps q into [0, 100]. Negative values select DefaultQuality;
// zero is kept as the lowest quality.
func ClampQuality(q int) int {
	if q < 0 {
		return DefaultQuality
	}
	if q > 100 {
		return 100
	}
	return q
}

// pngCompressionLevel maps quality to zlib effort: lower quality trades CPU for size.
func pngCompressionLevel(quality int, lossless bool) png.CompressionLevel {
	switch {
	case lossless, quality < 34:
		return png.BestCompression
	case quality < 67:
		return png.DefaultCompression
	default:
		return png.BestSpeed
	}
}
