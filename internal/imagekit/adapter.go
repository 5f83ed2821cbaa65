// Package imagekit defines the backend-agnostic image adapter contract.
//
// An Adapter owns one decoded image buffer. Mutating methods replace that
// buffer and return the same Adapter so calls can be chained:
//
//	img, err := f.Open("in.jpg")
//	if err != nil {
//		return err
//	}
//	defer img.Close()
//	err = img.Thumbnail(320, 240, true).Grayscale().Save("out.webp", 80)
//
// The first failure in a chain is kept and reported by Err; every mutating call
// after it is a no-op. Terminal and analysis methods return that error too.
// An Adapter is not safe for concurrent use.
package imagekit

// Adapter is the capability set every raster backend implements.
type Adapter interface {
	// Resize stretches the image to exactly w x h pixels.
	Resize(w, h int) Adapter
	// Thumbnail fits the image into maxW x maxH. Without crop the image is
	// scaled down (never up) and kept whole; with crop it is scaled to cover
	// the box and centre-cropped to exactly maxW x maxH.
	Thumbnail(maxW, maxH int, crop bool) Adapter
	// Crop extracts the w x h rectangle whose top-left corner is (x, y).
	Crop(x, y, w, h int) Adapter
	// Rotate rotates counter-clockwise by angle degrees, growing the canvas
	// and filling uncovered corners with transparency.
	Rotate(angle float64) Adapter
	Flip(mode FlipMode) Adapter
	// AutoOrient applies the EXIF orientation recorded in the source, if any.
	AutoOrient() Adapter

	// Watermark composites the image at overlayPath onto the buffer.
	Watermark(overlayPath string, position Position, opacity float64) Adapter
	// Text draws text with the font at fontPath; (x, y) is the top-left corner
	// of the first line.
	Text(text string, size float64, hexColor, fontPath string, x, y int) Adapter

	Grayscale() Adapter
	Invert() Adapter
	// Brightness adds level, clamped to [-255, 255], to every colour channel.
	Brightness(level int) Adapter
	// Contrast changes contrast by level, clamped to [-100, 100]; negative
	// values increase contrast.
	Contrast(level int) Adapter
	// Blur applies a fixed 3x3 Gaussian kernel round(radius) times, at least once.
	Blur(radius float64) Adapter
	// Sharpen applies a fixed 3x3 sharpening kernel. radius and sigma are
	// accepted for forward compatibility and do not change the kernel.
	Sharpen(radius, sigma float64) Adapter
	// Dither reduces the image to the "#rrggbb" colours of palette with
	// Floyd-Steinberg error diffusion. An empty palette means black and white.
	Dither(palette []string) Adapter

	// Palette returns up to count "#rrggbb" colours ordered by frequency.
	Palette(count int) ([]string, error)
	Histogram() (*Histogram, error)

	// Compress re-encodes the buffer and decodes it back so later operations
	// see the compressed pixels. Quality ranges over [0, 100] for this and
	// every encoding method; a negative quality selects the codec default (75)
	// and values above 100 are treated as 100.
	Compress(quality int, opts CompressOptions) Adapter

	// Save writes the buffer to path in the format named by its extension.
	Save(path string, quality int) error
	// Output encodes the buffer as mime. An empty mime uses the current format.
	Output(mime string, quality int) (*Output, error)
	ToBase64(mime string, quality int, asDataURI bool) (string, error)
	// Encode returns the raw bytes of the buffer in format f.
	Encode(f Format, quality int) ([]byte, error)

	Width() int
	Height() int
	MIME() string
	Format() Format
	Capabilities() Capabilities
	// Native exposes the backend's own handle. It is not portable.
	Native() any

	Err() error
	// Close releases the buffer. It is safe to call more than once.
	Close() error
}
