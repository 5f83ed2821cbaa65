// Package imagingbackend implements imagekit.Adapter on top of the pure Go
// imaging library. It is always available.
package imagingbackend

import (
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"os"

	"code.cloudfoundry.org/bytefmt"
	"github.com/disintegration/imaging"
	"github.com/jo-hoe/gopix/internal/codec"
	"github.com/jo-hoe/gopix/internal/imagekit"
	"github.com/jo-hoe/gopix/internal/raster"
)

// Name identifies this backend in capabilities and configuration.
const Name = "imaging"

// Probe reports the formats this backend can decode and encode in the current build.
func Probe() imagekit.Capabilities {
	return imagekit.Capabilities{
		Backend: Name,
		Decode:  codec.DecodeFormats(),
		Encode:  codec.EncodeFormats(),
	}
}

// Adapter owns one decoded image as an *image.NRGBA.
type Adapter struct {
	buf         *image.NRGBA
	format      imagekit.Format
	orientation codec.Orientation
	caps        imagekit.Capabilities
	err         error
}

var _ imagekit.Adapter = (*Adapter)(nil)

// Load reads and decodes the image at path.
func Load(path string, caps imagekit.Capabilities) (*Adapter, error) {
	data, err := readImageFile(path)
	if err != nil {
		return nil, err
	}
	return LoadBytes(data, caps)
}

// LoadBytes decodes an in-memory image.
func LoadBytes(data []byte, caps imagekit.Capabilities) (*Adapter, error) {
	img, format, err := decode(data)
	if err != nil {
		return nil, err
	}

	if !caps.CanEncode(format) {
		slog.Debug("ImagingAdapter: source format cannot be written, output defaults to png",
			"source_format", format.String())
		format = imagekit.FormatPNG
	}

	a := &Adapter{
		buf:         img,
		format:      format,
		orientation: codec.ReadOrientation(data),
		caps:        caps,
	}
	slog.Debug("ImagingAdapter: image loaded",
		"format", format.String(),
		"width", a.Width(),
		"height", a.Height(),
		"size", bytefmt.ByteSize(uint64(len(data))))
	return a, nil
}

func readImageFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read %q: %v", imagekit.ErrInvalidInput, path, err)
	}
	return data, nil
}

func decode(data []byte) (*image.NRGBA, imagekit.Format, error) {
	if len(data) == 0 {
		return nil, imagekit.FormatUnknown, fmt.Errorf("%w: empty image data", imagekit.ErrInvalidInput)
	}
	img, format, err := codec.Decode(data)
	if err != nil {
		return nil, format, err
	}
	return imaging.Clone(img), format, nil
}

// apply runs fn on the buffer unless the chain has already failed.
func (a *Adapter) apply(op string, fn func(src *image.NRGBA) (*image.NRGBA, error)) imagekit.Adapter {
	if err := a.usable(); err != nil {
		a.err = err
		return a
	}
	dst, err := fn(a.buf)
	if err != nil {
		a.err = fmt.Errorf("%s: %w", op, err)
		slog.Debug("ImagingAdapter: operation failed", "operation", op, "error", err)
		return a
	}
	a.buf = dst
	return a
}

func (a *Adapter) usable() error {
	if a.err != nil {
		return a.err
	}
	if a.buf == nil {
		return fmt.Errorf("%w: adapter is closed", imagekit.ErrInvalidInput)
	}
	return nil
}

func (a *Adapter) Resize(w, h int) imagekit.Adapter {
	return a.apply("resize", func(src *image.NRGBA) (*image.NRGBA, error) {
		if w <= 0 || h <= 0 {
			return nil, fmt.Errorf("%w: invalid size %dx%d", imagekit.ErrInvalidInput, w, h)
		}
		return imaging.Resize(src, w, h, imaging.Lanczos), nil
	})
}

func (a *Adapter) Thumbnail(maxW, maxH int, crop bool) imagekit.Adapter {
	return a.apply("thumbnail", func(src *image.NRGBA) (*image.NRGBA, error) {
		if maxW <= 0 || maxH <= 0 {
			return nil, fmt.Errorf("%w: invalid bounds %dx%d", imagekit.ErrInvalidInput, maxW, maxH)
		}
		srcW, srcH := src.Bounds().Dx(), src.Bounds().Dy()
		if crop {
			w, h := raster.CoverSize(srcW, srcH, maxW, maxH)
			return imaging.CropCenter(imaging.Resize(src, w, h, imaging.Lanczos), maxW, maxH), nil
		}
		w, h := raster.ContainSize(srcW, srcH, maxW, maxH)
		if w == srcW && h == srcH {
			return src, nil
		}
		return imaging.Resize(src, w, h, imaging.Lanczos), nil
	})
}

func (a *Adapter) Crop(x, y, w, h int) imagekit.Adapter {
	return a.apply("crop", func(src *image.NRGBA) (*image.NRGBA, error) {
		if w <= 0 || h <= 0 {
			return nil, fmt.Errorf("%w: invalid crop size %dx%d", imagekit.ErrInvalidInput, w, h)
		}
		rect := image.Rect(x, y, x+w, y+h).Intersect(src.Bounds())
		if rect.Empty() {
			return nil, fmt.Errorf("%w: crop rectangle %v lies outside the image", imagekit.ErrInvalidInput, image.Rect(x, y, x+w, y+h))
		}
		return imaging.Crop(src, rect), nil
	})
}

func (a *Adapter) Rotate(angle float64) imagekit.Adapter {
	return a.apply("rotate", func(src *image.NRGBA) (*image.NRGBA, error) {
		if math.IsNaN(angle) || math.IsInf(angle, 0) {
			return nil, fmt.Errorf("%w: invalid angle %v", imagekit.ErrInvalidInput, angle)
		}
		return imaging.Rotate(src, angle, color.Transparent), nil
	})
}

func (a *Adapter) Flip(mode imagekit.FlipMode) imagekit.Adapter {
	return a.apply("flip", func(src *image.NRGBA) (*image.NRGBA, error) {
		switch mode {
		case imagekit.FlipHorizontal:
			return imaging.FlipH(src), nil
		case imagekit.FlipVertical:
			return imaging.FlipV(src), nil
		case imagekit.FlipBoth:
			return imaging.Rotate180(src), nil
		}
		return nil, fmt.Errorf("%w: unknown flip mode %q", imagekit.ErrInvalidInput, mode)
	})
}

func (a *Adapter) AutoOrient() imagekit.Adapter {
	return a.apply("autoOrient", func(src *image.NRGBA) (*image.NRGBA, error) {
		o := a.orientation
		if o <= codec.OrientationNormal {
			return src, nil
		}
		// the tag describes the source, so it applies once
		a.orientation = codec.OrientationNormal
		return raster.Orient(src, o), nil
	})
}

func (a *Adapter) Watermark(overlayPath string, position imagekit.Position, opacity float64) imagekit.Adapter {
	return a.apply("watermark", func(src *image.NRGBA) (*image.NRGBA, error) {
		data, err := readImageFile(overlayPath)
		if err != nil {
			return nil, err
		}
		overlay, _, err := decode(data)
		if err != nil {
			return nil, err
		}
		opacity = math.Max(0, math.Min(1, opacity))
		b, o := src.Bounds(), overlay.Bounds()
		pt := position.Offset(b.Dx(), b.Dy(), o.Dx(), o.Dy())
		return imaging.Overlay(src, overlay, pt, opacity), nil
	})
}

func (a *Adapter) Text(text string, size float64, hexColor, fontPath string, x, y int) imagekit.Adapter {
	return a.apply("text", func(src *image.NRGBA) (*image.NRGBA, error) {
		return raster.DrawText(src, text, size, hexColor, fontPath, x, y)
	})
}

func (a *Adapter) Grayscale() imagekit.Adapter {
	return a.apply("grayscale", func(src *image.NRGBA) (*image.NRGBA, error) {
		return imaging.Grayscale(src), nil
	})
}

func (a *Adapter) Invert() imagekit.Adapter {
	return a.apply("invert", func(src *image.NRGBA) (*image.NRGBA, error) {
		return imaging.Invert(src), nil
	})
}

func (a *Adapter) Dither(palette []string) imagekit.Adapter {
	return a.apply("dither", func(src *image.NRGBA) (*image.NRGBA, error) {
		return raster.Dither(src, palette)
	})
}

func (a *Adapter) Brightness(level int) imagekit.Adapter {
	return a.apply("brightness", func(src *image.NRGBA) (*image.NRGBA, error) {
		return raster.Brightness(src, level), nil
	})
}

func (a *Adapter) Contrast(level int) imagekit.Adapter {
	return a.apply("contrast", func(src *image.NRGBA) (*image.NRGBA, error) {
		return raster.Contrast(src, level), nil
	})
}

func (a *Adapter) Blur(radius float64) imagekit.Adapter {
	return a.apply("blur", func(src *image.NRGBA) (*image.NRGBA, error) {
		return raster.Blur(src, radius), nil
	})
}

func (a *Adapter) Sharpen(radius, sigma float64) imagekit.Adapter {
	return a.apply("sharpen", func(src *image.NRGBA) (*image.NRGBA, error) {
		return raster.Sharpen(src), nil
	})
}

func (a *Adapter) Palette(count int) ([]string, error) {
	if err := a.usable(); err != nil {
		return nil, err
	}
	return raster.Palette(a.buf, count), nil
}

func (a *Adapter) Histogram() (*imagekit.Histogram, error) {
	if err := a.usable(); err != nil {
		return nil, err
	}
	return raster.Histogram(a.buf), nil
}

func (a *Adapter) Compress(quality int, opts imagekit.CompressOptions) imagekit.Adapter {
	target := opts.Format
	if target == imagekit.FormatUnknown {
		target = a.caps.PreferredFormat(a.format)
	}
	a.apply("compress", func(src *image.NRGBA) (*image.NRGBA, error) {
		data, err := a.encode(target, codec.EncodeOptions{
			Quality:     quality,
			Lossless:    opts.Lossless,
			Progressive: opts.Progressive,
		})
		if err != nil {
			return nil, err
		}
		img, _, err := codec.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%w: re-decoding %s output: %v", imagekit.ErrEncodeFailure, target, err)
		}
		slog.Debug("ImagingAdapter: compressed",
			"format", target.String(),
			"quality", quality,
			"size", bytefmt.ByteSize(uint64(len(data))))
		return imaging.Clone(img), nil
	})
	if a.err == nil {
		a.format = target
	}
	return a
}

func (a *Adapter) encode(f imagekit.Format, o codec.EncodeOptions) ([]byte, error) {
	if !a.caps.CanEncode(f) {
		return nil, fmt.Errorf("%w: %s cannot be encoded by the %s backend", imagekit.ErrUnsupportedFormat, f, Name)
	}
	return codec.EncodeBytes(a.buf, f, o)
}

func (a *Adapter) Save(path string, quality int) error {
	if err := a.usable(); err != nil {
		return err
	}
	f, ok := imagekit.FormatFromPath(path)
	if !ok {
		return fmt.Errorf("%w: unknown extension of %q", imagekit.ErrUnsupportedFormat, path)
	}
	data, err := a.encode(f, codec.EncodeOptions{Quality: quality})
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	a.format = f
	slog.Debug("ImagingAdapter: image saved", "path", path, "format", f.String(), "size", bytefmt.ByteSize(uint64(len(data))))
	return nil
}

func (a *Adapter) Output(mime string, quality int) (*imagekit.Output, error) {
	if err := a.usable(); err != nil {
		return nil, err
	}
	f := a.format
	if mime != "" {
		var ok bool
		if f, ok = imagekit.ParseFormat(mime); !ok {
			return nil, fmt.Errorf("%w: unknown media type %q", imagekit.ErrUnsupportedFormat, mime)
		}
	}
	data, err := a.encode(f, codec.EncodeOptions{Quality: quality})
	if err != nil {
		return nil, err
	}
	return &imagekit.Output{ContentType: f.MIME(), Body: data}, nil
}

func (a *Adapter) ToBase64(mime string, quality int, asDataURI bool) (string, error) {
	out, err := a.Output(mime, quality)
	if err != nil {
		return "", err
	}
	encoded := base64.StdEncoding.EncodeToString(out.Body)
	if asDataURI {
		return "data:" + out.ContentType + ";base64," + encoded, nil
	}
	return encoded, nil
}

func (a *Adapter) Encode(f imagekit.Format, quality int) ([]byte, error) {
	if err := a.usable(); err != nil {
		return nil, err
	}
	return a.encode(f, codec.EncodeOptions{Quality: quality})
}

func (a *Adapter) Width() int {
	if a.buf == nil {
		return 0
	}
	return a.buf.Bounds().Dx()
}

func (a *Adapter) Height() int {
	if a.buf == nil {
		return 0
	}
	return a.buf.Bounds().Dy()
}

func (a *Adapter) MIME() string                        { return a.format.MIME() }
func (a *Adapter) Format() imagekit.Format             { return a.format }
func (a *Adapter) Capabilities() imagekit.Capabilities { return a.caps }

// Native returns the *image.NRGBA buffer, or nil after Close.
func (a *Adapter) Native() any {
	if a.buf == nil {
		return nil
	}
	return a.buf
}

func (a *Adapter) Err() error { return a.err }

func (a *Adapter) Close() error {
	a.buf = nil
	return nil
}
