//go:build vips

// Package vipsbackend implements imagekit.Adapter on libvips through bimg.
//
// The working buffer is kept as lossless PNG bytes. Formats libvips cannot
// load or save, and operations it has no equivalent for, go through the pure
// Go codec and raster packages.
package vipsbackend

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
	"github.com/h2non/bimg"
	"github.com/jo-hoe/gopix/internal/codec"
	"github.com/jo-hoe/gopix/internal/imagekit"
	"github.com/jo-hoe/gopix/internal/raster"
)

// Name identifies this backend in capabilities and configuration.
const Name = "vips"

var bimgTypes = map[imagekit.Format]bimg.ImageType{
	imagekit.FormatJPEG: bimg.JPEG,
	imagekit.FormatPNG:  bimg.PNG,
	imagekit.FormatGIF:  bimg.GIF,
	imagekit.FormatWebP: bimg.WEBP,
	imagekit.FormatTIFF: bimg.TIFF,
	imagekit.FormatAVIF: bimg.AVIF,
	imagekit.FormatSVG:  bimg.SVG,
}

// Probe reports what the linked libvips can load and save, plus the formats
// bridged through the codec package.
func Probe() imagekit.Capabilities {
	caps := imagekit.Capabilities{
		Backend: Name,
		Decode:  codec.DecodeFormats(),
		Encode:  codec.EncodeFormats(),
	}
	for f, t := range bimgTypes {
		if bimg.IsTypeSupported(t) {
			caps.Decode[f] = true
		}
		if bimg.IsTypeSupportedSave(t) {
			caps.Encode[f] = true
		}
	}
	slog.Info("VipsAdapter: backend probed",
		"libvips_version", bimg.VipsVersion,
		"encode_formats", caps.EncodeFormats())
	return caps
}

func vipsCanLoad(f imagekit.Format) bool {
	t, ok := bimgTypes[f]
	return ok && bimg.IsTypeSupported(t)
}

func vipsCanSave(f imagekit.Format) bool {
	t, ok := bimgTypes[f]
	return ok && bimg.IsTypeSupportedSave(t)
}

// Adapter owns one image as PNG bytes.
type Adapter struct {
	buf         []byte
	size        bimg.ImageSize
	format      imagekit.Format
	orientation codec.Orientation
	caps        imagekit.Capabilities
	err         error
}

var _ imagekit.Adapter = (*Adapter)(nil)

// Load reads and decodes the image at path.
func Load(path string, caps imagekit.Capabilities) (*Adapter, error) {
	data, err := bimg.Read(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read %q: %v", imagekit.ErrInvalidInput, path, err)
	}
	return LoadBytes(data, caps)
}

// LoadBytes decodes an in-memory image.
func LoadBytes(data []byte, caps imagekit.Capabilities) (*Adapter, error) {
	buf, format, orientation, err := toWorkingPNG(data)
	if err != nil {
		return nil, err
	}
	size, err := bimg.NewImage(buf).Size()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", imagekit.ErrUnsupportedFormat, err)
	}
	if !caps.CanEncode(format) {
		slog.Debug("VipsAdapter: source format cannot be written, output defaults to png",
			"source_format", format.String())
		format = imagekit.FormatPNG
	}

	slog.Debug("VipsAdapter: image loaded",
		"format", format.String(),
		"width", size.Width,
		"height", size.Height,
		"size", bytefmt.ByteSize(uint64(len(data))))
	return &Adapter{
		buf:         buf,
		size:        size,
		format:      format,
		orientation: orientation,
		caps:        caps,
	}, nil
}

// toWorkingPNG converts any readable input into the PNG working buffer. The
// orientation tag is read first because the conversion strips metadata.
func toWorkingPNG(data []byte) ([]byte, imagekit.Format, codec.Orientation, error) {
	if len(data) == 0 {
		return nil, imagekit.FormatUnknown, 0, fmt.Errorf("%w: empty image data", imagekit.ErrInvalidInput)
	}
	format := codec.Sniff(data)

	if vipsCanLoad(format) {
		src := bimg.NewImage(data)
		orientation := codec.OrientationUnspecified
		if meta, err := src.Metadata(); err == nil && meta.Orientation >= 1 && meta.Orientation <= 8 {
			orientation = codec.Orientation(meta.Orientation)
		}
		buf, err := src.Process(bimg.Options{
			Type:          bimg.PNG,
			NoAutoRotate:  true,
			StripMetadata: true,
		})
		if err == nil {
			return buf, format, orientation, nil
		}
		slog.Debug("VipsAdapter: libvips failed to load, trying pure Go decoders",
			"detected_format", format.String(),
			"error", err)
	}

	img, format, err := codec.Decode(data)
	if err != nil {
		return nil, format, 0, err
	}
	buf, err := encodeWorking(img)
	if err != nil {
		return nil, format, 0, err
	}
	return buf, format, codec.ReadOrientation(data), nil
}

func encodeWorking(img image.Image) ([]byte, error) {
	return codec.EncodeBytes(img, imagekit.FormatPNG, codec.EncodeOptions{Quality: 100})
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

// vips runs a libvips operation on the working buffer unless the chain has already failed.
func (a *Adapter) vips(op string, fn func(img *bimg.Image) ([]byte, error)) imagekit.Adapter {
	if err := a.usable(); err != nil {
		a.err = err
		return a
	}
	out, err := fn(bimg.NewImage(a.buf))
	if err == nil && out != nil {
		a.size, err = bimg.NewImage(out).Size()
	}
	if err != nil {
		a.err = fmt.Errorf("%s: %w", op, err)
		slog.Debug("VipsAdapter: operation failed", "operation", op, "error", err)
		return a
	}
	if out != nil {
		a.buf = out
	}
	return a
}

// raster runs a pure Go operation on a decoded copy of the working buffer.
func (a *Adapter) raster(op string, fn func(src *image.NRGBA) (*image.NRGBA, error)) imagekit.Adapter {
	return a.vips(op, func(*bimg.Image) ([]byte, error) {
		src, err := a.decoded()
		if err != nil {
			return nil, err
		}
		dst, err := fn(src)
		if err != nil {
			return nil, err
		}
		return encodeWorking(dst)
	})
}

func (a *Adapter) decoded() (*image.NRGBA, error) {
	img, _, err := codec.Decode(a.buf)
	if err != nil {
		return nil, err
	}
	return imaging.Clone(img), nil
}

func (a *Adapter) Resize(w, h int) imagekit.Adapter {
	return a.vips("resize", func(img *bimg.Image) ([]byte, error) {
		if w <= 0 || h <= 0 {
			return nil, fmt.Errorf("%w: invalid size %dx%d", imagekit.ErrInvalidInput, w, h)
		}
		return img.ForceResize(w, h)
	})
}

func (a *Adapter) Thumbnail(maxW, maxH int, crop bool) imagekit.Adapter {
	return a.vips("thumbnail", func(img *bimg.Image) ([]byte, error) {
		if maxW <= 0 || maxH <= 0 {
			return nil, fmt.Errorf("%w: invalid bounds %dx%d", imagekit.ErrInvalidInput, maxW, maxH)
		}
		if crop {
			return img.Process(bimg.Options{
				Width:   maxW,
				Height:  maxH,
				Crop:    true,
				Enlarge: true,
				Gravity: bimg.GravityCentre,
			})
		}
		w, h := raster.ContainSize(a.size.Width, a.size.Height, maxW, maxH)
		if w == a.size.Width && h == a.size.Height {
			return nil, nil
		}
		return img.ForceResize(w, h)
	})
}

func (a *Adapter) Crop(x, y, w, h int) imagekit.Adapter {
	return a.vips("crop", func(img *bimg.Image) ([]byte, error) {
		if w <= 0 || h <= 0 {
			return nil, fmt.Errorf("%w: invalid crop size %dx%d", imagekit.ErrInvalidInput, w, h)
		}
		want := image.Rect(x, y, x+w, y+h)
		rect := want.Intersect(image.Rect(0, 0, a.size.Width, a.size.Height))
		if rect.Empty() {
			return nil, fmt.Errorf("%w: crop rectangle %v lies outside the image", imagekit.ErrInvalidInput, want)
		}
		return img.Extract(rect.Min.Y, rect.Min.X, rect.Dx(), rect.Dy())
	})
}

// Rotate uses libvips for right angles. bimg rotates clockwise, so the angle is mirrored.
func (a *Adapter) Rotate(angle float64) imagekit.Adapter {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return a.vips("rotate", func(*bimg.Image) ([]byte, error) {
			return nil, fmt.Errorf("%w: invalid angle %v", imagekit.ErrInvalidInput, angle)
		})
	}
	normalized := math.Mod(angle, 360)
	if normalized < 0 {
		normalized += 360
	}
	if math.Mod(normalized, 90) != 0 {
		return a.raster("rotate", func(src *image.NRGBA) (*image.NRGBA, error) {
			return imaging.Rotate(src, angle, color.Transparent), nil
		})
	}
	return a.vips("rotate", func(img *bimg.Image) ([]byte, error) {
		clockwise := (360 - int(normalized)) % 360
		if clockwise == 0 {
			return nil, nil
		}
		return img.Rotate(bimg.Angle(clockwise))
	})
}

func (a *Adapter) Flip(mode imagekit.FlipMode) imagekit.Adapter {
	return a.vips("flip", func(img *bimg.Image) ([]byte, error) {
		switch mode {
		case imagekit.FlipHorizontal:
			return img.Flip()
		case imagekit.FlipVertical:
			return img.Flop()
		case imagekit.FlipBoth:
			return img.Rotate(bimg.D180)
		}
		return nil, fmt.Errorf("%w: unknown flip mode %q", imagekit.ErrInvalidInput, mode)
	})
}

func (a *Adapter) AutoOrient() imagekit.Adapter {
	if a.orientation <= codec.OrientationNormal {
		return a.vips("autoOrient", func(*bimg.Image) ([]byte, error) { return nil, nil })
	}
	o := a.orientation
	a.raster("autoOrient", func(src *image.NRGBA) (*image.NRGBA, error) {
		return raster.Orient(src, o), nil
	})
	if a.err == nil {
		a.orientation = codec.OrientationNormal
	}
	return a
}

func (a *Adapter) Watermark(overlayPath string, position imagekit.Position, opacity float64) imagekit.Adapter {
	return a.vips("watermark", func(img *bimg.Image) ([]byte, error) {
		data, err := bimg.Read(overlayPath)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot read %q: %v", imagekit.ErrInvalidInput, overlayPath, err)
		}
		overlay, _, _, err := toWorkingPNG(data)
		if err != nil {
			return nil, err
		}
		osize, err := bimg.NewImage(overlay).Size()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", imagekit.ErrUnsupportedFormat, err)
		}
		opacity = math.Max(0, math.Min(1, opacity))
		pt := position.Offset(a.size.Width, a.size.Height, osize.Width, osize.Height)

		if pt.X < 0 || pt.Y < 0 || osize.Width > a.size.Width || osize.Height > a.size.Height {
			// libvips refuses overlays that do not fit, imaging clips them
			base, err := a.decoded()
			if err != nil {
				return nil, err
			}
			top, _, err := codec.Decode(overlay)
			if err != nil {
				return nil, err
			}
			return encodeWorking(imaging.Overlay(base, top, pt, opacity))
		}
		return img.WatermarkImage(bimg.WatermarkImage{
			Left:    pt.X,
			Top:     pt.Y,
			Buf:     overlay,
			Opacity: float32(opacity),
		})
	})
}

func (a *Adapter) Text(text string, size float64, hexColor, fontPath string, x, y int) imagekit.Adapter {
	return a.raster("text", func(src *image.NRGBA) (*image.NRGBA, error) {
		return raster.DrawText(src, text, size, hexColor, fontPath, x, y)
	})
}

func (a *Adapter) Grayscale() imagekit.Adapter {
	return a.vips("grayscale", func(img *bimg.Image) ([]byte, error) {
		return img.Colourspace(bimg.InterpretationBW)
	})
}

func (a *Adapter) Invert() imagekit.Adapter {
	return a.raster("invert", func(src *image.NRGBA) (*image.NRGBA, error) {
		return imaging.Invert(src), nil
	})
}

func (a *Adapter) Dither(palette []string) imagekit.Adapter {
	return a.raster("dither", func(src *image.NRGBA) (*image.NRGBA, error) {
		return raster.Dither(src, palette)
	})
}

func (a *Adapter) Brightness(level int) imagekit.Adapter {
	return a.raster("brightness", func(src *image.NRGBA) (*image.NRGBA, error) {
		return raster.Brightness(src, level), nil
	})
}

func (a *Adapter) Contrast(level int) imagekit.Adapter {
	return a.raster("contrast", func(src *image.NRGBA) (*image.NRGBA, error) {
		return raster.Contrast(src, level), nil
	})
}

// Blur runs the shared 3x3 kernel so both backends produce the same pixels.
func (a *Adapter) Blur(radius float64) imagekit.Adapter {
	return a.raster("blur", func(src *image.NRGBA) (*image.NRGBA, error) {
		return raster.Blur(src, radius), nil
	})
}

func (a *Adapter) Sharpen(radius, sigma float64) imagekit.Adapter {
	return a.raster("sharpen", func(src *image.NRGBA) (*image.NRGBA, error) {
		return raster.Sharpen(src), nil
	})
}

func (a *Adapter) Palette(count int) ([]string, error) {
	if err := a.usable(); err != nil {
		return nil, err
	}
	img, err := a.decoded()
	if err != nil {
		return nil, err
	}
	return raster.Palette(img, count), nil
}

func (a *Adapter) Histogram() (*imagekit.Histogram, error) {
	if err := a.usable(); err != nil {
		return nil, err
	}
	img, err := a.decoded()
	if err != nil {
		return nil, err
	}
	return raster.Histogram(img), nil
}

func (a *Adapter) Compress(quality int, opts imagekit.CompressOptions) imagekit.Adapter {
	target := opts.Format
	if target == imagekit.FormatUnknown {
		target = a.caps.PreferredFormat(a.format)
	}
	a.vips("compress", func(*bimg.Image) ([]byte, error) {
		data, err := a.encode(target, quality, opts)
		if err != nil {
			return nil, err
		}
		buf, _, _, err := toWorkingPNG(data)
		if err != nil {
			return nil, fmt.Errorf("%w: re-decoding %s output: %v", imagekit.ErrEncodeFailure, target, err)
		}
		slog.Debug("VipsAdapter: compressed",
			"format", target.String(),
			"quality", quality,
			"size", bytefmt.ByteSize(uint64(len(data))))
		return buf, nil
	})
	if a.err == nil {
		a.format = target
	}
	return a
}

// encode writes the working buffer as f, through libvips when it can save f.
func (a *Adapter) encode(f imagekit.Format, quality int, opts imagekit.CompressOptions) ([]byte, error) {
	if !a.caps.CanEncode(f) {
		return nil, fmt.Errorf("%w: %s cannot be encoded by the %s backend", imagekit.ErrUnsupportedFormat, f, Name)
	}
	if vipsCanSave(f) {
		return bimg.NewImage(a.buf).Process(bimg.Options{
			Type:          bimgTypes[f],
			Quality:       vipsQuality(quality),
			Lossless:      opts.Lossless,
			Interlace:     opts.Progressive,
			StripMetadata: true,
		})
	}
	img, err := a.decoded()
	if err != nil {
		return nil, err
	}
	return codec.EncodeBytes(img, f, codec.EncodeOptions{
		Quality:     quality,
		Lossless:    opts.Lossless,
		Progressive: opts.Progressive,
	})
}

// vipsQuality clamps like the codec but never passes 0, which bimg reads as
// "use the libvips default".
func vipsQuality(q int) int {
	return max(1, codec.ClampQuality(q))
}

func (a *Adapter) Save(path string, quality int) error {
	if err := a.usable(); err != nil {
		return err
	}
	f, ok := imagekit.FormatFromPath(path)
	if !ok {
		return fmt.Errorf("%w: unknown extension of %q", imagekit.ErrUnsupportedFormat, path)
	}
	data, err := a.encode(f, quality, imagekit.CompressOptions{})
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	a.format = f
	slog.Debug("VipsAdapter: image saved", "path", path, "format", f.String(), "size", bytefmt.ByteSize(uint64(len(data))))
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
	data, err := a.encode(f, quality, imagekit.CompressOptions{})
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
	return a.encode(f, quality, imagekit.CompressOptions{})
}

func (a *Adapter) Width() int {
	if a.buf == nil {
		return 0
	}
	return a.size.Width
}

func (a *Adapter) Height() int {
	if a.buf == nil {
		return 0
	}
	return a.size.Height
}

func (a *Adapter) MIME() string                        { return a.format.MIME() }
func (a *Adapter) Format() imagekit.Format             { return a.format }
func (a *Adapter) Capabilities() imagekit.Capabilities { return a.caps }

// Native returns a *bimg.Image over the PNG working buffer, or nil after Close.
func (a *Adapter) Native() any {
	if a.buf == nil {
		return nil
	}
	return bimg.NewImage(a.buf)
}

func (a *Adapter) Err() error { return a.err }

func (a *Adapter) Close() error {
	a.buf = nil
	return nil
}
