package raster

import (
	"fmt"
	"image"
	"image/draw"
	"os"
	"strings"

	"github.com/jo-hoe/gopix/internal/imagekit"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// DrawText renders text onto a copy of img with the TrueType or OpenType font
// at fontPath. (x, y) is the top-left corner of the first line; each further
// line starts one line height below.
func DrawText(img image.Image, text string, size float64, hexColor, fontPath string, x, y int) (*image.NRGBA, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: font size must be positive, got %v", imagekit.ErrInvalidInput, size)
	}
	col, err := ParseHexColor(hexColor)
	if err != nil {
		return nil, err
	}
	face, err := loadFace(fontPath, size)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	dst := image.NewNRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)

	metrics := face.Metrics()
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
	}
	baseline := fixed.I(y) + metrics.Ascent
	for _, line := range strings.Split(text, "\n") {
		drawer.Dot = fixed.Point26_6{X: fixed.I(x), Y: baseline}
		drawer.DrawString(line)
		baseline += metrics.Height
	}
	return dst, nil
}

func loadFace(fontPath string, size float64) (font.Face, error) {
	data, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read font %q: %v", imagekit.ErrInvalidInput, fontPath, err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot parse font %q: %v", imagekit.ErrInvalidInput, fontPath, err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: cannot create font face: %v", imagekit.ErrInvalidInput, err)
	}
	return face, nil
}
