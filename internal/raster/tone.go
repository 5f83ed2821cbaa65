package raster

import (
	"image"

	"github.com/disintegration/imaging"
)

// Brightness adds level to every colour channel. level is clamped to
// [-255, 255]; alpha is left alone.
func Brightness(img image.Image, level int) *image.NRGBA {
	level = clampInt(level, -255, 255)
	var lut [256]uint8
	for i := range lut {
		lut[i] = clampByte(float64(i + level))
	}
	return applyLUT(img, &lut)
}

// Contrast changes contrast by level, clamped to [-100, 100]. Negative levels
// increase contrast, positive levels flatten the image towards mid grey.
func Contrast(img image.Image, level int) *image.NRGBA {
	level = clampInt(level, -100, 100)
	factor := float64(100-level) / 100
	factor *= factor

	var lut [256]uint8
	for i := range lut {
		v := float64(i) / 255
		v = (v-0.5)*factor + 0.5
		lut[i] = clampByte(v * 255)
	}
	return applyLUT(img, &lut)
}

func applyLUT(img image.Image, lut *[256]uint8) *image.NRGBA {
	dst := imaging.Clone(img)
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	parallelFor(h, func(y int) {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for i := 0; i < len(row); i += 4 {
			row[i] = lut[row[i]]
			row[i+1] = lut[row[i+1]]
			row[i+2] = lut[row[i+2]]
		}
	})
	return dst
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
