package raster

import (
	"image"
	"math"

	"github.com/disintegration/gift"
	"github.com/disintegration/imaging"
)

var (
	gaussianKernel = [9]float64{
		1, 2, 1,
		2, 4, 2,
		1, 2, 1,
	}
	sharpenKernel = []float32{
		-1, -1, -1,
		-1, 16, -1,
		-1, -1, -1,
	}
)

// BlurPasses is the number of kernel passes Blur runs for radius.
func BlurPasses(radius float64) int {
	n := int(math.Round(radius))
	if n < 1 {
		return 1
	}
	return n
}

// Blur applies the normalised 3x3 Gaussian kernel BlurPasses(radius) times.
func Blur(img image.Image, radius float64) *image.NRGBA {
	opts := &imaging.ConvolveOptions{Normalize: true}
	dst := imaging.Convolve3x3(img, gaussianKernel, opts)
	for i := 1; i < BlurPasses(radius); i++ {
		dst = imaging.Convolve3x3(dst, gaussianKernel, opts)
	}
	return dst
}

// Sharpen applies a fixed sharpening kernel normalised by its sum (8).
func Sharpen(img image.Image) *image.NRGBA {
	g := gift.New(gift.Convolution(sharpenKernel, true, false, false, 0))
	dst := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}
