package raster

import (
	"image"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/jo-hoe/gopix/internal/imagekit"
)

// paletteSampleSide is the side of the square the image is sampled down to
// before colours are counted.
const paletteSampleSide = 50

// Palette returns up to count colours of img as "#rrggbb", most frequent first.
// Colours with the same count are ordered by their hex value.
func Palette(img image.Image, count int) []string {
	if count <= 0 {
		return []string{}
	}
	sample := imaging.Resize(img, paletteSampleSide, paletteSampleSide, imaging.NearestNeighbor)

	counts := make(map[string]int)
	for i := 0; i+3 < len(sample.Pix); i += 4 {
		counts[HexColor(sample.Pix[i], sample.Pix[i+1], sample.Pix[i+2])]++
	}

	colors := make([]string, 0, len(counts))
	for c := range counts {
		colors = append(colors, c)
	}
	sort.Slice(colors, func(i, j int) bool {
		if counts[colors[i]] != counts[colors[j]] {
			return counts[colors[i]] > counts[colors[j]]
		}
		return colors[i] < colors[j]
	})

	if len(colors) > count {
		colors = colors[:count]
	}
	return colors
}

// Histogram counts channel values over every pixel of img.
func Histogram(img image.Image) *imagekit.Histogram {
	src := imaging.Clone(img)
	hist := &imagekit.Histogram{}
	for i := 0; i+3 < len(src.Pix); i += 4 {
		hist.Red[src.Pix[i]]++
		hist.Green[src.Pix[i+1]]++
		hist.Blue[src.Pix[i+2]]++
	}
	return hist
}
