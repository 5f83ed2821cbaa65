package pipeline

import (
	"fmt"

	"github.com/jo-hoe/gopix/internal/imagekit"
)

type CompressParams struct {
	Quality       int    `mapstructure:"quality"`
	Format        string `mapstructure:"format"`
	Lossless      bool   `mapstructure:"lossless"`
	StripMetadata bool   `mapstructure:"stripMetadata"`
	Progressive   bool   `mapstructure:"progressive"`
}

func NewCompressStep(params map[string]any) (Step, error) {
	p := CompressParams{Quality: 80, StripMetadata: true}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Quality < 0 || p.Quality > 100 {
		return nil, fmt.Errorf("quality must be within [0, 100], got %d", p.Quality)
	}

	opts := imagekit.CompressOptions{
		Lossless:      p.Lossless,
		StripMetadata: p.StripMetadata,
		Progressive:   p.Progressive,
	}
	if p.Format != "" {
		f, ok := imagekit.ParseFormat(p.Format)
		if !ok {
			return nil, fmt.Errorf("%w: unknown format %q", imagekit.ErrUnsupportedFormat, p.Format)
		}
		opts.Format = f
	}
	return &adapterStep{name: "compress", apply: func(img imagekit.Adapter) imagekit.Adapter {
		return img.Compress(p.Quality, opts)
	}}, nil
}
