package pipeline

import (
	"fmt"

	"github.com/jo-hoe/gopix/internal/imagekit"
	"github.com/jo-hoe/gopix/internal/raster"
)

func noParams(name string, apply func(img imagekit.Adapter) imagekit.Adapter) StepFactory {
	return func(params map[string]any) (Step, error) {
		if err := decodeParams(params, &struct{}{}); err != nil {
			return nil, err
		}
		return &adapterStep{name: name, apply: apply}, nil
	}
}

// LevelParams is shared by brightness and contrast.
type LevelParams struct {
	Level int `mapstructure:"level"`
}

// levelStep builds brightness and contrast steps. Out of range levels are
// passed on unchanged; the adapter clamps them.
func levelStep(name string, apply func(img imagekit.Adapter, level int) imagekit.Adapter) StepFactory {
	return func(params map[string]any) (Step, error) {
		if err := ValidateRequiredParams(params, []string{"level"}); err != nil {
			return nil, err
		}
		var p LevelParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return &adapterStep{name: name, apply: func(img imagekit.Adapter) imagekit.Adapter {
			return apply(img, p.Level)
		}}, nil
	}
}

var (
	NewGrayscaleStep = noParams("grayscale", func(img imagekit.Adapter) imagekit.Adapter { return img.Grayscale() })
	NewInvertStep    = noParams("invert", func(img imagekit.Adapter) imagekit.Adapter { return img.Invert() })

	NewBrightnessStep = levelStep("brightness", func(img imagekit.Adapter, level int) imagekit.Adapter {
		return img.Brightness(level)
	})
	NewContrastStep = levelStep("contrast", func(img imagekit.Adapter, level int) imagekit.Adapter {
		return img.Contrast(level)
	})
)

type BlurParams struct {
	Radius float64 `mapstructure:"radius"`
}

func NewBlurStep(params map[string]any) (Step, error) {
	p := BlurParams{Radius: 1}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Radius < 0 {
		return nil, fmt.Errorf("radius must not be negative, got %v", p.Radius)
	}
	return &adapterStep{name: "blur", apply: func(img imagekit.Adapter) imagekit.Adapter {
		return img.Blur(p.Radius)
	}}, nil
}

type SharpenParams struct {
	Radius float64 `mapstructure:"radius"`
	Sigma  float64 `mapstructure:"sigma"`
}

func NewSharpenStep(params map[string]any) (Step, error) {
	p := SharpenParams{Radius: 1, Sigma: 1}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return &adapterStep{name: "sharpen", apply: func(img imagekit.Adapter) imagekit.Adapter {
		return img.Sharpen(p.Radius, p.Sigma)
	}}, nil
}

// DitherParams lists the target colours as "#rrggbb" strings
type DitherParams struct {
	Palette []string `mapstructure:"palette"`
}

func NewDitherStep(params map[string]any) (Step, error) {
	var p DitherParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	for i, hex := range p.Palette {
		if _, err := raster.ParseHexColor(hex); err != nil {
			return nil, fmt.Errorf("invalid palette entry %d: %w", i, err)
		}
	}
	return &adapterStep{name: "dither", apply: func(img imagekit.Adapter) imagekit.Adapter {
		return img.Dither(p.Palette)
	}}, nil
}
