package pipeline

import (
	"fmt"

	"github.com/jo-hoe/gopix/internal/imagekit"
	"github.com/jo-hoe/gopix/internal/raster"
)

type WatermarkParams struct {
	Path     string  `mapstructure:"path"`
	Position string  `mapstructure:"position"`
	Opacity  float64 `mapstructure:"opacity"`
}

func NewWatermarkStep(params map[string]any) (Step, error) {
	if err := ValidateRequiredParams(params, []string{"path"}); err != nil {
		return nil, err
	}
	p := WatermarkParams{Position: string(imagekit.BottomRight), Opacity: 1}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	position, err := imagekit.ParsePosition(p.Position)
	if err != nil {
		return nil, err
	}
	if p.Opacity < 0 || p.Opacity > 1 {
		return nil, fmt.Errorf("opacity must be within [0, 1], got %v", p.Opacity)
	}
	return &adapterStep{name: "watermark", apply: func(img imagekit.Adapter) imagekit.Adapter {
		return img.Watermark(p.Path, position, p.Opacity)
	}}, nil
}

type TextParams struct {
	Text  string  `mapstructure:"text"`
	Size  float64 `mapstructure:"size"`
	Color string  `mapstructure:"color"`
	Font  string  `mapstructure:"font"`
	X     int     `mapstructure:"x"`
	Y     int     `mapstructure:"y"`
}

func NewTextStep(params map[string]any) (Step, error) {
	if err := ValidateRequiredParams(params, []string{"text", "font"}); err != nil {
		return nil, err
	}
	p := TextParams{Size: 16, Color: "#000000"}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Size <= 0 {
		return nil, fmt.Errorf("size must be positive, got %v", p.Size)
	}
	if _, err := raster.ParseHexColor(p.Color); err != nil {
		return nil, err
	}
	return &adapterStep{name: "text", apply: func(img imagekit.Adapter) imagekit.Adapter {
		return img.Text(p.Text, p.Size, p.Color, p.Font, p.X, p.Y)
	}}, nil
}
