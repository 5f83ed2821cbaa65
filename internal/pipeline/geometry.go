package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/jo-hoe/gopix/internal/imagekit"
)

type ResizeParams struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

func NewResizeStep(params map[string]any) (Step, error) {
	if err := ValidateRequiredParams(params, []string{"width", "height"}); err != nil {
		return nil, err
	}
	var p ResizeParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("width and height must be positive, got %dx%d", p.Width, p.Height)
	}
	return &adapterStep{name: "resize", apply: func(img imagekit.Adapter) imagekit.Adapter {
		return img.Resize(p.Width, p.Height)
	}}, nil
}

type ThumbnailParams struct {
	Width  int  `mapstructure:"width"`
	Height int  `mapstructure:"height"`
	Crop   bool `mapstructure:"crop"`
}

func NewThumbnailStep(params map[string]any) (Step, error) {
	if err := ValidateRequiredParams(params, []string{"width", "height"}); err != nil {
		return nil, err
	}
	var p ThumbnailParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("width and height must be positive, got %dx%d", p.Width, p.Height)
	}
	return &adapterStep{name: "thumbnail", apply: func(img imagekit.Adapter) imagekit.Adapter {
		return img.Thumbnail(p.Width, p.Height, p.Crop)
	}}, nil
}

type CropParams struct {
	X      int `mapstructure:"x"`
	Y      int `mapstructure:"y"`
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

func NewCropStep(params map[string]any) (Step, error) {
	if err := ValidateRequiredParams(params, []string{"width", "height"}); err != nil {
		return nil, err
	}
	var p CropParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Width <= 0 || p.Height <= 0 || p.X < 0 || p.Y < 0 {
		return nil, fmt.Errorf("invalid crop rectangle %d,%d %dx%d", p.X, p.Y, p.Width, p.Height)
	}
	return &adapterStep{name: "crop", apply: func(img imagekit.Adapter) imagekit.Adapter {
		return img.Crop(p.X, p.Y, p.Width, p.Height)
	}}, nil
}

type RotateParams struct {
	Angle float64 `mapstructure:"angle"`
}

func NewRotateStep(params map[string]any) (Step, error) {
	if err := ValidateRequiredParams(params, []string{"angle"}); err != nil {
		return nil, err
	}
	var p RotateParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return &adapterStep{name: "rotate", apply: func(img imagekit.Adapter) imagekit.Adapter {
		return img.Rotate(p.Angle)
	}}, nil
}

type FlipParams struct {
	Mode string `mapstructure:"mode"`
}

func NewFlipStep(params map[string]any) (Step, error) {
	p := FlipParams{Mode: string(imagekit.FlipHorizontal)}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	mode, err := imagekit.ParseFlipMode(p.Mode)
	if err != nil {
		return nil, err
	}
	return &adapterStep{name: "flip", apply: func(img imagekit.Adapter) imagekit.Adapter {
		return img.Flip(mode)
	}}, nil
}

func NewAutoOrientStep(params map[string]any) (Step, error) {
	if err := decodeParams(params, &struct{}{}); err != nil {
		return nil, err
	}
	return &adapterStep{name: "autoOrient", apply: func(img imagekit.Adapter) imagekit.Adapter {
		return img.AutoOrient()
	}}, nil
}

// OrientationParams represents typed parameters for the orientation step
type OrientationParams struct {
	Orientation      string `mapstructure:"orientation"`
	RotateWhenSquare bool   `mapstructure:"rotateWhenSquare"`
	Clockwise        bool   `mapstructure:"clockwise"`
}

// OrientationStep rotates an image by a quarter turn when its aspect does not
// match the wanted orientation.
type OrientationStep struct {
	params OrientationParams
}

// NewOrientationStep creates an orientation step from configuration parameters
func NewOrientationStep(params map[string]any) (Step, error) {
	p := OrientationParams{Orientation: "portrait", Clockwise: true}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Orientation != "portrait" && p.Orientation != "landscape" {
		return nil, fmt.Errorf("invalid orientation: %s (must be 'portrait' or 'landscape')", p.Orientation)
	}
	return &OrientationStep{params: p}, nil
}

func (s *OrientationStep) Name() string { return "orientation" }

func (s *OrientationStep) Apply(img imagekit.Adapter) imagekit.Adapter {
	if img.Err() != nil {
		return img
	}
	width, height := img.Width(), img.Height()

	if width == height {
		if !s.params.RotateWhenSquare {
			slog.Debug("OrientationStep: image is square and rotateWhenSquare=false; no rotation performed")
			return img
		}
	} else if (height > width) == (s.params.Orientation == "portrait") {
		slog.Debug("OrientationStep: already in correct orientation, no rotation needed",
			"width", width,
			"height", height)
		return img
	}

	slog.Debug("OrientationStep: rotating image 90 degrees", "clockwise", s.params.Clockwise)
	// Rotate turns counter-clockwise
	if s.params.Clockwise {
		return img.Rotate(-90)
	}
	return img.Rotate(90)
}
