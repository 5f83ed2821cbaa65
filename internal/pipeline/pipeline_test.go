package pipeline

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jo-hoe/gopix/internal/backend/imagingbackend"
	"github.com/jo-hoe/gopix/internal/imagekit"
)

func openTestImage(t *testing.T, w, h int) imagekit.Adapter {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	a, err := imagingbackend.LoadBytes(buf.Bytes(), imagingbackend.Probe())
	if err != nil {
		t.Fatalf("LoadBytes failed: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNewStepRegistry(t *testing.T) {
	registry := NewStepRegistry()
	if registry == nil {
		t.Fatal("Expected non-nil registry")
	}
	if registry.factories == nil {
		t.Fatal("Expected non-nil factories map")
	}
}

func TestStepRegistry_Register(t *testing.T) {
	registry := NewStepRegistry()
	factory := func(map[string]any) (Step, error) { return newMockStep("test"), nil }

	if err := registry.Register("test", factory); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := registry.Register("test", factory); err == nil {
		t.Error("Expected error for duplicate registration")
	}
	if err := registry.Register("TEST", factory); err == nil {
		t.Error("Expected names differing only in case to collide")
	}
	if err := registry.Register("", factory); err == nil {
		t.Error("Expected error for empty name")
	}
	if err := registry.Register("nil", nil); err == nil {
		t.Error("Expected error for nil factory")
	}
}

func TestStepRegistry_Create(t *testing.T) {
	registry := NewStepRegistry()
	_ = registry.Register("test", func(map[string]any) (Step, error) { return newMockStep("test"), nil })
	_ = registry.Register("broken", func(map[string]any) (Step, error) { return nil, errors.New("boom") })

	step, err := registry.Create("test", nil)
	if err != nil || step.Name() != "test" {
		t.Errorf("Expected step 'test', got %v (%v)", step, err)
	}
	if _, err := registry.Create("missing", nil); !errors.Is(err, ErrUnknownStep) {
		t.Errorf("Expected ErrUnknownStep, got %v", err)
	} else if !strings.Contains(err.Error(), "available: broken, test") {
		t.Errorf("Expected the available steps in %q", err.Error())
	}
	if _, err := registry.Create("broken", nil); err == nil {
		t.Error("Expected factory error to be returned")
	}
}

func TestStepRegistry_LookupIgnoresCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		found    bool
	}{
		{"autoOrient", "autoOrient", true},
		{"autoorient", "autoOrient", true},
		{" AUTOORIENT ", "autoOrient", true},
		{"Grayscale", "grayscale", true},
		{"sepia", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			name, found := DefaultRegistry.Lookup(tt.input)
			if found != tt.found || name != tt.expected {
				t.Errorf("Lookup(%q) = %q, %v; expected %q, %v", tt.input, name, found, tt.expected, tt.found)
			}
		})
	}

	step, err := DefaultRegistry.Create("GRAYSCALE", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if step.Name() != "grayscale" {
		t.Errorf("Expected grayscale step, got %s", step.Name())
	}
}

func TestDefaultRegistry_BuiltinSteps(t *testing.T) {
	expected := []string{
		"autoOrient", "blur", "brightness", "compress", "contrast", "crop", "dither", "flip", "grayscale",
		"invert", "orientation", "resize", "rotate", "sharpen", "text", "thumbnail", "watermark",
	}
	names := DefaultRegistry.Names()
	if len(names) != len(expected) {
		t.Fatalf("Expected %d steps, got %v", len(expected), names)
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("Expected %s at %d, got %s", expected[i], i, names[i])
		}
	}
}

func TestStepFactories_Validation(t *testing.T) {
	tests := []struct {
		name    string
		step    string
		params  map[string]any
		wantErr bool
	}{
		{"resize ok", "resize", map[string]any{"width": 10, "height": 20}, false},
		{"resize from strings", "resize", map[string]any{"width": "10", "height": "20"}, false},
		{"resize missing height", "resize", map[string]any{"width": 10}, true},
		{"resize negative", "resize", map[string]any{"width": -1, "height": 20}, true},
		{"resize unknown key", "resize", map[string]any{"width": 10, "height": 20, "depth": 3}, true},
		{"thumbnail crop", "thumbnail", map[string]any{"width": 10, "height": 10, "crop": true}, false},
		{"crop negative origin", "crop", map[string]any{"x": -1, "width": 10, "height": 10}, true},
		{"rotate", "rotate", map[string]any{"angle": 45.5}, false},
		{"rotate missing angle", "rotate", map[string]any{}, true},
		{"flip default", "flip", nil, false},
		{"flip invalid", "flip", map[string]any{"mode": "diagonal"}, true},
		{"orientation invalid", "orientation", map[string]any{"orientation": "upside-down"}, true},
		{"watermark missing path", "watermark", map[string]any{"position": "center"}, true},
		{"watermark bad position", "watermark", map[string]any{"path": "logo.png", "position": "middle"}, true},
		{"watermark bad opacity", "watermark", map[string]any{"path": "logo.png", "opacity": 2}, true},
		{"text bad color", "text", map[string]any{"text": "hi", "font": "f.ttf", "color": "#zz"}, true},
		{"grayscale with params", "grayscale", map[string]any{"level": 2}, true},
		{"brightness beyond range", "brightness", map[string]any{"level": 300}, false},
		{"brightness missing level", "brightness", nil, true},
		{"contrast ok", "contrast", map[string]any{"level": -50}, false},
		{"contrast beyond range", "contrast", map[string]any{"level": 101}, false},
		{"blur negative", "blur", map[string]any{"radius": -1}, true},
		{"sharpen defaults", "sharpen", nil, false},
		{"dither default palette", "dither", nil, false},
		{"dither yaml palette", "dither", map[string]any{"palette": []any{"#000", "#ff0000"}}, false},
		{"dither bad palette", "dither", map[string]any{"palette": []any{"red"}}, true},
		{"compress webp", "compress", map[string]any{"format": "webp", "quality": 70}, false},
		{"compress unknown format", "compress", map[string]any{"format": "heic"}, true},
		{"compress bad quality", "compress", map[string]any{"quality": 101}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DefaultRegistry.Create(tt.step, tt.params)
			if (err != nil) != tt.wantErr {
				t.Errorf("Create(%s, %v) error = %v, wantErr %v", tt.step, tt.params, err, tt.wantErr)
			}
		})
	}
}

func TestInvoker_Run(t *testing.T) {
	first, second := newMockStep("first"), newMockStep("second")
	img := openTestImage(t, 10, 10)

	if err := NewInvoker([]Step{first, second}).Run(img); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("Expected each step to run once, got %d and %d", first.calls, second.calls)
	}
}

func TestInvoker_StopsAtFirstError(t *testing.T) {
	failing, after := newMockStepWithError("failing"), newMockStep("after")
	img := openTestImage(t, 10, 10)

	err := NewInvoker([]Step{failing, after}).Run(img)
	if !errors.Is(err, imagekit.ErrInvalidInput) {
		t.Fatalf("Expected ErrInvalidInput, got %v", err)
	}
	if after.calls != 0 {
		t.Error("Steps after a failure must not run")
	}
}

func TestBuild(t *testing.T) {
	invoker, err := Build(DefaultRegistry, []StepConfig{
		{Name: "resize", Params: map[string]any{"width": 40, "height": 20}},
		{Name: "orientation", Params: map[string]any{"orientation": "portrait"}},
		{Name: "grayscale"},
		{Name: "compress", Params: map[string]any{"format": "jpeg", "quality": 60}},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if invoker.Len() != 4 {
		t.Fatalf("Expected 4 steps, got %d", invoker.Len())
	}

	img := openTestImage(t, 64, 64)
	if err := invoker.Run(img); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if img.Width() != 20 || img.Height() != 40 {
		t.Errorf("Expected 20x40 portrait, got %dx%d", img.Width(), img.Height())
	}
	if img.MIME() != "image/jpeg" {
		t.Errorf("Expected image/jpeg, got %s", img.MIME())
	}

	if _, err := Build(DefaultRegistry, []StepConfig{{Name: "unknown"}}); !errors.Is(err, ErrUnknownStep) {
		t.Errorf("Expected ErrUnknownStep, got %v", err)
	}
}

func TestOrientationStep(t *testing.T) {
	tests := []struct {
		name                 string
		params               map[string]any
		w, h                 int
		expectedW, expectedH int
	}{
		{"landscape to portrait", map[string]any{"orientation": "portrait"}, 30, 10, 10, 30},
		{"portrait kept", map[string]any{"orientation": "portrait"}, 10, 30, 10, 30},
		{"portrait to landscape", map[string]any{"orientation": "landscape", "clockwise": false}, 10, 30, 30, 10},
		{"square untouched", map[string]any{}, 20, 20, 20, 20},
		{"square rotated", map[string]any{"rotateWhenSquare": "true"}, 20, 20, 20, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step, err := NewOrientationStep(tt.params)
			if err != nil {
				t.Fatalf("NewOrientationStep failed: %v", err)
			}
			img := openTestImage(t, tt.w, tt.h)
			step.Apply(img)
			if err := img.Err(); err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			if img.Width() != tt.expectedW || img.Height() != tt.expectedH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.expectedW, tt.expectedH, img.Width(), img.Height())
			}
		})
	}
}

func TestOrientationStep_ClockwiseDirection(t *testing.T) {
	img := openTestImage(t, 4, 2)
	topLeft := img.Native().(*image.NRGBA).NRGBAAt(0, 0)

	step, _ := NewOrientationStep(map[string]any{"orientation": "portrait", "clockwise": true})
	step.Apply(img)

	// a clockwise quarter turn moves the top-left corner to the top-right
	rotated := img.Native().(*image.NRGBA)
	if got := rotated.NRGBAAt(rotated.Bounds().Dx()-1, 0); got != topLeft {
		t.Errorf("Expected the top-left pixel at the top-right, got %v", got)
	}
}

func TestWatermarkStep(t *testing.T) {
	logo := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	if err := png.Encode(&buf, logo); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "logo.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	step, err := NewWatermarkStep(map[string]any{"path": path, "position": "top-left", "opacity": "0.5"})
	if err != nil {
		t.Fatalf("NewWatermarkStep failed: %v", err)
	}
	img := openTestImage(t, 16, 16)
	step.Apply(img)
	if err := img.Err(); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if img.Width() != 16 || img.Height() != 16 {
		t.Errorf("Expected 16x16, got %dx%d", img.Width(), img.Height())
	}
}

func TestBrightnessStep_ClampsLevel(t *testing.T) {
	step, err := DefaultRegistry.Create("brightness", map[string]any{"level": 300})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	img := openTestImage(t, 4, 4)
	step.Apply(img)
	if err := img.Err(); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if px := img.Native().(*image.NRGBA).NRGBAAt(0, 0); px != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("Expected a level of 300 to act like 255, got %v", px)
	}
}

func TestValidateRequiredParams(t *testing.T) {
	params := map[string]any{"a": 1}
	if err := ValidateRequiredParams(params, []string{"a"}); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := ValidateRequiredParams(params, []string{"a", "b"}); err == nil {
		t.Error("Expected error for missing parameter")
	}
}
