package core

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/jo-hoe/gopix/internal/imagekit"
	"github.com/jo-hoe/gopix/internal/store"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

func newTestCoreService(t *testing.T) *CoreService {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Backend = "imaging"
	cfg.MaxUploadSize = "64K"
	cfg.Store = store.Config{Type: "sqlite", ConnectionString: ":memory:"}
	cfg.Presets = []PresetConfig{
		{
			Name:   "thumb",
			Format: "jpeg",
			Steps: []StepConfig{
				{Name: "thumbnail", Params: map[string]any{"width": 16, "height": 16, "crop": true}},
				{Name: "grayscale"},
			},
		},
		{
			Name:  "portrait",
			Steps: []StepConfig{{Name: "orientation", Params: map[string]any{"orientation": "portrait"}}},
		},
	}
	svc, err := NewCoreService(cfg)
	if err != nil {
		t.Fatalf("NewCoreService failed: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestNewCoreService_UnknownBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = "magick"
	if _, err := NewCoreService(cfg); err == nil {
		t.Fatal("Expected error for unknown backend")
	}
}

func TestNewCoreService_PresetFormatNotEncodable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Presets = []PresetConfig{{Name: "modern", Format: "avif"}}
	caps := imagekit.Capabilities{
		Backend: "imaging",
		Decode:  map[imagekit.Format]bool{imagekit.FormatPNG: true},
		Encode:  map[imagekit.Format]bool{imagekit.FormatPNG: true},
	}
	_, err := NewCoreServiceWithCapabilities(cfg, caps)
	if !errors.Is(err, imagekit.ErrUnsupportedFormat) {
		t.Fatalf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestCoreService_Presets(t *testing.T) {
	svc := newTestCoreService(t)
	got := svc.Presets()
	if len(got) != 2 || got[0] != "portrait" || got[1] != "thumb" {
		t.Errorf("Expected sorted presets [portrait thumb], got %v", got)
	}
	if svc.Capabilities().Backend != "imaging" {
		t.Errorf("Expected imaging backend, got %q", svc.Capabilities().Backend)
	}
}

func TestCoreService_Process(t *testing.T) {
	svc := newTestCoreService(t)
	ctx := context.Background()
	input := pngBytes(t, 64, 32, color.NRGBA{200, 30, 30, 255})

	d, cached, err := svc.Process(ctx, "thumb", input)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if cached {
		t.Error("Expected the first run to process the image")
	}
	if d.ContentType != "image/jpeg" {
		t.Errorf("Expected image/jpeg, got %s", d.ContentType)
	}
	if d.Width != 16 || d.Height != 16 {
		t.Errorf("Expected 16x16, got %dx%d", d.Width, d.Height)
	}
	if d.ID == "" || len(d.Body) == 0 {
		t.Fatal("Expected stored derivative with id and body")
	}

	again, cached, err := svc.Process(ctx, "thumb", input)
	if err != nil {
		t.Fatalf("second Process failed: %v", err)
	}
	if !cached {
		t.Error("Expected the second run to be served from the store")
	}
	if again.ID != d.ID {
		t.Errorf("Expected cached derivative %s, got %s", d.ID, again.ID)
	}

	fetched, err := svc.Derivative(ctx, d.ID)
	if err != nil {
		t.Fatalf("Derivative failed: %v", err)
	}
	if !bytes.Equal(fetched.Body, d.Body) {
		t.Error("Expected fetched body to match processed body")
	}
}

func TestCoreService_ProcessKeepsSourceFormat(t *testing.T) {
	svc := newTestCoreService(t)
	d, _, err := svc.Process(context.Background(), "portrait", pngBytes(t, 40, 20, color.White))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if d.ContentType != "image/png" {
		t.Errorf("Expected image/png, got %s", d.ContentType)
	}
	if d.Width != 20 || d.Height != 40 {
		t.Errorf("Expected 20x40, got %dx%d", d.Width, d.Height)
	}
}

func TestCoreService_ProcessErrors(t *testing.T) {
	svc := newTestCoreService(t)
	ctx := context.Background()

	if _, _, err := svc.Process(ctx, "missing", pngBytes(t, 4, 4, color.White)); !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("Expected ErrUnknownPreset, got %v", err)
	}
	if _, _, err := svc.Process(ctx, "thumb", make([]byte, 65*1024)); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Expected ErrTooLarge, got %v", err)
	}
	if _, _, err := svc.Process(ctx, "thumb", []byte("not an image")); !errors.Is(err, imagekit.ErrUnsupportedFormat) &&
		!errors.Is(err, imagekit.ErrInvalidInput) {
		t.Errorf("Expected decode error, got %v", err)
	}
	if _, err := svc.Derivative(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCoreService_Analyze(t *testing.T) {
	svc := newTestCoreService(t)
	analysis, err := svc.Analyze(pngBytes(t, 10, 5, color.NRGBA{255, 0, 0, 255}), 3)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if analysis.Width != 10 || analysis.Height != 5 {
		t.Errorf("Expected 10x5, got %dx%d", analysis.Width, analysis.Height)
	}
	if analysis.Format != "png" || analysis.MIME != "image/png" {
		t.Errorf("Expected png, got %s (%s)", analysis.Format, analysis.MIME)
	}
	if len(analysis.Palette) != 1 || analysis.Palette[0] != "#ff0000" {
		t.Errorf("Expected [#ff0000], got %v", analysis.Palette)
	}
	if analysis.Histogram == nil || analysis.Histogram.Red[255] != 50 {
		t.Errorf("Expected 50 red samples at 255, got %+v", analysis.Histogram)
	}
}
