package main

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

	"github.com/jo-hoe/gopix/internal/imagekit"
)

func TestParseStep(t *testing.T) {
	sc, err := parseStep("thumbnail:width=320, height=240,crop=true")
	if err != nil {
		t.Fatalf("parseStep failed: %v", err)
	}
	if sc.Name != "thumbnail" || sc.Params["width"] != "320" || sc.Params["height"] != "240" || sc.Params["crop"] != "true" {
		t.Errorf("Unexpected step config: %+v", sc)
	}

	sc, err = parseStep("grayscale")
	if err != nil || sc.Name != "grayscale" || len(sc.Params) != 0 {
		t.Errorf("Expected bare grayscale step, got %+v (%v)", sc, err)
	}

	for _, bad := range []string{"", ":width=1", "resize:width"} {
		if _, err := parseStep(bad); !errors.Is(err, imagekit.ErrInvalidInput) {
			t.Errorf("parseStep(%q): expected ErrInvalidInput, got %v", bad, err)
		}
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	img.Set(0, 0, color.NRGBA{255, 0, 0, 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
}

func TestRun_Steps(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.jpg")
	writePNG(t, in, 60, 30)

	err := run(options{
		input:   in,
		output:  out,
		backend: "imaging",
		steps:   []string{"resize:width=30,height=15", "orientation:orientation=portrait"},
		quality: 90,
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if format != "jpeg" || cfg.Width != 15 || cfg.Height != 30 {
		t.Errorf("Expected 15x30 jpeg, got %dx%d %s", cfg.Width, cfg.Height, format)
	}
}

func TestRun_Preset(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	configPath := filepath.Join(dir, "config.yaml")
	writePNG(t, in, 40, 40)
	config := "presets:\n  - name: tiny\n    steps:\n      - name: thumbnail\n        width: 10\n        height: 10\n"
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if err := run(options{input: in, output: out, preset: "tiny", config: configPath, quality: -1}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("Expected output file: %v", err)
	}

	err := run(options{input: in, output: out, preset: "huge", config: configPath})
	if err == nil {
		t.Error("Expected unknown preset error")
	}
}

func TestRun_Errors(t *testing.T) {
	if err := run(options{}); err == nil {
		t.Error("Expected missing input error")
	}
	if err := run(options{input: "x.png"}); err == nil {
		t.Error("Expected nothing-to-do error")
	}
	if err := run(options{input: "x.png", output: "y.png", preset: "p"}); err == nil {
		t.Error("Expected preset without config error")
	}
	if err := run(options{input: "x.png", output: "y.png", steps: []string{"sepia"}}); err == nil {
		t.Error("Expected unknown step error")
	}
}

func TestListSteps(t *testing.T) {
	var out bytes.Buffer
	listSteps(&out)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) < 2 || lines[0] != "autoOrient" {
		t.Fatalf("Expected a sorted step list starting with autoOrient, got %q", out.String())
	}
	for _, name := range []string{"resize", "thumbnail", "dither"} {
		if !strings.Contains(out.String(), name+"\n") {
			t.Errorf("Expected %s in step list", name)
		}
	}
}
