package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/jo-hoe/gopix/internal/common"
	"github.com/jo-hoe/gopix/internal/core"
	"github.com/labstack/echo/v4"
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

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	cfg := core.DefaultConfig()
	cfg.Backend = "imaging"
	cfg.MaxUploadSize = "32K"
	cfg.Presets = []core.PresetConfig{{
		Name:   "small",
		Format: "png",
		Steps: []core.StepConfig{
			{Name: "resize", Params: map[string]any{"width": 8, "height": 4}},
		},
	}}
	svc, err := core.NewCoreService(cfg)
	if err != nil {
		t.Fatalf("NewCoreService failed: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })

	e := echo.New()
	e.Validator = &common.GenericEchoValidator{}
	NewAPIService(svc).SetRoutes(e)
	return e
}

func do(e *echo.Echo, method, target, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestProbe(t *testing.T) {
	rec := do(newTestServer(t), http.MethodGet, "/probe", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestCapabilitiesHandler(t *testing.T) {
	rec := do(newTestServer(t), http.MethodGet, "/api/capabilities", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp capabilitiesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Backend != "imaging" {
		t.Errorf("Expected imaging backend, got %q", resp.Backend)
	}
	if len(resp.Presets) != 1 || resp.Presets[0] != "small" {
		t.Errorf("Expected [small], got %v", resp.Presets)
	}
	if len(resp.Encode) == 0 || len(resp.Decode) == 0 {
		t.Error("Expected non-empty format lists")
	}
	if !slices.Contains(resp.Steps, "autoOrient") || !slices.Contains(resp.Steps, "thumbnail") {
		t.Errorf("Expected built-in steps, got %v", resp.Steps)
	}
}

func TestProcessHandler_RawBodyThenFetch(t *testing.T) {
	e := newTestServer(t)
	rec := do(e, http.MethodPost, "/api/presets/small", "image/png", pngBytes(t, 20, 20, color.White))
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp derivativeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Width != 8 || resp.Height != 4 || resp.ContentType != "image/png" {
		t.Errorf("Unexpected derivative: %+v", resp)
	}

	rec = do(e, http.MethodGet, resp.URL, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 fetching derivative, got %d", rec.Code)
	}
	if rec.Header().Get(echo.HeaderContentType) != "image/png" {
		t.Errorf("Expected image/png, got %s", rec.Header().Get(echo.HeaderContentType))
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	if err != nil || cfg.Width != 8 || cfg.Height != 4 {
		t.Errorf("Expected 8x4 PNG, got %+v (%v)", cfg, err)
	}
}

func TestProcessHandler_CachedReturnsOK(t *testing.T) {
	e := newTestServer(t)
	input := pngBytes(t, 12, 12, color.Black)

	first := do(e, http.MethodPost, "/api/presets/small", "image/png", input)
	if first.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", first.Code, first.Body.String())
	}
	second := do(e, http.MethodPost, "/api/presets/small", "image/png", input)
	if second.Code != http.StatusOK {
		t.Fatalf("Expected 200 for a cached derivative, got %d: %s", second.Code, second.Body.String())
	}

	var a, b derivativeResponse
	if err := json.Unmarshal(first.Body.Bytes(), &a); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if err := json.Unmarshal(second.Body.Bytes(), &b); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if a.ID != b.ID {
		t.Errorf("Expected the same derivative id, got %s and %s", a.ID, b.ID)
	}
}

func TestProcessHandler_MultipartRaw(t *testing.T) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(uploadField, "in.png")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	_, _ = part.Write(pngBytes(t, 10, 10, color.Black))
	_ = w.Close()

	rec := do(newTestServer(t), http.MethodPost, "/api/presets/small?raw=true", w.FormDataContentType(), body.Bytes())
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderContentType) != "image/png" {
		t.Errorf("Expected image/png body, got %s", rec.Header().Get(echo.HeaderContentType))
	}
}

func TestProcessHandler_Errors(t *testing.T) {
	e := newTestServer(t)
	tests := []struct {
		name     string
		target   string
		body     []byte
		expected int
	}{
		{"unknown preset", "/api/presets/large", pngBytes(t, 4, 4, color.White), http.StatusNotFound},
		{"empty body", "/api/presets/small", nil, http.StatusBadRequest},
		{"not an image", "/api/presets/small", []byte("hello world"), http.StatusUnsupportedMediaType},
		{"too large", "/api/presets/small", make([]byte, 40*1024), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, tt.target, "application/octet-stream", tt.body)
			if rec.Code != tt.expected {
				t.Errorf("Expected %d, got %d: %s", tt.expected, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestDerivativeHandler_NotFound(t *testing.T) {
	rec := do(newTestServer(t), http.MethodGet, "/api/derivatives/does-not-exist", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestAnalyzeHandler(t *testing.T) {
	e := newTestServer(t)
	rec := do(e, http.MethodPost, "/api/analyze?colors=2", "image/png", pngBytes(t, 6, 6, color.NRGBA{0, 0, 255, 255}))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var analysis core.Analysis
	if err := json.Unmarshal(rec.Body.Bytes(), &analysis); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if analysis.Width != 6 || len(analysis.Palette) != 1 || analysis.Palette[0] != "#0000ff" {
		t.Errorf("Unexpected analysis: %+v", analysis)
	}

	rec = do(e, http.MethodPost, "/api/analyze?colors=-1", "image/png", pngBytes(t, 2, 2, color.White))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for negative colors, got %d", rec.Code)
	}
}
