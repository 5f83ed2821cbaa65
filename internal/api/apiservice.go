// Package api exposes the core service over HTTP.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"code.cloudfoundry.org/bytefmt"
	"github.com/jo-hoe/gopix/internal/core"
	"github.com/jo-hoe/gopix/internal/imagekit"
	"github.com/jo-hoe/gopix/internal/pipeline"
	"github.com/jo-hoe/gopix/internal/store"
	"github.com/labstack/echo/v4"
)

const (
	uploadField     = "image"
	defaultColors   = 5
	derivativeRoute = "/api/derivatives/:id"
)

type APIService struct {
	coreService *core.CoreService
}

type capabilitiesResponse struct {
	Backend string   `json:"backend"`
	Decode  []string `json:"decode"`
	Encode  []string `json:"encode"`
	Presets []string `json:"presets"`
	Steps   []string `json:"steps"`
}

type derivativeResponse struct {
	ID          string `json:"id"`
	Preset      string `json:"preset"`
	ContentType string `json:"contentType"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Size        string `json:"size"`
	URL         string `json:"url"`
}

type processRequest struct {
	Preset string `param:"preset" validate:"required"`
	// Raw returns the encoded image instead of the JSON description.
	Raw bool `query:"raw"`
}

type analyzeRequest struct {
	Colors int `query:"colors" validate:"gte=0,lte=256"`
}

func NewAPIService(coreService *core.CoreService) *APIService {
	return &APIService{coreService: coreService}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})

	e.GET("/api/capabilities", s.capabilitiesHandler)
	e.POST("/api/presets/:preset", s.processHandler)
	e.GET(derivativeRoute, s.derivativeHandler)
	e.POST("/api/analyze", s.analyzeHandler)
}

func (s *APIService) capabilitiesHandler(ctx echo.Context) error {
	caps := s.coreService.Capabilities()
	return ctx.JSON(http.StatusOK, capabilitiesResponse{
		Backend: caps.Backend,
		Decode:  formatNames(caps.DecodeFormats()),
		Encode:  formatNames(caps.EncodeFormats()),
		Presets: s.coreService.Presets(),
		Steps:   pipeline.DefaultRegistry.Names(),
	})
}

func (s *APIService) processHandler(ctx echo.Context) error {
	var req processRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}

	data, err := s.readImage(ctx)
	if err != nil {
		return err
	}

	derivative, cached, err := s.coreService.Process(ctx.Request().Context(), req.Preset, data)
	if err != nil {
		return toHTTPError("processHandler", err)
	}

	if req.Raw {
		return ctx.Blob(http.StatusOK, derivative.ContentType, derivative.Body)
	}
	status := http.StatusCreated
	if cached {
		status = http.StatusOK
	}
	return ctx.JSON(status, toDerivativeResponse(derivative))
}

func (s *APIService) derivativeHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	if id == "" {
		slog.Warn("derivativeHandler: missing derivative id",
			"status", http.StatusBadRequest, "route", derivativeRoute)
		return echo.NewHTTPError(http.StatusBadRequest, "Missing derivative ID")
	}

	derivative, err := s.coreService.Derivative(ctx.Request().Context(), id)
	if err != nil {
		return toHTTPError("derivativeHandler", err)
	}

	ctx.Response().Header().Set("Cache-Control", "public, max-age=86400, immutable")
	return ctx.Blob(http.StatusOK, derivative.ContentType, derivative.Body)
}

func (s *APIService) analyzeHandler(ctx echo.Context) error {
	req := analyzeRequest{Colors: defaultColors}
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}

	data, err := s.readImage(ctx)
	if err != nil {
		return err
	}

	analysis, err := s.coreService.Analyze(data, req.Colors)
	if err != nil {
		return toHTTPError("analyzeHandler", err)
	}
	return ctx.JSON(http.StatusOK, analysis)
}

func bindAndValidate(ctx echo.Context, req any) error {
	binder := &echo.DefaultBinder{}
	if err := binder.BindPathParams(ctx, req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid path parameters: %v", err))
	}
	if err := binder.BindQueryParams(ctx, req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid query parameters: %v", err))
	}
	return ctx.Validate(req)
}

// readImage accepts either a multipart form with an "image" file or the raw
// image as request body. Reads stop one byte past the upload limit so the
// core service can reject oversized input.
func (s *APIService) readImage(ctx echo.Context) ([]byte, error) {
	limit := int64(s.coreService.MaxUploadBytes()) + 1
	var src io.Reader = ctx.Request().Body

	if strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		file, err := ctx.FormFile(uploadField)
		if err != nil {
			slog.Warn("readImage: missing uploaded file", "status", http.StatusBadRequest, "error", err)
			return nil, echo.NewHTTPError(http.StatusBadRequest, "Failed to get uploaded file")
		}
		f, err := file.Open()
		if err != nil {
			slog.Error("readImage: failed to open uploaded file",
				"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
			return nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to open uploaded file")
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				slog.Error("readImage: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
			}
		}()
		src = f
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(src, limit)); err != nil {
		slog.Error("readImage: failed to read upload", "status", http.StatusBadRequest, "error", err)
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Failed to read uploaded image")
	}
	if buf.Len() == 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Missing image data")
	}
	return buf.Bytes(), nil
}

func toHTTPError(handler string, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(handler+": request failed", "status", status, "error", err)
	} else {
		slog.Warn(handler+": request rejected", "status", status, "error", err)
	}
	return echo.NewHTTPError(status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrUnknownPreset), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, imagekit.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, imagekit.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func toDerivativeResponse(d *store.Derivative) derivativeResponse {
	return derivativeResponse{
		ID:          d.ID,
		Preset:      d.Preset,
		ContentType: d.ContentType,
		Width:       d.Width,
		Height:      d.Height,
		Size:        bytefmt.ByteSize(uint64(len(d.Body))),
		URL:         "/api/derivatives/" + d.ID,
	}
}

func formatNames(formats []imagekit.Format) []string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = f.String()
	}
	return names
}
