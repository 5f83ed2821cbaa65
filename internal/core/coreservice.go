package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"code.cloudfoundry.org/bytefmt"
	"github.com/jo-hoe/gopix/internal/facade"
	"github.com/jo-hoe/gopix/internal/imagekit"
	"github.com/jo-hoe/gopix/internal/pipeline"
	"github.com/jo-hoe/gopix/internal/store"
)

var (
	// ErrUnknownPreset is returned for a preset name that is not configured.
	ErrUnknownPreset = errors.New("unknown preset")
	// ErrTooLarge is returned for uploads above the configured limit.
	ErrTooLarge = errors.New("image exceeds upload limit")
)

type preset struct {
	config  PresetConfig
	format  imagekit.Format
	invoker *pipeline.Invoker
}

type CoreService struct {
	config         *ServiceConfig
	factory        *facade.Factory
	store          store.Store
	presets        map[string]*preset
	maxUploadBytes uint64
}

// Analysis summarises the colours of an image.
type Analysis struct {
	Width     int                 `json:"width"`
	Height    int                 `json:"height"`
	Format    string              `json:"format"`
	MIME      string              `json:"mime"`
	Palette   []string            `json:"palette"`
	Histogram *imagekit.Histogram `json:"histogram"`
}

// NewCoreService probes the configured backend, opens the derivative store
// and builds every preset pipeline.
func NewCoreService(config *ServiceConfig) (*CoreService, error) {
	caps, err := facade.Probe(config.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to probe backend: %w", err)
	}
	return NewCoreServiceWithCapabilities(config, caps)
}

// NewCoreServiceWithCapabilities is NewCoreService with an injected probe result.
func NewCoreServiceWithCapabilities(config *ServiceConfig, caps imagekit.Capabilities) (*CoreService, error) {
	factory, err := facade.New(caps)
	if err != nil {
		return nil, err
	}
	maxUpload, err := config.MaxUploadBytes()
	if err != nil {
		return nil, err
	}

	presets := make(map[string]*preset, len(config.Presets))
	for _, pc := range config.Presets {
		p, err := buildPreset(pc, caps)
		if err != nil {
			return nil, err
		}
		presets[pc.Name] = p
	}

	derivatives, err := store.New(config.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	slog.Info("CoreService: initialized",
		"backend", caps.Backend,
		"store", config.Store.Type,
		"presets", len(presets),
		"max_upload_size", bytefmt.ByteSize(maxUpload))
	return &CoreService{
		config:         config,
		factory:        factory,
		store:          derivatives,
		presets:        presets,
		maxUploadBytes: maxUpload,
	}, nil
}

func buildPreset(pc PresetConfig, caps imagekit.Capabilities) (*preset, error) {
	invoker, err := pipeline.Build(pipeline.DefaultRegistry, pc.stepConfigs())
	if err != nil {
		return nil, fmt.Errorf("preset %s: %w", pc.Name, err)
	}
	var format imagekit.Format
	if pc.Format != "" {
		format, _ = imagekit.ParseFormat(pc.Format)
		if !caps.CanEncode(format) {
			return nil, fmt.Errorf("preset %s: %w: the %s backend cannot encode %s",
				pc.Name, imagekit.ErrUnsupportedFormat, caps.Backend, format)
		}
	}
	return &preset{config: pc, format: format, invoker: invoker}, nil
}

// Capabilities returns the probe result the service runs with.
func (s *CoreService) Capabilities() imagekit.Capabilities { return s.factory.Capabilities() }

// Presets returns the configured preset names in sorted order.
func (s *CoreService) Presets() []string {
	names := make([]string, 0, len(s.presets))
	for name := range s.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MaxUploadBytes returns the configured upload limit.
func (s *CoreService) MaxUploadBytes() uint64 { return s.maxUploadBytes }

// Process runs the named preset on data. Results are cached in the store by
// a key derived from the preset name and the input bytes; cached reports
// whether the derivative came from the store instead of the pipeline.
func (s *CoreService) Process(ctx context.Context, presetName string, data []byte) (derivative *store.Derivative, cached bool, err error) {
	p, ok := s.presets[presetName]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrUnknownPreset, presetName)
	}
	if err := s.checkSize(data); err != nil {
		return nil, false, err
	}

	key := derivativeKey(presetName, data)
	if hit, err := s.store.GetByKey(ctx, key); err == nil {
		slog.Debug("CoreService: derivative served from store", "preset", presetName, "id", hit.ID)
		return hit, true, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		slog.Warn("CoreService: store lookup failed, processing anyway", "preset", presetName, "error", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	img, err := s.factory.OpenBytes(data)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		_ = img.Close()
	}()

	if err := p.invoker.Run(img); err != nil {
		return nil, false, fmt.Errorf("preset %s: %w", presetName, err)
	}

	mime := ""
	if p.format != imagekit.FormatUnknown {
		mime = p.format.MIME()
	}
	out, err := img.Output(mime, p.config.OutputQuality())
	if err != nil {
		return nil, false, fmt.Errorf("preset %s: %w", presetName, err)
	}

	derivative = &store.Derivative{
		Key:         key,
		Preset:      presetName,
		ContentType: out.ContentType,
		Width:       img.Width(),
		Height:      img.Height(),
		Body:        out.Body,
	}
	if _, err := s.store.Put(ctx, derivative); err != nil {
		return nil, false, fmt.Errorf("failed to store derivative: %w", err)
	}

	slog.Info("CoreService: derivative created",
		"preset", presetName,
		"id", derivative.ID,
		"content_type", derivative.ContentType,
		"input_size", bytefmt.ByteSize(uint64(len(data))),
		"output_size", bytefmt.ByteSize(uint64(len(out.Body))))
	return derivative, false, nil
}

// Derivative returns a stored derivative by id.
func (s *CoreService) Derivative(ctx context.Context, id string) (*store.Derivative, error) {
	return s.store.Get(ctx, id)
}

// Analyze reports the size, format, dominant colours and histogram of data.
func (s *CoreService) Analyze(data []byte, colors int) (*Analysis, error) {
	if err := s.checkSize(data); err != nil {
		return nil, err
	}
	img, err := s.factory.OpenBytes(data)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = img.Close()
	}()

	palette, err := img.Palette(colors)
	if err != nil {
		return nil, err
	}
	histogram, err := img.Histogram()
	if err != nil {
		return nil, err
	}
	return &Analysis{
		Width:     img.Width(),
		Height:    img.Height(),
		Format:    img.Format().String(),
		MIME:      img.MIME(),
		Palette:   palette,
		Histogram: histogram,
	}, nil
}

func (s *CoreService) checkSize(data []byte) error {
	if uint64(len(data)) > s.maxUploadBytes {
		return fmt.Errorf("%w: %s > %s", ErrTooLarge,
			bytefmt.ByteSize(uint64(len(data))), bytefmt.ByteSize(s.maxUploadBytes))
	}
	return nil
}

func derivativeKey(presetName string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(presetName))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Close releases the derivative store.
func (s *CoreService) Close() error {
	return s.store.Close()
}
