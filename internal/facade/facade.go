// Package facade selects a raster backend and opens images through it.
//
// Backend selection is explicit: Probe runs once at startup and its
// Capabilities value is handed to New. Tests inject their own Capabilities
// to exercise a particular backend or format set.
package facade

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jo-hoe/gopix/internal/imagekit"
)

// Auto lets Probe pick the highest priority backend compiled into the binary.
const Auto = "auto"

// Backend describes one compiled-in raster backend.
type Backend struct {
	Name string
	// Priority orders backends for Auto; higher wins.
	Priority  int
	Probe     func() imagekit.Capabilities
	Open      func(path string, caps imagekit.Capabilities) (imagekit.Adapter, error)
	OpenBytes func(data []byte, caps imagekit.Capabilities) (imagekit.Adapter, error)
}

var backends = make(map[string]Backend)

// Register adds a backend. It panics on a duplicate or incomplete registration
// since both are programming errors caught at init.
func Register(b Backend) {
	if b.Name == "" || b.Probe == nil || b.Open == nil || b.OpenBytes == nil {
		panic(fmt.Sprintf("facade: incomplete backend registration %q", b.Name))
	}
	if _, exists := backends[b.Name]; exists {
		panic(fmt.Sprintf("facade: backend %s is already registered", b.Name))
	}
	backends[b.Name] = b
}

// Backends lists the compiled-in backends, highest priority first.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		bi, bj := backends[names[i]], backends[names[j]]
		if bi.Priority != bj.Priority {
			return bi.Priority > bj.Priority
		}
		return names[i] < names[j]
	})
	return names
}

// Probe inspects the preferred backend, or the best one available for "auto"
// and "", and returns its capabilities.
func Probe(preferred string) (imagekit.Capabilities, error) {
	preferred = strings.ToLower(strings.TrimSpace(preferred))
	if preferred == "" || preferred == Auto {
		names := Backends()
		if len(names) == 0 {
			return imagekit.Capabilities{}, fmt.Errorf("no raster backend compiled in")
		}
		preferred = names[0]
	}

	b, ok := backends[preferred]
	if !ok {
		return imagekit.Capabilities{}, fmt.Errorf("unknown backend %q (available: %s)", preferred, strings.Join(Backends(), ", "))
	}
	caps := b.Probe()
	caps.Backend = b.Name

	slog.Info("Facade: backend selected",
		"backend", caps.Backend,
		"decode_formats", caps.DecodeFormats(),
		"encode_formats", caps.EncodeFormats())
	return caps, nil
}

// Factory opens adapters on the backend named by its capabilities.
type Factory struct {
	caps    imagekit.Capabilities
	backend Backend
}

// New builds a factory from a probe result.
func New(caps imagekit.Capabilities) (*Factory, error) {
	b, ok := backends[caps.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (available: %s)", caps.Backend, strings.Join(Backends(), ", "))
	}
	return &Factory{caps: caps, backend: b}, nil
}

// Open loads the image at path. It fails with imagekit.ErrInvalidInput when
// the file cannot be read and imagekit.ErrUnsupportedFormat when no decoder
// accepts it.
func (f *Factory) Open(path string) (imagekit.Adapter, error) {
	a, err := f.backend.Open(path, f.caps)
	if err != nil {
		slog.Debug("Facade: open failed", "backend", f.backend.Name, "path", path, "error", err)
		return nil, err
	}
	return a, nil
}

// OpenBytes loads an image held in memory.
func (f *Factory) OpenBytes(data []byte) (imagekit.Adapter, error) {
	return f.backend.OpenBytes(data, f.caps)
}

func (f *Factory) Capabilities() imagekit.Capabilities { return f.caps }
