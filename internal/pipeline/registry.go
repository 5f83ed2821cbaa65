package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// ErrUnknownStep is returned when a step name matches no registered factory.
var ErrUnknownStep = errors.New("unknown step")

// StepRegistry maps step names to factories. Lookups ignore case and
// surrounding space so "AutoOrient" and "autoorient" both resolve to the
// registered "autoOrient".
type StepRegistry struct {
	factories map[string]registeredStep
}

type registeredStep struct {
	name    string
	factory StepFactory
}

// NewStepRegistry creates an empty registry
func NewStepRegistry() *StepRegistry {
	return &StepRegistry{
		factories: make(map[string]registeredStep),
	}
}

func stepKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds a factory under name. Names differing only in case collide.
func (r *StepRegistry) Register(name string, factory StepFactory) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("step name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("step factory cannot be nil")
	}
	key := stepKey(name)
	if existing, exists := r.factories[key]; exists {
		return fmt.Errorf("step %s is already registered as %s", name, existing.name)
	}
	r.factories[key] = registeredStep{name: name, factory: factory}
	return nil
}

// Lookup resolves name to its registered spelling.
func (r *StepRegistry) Lookup(name string) (string, bool) {
	entry, exists := r.factories[stepKey(name)]
	return entry.name, exists
}

// Create instantiates a step by name with the given parameters
func (r *StepRegistry) Create(name string, params map[string]any) (Step, error) {
	entry, exists := r.factories[stepKey(name)]
	if !exists {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownStep, name, strings.Join(r.Names(), ", "))
	}

	step, err := entry.factory(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create step %s: %w", entry.name, err)
	}

	slog.Debug("StepRegistry: step created", "step", entry.name, "params", len(params))
	return step, nil
}

// Names returns the registered step names in sorted order
func (r *StepRegistry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for _, entry := range r.factories {
		names = append(names, entry.name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds every built-in step
var DefaultRegistry = NewStepRegistry()

func mustRegister(name string, factory StepFactory) {
	if err := DefaultRegistry.Register(name, factory); err != nil {
		panic(fmt.Sprintf("failed to register step %s: %v", name, err))
	}
}
