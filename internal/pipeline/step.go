// Package pipeline builds named, configurable adapter operations and runs
// them in sequence. Steps come from preset configuration as a name plus a
// loose parameter map.
package pipeline

import "github.com/jo-hoe/gopix/internal/imagekit"

// Step is one configured adapter operation.
type Step interface {
	Name() string
	// Apply runs the operation. Failures are recorded on the adapter and
	// reported by its Err method.
	Apply(img imagekit.Adapter) imagekit.Adapter
}

// StepFactory creates a step from configuration parameters.
type StepFactory func(params map[string]any) (Step, error)

// StepConfig names a registered step and its parameters.
type StepConfig struct {
	Name   string
	Params map[string]any
}

// adapterStep wraps a closure over already validated parameters.
type adapterStep struct {
	name  string
	apply func(img imagekit.Adapter) imagekit.Adapter
}

func (s *adapterStep) Name() string { return s.name }

func (s *adapterStep) Apply(img imagekit.Adapter) imagekit.Adapter { return s.apply(img) }
