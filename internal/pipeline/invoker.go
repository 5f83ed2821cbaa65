package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jo-hoe/gopix/internal/imagekit"
)

// Invoker applies a sequence of steps to an adapter
type Invoker struct {
	steps []Step
}

// NewInvoker creates an invoker for already built steps
func NewInvoker(steps []Step) *Invoker {
	return &Invoker{steps: steps}
}

// Build creates every configured step from the registry, failing on the first
// unknown name or invalid parameter set.
func Build(registry *StepRegistry, configs []StepConfig) (*Invoker, error) {
	steps := make([]Step, 0, len(configs))
	for i, config := range configs {
		slog.Debug("Invoker: creating step",
			"index", i,
			"step_name", config.Name,
			"params", config.Params)

		step, err := registry.Create(config.Name, config.Params)
		if err != nil {
			return nil, fmt.Errorf("failed to create step at index %d (%s): %w", i, config.Name, err)
		}
		steps = append(steps, step)
	}
	return NewInvoker(steps), nil
}

// Len returns the number of steps
func (i *Invoker) Len() int { return len(i.steps) }

// Run applies all steps in order and stops at the first step that leaves an
// error on the adapter.
func (i *Invoker) Run(img imagekit.Adapter) error {
	start := time.Now()

	slog.Info("Invoker: starting image pipeline",
		"step_count", len(i.steps),
		"width", img.Width(),
		"height", img.Height())

	if err := img.Err(); err != nil {
		return err
	}

	for idx, step := range i.steps {
		stepStart := time.Now()

		step.Apply(img)
		if err := img.Err(); err != nil {
			slog.Error("Invoker: step failed",
				"index", idx,
				"step_name", step.Name(),
				"error", err)
			return fmt.Errorf("step %s (index %d) failed: %w", step.Name(), idx, err)
		}

		slog.Debug("Invoker: step completed",
			"index", idx,
			"step_name", step.Name(),
			"duration_ms", time.Since(stepStart).Milliseconds(),
			"width", img.Width(),
			"height", img.Height())
	}

	slog.Info("Invoker: image pipeline completed",
		"total_duration_ms", time.Since(start).Milliseconds(),
		"step_count", len(i.steps),
		"format", img.Format().String())
	return nil
}
