// Command gopix runs image operations from the command line.
//
//	gopix -i in.jpg -o out.webp --step thumbnail:width=320,height=240,crop=true --step grayscale
//	gopix -i in.jpg -o out.jpg --config config.yaml --preset thumb
//	gopix -i in.png --palette 5 --histogram
//	gopix --list-steps
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jo-hoe/gopix/internal/core"
	"github.com/jo-hoe/gopix/internal/facade"
	"github.com/jo-hoe/gopix/internal/imagekit"
	"github.com/jo-hoe/gopix/internal/pipeline"
	flag "github.com/spf13/pflag"
)

type options struct {
	input     string
	output    string
	preset    string
	config    string
	quality   int
	backend   string
	steps     []string
	palette   int
	histogram bool
	listSteps bool
	verbose   bool
}

func main() {
	var opts options
	flag.StringVarP(&opts.input, "input", "i", "", "input image path")
	flag.StringVarP(&opts.output, "output", "o", "", "output path; the extension selects the format")
	flag.StringVarP(&opts.preset, "preset", "p", "", "preset name from the configuration file")
	flag.StringVarP(&opts.config, "config", "c", os.Getenv("CONFIG_PATH"), "configuration file holding presets")
	flag.IntVarP(&opts.quality, "quality", "q", -1, "output quality 0-100 (negative keeps the preset or default quality)")
	flag.StringVarP(&opts.backend, "backend", "b", "", "image backend: auto, "+strings.Join(facade.Backends(), ", "))
	flag.StringArrayVarP(&opts.steps, "step", "s", nil, "pipeline step as name[:key=value,...]; repeatable")
	flag.IntVar(&opts.palette, "palette", 0, "print the n most frequent colours")
	flag.BoolVar(&opts.histogram, "histogram", false, "print the RGB histogram")
	flag.BoolVar(&opts.listSteps, "list-steps", false, "print the available pipeline steps and exit")
	flag.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if opts.listSteps {
		listSteps(os.Stdout)
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "gopix: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if opts.input == "" {
		return errors.New("missing --input")
	}
	if opts.output == "" && opts.palette <= 0 && !opts.histogram {
		return errors.New("nothing to do: give --output, --palette or --histogram")
	}

	backend := opts.backend
	quality := opts.quality
	var stepConfigs []pipeline.StepConfig

	if opts.preset != "" {
		if opts.config == "" {
			return errors.New("--preset needs --config")
		}
		config, err := core.LoadConfig(opts.config)
		if err != nil {
			return err
		}
		preset, err := findPreset(config, opts.preset)
		if err != nil {
			return err
		}
		if backend == "" {
			backend = config.Backend
		}
		if quality < 0 {
			quality = preset.OutputQuality()
		}
		for _, s := range preset.Steps {
			stepConfigs = append(stepConfigs, pipeline.StepConfig{Name: s.Name, Params: s.Params})
		}
	}

	for _, raw := range opts.steps {
		sc, err := parseStep(raw)
		if err != nil {
			return err
		}
		stepConfigs = append(stepConfigs, sc)
	}

	invoker, err := pipeline.Build(pipeline.DefaultRegistry, stepConfigs)
	if err != nil {
		return err
	}

	caps, err := facade.Probe(backend)
	if err != nil {
		return err
	}
	factory, err := facade.New(caps)
	if err != nil {
		return err
	}

	img, err := factory.Open(opts.input)
	if err != nil {
		return err
	}
	defer func() {
		_ = img.Close()
	}()

	if err := invoker.Run(img); err != nil {
		return err
	}

	if opts.palette > 0 {
		colors, err := img.Palette(opts.palette)
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(colors, " "))
	}
	if opts.histogram {
		histogram, err := img.Histogram()
		if err != nil {
			return err
		}
		if err := json.NewEncoder(os.Stdout).Encode(histogram); err != nil {
			return err
		}
	}

	if opts.output != "" {
		if err := img.Save(opts.output, quality); err != nil {
			return err
		}
		slog.Info("image written",
			"path", opts.output,
			"width", img.Width(),
			"height", img.Height(),
			"backend", caps.Backend)
	}
	return nil
}

func listSteps(w io.Writer) {
	for _, name := range pipeline.DefaultRegistry.Names() {
		fmt.Fprintln(w, name)
	}
}

func findPreset(config *core.ServiceConfig, name string) (*core.PresetConfig, error) {
	for i := range config.Presets {
		if config.Presets[i].Name == name {
			return &config.Presets[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", core.ErrUnknownPreset, name)
}

// parseStep reads "name" or "name:key=value,key=value". Values stay strings;
// step params decode them weakly into their typed fields.
func parseStep(raw string) (pipeline.StepConfig, error) {
	name, args, _ := strings.Cut(raw, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return pipeline.StepConfig{}, fmt.Errorf("%w: empty step in %q", imagekit.ErrInvalidInput, raw)
	}

	params := make(map[string]any)
	if args != "" {
		for _, kv := range strings.Split(args, ",") {
			key, value, ok := strings.Cut(kv, "=")
			if !ok || strings.TrimSpace(key) == "" {
				return pipeline.StepConfig{}, fmt.Errorf("%w: bad step argument %q in %q", imagekit.ErrInvalidInput, kv, raw)
			}
			params[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}
	return pipeline.StepConfig{Name: name, Params: params}, nil
}
