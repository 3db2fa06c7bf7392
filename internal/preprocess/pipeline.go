// Package preprocess implements the image cleanup pipeline applied to
// scanned pages before OCR. The pipeline is an ordered list of stages
// sharing one signature, so stages can be tested in isolation and
// reordered without touching call sites.
package preprocess

import (
	"fmt"
	"image"
)

// Outcome reports whether a stage transformed the image or passed it
// through because its precondition was not met (e.g. deskew found no
// dominant line).
type Outcome int

const (
	// Applied means the stage transformed the image.
	Applied Outcome = iota
	// Skipped means the stage's condition was not met and the image
	// passed through unchanged.
	Skipped
)

// String returns the outcome label.
func (o Outcome) String() string {
	if o == Skipped {
		return "skipped"
	}
	return "applied"
}

// Options controls which stages run and their parameters.
type Options struct {
	// Stage toggles. Grayscale and resize always run; these gate the rest.
	Threshold bool // Otsu binarization
	Deskew    bool
	Denoise   bool
	Contrast  bool // optional stage, off in the default pipeline

	// Stage parameters.
	ResizeFactor    float64 // uniform upscale factor; <= 0 or 1 disables resize
	ContrastPercent float64 // passed to the optional contrast stage

	// Denoise strength. H selects the number of median passes,
	// TemplateWindow the (odd) window size. SearchWindow is accepted for
	// config compatibility; the median filter does not use it.
	DenoiseH              int
	DenoiseTemplateWindow int
	DenoiseSearchWindow   int
}

// DefaultOptions returns the default pipeline configuration:
// all standard stages on, contrast off, 1.2x upscale.
func DefaultOptions() Options {
	return Options{
		Threshold:             true,
		Deskew:                true,
		Denoise:               true,
		Contrast:              false,
		ResizeFactor:          1.2,
		ContrastPercent:       50,
		DenoiseH:              10,
		DenoiseTemplateWindow: 7,
		DenoiseSearchWindow:   21,
	}
}

// StageFunc transforms one image into another. It must be pure: the same
// input and options yield the same output, and no state is retained
// between invocations.
type StageFunc func(img image.Image, opts Options) (image.Image, Outcome, error)

// Stage is a named pipeline step.
type Stage struct {
	Name string
	Fn   StageFunc
}

// StageResult records the outcome of one stage during a run.
type StageResult struct {
	Name    string  `json:"name"`
	Outcome Outcome `json:"outcome"`
}

// Trace is the per-stage outcome record for one pipeline run.
type Trace []StageResult

// InvalidImageError indicates a structurally unusable raster image
// (zero dimensions or nil). It aborts processing for the affected unit
// only.
type InvalidImageError struct {
	Reason string
}

func (e *InvalidImageError) Error() string {
	return fmt.Sprintf("invalid image: %s", e.Reason)
}

// Pipeline is an ordered chain of stages.
type Pipeline struct {
	stages []Stage
}

// New creates a pipeline from the given stages, applied in order.
func New(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Stages builds the stage list for the given options in the fixed order
// grayscale, deskew, denoise, resize, [contrast], binarize. Disabled
// stages are omitted entirely so the trace only lists stages that ran.
func Stages(opts Options) []Stage {
	stages := []Stage{{Name: "grayscale", Fn: Grayscale}}
	if opts.Deskew {
		stages = append(stages, Stage{Name: "deskew", Fn: Deskew})
	}
	if opts.Denoise {
		stages = append(stages, Stage{Name: "denoise", Fn: Denoise})
	}
	if opts.ResizeFactor > 0 && opts.ResizeFactor != 1.0 {
		stages = append(stages, Stage{Name: "resize", Fn: Resize})
	}
	if opts.Contrast {
		stages = append(stages, Stage{Name: "contrast", Fn: Contrast})
	}
	if opts.Threshold {
		stages = append(stages, Stage{Name: "binarize", Fn: Binarize})
	}
	return stages
}

// Default returns the pipeline for the given options.
func Default(opts Options) *Pipeline {
	return New(Stages(opts)...)
}

// Run threads the image through all stages and returns the cleaned image
// together with the per-stage trace. A structurally invalid input fails
// with *InvalidImageError before any stage runs.
func (p *Pipeline) Run(img image.Image, opts Options) (image.Image, Trace, error) {
	if img == nil {
		return nil, nil, &InvalidImageError{Reason: "nil image"}
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, nil, &InvalidImageError{Reason: fmt.Sprintf("zero-sized image %dx%d", b.Dx(), b.Dy())}
	}

	trace := make(Trace, 0, len(p.stages))
	cur := img
	for _, st := range p.stages {
		out, outcome, err := st.Fn(cur, opts)
		if err != nil {
			return nil, trace, fmt.Errorf("stage %s: %w", st.Name, err)
		}
		trace = append(trace, StageResult{Name: st.Name, Outcome: outcome})
		cur = out
	}
	return cur, trace, nil
}
