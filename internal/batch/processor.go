// Package batch processes a submission of uploaded files end to end:
// rasterize, preprocess, recognize, aggregate. Units are processed
// concurrently, but results always come back in submission order.
package batch

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/pagetext/pagetext/internal/engine"
	"github.com/pagetext/pagetext/internal/preprocess"
	"github.com/pagetext/pagetext/internal/raster"
)

// ErrNoValidInput is returned when not a single unit could be processed.
// Anything short of that degrades to partial results.
var ErrNoValidInput = errors.New("no uploaded file could be processed")

// Upload is one submitted file.
type Upload struct {
	Name string
	Data []byte
}

// Options configures one batch run. Shared read-only across all units.
type Options struct {
	Pipeline     preprocess.Options
	OCR          engine.Options
	PDFRenderDPI int
	MaxWorkers   int
}

// DefaultOptions returns batch options with pipeline and OCR defaults.
func DefaultOptions() Options {
	return Options{
		Pipeline:     preprocess.DefaultOptions(),
		OCR:          engine.DefaultOptions(),
		PDFRenderDPI: raster.DefaultPDFRenderDPI,
		MaxWorkers:   4,
	}
}

// Processor runs batches against a fixed OCR engine.
type Processor struct {
	engine engine.Engine
	logger *slog.Logger
}

// NewProcessor creates a batch processor.
func NewProcessor(e engine.Engine, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{engine: e, logger: logger}
}

// unitWork pairs a unit with its decoded page image.
type unitWork struct {
	unit SourceUnit
	page raster.Page
}

// Process runs the full batch. Every submitted file contributes at least
// one record to the result, in submission order; per-unit failures are
// recorded in place and never abort the batch. The returned error is
// non-nil only when zero units succeeded.
func (p *Processor) Process(ctx context.Context, uploads []Upload, opts Options) (*Result, error) {
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 1
	}

	result := &Result{BatchID: uuid.New().String()}

	// Expand uploads into page units first so ordering is fixed before
	// any parallel work starts. Each upload keeps either its rasterize
	// failure or its index range in the unit slice, so reassembly works
	// by position and duplicate file names cannot collide.
	type uploadSlot struct {
		failure      *ExtractedText
		start, count int
	}
	slots := make([]uploadSlot, len(uploads))

	var units []unitWork
	for i, up := range uploads {
		pages, err := raster.Rasterize(up.Name, up.Data, opts.PDFRenderDPI)
		if err != nil {
			p.logger.Warn("failed to rasterize upload", "file", up.Name, "error", err)
			rec := errorRecord(SourceUnit{File: up.Name, Page: 1, PageCount: 1}, err)
			slots[i] = uploadSlot{failure: &rec}
			continue
		}
		slots[i] = uploadSlot{start: len(units), count: len(pages)}
		for _, pg := range pages {
			units = append(units, unitWork{
				unit: SourceUnit{File: pg.Source, Page: pg.Index + 1, PageCount: pg.Count},
				page: pg,
			})
		}
	}

	// Per-unit records land in an index-addressed slice, so output order
	// matches submission order regardless of completion order.
	records := make([]ExtractedText, len(units))
	pipeline := preprocess.New(preprocess.Stages(opts.Pipeline)...)

	var wg sync.WaitGroup
	sem := make(chan struct{}, opts.MaxWorkers)
	for i, u := range units {
		wg.Add(1)
		sem <- struct{}{} // acquire
		go func(i int, u unitWork) {
			defer wg.Done()
			defer func() { <-sem }() // release
			records[i] = p.processUnit(ctx, pipeline, u, opts)
		}(i, u)
	}
	wg.Wait()

	result.Units = make([]ExtractedText, 0, len(uploads)+len(units))
	for _, slot := range slots {
		if slot.failure != nil {
			result.Units = append(result.Units, *slot.failure)
			continue
		}
		result.Units = append(result.Units, records[slot.start:slot.start+slot.count]...)
	}

	if result.Succeeded() == 0 {
		return result, ErrNoValidInput
	}
	return result, nil
}

// processUnit runs one page through the pipeline and the OCR engine.
func (p *Processor) processUnit(ctx context.Context, pipeline *preprocess.Pipeline, u unitWork, opts Options) ExtractedText {
	cleaned, trace, err := pipeline.Run(u.page.Image, opts.Pipeline)
	if err != nil {
		p.logger.Warn("preprocessing failed", "unit", u.unit.Label(), "error", err)
		return errorRecord(u.unit, err)
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	if err := enc.Encode(&buf, cleaned); err != nil {
		return errorRecord(u.unit, err)
	}

	text, err := p.engine.Recognize(ctx, buf.Bytes(), opts.OCR)
	if err != nil {
		p.logger.Warn("recognition failed", "unit", u.unit.Label(), "error", err)
		rec := errorRecord(u.unit, err)
		rec.Trace = trace
		return rec
	}

	return ExtractedText{Unit: u.unit, Text: text, Trace: trace}
}

func errorRecord(unit SourceUnit, err error) ExtractedText {
	return ExtractedText{Unit: unit, Err: err, ErrorNote: err.Error()}
}
