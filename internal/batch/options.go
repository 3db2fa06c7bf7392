package batch

import (
	"github.com/pagetext/pagetext/internal/config"
)

// OptionsFromConfig maps the application configuration onto batch
// options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()

	opts.Pipeline.Threshold = cfg.Pipeline.ApplyThreshold
	opts.Pipeline.Deskew = cfg.Pipeline.ApplyDeskew
	opts.Pipeline.Denoise = cfg.Pipeline.ApplyDenoise
	opts.Pipeline.Contrast = cfg.Pipeline.ApplyContrast
	opts.Pipeline.ResizeFactor = cfg.Pipeline.ResizeFactor
	opts.Pipeline.ContrastPercent = cfg.Pipeline.Contrast
	opts.Pipeline.DenoiseH = cfg.Pipeline.Denoise.H
	opts.Pipeline.DenoiseTemplateWindow = cfg.Pipeline.Denoise.TemplateWindowSize
	opts.Pipeline.DenoiseSearchWindow = cfg.Pipeline.Denoise.SearchWindowSize

	opts.OCR.Languages = cfg.Engine.Languages
	opts.OCR.EngineMode = cfg.Engine.EngineMode
	opts.OCR.PageSegMode = cfg.Engine.PageSegMode
	opts.OCR.PreserveInterwordSpaces = cfg.Engine.PreserveInterwordSpaces

	opts.PDFRenderDPI = cfg.Rasterize.PDFRenderDPI
	opts.MaxWorkers = cfg.Defaults.MaxWorkers
	return opts
}
