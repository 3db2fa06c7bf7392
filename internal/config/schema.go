package config

import "time"

// Config holds pagetext configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Pipeline  PipelineCfg  `mapstructure:"pipeline" json:"pipeline" yaml:"pipeline"`
	Engine    EngineCfg    `mapstructure:"engine" json:"engine" yaml:"engine"`
	Rasterize RasterizeCfg `mapstructure:"rasterize" json:"rasterize" yaml:"rasterize"`
	Defaults  DefaultsCfg  `mapstructure:"defaults" json:"defaults" yaml:"defaults"`
	Server    ServerCfg    `mapstructure:"server" json:"server" yaml:"server"`
}

// PipelineCfg configures the image preprocessing pipeline.
type PipelineCfg struct {
	ApplyThreshold bool       `mapstructure:"apply_threshold" json:"apply_threshold" yaml:"apply_threshold"` // Otsu binarization
	ApplyDeskew    bool       `mapstructure:"apply_deskew" json:"apply_deskew" yaml:"apply_deskew"`
	ApplyDenoise   bool       `mapstructure:"apply_denoise" json:"apply_denoise" yaml:"apply_denoise"`
	ApplyContrast  bool       `mapstructure:"apply_contrast" json:"apply_contrast" yaml:"apply_contrast"` // off by default
	ResizeFactor   float64    `mapstructure:"resize_factor" json:"resize_factor" yaml:"resize_factor"`
	Contrast       float64    `mapstructure:"contrast" json:"contrast" yaml:"contrast"` // percentage for the optional contrast stage
	Denoise        DenoiseCfg `mapstructure:"denoise" json:"denoise" yaml:"denoise"`
}

// DenoiseCfg holds denoising strength parameters.
type DenoiseCfg struct {
	H                  int `mapstructure:"h" json:"h" yaml:"h"`                                       // filter strength (number of passes)
	TemplateWindowSize int `mapstructure:"template_window_size" json:"template_window_size" yaml:"template_window_size"` // odd window size in pixels
	SearchWindowSize   int `mapstructure:"search_window_size" json:"search_window_size" yaml:"search_window_size"`
}

// EngineCfg configures the OCR engine.
type EngineCfg struct {
	Type                    string        `mapstructure:"type" json:"type" yaml:"type"` // "tesseract"
	Languages               []string      `mapstructure:"languages" json:"languages" yaml:"languages"`
	EngineMode              int           `mapstructure:"engine_mode" json:"engine_mode" yaml:"engine_mode"`       // tessedit_ocr_engine_mode (1 = LSTM only)
	PageSegMode             int           `mapstructure:"page_seg_mode" json:"page_seg_mode" yaml:"page_seg_mode"`   // tessedit_pageseg_mode
	PreserveInterwordSpaces bool          `mapstructure:"preserve_interword_spaces" json:"preserve_interword_spaces" yaml:"preserve_interword_spaces"`
	TessdataPrefix          string        `mapstructure:"tessdata_prefix" json:"tessdata_prefix" yaml:"tessdata_prefix"` // supports ${ENV_VAR} syntax
	Timeout                 time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
	MaxRetries              int           `mapstructure:"max_retries" json:"max_retries" yaml:"max_retries"`
	RetryDelay              time.Duration `mapstructure:"retry_delay" json:"retry_delay" yaml:"retry_delay"`
}

// RasterizeCfg configures PDF page rendering.
type RasterizeCfg struct {
	PDFRenderDPI int `mapstructure:"pdf_render_dpi" json:"pdf_render_dpi" yaml:"pdf_render_dpi"`
}

// DefaultsCfg specifies processing defaults.
type DefaultsCfg struct {
	MaxWorkers int `mapstructure:"max_workers" json:"max_workers" yaml:"max_workers"` // Max concurrent page workers
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host string `mapstructure:"host" json:"host" yaml:"host"`
	Port string `mapstructure:"port" json:"port" yaml:"port"`
}

// PageSegModes lists the page segmentation modes exposed to users,
// keyed by Tesseract PSM value.
var PageSegModes = map[int]string{
	3:  "Automatic page segmentation",
	4:  "Single column of text",
	6:  "Single uniform block of text",
	11: "Sparse text",
	12: "Sparse text with orientation detection",
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineCfg{
			ApplyThreshold: true,
			ApplyDeskew:    true,
			ApplyDenoise:   true,
			ApplyContrast:  false,
			ResizeFactor:   1.2,
			Contrast:       50.0,
			Denoise: DenoiseCfg{
				H:                  10,
				TemplateWindowSize: 7,
				SearchWindowSize:   21,
			},
		},
		Engine: EngineCfg{
			Type:                    "tesseract",
			Languages:               []string{"eng"},
			EngineMode:              1,
			PageSegMode:             6,
			PreserveInterwordSpaces: true,
			TessdataPrefix:          "${TESSDATA_PREFIX}",
			Timeout:                 60 * time.Second,
			MaxRetries:              2,
			RetryDelay:              time.Second,
		},
		Rasterize: RasterizeCfg{
			PDFRenderDPI: 300,
		},
		Defaults: DefaultsCfg{
			MaxWorkers: 4,
		},
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: "8080",
		},
	}
}

// ValidPageSegMode reports whether psm is one of the exposed modes.
func ValidPageSegMode(psm int) bool {
	_, ok := PageSegModes[psm]
	return ok
}
