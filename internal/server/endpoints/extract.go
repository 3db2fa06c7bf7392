package endpoints

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/cobra"

	"github.com/pagetext/pagetext/internal/api"
	"github.com/pagetext/pagetext/internal/batch"
	"github.com/pagetext/pagetext/internal/svcctx"
)

// extractOptionsSchema validates the "options" part of an extract
// request before it is decoded.
const extractOptionsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "format": {"type": "string", "enum": ["json", "text", "zip"]},
    "languages": {"type": "array", "items": {"type": "string", "minLength": 3}},
    "engine_mode": {"type": "integer", "minimum": 0, "maximum": 3},
    "page_seg_mode": {"type": "integer", "enum": [3, 4, 6, 11, 12]},
    "preserve_interword_spaces": {"type": "boolean"},
    "threshold": {"type": "boolean"},
    "deskew": {"type": "boolean"},
    "denoise": {"type": "boolean"},
    "contrast": {"type": "boolean"},
    "resize_factor": {"type": "number", "exclusiveMinimum": 0, "maximum": 4},
    "contrast_percent": {"type": "number", "minimum": -100, "maximum": 100},
    "denoise_strength": {"type": "integer", "minimum": 1, "maximum": 30},
    "dpi": {"type": "integer", "minimum": 72, "maximum": 600}
  }
}`

var compiledExtractOptions = jsonschema.MustCompileString("extract-options.json", extractOptionsSchema)

// ExtractOptions are the per-request overrides accepted by the extract
// endpoint. Nil fields fall back to the server configuration.
type ExtractOptions struct {
	Format                  string   `json:"format,omitempty"`
	Languages               []string `json:"languages,omitempty"`
	EngineMode              *int     `json:"engine_mode,omitempty"`
	PageSegMode             *int     `json:"page_seg_mode,omitempty"`
	PreserveInterwordSpaces *bool    `json:"preserve_interword_spaces,omitempty"`
	Threshold               *bool    `json:"threshold,omitempty"`
	Deskew                  *bool    `json:"deskew,omitempty"`
	Denoise                 *bool    `json:"denoise,omitempty"`
	Contrast                *bool    `json:"contrast,omitempty"`
	ResizeFactor            *float64 `json:"resize_factor,omitempty"`
	ContrastPercent         *float64 `json:"contrast_percent,omitempty"`
	DenoiseStrength         *int     `json:"denoise_strength,omitempty"`
	DPI                     *int     `json:"dpi,omitempty"`
}

// applyTo overlays the request overrides on config-derived defaults.
func (o ExtractOptions) applyTo(opts *batch.Options) {
	if len(o.Languages) > 0 {
		opts.OCR.Languages = o.Languages
	}
	if o.EngineMode != nil {
		opts.OCR.EngineMode = *o.EngineMode
	}
	if o.PageSegMode != nil {
		opts.OCR.PageSegMode = *o.PageSegMode
	}
	if o.PreserveInterwordSpaces != nil {
		opts.OCR.PreserveInterwordSpaces = *o.PreserveInterwordSpaces
	}
	if o.Threshold != nil {
		opts.Pipeline.Threshold = *o.Threshold
	}
	if o.Deskew != nil {
		opts.Pipeline.Deskew = *o.Deskew
	}
	if o.Denoise != nil {
		opts.Pipeline.Denoise = *o.Denoise
	}
	if o.Contrast != nil {
		opts.Pipeline.Contrast = *o.Contrast
	}
	if o.ResizeFactor != nil {
		opts.Pipeline.ResizeFactor = *o.ResizeFactor
	}
	if o.ContrastPercent != nil {
		opts.Pipeline.ContrastPercent = *o.ContrastPercent
	}
	if o.DenoiseStrength != nil {
		opts.Pipeline.DenoiseH = *o.DenoiseStrength
	}
	if o.DPI != nil {
		opts.PDFRenderDPI = *o.DPI
	}
}

// ExtractEndpoint handles POST /api/extract with multipart file upload.
type ExtractEndpoint struct{}

var _ api.Endpoint = (*ExtractEndpoint)(nil)

func (e *ExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/extract", e.handler
}

func (e *ExtractEndpoint) RequiresEngine() bool { return true }

func (e *ExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	const maxMemory = 200 << 20 // 200MB
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	reqOpts, err := parseExtractOptions(r.FormValue("options"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	processor := svcctx.ProcessorFrom(r.Context())
	if processor == nil {
		writeError(w, http.StatusServiceUnavailable, "processor not initialized")
		return
	}
	cfgMgr := svcctx.ConfigFrom(r.Context())
	if cfgMgr == nil {
		writeError(w, http.StatusServiceUnavailable, "config not initialized")
		return
	}

	opts := batch.OptionsFromConfig(cfgMgr.Get())
	reqOpts.applyTo(&opts)

	uploads := make([]batch.Upload, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		src, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to open uploaded file: %v", err))
			return
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read uploaded file: %v", err))
			return
		}
		uploads = append(uploads, batch.Upload{Name: fh.Filename, Data: data})
	}

	result, err := processor.Process(r.Context(), uploads, opts)
	if err != nil {
		// Partial failures do not reach here; only a batch with zero
		// successful units does.
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	switch responseFormat(reqOpts.Format, r.Header.Get("Accept")) {
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := result.WriteTo(w); err != nil {
			if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
				logger.Error("failed to stream combined text", "error", err)
			}
		}
	case "zip":
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", `attachment; filename="extracted_texts.zip"`)
		w.WriteHeader(http.StatusOK)
		if err := result.WriteArchive(w); err != nil {
			if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
				logger.Error("failed to stream archive", "error", err)
			}
		}
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

// responseFormat picks the response encoding: an explicit option wins,
// then the Accept header, then JSON.
func responseFormat(optFormat, accept string) string {
	if optFormat != "" {
		return optFormat
	}
	switch {
	case strings.Contains(accept, "text/plain"):
		return "text"
	case strings.Contains(accept, "application/zip"):
		return "zip"
	default:
		return "json"
	}
}

// parseExtractOptions validates and decodes the options form field.
func parseExtractOptions(raw string) (ExtractOptions, error) {
	var opts ExtractOptions
	if raw == "" {
		return opts, nil
	}

	var generic any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return opts, fmt.Errorf("options is not valid JSON: %v", err)
	}
	if err := compiledExtractOptions.Validate(generic); err != nil {
		return opts, fmt.Errorf("invalid options: %v", err)
	}
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		return opts, fmt.Errorf("failed to decode options: %v", err)
	}
	return opts, nil
}

func (e *ExtractEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		format    string
		languages []string
		psm       int
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "extract <file> [file...]",
		Short: "Extract text from images or PDFs via the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var files []api.FilePart
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				files = append(files, api.FilePart{Name: filepath.Base(path), Data: data})
			}

			reqOpts := ExtractOptions{Languages: languages}
			if cmd.Flags().Changed("psm") {
				reqOpts.PageSegMode = &psm
			}

			client := api.NewClient(getServerURL())
			var result batch.Result
			if err := client.PostMultipart(cmd.Context(), "/api/extract", files, reqOpts, &result); err != nil {
				return err
			}

			switch strings.ToLower(format) {
			case "text":
				if outPath != "" {
					return os.WriteFile(outPath, []byte(result.Combined()), 0o644)
				}
				fmt.Print(result.Combined())
				return nil
			case "zip":
				if outPath == "" {
					outPath = "extracted_texts.zip"
				}
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create archive: %w", err)
				}
				defer f.Close()
				if err := result.WriteArchive(f); err != nil {
					return fmt.Errorf("failed to write archive: %w", err)
				}
				fmt.Printf("Wrote %s (%d file(s), %d succeeded, %d failed)\n",
					outPath, len(args), result.Succeeded(), result.Failed())
				return nil
			default:
				return api.Output(result)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "Output format: json, text, or zip")
	cmd.Flags().StringSliceVar(&languages, "lang", nil, "OCR languages (e.g. eng, hin)")
	cmd.Flags().IntVar(&psm, "psm", 6, "Tesseract page segmentation mode")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write output to a file")

	return cmd
}
