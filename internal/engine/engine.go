// Package engine defines the OCR engine contract and its Tesseract
// implementation. The engine is a capability with a narrow surface, so
// the binding (native library, subprocess, remote service) can change
// without touching pipeline logic.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Options is the OCR portion of the pipeline configuration: the three
// flags the engine is invoked with.
type Options struct {
	// Languages are Tesseract language codes (e.g. "eng", "hin"),
	// combined with "+" when passed to the engine.
	Languages []string `json:"languages,omitempty"`
	// EngineMode is tessedit_ocr_engine_mode; 1 selects LSTM-only.
	EngineMode int `json:"engine_mode"`
	// PageSegMode is tessedit_pageseg_mode; 6 assumes a single uniform
	// block of text.
	PageSegMode int `json:"page_seg_mode"`
	// PreserveInterwordSpaces keeps runs of spaces in the output.
	PreserveInterwordSpaces bool `json:"preserve_interword_spaces"`
}

// DefaultOptions returns the fixed default configuration: LSTM engine,
// single uniform block, interword spaces preserved, English.
func DefaultOptions() Options {
	return Options{
		Languages:               []string{"eng"},
		EngineMode:              1,
		PageSegMode:             6,
		PreserveInterwordSpaces: true,
	}
}

// ConfigString renders the options in Tesseract CLI form. Used for
// logging and API responses, not for invocation (the native binding sets
// variables directly).
func (o Options) ConfigString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "--oem %d --psm %d", o.EngineMode, o.PageSegMode)
	if o.PreserveInterwordSpaces {
		b.WriteString(" -c preserve_interword_spaces=1")
	}
	if len(o.Languages) > 0 {
		fmt.Fprintf(&b, " -l %s", strings.Join(o.Languages, "+"))
	}
	return b.String()
}

// Engine extracts text from a single preprocessed image.
type Engine interface {
	// Name returns the engine identifier (e.g. "tesseract").
	Name() string

	// Recognize runs OCR over PNG-encoded image data and returns the
	// recognized text, which may be empty. The context deadline bounds
	// the call; expiry is reported as *RecognitionError.
	Recognize(ctx context.Context, png []byte, opts Options) (string, error)
}

// LanguageLister is implemented by engines that can report their
// installed language packs.
type LanguageLister interface {
	InstalledLanguages() ([]string, error)
}

// RecognitionError indicates the external OCR engine was unavailable,
// errored, or timed out. The failing unit records empty text with this
// error attached; the batch continues.
type RecognitionError struct {
	Engine string
	Err    error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("recognition failed (%s): %v", e.Engine, e.Err)
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}

// Config holds engine construction parameters.
type Config struct {
	// Languages requested for recognition; validated against the
	// installed language packs with fallback to "eng".
	Languages []string
	// TessdataPrefix optionally points at the trained data directory.
	TessdataPrefix string
	// Timeout bounds a single recognition call. Zero means no deadline
	// beyond the caller's context.
	Timeout time.Duration
	// MaxRetries is the number of additional attempts after a transient
	// failure.
	MaxRetries int
	// RetryDelay is the base delay between attempts.
	RetryDelay time.Duration
}
