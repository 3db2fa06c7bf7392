package engine

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/otiai10/gosseract/v2"
)

// TesseractName is the identifier of the Tesseract engine.
const TesseractName = "tesseract"

// Tesseract runs OCR through the native Tesseract library (gosseract).
// Each Recognize call uses its own client, so one Tesseract value is
// safe for concurrent use across page workers.
type Tesseract struct {
	cfg    Config
	logger *slog.Logger
}

var _ Engine = (*Tesseract)(nil)

// NewTesseract creates a Tesseract engine with the given configuration.
func NewTesseract(cfg Config, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Tesseract{cfg: cfg, logger: logger}
}

// Name returns the engine identifier.
func (t *Tesseract) Name() string { return TesseractName }

// Available reports whether the engine can run at all (at least one
// language pack installed).
func (t *Tesseract) Available() bool {
	langs, err := gosseract.GetAvailableLanguages()
	return err == nil && len(langs) > 0
}

// InstalledLanguages returns the installed Tesseract language packs.
func (t *Tesseract) InstalledLanguages() ([]string, error) {
	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return nil, &RecognitionError{Engine: TesseractName, Err: err}
	}
	return langs, nil
}

// Recognize runs OCR on PNG data. Transient failures are retried with a
// fixed base delay; the context deadline (or the configured timeout,
// whichever is sooner) bounds the whole call.
func (t *Tesseract) Recognize(ctx context.Context, png []byte, opts Options) (string, error) {
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	languages := t.resolveLanguages(opts.Languages)

	var text string
	err := retry.Do(
		func() error {
			out, err := t.recognizeOnce(ctx, png, opts, languages)
			if err != nil {
				return err
			}
			text = out
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(t.cfg.MaxRetries)+1),
		retry.Delay(t.cfg.RetryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", &RecognitionError{Engine: TesseractName, Err: err}
	}
	return text, nil
}

// recognizeOnce performs a single blocking OCR call in a goroutine so
// the context can interrupt the wait.
func (t *Tesseract) recognizeOnce(ctx context.Context, png []byte, opts Options, languages []string) (string, error) {
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		client := gosseract.NewClient()
		defer client.Close()

		if t.cfg.TessdataPrefix != "" {
			client.TessdataPrefix = t.cfg.TessdataPrefix
		}
		if err := client.SetLanguage(languages...); err != nil {
			done <- result{err: err}
			return
		}
		if err := client.SetVariable("tessedit_ocr_engine_mode", strconv.Itoa(opts.EngineMode)); err != nil {
			done <- result{err: err}
			return
		}
		if err := client.SetPageSegMode(gosseract.PageSegMode(opts.PageSegMode)); err != nil {
			done <- result{err: err}
			return
		}
		if opts.PreserveInterwordSpaces {
			if err := client.SetVariable("preserve_interword_spaces", "1"); err != nil {
				done <- result{err: err}
				return
			}
		}
		if err := client.SetImageFromBytes(png); err != nil {
			done <- result{err: err}
			return
		}

		text, err := client.Text()
		done <- result{text: strings.TrimSpace(text), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.text, r.err
	}
}

// resolveLanguages intersects the requested languages with the installed
// packs, falling back to the configured then default language set.
func (t *Tesseract) resolveLanguages(requested []string) []string {
	if len(requested) == 0 {
		requested = t.cfg.Languages
	}
	installed, err := gosseract.GetAvailableLanguages()
	if err != nil {
		t.logger.Warn("failed to list installed languages", "error", err)
		return fallbackLanguages(requested)
	}
	return filterLanguages(requested, installed)
}

// filterLanguages keeps requested languages that are installed; when
// none survive, falls back to "eng".
func filterLanguages(requested, installed []string) []string {
	have := make(map[string]bool, len(installed))
	for _, l := range installed {
		have[l] = true
	}
	var valid []string
	for _, l := range requested {
		if have[l] {
			valid = append(valid, l)
		}
	}
	if len(valid) == 0 {
		return []string{"eng"}
	}
	return valid
}

func fallbackLanguages(requested []string) []string {
	if len(requested) == 0 {
		return []string{"eng"}
	}
	return requested
}
