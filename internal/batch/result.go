package batch

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"

	"github.com/pagetext/pagetext/internal/preprocess"
)

const sectionSeparator = "=================================================="

// SourceUnit identifies one unit of extraction: a whole image file, or
// one page of a PDF. Page is 1-based.
type SourceUnit struct {
	File      string `json:"file"`
	Page      int    `json:"page"`
	PageCount int    `json:"page_count"`
}

// Label renders the unit for headers and logs: "scan.png" for single
// images, "doc.pdf (page 2/5)" for PDF pages.
func (u SourceUnit) Label() string {
	if u.PageCount > 1 {
		return fmt.Sprintf("%s (page %d/%d)", u.File, u.Page, u.PageCount)
	}
	return u.File
}

// ExtractedText is the outcome for one unit. Exactly one of Text or Err
// is meaningful; an empty Text with a nil Err is a legitimate result
// (blank page).
type ExtractedText struct {
	Unit      SourceUnit       `json:"unit"`
	Text      string           `json:"text"`
	ErrorNote string           `json:"error,omitempty"`
	Trace     preprocess.Trace `json:"trace,omitempty"`
	Err       error            `json:"-"`
}

// Failed reports whether the unit errored. It checks the error note as
// well, so results decoded from JSON keep their failure marker.
func (e ExtractedText) Failed() bool {
	return e.Err != nil || e.ErrorNote != ""
}

// Result is the ordered outcome of one batch.
type Result struct {
	BatchID string          `json:"batch_id"`
	Units   []ExtractedText `json:"units"`
}

// Succeeded counts units that produced text without error.
func (r *Result) Succeeded() int {
	n := 0
	for _, u := range r.Units {
		if !u.Failed() {
			n++
		}
	}
	return n
}

// Failed counts units that errored.
func (r *Result) Failed() int {
	return len(r.Units) - r.Succeeded()
}

// Combined renders all units as one document: a header per unit, the
// extracted text (or an error note), and a separator line.
func (r *Result) Combined() string {
	var b strings.Builder
	for _, u := range r.Units {
		fmt.Fprintf(&b, "File: %s\n\n", u.Unit.Label())
		if u.Failed() {
			fmt.Fprintf(&b, "[error: %s]\n", u.ErrorNote)
		} else {
			b.WriteString(u.Text)
			b.WriteString("\n")
		}
		b.WriteString("\n" + sectionSeparator + "\n\n")
	}
	return b.String()
}

// WriteTo streams the combined document.
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, r.Combined())
	return int64(n), err
}

// WriteArchive writes a ZIP with one "<file>_extracted.txt" entry per
// uploaded file, pages of a PDF joined inside its entry. Failed units
// contribute their error note so the archive accounts for every upload.
func (r *Result) WriteArchive(w io.Writer) error {
	zw := zip.NewWriter(w)

	// Group units by source file, preserving first-seen order.
	var order []string
	byFile := make(map[string][]ExtractedText)
	for _, u := range r.Units {
		if _, seen := byFile[u.Unit.File]; !seen {
			order = append(order, u.Unit.File)
		}
		byFile[u.Unit.File] = append(byFile[u.Unit.File], u)
	}

	for _, file := range order {
		f, err := zw.Create(archiveEntryName(file))
		if err != nil {
			return fmt.Errorf("failed to create archive entry for %s: %w", file, err)
		}
		var parts []string
		for _, u := range byFile[file] {
			if u.Failed() {
				parts = append(parts, fmt.Sprintf("[error: %s]", u.ErrorNote))
				continue
			}
			parts = append(parts, u.Text)
		}
		if _, err := io.WriteString(f, strings.Join(parts, "\n\n")); err != nil {
			return fmt.Errorf("failed to write archive entry for %s: %w", file, err)
		}
	}
	return zw.Close()
}

// archiveEntryName maps "scan.png" to "scan_extracted.txt".
func archiveEntryName(file string) string {
	base := file
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base + "_extracted.txt"
}
