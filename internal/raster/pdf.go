package raster

import (
	"bytes"
	"fmt"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// DefaultPDFRenderDPI is the page render resolution used when the caller
// does not configure one. Matches common scanner output.
const DefaultPDFRenderDPI = 300

// rasterizePDF renders every page of the PDF to an image at the given
// DPI. The page count is cross-checked with pdfcpu first, which also
// rejects structurally broken documents before MuPDF touches them.
func rasterizePDF(name string, data []byte, dpi int) ([]Page, error) {
	if dpi <= 0 {
		dpi = DefaultPDFRenderDPI
	}

	pageCount, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return nil, &UnsupportedFormatError{Name: name, Detected: FormatPDF}
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("%s: PDF has no pages", name)
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, &UnsupportedFormatError{Name: name, Detected: FormatPDF}
	}
	defer doc.Close()

	pages := make([]Page, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		img, err := doc.ImageDPI(i, float64(dpi))
		if err != nil {
			return nil, fmt.Errorf("%s: failed to render page %d: %w", name, i+1, err)
		}
		pages = append(pages, Page{Source: name, Index: i, Count: pageCount, Image: img})
	}
	return pages, nil
}
