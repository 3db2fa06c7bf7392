// Package raster turns uploaded files into in-memory page images.
// Plain images decode to a single page; PDFs render one page image per
// document page at a configured DPI.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
)

// Supported input content types.
const (
	FormatPNG  = "image/png"
	FormatJPEG = "image/jpeg"
	FormatPDF  = "application/pdf"
)

// Page is one unit of work: a single raster image plus its origin.
type Page struct {
	// Source is the uploaded file name.
	Source string
	// Index is the zero-based page index within the source file.
	Index int
	// Count is the total number of pages produced from the source file.
	Count int
	// Image is the decoded raster image.
	Image image.Image
}

// UnsupportedFormatError indicates the uploaded bytes are not a
// supported content type or cannot be decoded as the detected type.
type UnsupportedFormatError struct {
	Name     string
	Detected string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format for %s: detected %q", e.Name, e.Detected)
}

// DetectFormat sniffs the content type from the leading bytes.
func DetectFormat(data []byte) string {
	return http.DetectContentType(data)
}

// Rasterize converts one uploaded file into its ordered page images.
// Images yield exactly one page; PDFs yield one page per document page,
// rendered at the given DPI. Content type is determined by sniffing, not
// by the file name.
func Rasterize(name string, data []byte, dpi int) ([]Page, error) {
	if len(data) == 0 {
		return nil, &UnsupportedFormatError{Name: name, Detected: "empty file"}
	}

	switch format := DetectFormat(data); format {
	case FormatPNG:
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, &UnsupportedFormatError{Name: name, Detected: format}
		}
		return []Page{{Source: name, Index: 0, Count: 1, Image: img}}, nil

	case FormatJPEG:
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, &UnsupportedFormatError{Name: name, Detected: format}
		}
		return []Page{{Source: name, Index: 0, Count: 1, Image: img}}, nil

	case FormatPDF:
		return rasterizePDF(name, data, dpi)

	default:
		return nil, &UnsupportedFormatError{Name: name, Detected: format}
	}
}
