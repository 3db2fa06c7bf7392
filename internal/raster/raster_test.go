package raster

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 10), B: 128, A: 255})
		}
	}
	return img
}

func TestDetectFormat(t *testing.T) {
	if got := DetectFormat(encodePNG(t, testImage())); got != FormatPNG {
		t.Errorf("expected %s, got %s", FormatPNG, got)
	}
	if got := DetectFormat(encodeJPEG(t, testImage())); got != FormatJPEG {
		t.Errorf("expected %s, got %s", FormatJPEG, got)
	}
	if got := DetectFormat([]byte("%PDF-1.7\n")); got != FormatPDF {
		t.Errorf("expected %s, got %s", FormatPDF, got)
	}
}

func TestRasterizeImage(t *testing.T) {
	t.Run("png yields one page", func(t *testing.T) {
		pages, err := Rasterize("scan.png", encodePNG(t, testImage()), 300)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pages) != 1 {
			t.Fatalf("expected 1 page, got %d", len(pages))
		}
		p := pages[0]
		if p.Source != "scan.png" || p.Index != 0 || p.Count != 1 {
			t.Errorf("unexpected page metadata: %+v", p)
		}
		if p.Image.Bounds().Dx() != 32 || p.Image.Bounds().Dy() != 24 {
			t.Errorf("unexpected dimensions: %v", p.Image.Bounds())
		}
	})

	t.Run("jpeg yields one page", func(t *testing.T) {
		pages, err := Rasterize("photo.jpg", encodeJPEG(t, testImage()), 300)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pages) != 1 {
			t.Fatalf("expected 1 page, got %d", len(pages))
		}
	})
}

func TestRasterizeUnsupported(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"plain text", []byte("just some text, definitely not an image")},
		{"truncated png", append(encodePNG(t, testImage())[:16], 0, 0, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Rasterize("bad.bin", tc.data, 300)
			var unsupported *UnsupportedFormatError
			if !errors.As(err, &unsupported) {
				t.Errorf("expected UnsupportedFormatError, got %v", err)
			}
		})
	}
}

func TestRasterizeCorruptPDF(t *testing.T) {
	// Valid PDF magic, garbage body: pdfcpu must reject it before
	// rendering is attempted.
	data := []byte("%PDF-1.4\nthis is not a real document")
	_, err := Rasterize("broken.pdf", data, 300)
	var unsupported *UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Errorf("expected UnsupportedFormatError, got %v", err)
	}
}
