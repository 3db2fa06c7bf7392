package preprocess

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Grayscale collapses the image to a single-channel intensity plane.
// Already-gray images pass through unchanged.
func Grayscale(img image.Image, _ Options) (image.Image, Outcome, error) {
	if g, ok := img.(*image.Gray); ok {
		return g, Skipped, nil
	}
	return toGray(img), Applied, nil
}

// toGray produces an *image.Gray. The imaging library equalizes the
// channels, so the red channel carries the luma afterwards.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	flat := imaging.Grayscale(img)
	b := flat.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := flat.Pix[y*flat.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			dst[x] = src[x*4]
		}
	}
	return out
}

// Denoise suppresses speckle noise with a median filter over the gray
// plane. DenoiseH selects the number of passes, DenoiseTemplateWindow the
// window size (clamped to an odd value in [3,9]).
func Denoise(img image.Image, opts Options) (image.Image, Outcome, error) {
	g := toGray(img)

	window := opts.DenoiseTemplateWindow
	if window < 3 {
		window = 3
	}
	if window > 9 {
		window = 9
	}
	if window%2 == 0 {
		window--
	}

	passes := opts.DenoiseH / 10
	if passes < 1 {
		passes = 1
	}
	if passes > 3 {
		passes = 3
	}

	out := g
	for i := 0; i < passes; i++ {
		out = medianFilter(out, window)
	}
	return out, Applied, nil
}

// medianFilter applies one pass of a window median over the gray plane.
// Border pixels use the clamped window. The median is taken from a
// 256-bin histogram, so the result is exact and deterministic.
func medianFilter(g *image.Gray, window int) *image.Gray {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	half := window / 2

	var hist [256]int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for i := range hist {
				hist[i] = 0
			}
			count := 0
			for dy := -half; dy <= half; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				row := g.Pix[yy*g.Stride:]
				for dx := -half; dx <= half; dx++ {
					xx := x + dx
					if xx < 0 || xx >= w {
						continue
					}
					hist[row[xx]]++
					count++
				}
			}
			mid := (count + 1) / 2
			acc := 0
			for v := 0; v < 256; v++ {
				acc += hist[v]
				if acc >= mid {
					out.Pix[y*out.Stride+x] = uint8(v)
					break
				}
			}
		}
	}
	return out
}

// Resize upscales by the configured factor with Catmull-Rom (cubic)
// interpolation. Both dimensions scale by the same factor, so the aspect
// ratio is preserved by construction.
func Resize(img image.Image, opts Options) (image.Image, Outcome, error) {
	f := opts.ResizeFactor
	if f <= 0 || f == 1.0 {
		return img, Skipped, nil
	}
	b := img.Bounds()
	w := int(math.Round(float64(b.Dx()) * f))
	h := int(math.Round(float64(b.Dy()) * f))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return toGray(imaging.Resize(img, w, h, imaging.CatmullRom)), Applied, nil
}

// Contrast is the optional contrast-enhancement stage. It is not part of
// the default pipeline; enable it via the apply_contrast option.
func Contrast(img image.Image, opts Options) (image.Image, Outcome, error) {
	pct := opts.ContrastPercent
	if pct == 0 {
		return img, Skipped, nil
	}
	return toGray(imaging.AdjustContrast(img, pct)), Applied, nil
}
