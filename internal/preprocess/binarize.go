package preprocess

import "image"

// Binarize thresholds the image to pure black/white using Otsu's method
// and normalizes polarity so text (the minority class) is dark on a light
// background, which is the polarity Tesseract expects. Running it on an
// already-binarized image returns the same pixels.
func Binarize(img image.Image, _ Options) (image.Image, Outcome, error) {
	g := toGray(img)
	w, h := g.Bounds().Dx(), g.Bounds().Dy()

	var hist [256]int
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for _, v := range row {
			hist[v]++
		}
	}

	threshold, ok := otsuThreshold(hist, w*h)
	out := image.NewGray(image.Rect(0, 0, w, h))

	if !ok {
		// Degenerate histogram (single intensity): treat everything as
		// background.
		for i := range out.Pix {
			out.Pix[i] = 255
		}
		return out, Applied, nil
	}

	dark := 0
	for y := 0; y < h; y++ {
		src := g.Pix[y*g.Stride : y*g.Stride+w]
		dst := out.Pix[y*out.Stride : y*out.Stride+w]
		for x, v := range src {
			if int(v) <= threshold {
				dst[x] = 0
				dark++
			} else {
				dst[x] = 255
			}
		}
	}

	// Foreground must be the minority class. A majority-dark result means
	// light text on a dark scan; invert it.
	if dark*2 > w*h {
		for i, v := range out.Pix {
			out.Pix[i] = 255 - v
		}
	}

	return out, Applied, nil
}

// otsuThreshold picks the threshold minimizing intra-class variance,
// equivalently maximizing between-class variance, from the intensity
// histogram. Returns ok=false when the histogram has a single occupied
// bin.
func otsuThreshold(hist [256]int, total int) (int, bool) {
	if total == 0 {
		return 0, false
	}

	var sum float64
	occupied := 0
	for v, c := range hist {
		sum += float64(v) * float64(c)
		if c > 0 {
			occupied++
		}
	}
	if occupied <= 1 {
		return 0, false
	}

	var sumB, wB float64
	best, bestVar := 0, -1.0
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > bestVar {
			bestVar = between
			best = t
		}
	}
	return best, true
}
