package preprocess

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

const (
	// Angle search window around horizontal, in degrees.
	deskewMaxAngle = 15.0
	// Angle resolution of the accumulator.
	deskewAngleStep = 0.25
	// Gradient magnitude needed for a pixel to count as an edge.
	deskewEdgeThreshold = 100
	// Minimum absolute votes for a dominant line.
	deskewMinVotes = 64
)

// Deskew estimates the dominant text-line angle with a Hough-style vote
// over near-horizontal lines and rotates the image so the lines become
// level. When no dominant line is found (sparse or non-textual input) the
// image passes through unchanged with Outcome Skipped; the stage never
// fails for that reason.
func Deskew(img image.Image, _ Options) (image.Image, Outcome, error) {
	g := toGray(img)

	angle, ok := detectSkew(g)
	if !ok || math.Abs(angle) < deskewAngleStep {
		return img, Skipped, nil
	}

	// A line sloping down to the right (positive angle in scan
	// coordinates) means the page is turned clockwise; counter-clockwise
	// rotation by the same angle levels it.
	rotated := imaging.Rotate(img, angle, color.White)
	return toGray(rotated), Applied, nil
}

// detectSkew returns the dominant near-horizontal line angle in degrees,
// in scan coordinates (y down, positive = line descends to the right).
// ok is false when the edge map is too sparse or no angle collects enough
// collinear votes.
func detectSkew(g *image.Gray) (float64, bool) {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	if w < 8 || h < 8 {
		return 0, false
	}

	// Deterministic subsampling keeps the vote loop bounded on large scans.
	stride := 1
	for (w/stride)*(h/stride) > 1<<20 {
		stride++
	}

	type point struct{ x, y int }
	var edges []point
	for y := stride; y < h-stride; y += stride {
		row := g.Pix[y*g.Stride:]
		above := g.Pix[(y-stride)*g.Stride:]
		below := g.Pix[(y+stride)*g.Stride:]
		for x := stride; x < w-stride; x += stride {
			gx := int(row[x+stride]) - int(row[x-stride])
			gy := int(below[x]) - int(above[x])
			if abs(gx)+abs(gy) >= deskewEdgeThreshold {
				edges = append(edges, point{x, y})
			}
		}
	}
	if len(edges) < deskewMinVotes {
		return 0, false
	}

	angleCount := int(2*deskewMaxAngle/deskewAngleStep) + 1
	// rho = y*cos(a) - x*sin(a); bounded by h + w*sin(max).
	rhoMax := h + int(float64(w)*math.Sin(deskewMaxAngle*math.Pi/180))
	rhoOffset := int(float64(w) * math.Sin(deskewMaxAngle*math.Pi/180))

	sin := make([]float64, angleCount)
	cos := make([]float64, angleCount)
	for i := 0; i < angleCount; i++ {
		a := (-deskewMaxAngle + float64(i)*deskewAngleStep) * math.Pi / 180
		sin[i] = math.Sin(a)
		cos[i] = math.Cos(a)
	}

	bins := rhoMax + rhoOffset + 2
	acc := make([]int, angleCount*bins)
	for _, p := range edges {
		for i := 0; i < angleCount; i++ {
			rho := int(math.Round(float64(p.y)*cos[i]-float64(p.x)*sin[i])) + rhoOffset
			if rho >= 0 && rho < bins {
				acc[i*bins+rho]++
			}
		}
	}

	bestVotes, bestAngle := 0, 0
	for i := 0; i < angleCount; i++ {
		for r := 0; r < bins; r++ {
			if v := acc[i*bins+r]; v > bestVotes {
				bestVotes = v
				bestAngle = i
			}
		}
	}

	// The dominant line must carry a meaningful share of the edge mass.
	required := len(edges) / 50
	if required < deskewMinVotes {
		required = deskewMinVotes
	}
	if bestVotes < required {
		return 0, false
	}

	return -deskewMaxAngle + float64(bestAngle)*deskewAngleStep, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
