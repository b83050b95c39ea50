// Package writing grades hand-drawn characters by how much of the canvas they ink.
// It is a coverage heuristic, not handwriting recognition.
package writing

import (
	"image"
	"math"

	"golang.org/x/image/vector"

	"hanzi-quiz-service/internal/domain"
)

// Scorer holds the canvas geometry and the pixel curve.
type Scorer struct {
	Size      int     `yaml:"size"`
	LineWidth float64 `yaml:"line_width"`
	MinPixels int     `yaml:"min_pixels"`
	MaxPixels int     `yaml:"max_pixels"`
	PassScore int     `yaml:"pass_score"`
}

func DefaultScorer() Scorer {
	return Scorer{Size: 400, LineWidth: 3, MinPixels: 100, MaxPixels: 3000, PassScore: 60}
}

// Evaluate rasterises strokes and grades them for an entry of the given level.
func (s Scorer) Evaluate(strokes []domain.Stroke, level domain.Level) domain.Evaluation {
	score := s.ScorePixels(s.InkedPixels(strokes), level)
	return domain.Evaluation{Correct: score >= s.PassScore, Points: score}
}

// InkedPixels draws the strokes on a blank canvas and counts pixels with alpha above 5.
func (s Scorer) InkedPixels(strokes []domain.Stroke) int {
	size := s.Size
	if size <= 0 {
		size = DefaultScorer().Size
	}
	half := float32(s.LineWidth / 2)
	if half <= 0 {
		half = 0.5
	}

	canvas := image.NewAlpha(image.Rect(0, 0, size, size))
	r := vector.NewRasterizer(size, size)
	paint := func() {
		r.Draw(canvas, canvas.Bounds(), image.Opaque, image.Point{})
		r.Reset(size, size)
	}

	for _, stroke := range strokes {
		for i, p := range stroke {
			x, y := s.clamp(p, size)
			// pen tip
			r.MoveTo(x-half, y-half)
			r.LineTo(x+half, y-half)
			r.LineTo(x+half, y+half)
			r.LineTo(x-half, y+half)
			r.ClosePath()
			paint()

			if i == 0 {
				continue
			}
			px, py := s.clamp(stroke[i-1], size)
			segment(r, px, py, x, y, half)
			paint()
		}
	}

	inked := 0
	for _, a := range canvas.Pix {
		if a > 5 {
			inked++
		}
	}
	return inked
}

// ScorePixels maps an inked-pixel count to a 0-100 score.
func (s Scorer) ScorePixels(pixels int, level domain.Level) int {
	minPx := float64(s.MinPixels)
	maxPx := float64(s.MaxPixels)
	px := float64(pixels)

	if px < minPx {
		return int(math.Round(math.Max(20, px/minPx*60)))
	}

	score := 60.0
	if maxPx > minPx {
		score += (math.Min(px, maxPx) - minPx) / (maxPx - minPx) * 30
	}
	switch level {
	case domain.LevelAdvanced:
		score += 10
	case domain.LevelIntermediate:
		score += 5
	}
	return int(math.Round(math.Min(score, 100)))
}

func (s Scorer) clamp(p domain.Point, size int) (float32, float32) {
	lim := float64(size)
	return float32(math.Max(0, math.Min(p.X, lim))), float32(math.Max(0, math.Min(p.Y, lim)))
}

// segment adds the rectangle of width 2*half around the line a-b.
func segment(r *vector.Rasterizer, ax, ay, bx, by, half float32) {
	dx, dy := bx-ax, by-ay
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return
	}
	nx, ny := -dy/length*half, dx/length*half

	r.MoveTo(ax+nx, ay+ny)
	r.LineTo(bx+nx, by+ny)
	r.LineTo(bx-nx, by-ny)
	r.LineTo(ax-nx, ay-ny)
	r.ClosePath()
}
