// Package curve fits a Catmull-Rom spline through control points on the
// half-domain [0, 0.5] and bakes it into fixed-resolution lookup tables.
package curve

import (
	"math"
	"slices"
)

const (
	// HalfDomain is the upper bound of the spatial domain a curve is defined on.
	HalfDomain = 0.5

	// DefaultResolution is the LUT size used by the playback engine.
	DefaultResolution = 256
	// MinResolution is the smallest table size whose interpolation error stays
	// below what a viewer can see on an 8-bit strip.
	MinResolution = 128

	minSpan = 1e-6
)

// Point is a control point. X lies in [0, 0.5], Y in [0, 1].
type Point struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Eval evaluates the spline through points at s ∈ [0, 0.5]. The result is
// clamped to [0, 1].
func Eval(points []Point, s float64) float64 {
	s = clamp(s, 0, HalfDomain)
	switch len(points) {
	case 0:
		return 0
	case 1:
		return clamp(points[0].Y, 0, 1)
	}
	return evalSorted(normalize(points), s/HalfDomain)
}

// normalize copies points, rescales X to [0, 1] and sorts by position.
func normalize(points []Point) []Point {
	pp := make([]Point, len(points))
	for i, p := range points {
		pp[i] = Point{ID: p.ID, X: p.X / HalfDomain, Y: p.Y}
	}
	slices.SortStableFunc(pp, func(a, b Point) int {
		switch {
		case a.X < b.X:
			return -1
		case a.X > b.X:
			return 1
		}
		return 0
	})
	return pp
}

// evalSorted expects at least two points with X normalized to [0, 1].
func evalSorted(pp []Point, u float64) float64 {
	i := 0
	for i < len(pp)-1 && u > pp[i+1].X {
		i++
	}
	i = min(i, len(pp)-2)

	p0 := pp[max(0, i-1)]
	p1 := pp[i]
	p2 := pp[i+1]
	p3 := pp[min(len(pp)-1, i+2)]

	span := p2.X - p1.X
	if span == 0 {
		span = minSpan
	}
	t := (u - p1.X) / span

	return clamp(catmullRom(p0.Y, p1.Y, p2.Y, p3.Y, t), 0, 1)
}

// catmullRom interpolates between y1 and y2; t is the fraction of that span.
func catmullRom(y0, y1, y2, y3, t float64) float64 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2.0*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1
	return ((a0*t+a1)*t+a2)*t + a3
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
