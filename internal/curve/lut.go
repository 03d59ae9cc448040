package curve

// LUT holds evenly spaced samples of a curve over [0, 0.5]. A LUT is never
// modified after NewLUT returns it.
type LUT struct {
	samples []float64
}

// NewLUT samples the spline through points at n evenly spaced positions.
// n below 2 is raised to 2.
func NewLUT(points []Point, n int) LUT {
	n = max(n, 2)
	samples := make([]float64, n)

	switch len(points) {
	case 0:
	case 1:
		y := clamp(points[0].Y, 0, 1)
		for i := range samples {
			samples[i] = y
		}
	default:
		pp := normalize(points)
		for i := range samples {
			u := float64(i) / float64(n-1)
			samples[i] = evalSorted(pp, u)
		}
	}
	return LUT{samples: samples}
}

// Len is the table resolution.
func (l LUT) Len() int {
	return len(l.samples)
}

// Sample linearly interpolates the table at s ∈ [0, 0.5].
func (l LUT) Sample(s float64) float64 {
	n := len(l.samples)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return l.samples[0]
	}
	u := clamp(s/HalfDomain, 0, 1) * float64(n-1)
	i0 := int(u)
	i1 := min(n-1, i0+1)
	a := u - float64(i0)
	return l.samples[i0] + (l.samples[i1]-l.samples[i0])*a
}
