// Package filter implements a second-order low-pass section from the RBJ
// audio EQ cookbook.
package filter

import "math"

type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64

	x1, x2 float64
	y1, y2 float64
}

// NewLowPass returns a Butterworth (Q = 1/√2) low-pass at cutoff Hz. The
// cutoff is kept strictly inside (0, Nyquist).
func NewLowPass(cutoff, sampleRate float64) *Biquad {
	cutoff = math.Max(1, math.Min(cutoff, sampleRate/2*0.99))

	w0 := 2 * math.Pi * cutoff / sampleRate
	cosw0 := math.Cos(w0)
	alpha := math.Sin(w0) / 2 * math.Sqrt2

	a0 := 1 + alpha
	b1 := (1 - cosw0) / a0
	return &Biquad{
		b0: b1 / 2,
		b1: b1,
		b2: b1 / 2,
		a1: -2 * cosw0 / a0,
		a2: (1 - alpha) / a0,
	}
}

// Step filters a single sample.
func (b *Biquad) Step(x float64) float64 {
	y := b.b0*x + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2
	b.x2 = b.x1
	b.x1 = x
	b.y2 = b.y1
	b.y1 = y
	return y
}

// Reset clears the delay line.
func (b *Biquad) Reset() {
	b.x1, b.x2, b.y1, b.y2 = 0, 0, 0, 0
}
