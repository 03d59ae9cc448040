package rng

import "math"

// MaxRejections bounds GaussianRange's rejection loop.
const MaxRejections = 1 << 16

// Source is a Mulberry32 generator. The zero value is a valid source seeded with 0.
// Not safe for concurrent use.
type Source struct {
	state uint32
}

func New(seed uint32) *Source {
	return &Source{state: seed}
}

// Float64 returns the next value in [0, 1).
func (s *Source) Float64() float64 {
	s.state += 0x6D2B79F5
	t := s.state
	r := (t ^ (t >> 15)) * (1 | t)
	r ^= r + (r^(r>>7))*(61|r)
	return float64(r^(r>>14)) / 4294967296.0
}

// Between draws uniformly from [lo, hi).
func (s *Source) Between(lo, hi float64) float64 {
	return lo + (hi-lo)*s.Float64()
}

// Gaussian draws from N(mean, stdDev²) using Box-Muller.
func (s *Source) Gaussian(mean, stdDev float64) float64 {
	var u1, u2 float64
	for {
		u1 = s.Float64()
		u2 = s.Float64()
		if u1 != 0 {
			break
		}
	}
	z0 := math.Sqrt(-2.0*math.Log(u1)) * math.Cos(2.0*math.Pi*u2)
	return mean + z0*stdDev
}

// GaussianRange resamples Gaussian until the draw lands in [min, max].
// If no draw lands within MaxRejections attempts the mean, clamped to the
// range, is returned.
func (s *Source) GaussianRange(mean, stdDev, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}
	for range MaxRejections {
		v := s.Gaussian(mean, stdDev)
		if v >= min && v <= max {
			return v
		}
	}
	return math.Max(min, math.Min(max, mean))
}
