// Package timeline synthesises the keyframes of a fluorescent tube striking:
// a handful of dim pulses grouped in bursts, decaying, then a final pulse that
// latches at full brightness.
package timeline

import (
	"math"
	"slices"

	"github.com/agusx1211/fluorescent/internal/curve"
	"github.com/agusx1211/fluorescent/internal/player"
)

// Version is written into every generated timeline.
const Version = 1

// ControlPoint is a fixed position on the half tube, x ∈ [0, 0.5].
type ControlPoint struct {
	ID int     `mapstructure:"id" json:"id"`
	X  float64 `mapstructure:"x" json:"x"`
}

type Keyframe struct {
	T      float64       `json:"t"`
	Points []curve.Point `json:"points"`
}

type Timeline struct {
	Version       int            `json:"version"`
	Seed          uint32         `json:"seed"`
	Duration      float64        `json:"duration"`
	ControlPoints []ControlPoint `json:"control_points"`
	Keyframes     []Keyframe     `json:"keyframes"`
}

// Spec converts the timeline into the form the playback engine loads.
func (tl *Timeline) Spec() []player.KeyframeSpec {
	spec := make([]player.KeyframeSpec, len(tl.Keyframes))
	for i, kf := range tl.Keyframes {
		pts := slices.Clone(kf.Points)
		for j := range pts {
			pts[j].Y = clamp01(pts[j].Y)
		}
		spec[i] = player.KeyframeSpec{T: kf.T, Points: pts}
	}
	return spec
}

// Last returns the final keyframe. Generated timelines always have one.
func (tl *Timeline) Last() Keyframe {
	if len(tl.Keyframes) == 0 {
		return Keyframe{}
	}
	return tl.Keyframes[len(tl.Keyframes)-1]
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func pow(x, y float64) float64 {
	return math.Pow(math.Max(0, x), y)
}

func ms(v float64) float64 {
	return v / 1000
}
