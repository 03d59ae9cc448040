// Package player plays back a keyframed curve timeline. Each keyframe carries
// a baked lookup table; ValueAt blends the two tables around the current time.
//
// An Engine is a single mutable aggregate with no internal locking and no
// scheduling of its own: the owner drives it through Advance and must
// serialise access itself.
package player

import (
	"cmp"
	"math"
	"slices"
	"sort"

	"github.com/agusx1211/fluorescent/internal/curve"
)

const (
	DefaultDuration = 2.0
	// MinPeakScale is what non-positive peak scales are raised to.
	MinPeakScale = 0.01

	minSpan = 1e-6
)

// KeyframeSpec is the input form of a keyframe.
type KeyframeSpec struct {
	T      float64       `json:"t"`
	Points []curve.Point `json:"pts"`
}

type keyframe struct {
	t      float64
	points []curve.Point
	lut    curve.LUT
}

type Engine struct {
	resolution int
	keyframes  []keyframe

	duration  float64
	time      float64
	playing   bool
	peakScale float64
}

// NewEngine returns a stopped engine with no keyframes. resolution is the LUT
// size for every keyframe loaded into it; values below 2 are raised to 2.
func NewEngine(resolution int) *Engine {
	return &Engine{
		resolution: max(resolution, 2),
		duration:   DefaultDuration,
		peakScale:  1,
	}
}

// SetKeyframesFromSpec replaces the timeline, bakes one LUT per keyframe and
// rewinds to 0. A running engine is paused; call Play to restart it.
// A non-positive duration falls back to the last keyframe time and then to
// the current duration.
func (e *Engine) SetKeyframesFromSpec(spec []KeyframeSpec, duration float64) {
	kfs := make([]keyframe, len(spec))
	for i, s := range spec {
		pts := slices.Clone(s.Points)
		t := s.T
		if math.IsNaN(t) || t < 0 {
			t = 0
		}
		kfs[i] = keyframe{t: t, points: pts, lut: curve.NewLUT(pts, e.resolution)}
	}
	slices.SortStableFunc(kfs, func(a, b keyframe) int { return cmp.Compare(a.t, b.t) })

	switch {
	case duration > 0 && !math.IsInf(duration, 1):
		e.duration = duration
	case len(kfs) > 0 && kfs[len(kfs)-1].t > 0:
		e.duration = kfs[len(kfs)-1].t
	}

	e.keyframes = kfs
	e.time = 0
	e.playing = false
}

func (e *Engine) Play() {
	e.playing = true
}

func (e *Engine) Pause() {
	e.playing = false
}

// Reset rewinds to 0 and stops.
func (e *Engine) Reset() {
	e.time = 0
	e.playing = false
}

func (e *Engine) SetTime(t float64) {
	e.time = clamp(t, 0, e.duration)
}

func (e *Engine) Time() float64      { return e.time }
func (e *Engine) Duration() float64  { return e.duration }
func (e *Engine) IsPlaying() bool    { return e.playing }
func (e *Engine) PeakScale() float64 { return e.peakScale }
func (e *Engine) Resolution() int    { return e.resolution }

// Len is the number of loaded keyframes.
func (e *Engine) Len() int { return len(e.keyframes) }

// SetPeakScale rescales query positions. Values above 1 pull the sampled
// shape toward the tube ends, values below 1 toward the centre.
func (e *Engine) SetPeakScale(k float64) {
	if math.IsNaN(k) || k < MinPeakScale {
		k = MinPeakScale
	}
	e.peakScale = k
}

// Advance moves playback forward by dt seconds. It does nothing while
// stopped, and stops the engine once the end is reached. It reports whether
// the engine is still playing.
func (e *Engine) Advance(dt float64) bool {
	if !e.playing {
		return false
	}
	if dt > 0 {
		e.time += dt
	}
	if e.time >= e.duration {
		e.time = e.duration
		e.playing = false
	}
	return e.playing
}

// ValueAt returns the brightness at x ∈ [0, 1] for the current time. The
// curve is mirrored around 0.5.
func (e *Engine) ValueAt(x float64) float64 {
	x = clamp(x, 0, 1)
	s := x
	if s > curve.HalfDomain {
		s = 1 - s
	}
	s = clamp(s*e.peakScale, 0, curve.HalfDomain)

	switch len(e.keyframes) {
	case 0:
		return 0
	case 1:
		return clamp(e.keyframes[0].lut.Sample(s), 0, 1)
	}

	a, b, alpha := e.span(e.time)
	if a == b {
		return clamp(e.keyframes[a].lut.Sample(s), 0, 1)
	}
	ya := e.keyframes[a].lut.Sample(s)
	yb := e.keyframes[b].lut.Sample(s)
	return clamp(ya+(yb-ya)*alpha, 0, 1)
}

// span returns the indices of the keyframes around t and the fraction of the
// way from the first to the second. Outside the timeline both indices name the
// boundary keyframe.
func (e *Engine) span(t float64) (int, int, float64) {
	last := len(e.keyframes) - 1
	if t <= e.keyframes[0].t {
		return 0, 0, 0
	}
	if t >= e.keyframes[last].t {
		return last, last, 0
	}
	// first keyframe strictly after t; 1 <= j <= last
	j := sort.Search(len(e.keyframes), func(i int) bool { return e.keyframes[i].t > t })
	i := j - 1
	a, b := e.keyframes[i], e.keyframes[j]
	alpha := (t - a.t) / math.Max(minSpan, b.t-a.t)
	return i, j, clamp(alpha, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
