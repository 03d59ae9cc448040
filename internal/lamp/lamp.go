// Package lamp ties the timeline generator, playback engine and brightness
// analyzer into one lockable tube that outer layers can switch and query from
// several goroutines.
package lamp

import (
	"math"
	"slices"
	"sync"

	"github.com/agusx1211/fluorescent/internal/analyzer"
	"github.com/agusx1211/fluorescent/internal/colormap"
	"github.com/agusx1211/fluorescent/internal/curve"
	"github.com/agusx1211/fluorescent/internal/player"
	"github.com/agusx1211/fluorescent/internal/timeline"
)

const (
	// MinPeak and MaxPeak bound the edge-peak control. The engine's peak
	// scale is its reciprocal, so lower values push the glow toward the ends.
	MinPeak = 0.1
	MaxPeak = 1.0
)

type Options struct {
	Resolution    int
	Duration      float64
	ControlPoints []timeline.ControlPoint
	Params        timeline.Params
	Analyzer      analyzer.Config
}

func DefaultOptions() Options {
	return Options{
		Resolution:    curve.DefaultResolution,
		Duration:      player.DefaultDuration,
		ControlPoints: timeline.DefaultControlPoints(),
		Params:        timeline.DefaultParams(),
		Analyzer:      analyzer.DefaultConfig(),
	}
}

// State is a point-in-time view of the lamp.
type State struct {
	Power    bool             `json:"power"`
	Playing  bool             `json:"playing"`
	Time     float64          `json:"time"`
	Duration float64          `json:"duration"`
	Seed     uint32           `json:"seed"`
	Peak     float64          `json:"peak"`
	Reading  analyzer.Reading `json:"reading"`
	Color    colormap.RGB     `json:"-"`
}

type Lamp struct {
	mu sync.RWMutex

	engine   *player.Engine
	analyzer *analyzer.Analyzer
	opts     Options

	power   bool
	seed    uint32
	peak    float64
	reading analyzer.Reading
}

func New(opts Options) *Lamp {
	l := &Lamp{
		engine:   player.NewEngine(opts.Resolution),
		analyzer: analyzer.New(opts.Analyzer),
		opts:     opts,
		peak:     MaxPeak,
	}
	l.opts.ControlPoints = slices.Clone(opts.ControlPoints)

	// Dark tube until the first strike.
	dark := make([]curve.Point, len(opts.ControlPoints))
	for i, cp := range opts.ControlPoints {
		dark[i] = curve.Point{ID: cp.ID, X: cp.X}
	}
	l.engine.SetKeyframesFromSpec([]player.KeyframeSpec{{T: 0, Points: dark}}, opts.Duration)
	return l
}

// PowerOn strikes the tube: a fresh timeline is generated from seed, loaded
// and played from the start. It returns the generated timeline.
func (l *Lamp) PowerOn(seed uint32) *timeline.Timeline {
	tl := timeline.Generate(l.opts.Duration, l.opts.ControlPoints, seed, l.opts.Params)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.engine.SetKeyframesFromSpec(tl.Spec(), tl.Duration)
	l.engine.Play()
	l.analyzer.Reset()
	l.power = true
	l.seed = seed
	l.sample()
	return tl
}

// PowerOff stops playback and rewinds to the dark first keyframe.
func (l *Lamp) PowerOff() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.engine.Pause()
	l.engine.Reset()
	l.power = false
	l.sample()
}

func (l *Lamp) Power() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.power
}

// SetPeak sets the edge-peak control, clamped to [MinPeak, MaxPeak].
func (l *Lamp) SetPeak(k float64) {
	if math.IsNaN(k) {
		k = MaxPeak
	}
	k = math.Max(MinPeak, math.Min(MaxPeak, k))

	l.mu.Lock()
	defer l.mu.Unlock()
	l.peak = k
	l.engine.SetPeakScale(1 / k)
}

func (l *Lamp) Peak() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.peak
}

// Tick advances playback by dt seconds and refreshes the analyzer reading.
func (l *Lamp) Tick(dt float64) analyzer.Reading {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.engine.Advance(dt)
	return l.sample()
}

// ValueAt is the engine's brightness query, safe for concurrent use.
func (l *Lamp) ValueAt(x float64) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.engine.ValueAt(x)
}

// Strip samples n evenly spaced positions across the whole tube.
func (l *Lamp) Strip(n int) []float64 {
	n = max(n, 2)
	out := make([]float64, n)

	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := range out {
		out[i] = l.engine.ValueAt(float64(i) / float64(n-1))
	}
	return out
}

func (l *Lamp) Snapshot() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return State{
		Power:    l.power,
		Playing:  l.engine.IsPlaying(),
		Time:     l.engine.Time(),
		Duration: l.engine.Duration(),
		Seed:     l.seed,
		Peak:     l.peak,
		Reading:  l.reading,
		Color:    colormap.Temperature(l.reading.Average),
	}
}

// sample must be called with mu held for writing.
func (l *Lamp) sample() analyzer.Reading {
	l.reading = l.analyzer.Update(l.engine)
	return l.reading
}
