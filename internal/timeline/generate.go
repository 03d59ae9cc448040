package timeline

import (
	"cmp"
	"math"
	"slices"

	"github.com/agusx1211/fluorescent/internal/curve"
	"github.com/agusx1211/fluorescent/internal/rng"
)

// MaxPulses caps the drawn pulse count regardless of Params.
const MaxPulses = 64

// Generate builds a timeline for the given control points. It is a pure
// function of its arguments. The returned Duration is the time of the final
// full-brightness keyframe and may exceed duration.
func Generate(duration float64, points []ControlPoint, seed uint32, p Params) *Timeline {
	if !(duration > 0) {
		duration = 0
	}

	cps := make([]ControlPoint, len(points))
	for i, cp := range points {
		cps[i] = ControlPoint{ID: cp.ID, X: clamp(cp.X, 0, curve.HalfDomain)}
	}
	slices.SortStableFunc(cps, func(a, b ControlPoint) int { return cmp.Compare(a.ID, b.ID) })

	g := &generator{
		p:        p,
		rnd:      rng.New(seed),
		duration: duration,
		points:   cps,
	}
	end := g.run()

	final := end + math.Max(0, p.StableHold)
	g.emit(final, g.constant(1))

	return &Timeline{
		Version:       Version,
		Seed:          seed,
		Duration:      final,
		ControlPoints: cps,
		Keyframes:     g.keyframes,
	}
}

type generator struct {
	p         Params
	rnd       *rng.Source
	duration  float64
	points    []ControlPoint
	keyframes []Keyframe
}

type pulse struct {
	mid, peak, end float64
}

// run emits the initial dark keyframe and every pulse, returning the end time
// of the last pulse (or the start cursor when no pulse fits).
func (g *generator) run() float64 {
	p := g.p
	g.emit(0, g.constant(0))

	t := clamp(g.between(p.StartTime), 0.05, math.Max(0.2, g.duration-0.2))
	target := g.pulseTarget()
	buffer := ms(math.Max(0, p.SettleBufferMs))

	pulses := 0
	for cycle := 0; pulses < target && t+buffer < g.duration; cycle++ {
		decay := math.Max(p.MinDecay, 1-p.DecayRate*float64(cycle))
		cycleScale := g.between(p.CycleScale)
		n := g.burstSize()

		for i := range n {
			countLast := pulses+1 >= target
			amp := 1.0
			if !countLast {
				amp = g.between(p.PeakRange) * decay
			}

			pl := g.drawPulse(t)
			gap := g.pulseGap()
			if i == n-1 {
				gap += g.burstGap()
			}
			next := pl.end + gap

			// A pulse is last when it is the Nth one, or when neither the
			// shortest possible next pulse nor the one actually drawn fits
			// before the settle buffer.
			last := countLast ||
				pl.end+g.minNextPulse()+buffer >= g.duration ||
				next+buffer >= g.duration

			g.emitPulse(pl, amp, cycleScale, last)
			pulses++
			if last {
				return pl.end
			}
			t = next
		}
	}
	return t
}

func (g *generator) emitPulse(pl pulse, amp, cycleScale float64, last bool) {
	yMid := clamp01(amp * g.between(g.p.MidFraction))
	g.emit(pl.mid, g.shaped(yMid, cycleScale, phaseMid))

	if last {
		// The final strike latches on and never dims again.
		g.emit(pl.peak, g.constant(1))
		g.emit(pl.end, g.constant(1))
		return
	}
	g.emit(pl.peak, g.shaped(amp, cycleScale, phasePeak))
	g.emit(pl.end, g.off(cycleScale))
}

func (g *generator) drawPulse(start float64) pulse {
	rise := ms(math.Max(0, g.between(g.p.RiseMs)))
	hold := ms(math.Max(0, g.between(g.p.HoldMs)))
	fall := ms(math.Max(0, g.between(g.p.FallMs)))
	mid := start + rise
	peak := mid + hold
	return pulse{mid: mid, peak: peak, end: peak + fall}
}

// minNextPulse is the shortest time another pulse could need after the
// current one ends.
func (g *generator) minNextPulse() float64 {
	p := g.p
	core := p.RiseMs.Min + p.HoldMs.Min + p.FallMs.Min
	return ms(math.Max(0, core+p.PulseIntervalMs.Min+math.Abs(p.JitterMs)))
}

func (g *generator) pulseGap() float64 {
	return g.interval(g.p.PulseIntervalMs)
}

func (g *generator) burstGap() float64 {
	return g.interval(g.p.BurstIntervalMs)
}

func (g *generator) interval(d Gaussian) float64 {
	v := g.rnd.GaussianRange(d.Mean, d.StdDev, d.Min, d.Max)
	j := math.Abs(g.p.JitterMs)
	v += g.rnd.Between(-j, j)
	return ms(math.Max(0, v))
}

func (g *generator) pulseTarget() int {
	r := g.p.PulseCount
	lo := min(MaxPulses, max(1, r.Min))
	hi := min(MaxPulses, max(lo, r.Max))
	n := int(math.Floor(g.rnd.Between(float64(lo), float64(hi+1))))
	return min(hi, max(lo, n))
}

func (g *generator) burstSize() int {
	r := g.p.PulsesPerBurst
	lo := max(1, r.Min)
	hi := max(lo, r.Max)
	n := int(math.Floor(g.rnd.Between(float64(lo), float64(hi+1))))
	return min(hi, max(lo, n))
}

func (g *generator) between(r Range) float64 {
	return g.rnd.Between(r.Min, r.Max)
}

// shaped applies the gain curve, id profile and energy shaping to amp.
func (g *generator) shaped(amp, cycleScale float64, ph phase) []curve.Point {
	p := g.p
	out := make([]curve.Point, len(g.points))
	for i, cp := range g.points {
		v := amp * cycleScale * p.weight(cp.ID, ph) * p.gain(cp.X) * p.energyShape(cp.X, amp)
		y := p.liftFloor(clamp01(v), amp)
		out[i] = curve.Point{ID: cp.ID, X: cp.X, Y: y}
	}
	return out
}

func (g *generator) off(cycleScale float64) []curve.Point {
	p := g.p
	base := g.between(p.ZeroRange)
	out := make([]curve.Point, len(g.points))
	for i, cp := range g.points {
		v := base * cycleScale * p.weight(cp.ID, phaseZero) * p.energyShape(cp.X, base)
		out[i] = curve.Point{ID: cp.ID, X: cp.X, Y: clamp01(v)}
	}
	return out
}

func (g *generator) constant(y float64) []curve.Point {
	out := make([]curve.Point, len(g.points))
	for i, cp := range g.points {
		out[i] = curve.Point{ID: cp.ID, X: cp.X, Y: y}
	}
	return out
}

func (g *generator) emit(t float64, pts []curve.Point) {
	g.keyframes = append(g.keyframes, Keyframe{T: t, Points: pts})
}
