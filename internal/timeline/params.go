package timeline

// Range is a closed interval used for uniform draws.
type Range struct {
	Min float64 `mapstructure:"min" json:"min"`
	Max float64 `mapstructure:"max" json:"max"`
}

// IntRange is an inclusive integer interval.
type IntRange struct {
	Min int `mapstructure:"min" json:"min"`
	Max int `mapstructure:"max" json:"max"`
}

// Gaussian describes a normal draw clipped to [Min, Max].
type Gaussian struct {
	Mean   float64 `mapstructure:"mean" json:"mean"`
	StdDev float64 `mapstructure:"std_dev" json:"std_dev"`
	Min    float64 `mapstructure:"min" json:"min"`
	Max    float64 `mapstructure:"max" json:"max"`
}

// PhaseWeights scales a control point's response in each pulse phase.
type PhaseWeights struct {
	Peak float64 `mapstructure:"peak" json:"peak"`
	Mid  float64 `mapstructure:"mid" json:"mid"`
	Zero float64 `mapstructure:"zero" json:"zero"`
}

// FloorLift keeps a shaped value at or above Floor once the pulse amplitude
// exceeds Above.
type FloorLift struct {
	Above float64 `mapstructure:"above" json:"above"`
	Floor float64 `mapstructure:"floor" json:"floor"`
}

// Params tunes the generator. Durations suffixed Ms are in milliseconds,
// everything else time-like is in seconds.
type Params struct {
	// Gain curve: BaseGain + Spread*(1-x)^GainPow.
	BaseGain float64 `mapstructure:"base_gain" json:"base_gain"`
	Spread   float64 `mapstructure:"spread" json:"spread"`
	GainPow  float64 `mapstructure:"gain_pow" json:"gain_pow"`

	MidFraction Range `mapstructure:"mid_fraction" json:"mid_fraction"`
	PeakRange   Range `mapstructure:"peak_range" json:"peak_range"`
	ZeroRange   Range `mapstructure:"zero_range" json:"zero_range"`

	DecayRate  float64 `mapstructure:"decay_rate" json:"decay_rate"`
	MinDecay   float64 `mapstructure:"min_decay" json:"min_decay"`
	CycleScale Range   `mapstructure:"cycle_scale" json:"cycle_scale"`

	StartTime      Range    `mapstructure:"start_time" json:"start_time"`
	PulseCount     IntRange `mapstructure:"pulse_count" json:"pulse_count"`
	PulsesPerBurst IntRange `mapstructure:"pulses_per_burst" json:"pulses_per_burst"`

	PulseIntervalMs Gaussian `mapstructure:"pulse_interval_ms" json:"pulse_interval_ms"`
	BurstIntervalMs Gaussian `mapstructure:"burst_interval_ms" json:"burst_interval_ms"`
	JitterMs        float64  `mapstructure:"jitter_ms" json:"jitter_ms"`

	RiseMs Range `mapstructure:"rise_ms" json:"rise_ms"`
	HoldMs Range `mapstructure:"hold_ms" json:"hold_ms"`
	FallMs Range `mapstructure:"fall_ms" json:"fall_ms"`

	StableHold     float64 `mapstructure:"stable_hold" json:"stable_hold"`
	SettleBufferMs float64 `mapstructure:"settle_buffer_ms" json:"settle_buffer_ms"`

	// Pulses weaker than EnergyTaperBelow fade toward the centre of the tube.
	EnergyTaperBelow float64     `mapstructure:"energy_taper_below" json:"energy_taper_below"`
	EnergyTaperDepth float64     `mapstructure:"energy_taper_depth" json:"energy_taper_depth"`
	FloorLifts       []FloorLift `mapstructure:"floor_lifts" json:"floor_lifts"`

	UseIDProfiles bool                 `mapstructure:"use_id_profiles" json:"use_id_profiles"`
	IDWeights     map[int]PhaseWeights `mapstructure:"id_weights" json:"id_weights"`
}

func DefaultParams() Params {
	return Params{
		BaseGain: 0.85,
		Spread:   0.20,
		GainPow:  1.25,

		MidFraction: Range{0.35, 0.60},
		PeakRange:   Range{0.95, 1.0},
		ZeroRange:   Range{0.00, 0.06},

		DecayRate:  0.018,
		MinDecay:   0.6,
		CycleScale: Range{0.90, 1.10},

		StartTime:      Range{0.96, 1.06},
		PulseCount:     IntRange{3, 8},
		PulsesPerBurst: IntRange{1, 3},

		PulseIntervalMs: Gaussian{Mean: 80, StdDev: 35, Min: 40, Max: 120},
		BurstIntervalMs: Gaussian{Mean: 120, StdDev: 50, Min: 80, Max: 180},
		JitterMs:        10,

		RiseMs: Range{8, 12},
		HoldMs: Range{2, 4},
		FallMs: Range{35, 45},

		StableHold:     0.5,
		SettleBufferMs: 100,

		EnergyTaperBelow: 0.28,
		EnergyTaperDepth: 0.75,
		FloorLifts: []FloorLift{
			{Above: 0.82, Floor: 0.62},
			{Above: 0.70, Floor: 0.50},
		},

		UseIDProfiles: true,
		IDWeights: map[int]PhaseWeights{
			101: {Peak: 0.90 / 0.95, Mid: 0.24 / 0.36, Zero: 0.03 / 0.06},
			102: {Peak: 1.0, Mid: 1.0, Zero: 1.0},
			103: {Peak: 0.88 / 0.95, Mid: 0.12 / 0.36, Zero: 0.02 / 0.06},
			104: {Peak: 0.82 / 0.95, Mid: 0.05 / 0.36, Zero: 0.01 / 0.06},
		},
	}
}

// DefaultControlPoints is the four-point tube the weight profiles were tuned for:
// one near each electrode plus the centre.
func DefaultControlPoints() []ControlPoint {
	return []ControlPoint{
		{ID: 101, X: 0.02},
		{ID: 102, X: 0.10},
		{ID: 103, X: 0.20},
		{ID: 104, X: 0.50},
	}
}

type phase int

const (
	phaseMid phase = iota
	phasePeak
	phaseZero
)

func (p Params) weight(id int, ph phase) float64 {
	if !p.UseIDProfiles {
		return 1
	}
	w, ok := p.IDWeights[id]
	if !ok {
		return 1
	}
	switch ph {
	case phasePeak:
		return w.Peak
	case phaseMid:
		return w.Mid
	case phaseZero:
		return w.Zero
	}
	return 1
}

// gain is the per-position response; x is in [0, 0.5].
func (p Params) gain(x float64) float64 {
	return clamp01(p.BaseGain + p.Spread*pow(1-x, p.GainPow))
}

func (p Params) energyShape(x, amp float64) float64 {
	if amp < p.EnergyTaperBelow {
		k := clamp01(x / 0.5)
		return 1 - p.EnergyTaperDepth*k
	}
	return 1
}

// liftFloor applies the first matching lift; FloorLifts is ordered by
// descending Above.
func (p Params) liftFloor(y, amp float64) float64 {
	for _, l := range p.FloorLifts {
		if amp > l.Above {
			return clamp01(max(y, l.Floor))
		}
	}
	return y
}
