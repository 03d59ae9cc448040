// Package analyzer summarises a brightness profile once per frame for the
// sound and state collaborators.
package analyzer

import "math"

// Sampler is anything that reports brightness at a position in [0, 1].
type Sampler interface {
	ValueAt(x float64) float64
}

type Config struct {
	// Samples is the number of evenly spaced positions read per update.
	Samples int `mapstructure:"samples"`
	// EMAAlpha weights the newest average in the running mean.
	EMAAlpha float64 `mapstructure:"ema_alpha"`
	// FlashThreshold is the peak brightness whose upward crossing counts as a flash.
	FlashThreshold float64 `mapstructure:"flash_threshold"`
}

func DefaultConfig() Config {
	return Config{
		Samples:        32,
		EMAAlpha:       0.2,
		FlashThreshold: 0.7,
	}
}

// Reading is the result of one Update.
type Reading struct {
	Average float64 `json:"average"`
	EMA     float64 `json:"ema"`
	Max     float64 `json:"max"`
	// Flash is set on the update where Max first rises above the threshold.
	Flash bool `json:"flash"`
}

type Analyzer struct {
	cfg   Config
	ema   float64
	above bool
}

func New(cfg Config) *Analyzer {
	if cfg.Samples < 2 {
		cfg.Samples = 2
	}
	cfg.EMAAlpha = math.Max(0, math.Min(1, cfg.EMAAlpha))
	return &Analyzer{cfg: cfg}
}

func (a *Analyzer) Update(s Sampler) Reading {
	n := a.cfg.Samples
	sum, peak := 0.0, 0.0
	for i := range n {
		y := s.ValueAt(float64(i) / float64(n-1))
		sum += y
		peak = math.Max(peak, y)
	}
	avg := sum / float64(n)
	a.ema = a.cfg.EMAAlpha*avg + (1-a.cfg.EMAAlpha)*a.ema

	above := peak > a.cfg.FlashThreshold
	flash := above && !a.above
	a.above = above

	return Reading{Average: avg, EMA: a.ema, Max: peak, Flash: flash}
}

// Reset clears the running mean and the flash edge detector.
func (a *Analyzer) Reset() {
	a.ema = 0
	a.above = false
}
