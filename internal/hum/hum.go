// Package hum synthesises the mains hum of a fluorescent ballast. The hum is
// loudest while the tube is dark and struggling and recedes once it is lit.
// Each flash of the tube adds a short, slightly detuned click.
package hum

import (
	"math"
	"sync"

	"github.com/agusx1211/fluorescent/internal/analyzer"
	"github.com/agusx1211/fluorescent/internal/filter"
	"github.com/agusx1211/fluorescent/internal/noise"
	"github.com/agusx1211/fluorescent/internal/rng"
)

type Config struct {
	Frequency float64 `mapstructure:"frequency"`
	Harmonic  float64 `mapstructure:"harmonic"`
	BaseGain  float64 `mapstructure:"base_gain"`
	// Buzz is the level of broadband noise mixed under the tones.
	Buzz float64 `mapstructure:"buzz"`
	// BuzzColor is white, pink or brown.
	BuzzColor string `mapstructure:"buzz_color"`
	// BuzzCutoff low-passes the buzz noise, in Hz. Zero leaves it unfiltered.
	BuzzCutoff float64 `mapstructure:"buzz_cutoff"`
	// Smoothing is the per-sample step toward the target gain.
	Smoothing float64 `mapstructure:"smoothing"`

	ClickFrequency float64 `mapstructure:"click_frequency"`
	ClickGain      float64 `mapstructure:"click_gain"`
	// ClickLength is the click duration in seconds.
	ClickLength float64 `mapstructure:"click_length"`
}

func DefaultConfig() Config {
	return Config{
		Frequency:      100,
		Harmonic:       200,
		BaseGain:       0.025,
		Buzz:           0.08,
		BuzzColor:      string(noise.Pink),
		BuzzCutoff:     1200,
		Smoothing:      0.001,
		ClickFrequency: 2400,
		ClickGain:      0.12,
		ClickLength:    0.035,
	}
}

// Each click is played at a rate drawn from [0.9, 1.1) after a delay drawn
// from [0, 20ms).
const (
	clickRateMin  = 0.9
	clickRateMax  = 1.1
	clickMaxDelay = 0.02
)

type click struct {
	delay  int // samples before the click starts
	pos    int
	length int
	omega  float64
}

type Hum struct {
	mu sync.Mutex

	cfg        Config
	sampleRate float64
	noise      *noise.Generator
	buzz       *filter.Biquad
	rnd        *rng.Source

	phase1, phase2 float64
	gain           float64
	target         float64
	running        bool
	clicks         []click
}

func New(sampleRate int, cfg Config, seed uint32) *Hum {
	h := &Hum{
		cfg:        cfg,
		sampleRate: float64(max(sampleRate, 1)),
		rnd:        rng.New(clickSeed(seed)),
	}
	color, err := noise.ParseColor(cfg.BuzzColor)
	if err != nil {
		color = noise.White
	}
	h.noise = noise.NewGenerator(color, seed)
	if cfg.BuzzCutoff > 0 {
		h.buzz = filter.NewLowPass(cfg.BuzzCutoff, h.sampleRate)
	}
	return h
}

func clickSeed(seed uint32) uint32 {
	return seed ^ 0x9e3779b9
}

// Start raises the hum to its base level.
func (h *Hum) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.running = true
	h.target = h.cfg.BaseGain
}

// Stop fades the hum out and drops pending clicks.
func (h *Hum) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.running = false
	h.target = 0
	h.clicks = h.clicks[:0]
}

// Update retargets the gain from the running mean brightness: the brighter
// the tube, the quieter the hum. A reading that flashed queues a click.
func (h *Hum) Update(r analyzer.Reading) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.target = math.Max(0, math.Min(1, 1-r.EMA)) * h.cfg.BaseGain
	if r.Flash {
		h.queueClick()
	}
}

// queueClick must be called with mu held.
func (h *Hum) queueClick() {
	length := int(h.cfg.ClickLength * h.sampleRate)
	if length <= 0 || h.cfg.ClickGain <= 0 {
		return
	}
	rate := h.rnd.Between(clickRateMin, clickRateMax)
	h.clicks = append(h.clicks, click{
		delay:  int(h.rnd.Between(0, clickMaxDelay) * h.sampleRate),
		length: length,
		omega:  2 * math.Pi * h.cfg.ClickFrequency * rate / h.sampleRate,
	})
}

// Reseed replaces the buzz and click randomness.
func (h *Hum) Reseed(seed uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.noise.Reseed(seed)
	h.rnd = rng.New(clickSeed(seed))
	if h.buzz != nil {
		h.buzz.Reset()
	}
}

// Mix renders frames of interleaved stereo samples.
func (h *Hum) Mix(frames int) []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]float64, frames*2)
	w1 := 2 * math.Pi * h.cfg.Frequency / h.sampleRate
	w2 := 2 * math.Pi * h.cfg.Harmonic / h.sampleRate

	for i := range frames {
		h.gain += (h.target - h.gain) * h.cfg.Smoothing

		tone := 0.5 * (math.Sin(h.phase1) + math.Sin(h.phase2))
		n := h.noise.Next()
		if h.buzz != nil {
			n = h.buzz.Step(n)
		}
		buzz := h.cfg.Buzz * n
		v := (tone+buzz)*h.gain + h.nextClick()
		v = math.Max(-1, math.Min(1, v))
		out[i*2] = v
		out[i*2+1] = v

		h.phase1 = math.Mod(h.phase1+w1, 2*math.Pi)
		h.phase2 = math.Mod(h.phase2+w2, 2*math.Pi)
	}
	return out
}

// nextClick advances every queued click by one sample and returns their sum.
func (h *Hum) nextClick() float64 {
	sum := 0.0
	live := h.clicks[:0]
	for _, c := range h.clicks {
		if c.delay > 0 {
			c.delay--
			live = append(live, c)
			continue
		}
		decay := 1 - float64(c.pos)/float64(c.length)
		sum += h.cfg.ClickGain * decay * decay * math.Sin(c.omega*float64(c.pos))
		c.pos++
		if c.pos < c.length {
			live = append(live, c)
		}
	}
	h.clicks = live
	return sum
}
