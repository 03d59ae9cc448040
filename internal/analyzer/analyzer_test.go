package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type constant float64

func (c constant) ValueAt(float64) float64 { return float64(c) }

type ramp struct{}

func (ramp) ValueAt(x float64) float64 { return x }

func TestUpdateAverageAndMax(t *testing.T) {
	a := New(DefaultConfig())
	r := a.Update(ramp{})
	assert.InDelta(t, 0.5, r.Average, 1e-12)
	assert.Equal(t, 1.0, r.Max)
	assert.InDelta(t, 0.1, r.EMA, 1e-12)
}

func TestEMAConverges(t *testing.T) {
	a := New(DefaultConfig())
	var r Reading
	for range 100 {
		r = a.Update(constant(0.8))
	}
	assert.InDelta(t, 0.8, r.EMA, 1e-6)
}

func TestFlashFiresOnRisingEdgeOnly(t *testing.T) {
	a := New(DefaultConfig())
	seq := []struct {
		level float64
		flash bool
	}{
		{0.1, false},
		{0.9, true},
		{0.95, false},
		{0.2, false},
		{0.75, true},
		{0.7, false},
		{0.71, true},
	}
	for i, s := range seq {
		assert.Equal(t, s.flash, a.Update(constant(s.level)).Flash, "step %d", i)
	}
}

func TestReset(t *testing.T) {
	a := New(DefaultConfig())
	a.Update(constant(1))
	a.Reset()
	r := a.Update(constant(1))
	assert.True(t, r.Flash)
	assert.InDelta(t, 0.2, r.EMA, 1e-12)
}

func TestNewSanitisesConfig(t *testing.T) {
	a := New(Config{Samples: 0, EMAAlpha: 4, FlashThreshold: 0.5})
	r := a.Update(ramp{})
	assert.InDelta(t, 0.5, r.Average, 1e-12)
	assert.InDelta(t, 0.5, r.EMA, 1e-12)
}
