// Package noise produces coloured noise from a seeded rng.Source, one sample
// at a time.
package noise

import (
	"fmt"
	"strings"

	"github.com/agusx1211/fluorescent/internal/rng"
)

type Color string

const (
	White Color = "white"
	Pink  Color = "pink"
	Brown Color = "brown"
)

// ParseColor accepts a colour name case-insensitively. The empty string is White.
func ParseColor(s string) (Color, error) {
	switch c := Color(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return White, nil
	case White, Pink, Brown:
		return c, nil
	default:
		return "", fmt.Errorf("unknown noise color %q", s)
	}
}

var pinkCoeffs = [7]float64{0.1294, 0.1875, 0.2414, 0.3026, 0.3830, 0.4962, 0.7195}

type Generator struct {
	color Color
	rng   *rng.Source
	pink  [7]float64
	brown float64
}

func NewGenerator(color Color, seed uint32) *Generator {
	return &Generator{
		color: color,
		rng:   rng.New(seed),
	}
}

// Reseed restarts the generator from seed and clears its filter state.
func (g *Generator) Reseed(seed uint32) {
	g.rng = rng.New(seed)
	g.pink = [7]float64{}
	g.brown = 0
}

// Next returns one sample, roughly in [-1, 1].
func (g *Generator) Next() float64 {
	white := g.rng.Float64()*2 - 1
	switch g.color {
	case Pink:
		sum := 0.0
		for i, c := range pinkCoeffs {
			g.pink[i] += c * (white - g.pink[i])
			sum += g.pink[i]
		}
		return sum / 2.5
	case Brown:
		g.brown = (g.brown + 0.02*white) / 1.02
		return g.brown * 3.5
	default:
		return white
	}
}
