// Package colormap maps tube brightness to the colour of a warming phosphor.
package colormap

import "math"

type RGB struct {
	R, G, B uint8
}

// Hex formats the colour as #rrggbb.
func (c RGB) Hex() string {
	const digits = "0123456789abcdef"
	b := []byte{'#', 0, 0, 0, 0, 0, 0}
	for i, v := range []uint8{c.R, c.G, c.B} {
		b[1+2*i] = digits[v>>4]
		b[2+2*i] = digits[v&0x0f]
	}
	return string(b)
}

// Temperature maps v ∈ [0, 1] from dim grey through orange and green-white to
// full white. Each channel is the sum of four smoothstep phases.
func Temperature(v float64) RGB {
	p1 := Smoothstep(0.0, 0.3, v)
	p2 := Smoothstep(0.3, 0.6, v)
	p3 := Smoothstep(0.6, 0.8, v)
	p4 := Smoothstep(0.8, 1.0, v)

	r := Lerp(30, 80, p1) + Lerp(0, 175, p2)
	g := Lerp(30, 20, p1) + Lerp(0, 100, p2) + Lerp(0, 135, p3) + Lerp(0, 255, p4)
	b := Lerp(30, 20, p1) + Lerp(0, 255, p4)

	return RGB{R: channel(r), G: channel(g), B: channel(b)}
}

func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Smoothstep is the cubic Hermite step between edge0 and edge1.
func Smoothstep(edge0, edge1, x float64) float64 {
	t := (x - edge0) / (edge1 - edge0)
	if math.IsNaN(t) {
		t = 0
	}
	t = math.Max(0, math.Min(1, t))
	return t * t * (3 - 2*t)
}

func channel(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(255, v))))
}
