package world

import "math"

// Heading is a 2D angle in degrees, always in [0, 360). 0 is north
// and the angle increases clockwise (NOT the east-origin,
// counterclockwise convention).
type Heading float64

const headingMax = 360.0

// NewHeading normalizes f into [0, 360).
func NewHeading(f float64) Heading {
	m := math.Mod(f, headingMax)
	if m < 0 {
		m += headingMax
	}
	return Heading(m)
}

// Dx is the sine of the heading; Dy is the cosine. Together they give the
// unit direction vector for this heading under the north-origin,
// clockwise convention.
func (h Heading) Dx() float64 { return math.Sin(h.radians()) }
func (h Heading) Dy() float64 { return math.Cos(h.radians()) }

func (h Heading) DxDy() (float64, float64) {
	s, c := math.Sincos(h.radians())
	return s, c
}

func (h Heading) radians() float64 { return float64(h) * math.Pi / 180.0 }

// Add rotates the heading by delta degrees, wrapping into [0, 360).
func (h Heading) Add(delta float64) Heading { return NewHeading(float64(h) + delta) }

// RandomHeading draws a uniformly distributed heading using the given
// RNG's next_int contract.
func RandomHeading(nextInt func(int64) int64) Heading {
	return Heading(float64(nextInt(360)))
}
