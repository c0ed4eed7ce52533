// Package world implements the compiler's runtime data model:
// globals, patches, turtles, topology, tick, and shapes, plus
// the host-side behaviors compiled code reaches through the host-call
// ABI (diffuse, color math, heading/topology math, shuffled ask
// iteration).
package world

import "math"

// PointInt is an integer patch coordinate.
type PointInt struct {
	X, Y int
}

// Point is a floating-point world coordinate.
type Point struct {
	X, Y float64
}

var Origin = Point{0, 0}

// Topology is the world's grid shape and wrap behavior.
type Topology struct {
	MinX, MinY     int
	Width, Height  int
	WrapX, WrapY   bool
}

// MaxX/MaxY are the pxcor/pycor of the rightmost/topmost patch.
func (t Topology) MaxX() int { return t.MinX + t.Width - 1 }
func (t Topology) MaxY() int { return t.MinY + t.Height - 1 }

// PatchCount is the total number of patches in the grid.
func (t Topology) PatchCount() int { return t.Width * t.Height }

// PatchIndexAt converts a patch coordinate into its dense row-buffer
// index, wrapping or clamping per the topology's wrap flags. Returns
// false if the point is out of bounds in a non-wrapping dimension.
func (t Topology) PatchIndexAt(p PointInt) (int, bool) {
	x, okX := t.wrapCoord(p.X, t.MinX, t.Width, t.WrapX)
	y, okY := t.wrapCoord(p.Y, t.MinY, t.Height, t.WrapY)
	if !okX || !okY {
		return 0, false
	}
	col := x - t.MinX
	row := y - t.MinY
	return row*t.Width + col, true
}

func (t Topology) wrapCoord(v, min, size int, wrap bool) (int, bool) {
	max := min + size - 1
	if v >= min && v <= max {
		return v, true
	}
	if !wrap {
		return 0, false
	}
	off := (v - min) % size
	if off < 0 {
		off += size
	}
	return min + off, true
}

// EuclideanDistanceNoWrap is the straight-line distance between two
// points, ignoring any wrap topology.
func EuclideanDistanceNoWrap(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// OffsetDistanceByHeading computes the point distance units away from
// point in the direction heading, wrapping into the topology's grid if
// configured to. Returns ok=false if the result falls outside a
// non-wrapping dimension.
func (t Topology) OffsetDistanceByHeading(p Point, h Heading, distance float64) (Point, bool) {
	dx, dy := h.DxDy()
	candidate := Point{X: p.X + dx*distance, Y: p.Y + dy*distance}
	return t.wrapPoint(candidate)
}

func (t Topology) wrapPoint(p Point) (Point, bool) {
	x, okX := t.wrapFloatCoord(p.X, float64(t.MinX), float64(t.Width), t.WrapX)
	y, okY := t.wrapFloatCoord(p.Y, float64(t.MinY), float64(t.Height), t.WrapY)
	if !okX || !okY {
		return Point{}, false
	}
	return Point{X: x, Y: y}, true
}

func (t Topology) wrapFloatCoord(v, min, size float64, wrap bool) (float64, bool) {
	lo := min - 0.5
	hi := min + size - 0.5
	if v >= lo && v < hi {
		return v, true
	}
	if !wrap {
		return 0, false
	}
	off := math.Mod(v-lo, size)
	if off < 0 {
		off += size
	}
	return lo + off, true
}
