package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// EmptyBox returns a box with Min at +Inf and Max at -Inf so that the first
// expansion sets both corners.
func EmptyBox() r3.Box {
	inf := math.Inf(1)
	return r3.Box{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

// IsEmpty reports whether b has not been expanded by any point.
func IsEmpty(b r3.Box) bool {
	return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y || b.Max.Z < b.Min.Z
}

// ExpandPoint grows b to include p.
func ExpandPoint(b r3.Box, p r3.Vec) r3.Box {
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Min.Z = math.Min(b.Min.Z, p.Z)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
	b.Max.Z = math.Max(b.Max.Z, p.Z)
	return b
}

// UnionBox returns the smallest box containing both a and c.
// Empty boxes are ignored.
func UnionBox(a, c r3.Box) r3.Box {
	if IsEmpty(c) {
		return a
	}
	if IsEmpty(a) {
		return c
	}
	return ExpandPoint(ExpandPoint(a, c.Min), c.Max)
}

// Corners returns the eight corners of b.
func Corners(b r3.Box) [8]r3.Vec {
	return [8]r3.Vec{
		{X: b.Min.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Max.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: b.Max.Z},
	}
}

// TransformBox returns the axis-aligned bounds of b after applying m.
func TransformBox(m Matrix, b r3.Box) r3.Box {
	if IsEmpty(b) {
		return b
	}
	out := EmptyBox()
	for _, c := range Corners(b) {
		out = ExpandPoint(out, m.Apply(c))
	}
	return out
}

// Top returns the height of the highest point of b in "up" units.
func Top(b r3.Box) float64 { return -b.Min.Y }

// Bottom returns the height of the lowest point of b in "up" units.
func Bottom(b r3.Box) float64 { return -b.Max.Y }

// Height returns the vertical extent of b.
func Height(b r3.Box) float64 { return b.Max.Y - b.Min.Y }

// Center returns the midpoint of b.
func Center(b r3.Box) r3.Vec {
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

// Near reports whether a and b differ by at most tol.
func Near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
