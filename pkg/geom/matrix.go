package geom

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Matrix is an LDraw placement: a translation (X, Y, Z) followed by a 3x3
// linear part in row-major order (A..I), matching the token order of a
// type-1 line.
//
//	| A B C X |
//	| D E F Y |
//	| G H I Z |
type Matrix [12]float64

// Identity returns the identity placement.
func Identity() Matrix {
	return Matrix{0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Translation returns a pure translation matrix.
func Translation(x, y, z float64) Matrix {
	m := Identity()
	m[0], m[1], m[2] = x, y, z
	return m
}

// Offset returns the translation component.
func (m Matrix) Offset() r3.Vec { return r3.Vec{X: m[0], Y: m[1], Z: m[2]} }

// Translate returns m moved by d.
func (m Matrix) Translate(d r3.Vec) Matrix {
	m[0] += d.X
	m[1] += d.Y
	m[2] += d.Z
	return m
}

// Apply transforms point p.
func (m Matrix) Apply(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: m[3]*p.X + m[4]*p.Y + m[5]*p.Z + m[0],
		Y: m[6]*p.X + m[7]*p.Y + m[8]*p.Z + m[1],
		Z: m[9]*p.X + m[10]*p.Y + m[11]*p.Z + m[2],
	}
}

// Mul returns the composition m·n: n is applied first, then m.
func (m Matrix) Mul(n Matrix) Matrix {
	var out Matrix
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[3+r*3+c] = m[3+r*3]*n[3+c] + m[3+r*3+1]*n[6+c] + m[3+r*3+2]*n[9+c]
		}
	}
	t := m.Apply(n.Offset())
	out[0], out[1], out[2] = t.X, t.Y, t.Z
	return out
}

// linear returns the 3x3 linear part as a gonum matrix.
func (m Matrix) linear() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		m[3], m[4], m[5],
		m[6], m[7], m[8],
		m[9], m[10], m[11],
	})
}

// Det returns the determinant of the linear part.
func (m Matrix) Det() float64 {
	return mat.Det(m.linear())
}

// Mirrors reports whether m flips handedness (negative determinant), which
// inverts the winding of every polygon it places.
func (m Matrix) Mirrors() bool {
	return m.Det() < 0
}

// Singular reports whether the linear part collapses a dimension.
func (m Matrix) Singular() bool {
	return math.Abs(m.Det()) < 1e-9
}

// Rotation returns a pure rotation by the given Euler angles in degrees,
// applied X first, then Y, then Z.
func Rotation(xDeg, yDeg, zDeg float64) Matrix {
	rx, ry, rz := xDeg*math.Pi/180, yDeg*math.Pi/180, zDeg*math.Pi/180
	sx, cx := math.Sincos(rx)
	sy, cy := math.Sincos(ry)
	sz, cz := math.Sincos(rz)

	x := Matrix{0, 0, 0, 1, 0, 0, 0, cx, -sx, 0, sx, cx}
	y := Matrix{0, 0, 0, cy, 0, sy, 0, 1, 0, -sy, 0, cy}
	z := Matrix{0, 0, 0, cz, -sz, 0, sz, cz, 0, 0, 0, 1}
	return z.Mul(y.Mul(x))
}

// Scale returns a uniform scale matrix.
func Scale(s float64) Matrix {
	return Matrix{0, 0, 0, s, 0, 0, 0, s, 0, 0, 0, s}
}
