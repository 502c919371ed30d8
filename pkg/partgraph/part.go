package partgraph

import (
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/brickbook/pkg/geom"
)

// PrimitiveKind is the LDraw line type of a geometric primitive.
type PrimitiveKind int

const (
	// PrimitiveLine is an edge line (LDraw type 2).
	PrimitiveLine PrimitiveKind = 2
	// PrimitiveTriangle is a filled triangle (LDraw type 3).
	PrimitiveTriangle PrimitiveKind = 3
	// PrimitiveQuad is a filled quadrilateral (LDraw type 4).
	PrimitiveQuad PrimitiveKind = 4
)

// Winding is the polygon orientation treated as front facing.
type Winding int

const (
	// WindingUnknown means the file carries no BFC certification.
	WindingUnknown Winding = iota
	// WindingCCW is the LDraw default for certified files.
	WindingCCW
	// WindingCW is clockwise front faces.
	WindingCW
)

// Flip returns the opposite winding. Unknown stays unknown.
func (w Winding) Flip() Winding {
	switch w {
	case WindingCCW:
		return WindingCW
	case WindingCW:
		return WindingCCW
	}
	return w
}

// Primitive is one line, triangle or quad of a part definition.
type Primitive struct {
	Kind    PrimitiveKind
	Color   int
	Points  []r3.Vec
	Winding Winding
}

// Measurement is the cached render size of a part or CSI.
// The zero value has Valid == false and marks "not measured yet".
type Measurement struct {
	Valid        bool
	Width        int
	Height       int
	LeftInset    int
	BottomInset  int
	CenterOffset geom.Point
}

// View is a display scale and rotation.
type View struct {
	Scale    float64
	Rotation [3]float64 // degrees around X, Y, Z
}

// DefaultView is the classic instruction-book camera.
var DefaultView = View{Scale: 1.0, Rotation: [3]float64{20, 45, 0}}

// AbstractPart is a named, reusable geometry definition.
//
// The zero value is not usable; parts are created through [Registry.Define].
type AbstractPart struct {
	Name        string
	Description string
	IsPrimitive bool
	IsSubmodel  bool
	Primitives  []Primitive
	Children    []*PartInstance

	Measurement Measurement
	View        View

	bounds      r3.Box
	boundsValid bool
}

// ResetMeasurement invalidates the cached render measurement.
func (p *AbstractPart) ResetMeasurement() {
	p.Measurement = Measurement{}
}

// ResetGeometry drops cached bounds and the measurement. Call it after
// editing Primitives or Children. Parents that include p must be reset by the
// caller (see [Registry.ResetGeometry]).
func (p *AbstractPart) ResetGeometry() {
	p.boundsValid = false
	p.ResetMeasurement()
}

// Bounds returns the model-space bounding box of p, including all children.
// The result is cached until [AbstractPart.ResetGeometry].
func (p *AbstractPart) Bounds() r3.Box {
	if p.boundsValid {
		return p.bounds
	}
	b := geom.EmptyBox()
	for _, prim := range p.Primitives {
		if prim.Kind == PrimitiveLine {
			continue
		}
		for _, pt := range prim.Points {
			b = geom.ExpandPoint(b, pt)
		}
	}
	for _, child := range p.Children {
		b = geom.UnionBox(b, child.Bounds())
	}
	p.bounds = b
	p.boundsValid = true
	return b
}

// uses reports whether p references target, directly or through children.
func (p *AbstractPart) uses(target *AbstractPart, seen map[*AbstractPart]bool) bool {
	if p == target {
		return true
	}
	if seen[p] {
		return false
	}
	seen[p] = true
	return slices.ContainsFunc(p.Children, func(c *PartInstance) bool {
		return c.Part != nil && c.Part.uses(target, seen)
	})
}

// Uses reports whether p contains target anywhere in its sub-part tree.
func (p *AbstractPart) Uses(target *AbstractPart) bool {
	return p.uses(target, map[*AbstractPart]bool{})
}
