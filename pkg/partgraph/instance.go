package partgraph

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/brickbook/pkg/geom"
)

// Direction is the axis a displaced part is pulled along for an exploded
// view.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionUp
	DirectionDown
	DirectionLeft
	DirectionRight
	DirectionForward
	DirectionBackward
)

var directionNames = [...]string{"none", "up", "down", "left", "right", "forward", "backward"}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return "unknown"
}

// Vector returns the unit model-space vector for d. Up is -Y in LDraw.
func (d Direction) Vector() r3.Vec {
	switch d {
	case DirectionUp:
		return r3.Vec{Y: -1}
	case DirectionDown:
		return r3.Vec{Y: 1}
	case DirectionLeft:
		return r3.Vec{X: -1}
	case DirectionRight:
		return r3.Vec{X: 1}
	case DirectionForward:
		return r3.Vec{Z: -1}
	case DirectionBackward:
		return r3.Vec{Z: 1}
	}
	return r3.Vec{}
}

// DefaultDisplacement is the LDU distance a part is pulled out of place.
const DefaultDisplacement = 60.0

// Displacement moves an instance out of its final position so that a step
// shows it being inserted.
type Displacement struct {
	Direction Direction
	Distance  float64
}

// Offset returns the model-space translation of the displacement.
func (d Displacement) Offset() r3.Vec {
	return r3.Scale(d.Distance, d.Direction.Vector())
}

// Arrow is the helper drawn between a displaced part and its final position.
type Arrow struct {
	Direction Direction
	Length    float64
}

// PartInstance is one placed, colored use of an AbstractPart.
type PartInstance struct {
	ID       int
	Part     *AbstractPart
	Color    int
	Matrix   geom.Matrix
	Inverted bool // set by BFC INVERTNEXT on the referencing line

	Displacement *Displacement
	Arrow        *Arrow

	winding Winding
}

// Name returns the identity of the referenced part.
func (pi *PartInstance) Name() string {
	if pi.Part == nil {
		return ""
	}
	return pi.Part.Name
}

// Winding returns the effective front-face winding computed by the last
// [PartInstance.Reparent].
func (pi *PartInstance) Winding() Winding { return pi.winding }

// Reparent recomputes the effective winding for a new parent whose own
// effective winding is inherited.
func (pi *PartInstance) Reparent(inherited Winding) {
	w := inherited
	if w == WindingUnknown {
		w = WindingCCW
	}
	if pi.Matrix.Mirrors() {
		w = w.Flip()
	}
	if pi.Inverted {
		w = w.Flip()
	}
	pi.winding = w
}

// Bounds returns the model-space bounds of the instance in its final
// position.
func (pi *PartInstance) Bounds() r3.Box {
	if pi.Part == nil {
		return geom.EmptyBox()
	}
	return geom.TransformBox(pi.Matrix, pi.Part.Bounds())
}

// DisplacedMatrix returns the placement including any displacement.
func (pi *PartInstance) DisplacedMatrix() geom.Matrix {
	if pi.Displacement == nil {
		return pi.Matrix
	}
	return pi.Matrix.Translate(pi.Displacement.Offset())
}

// Displace pulls the instance out along dir and attaches an arrow.
// DirectionNone removes any displacement.
func (pi *PartInstance) Displace(dir Direction, distance float64) {
	if dir == DirectionNone {
		pi.Displacement = nil
		pi.Arrow = nil
		return
	}
	if distance <= 0 {
		distance = DefaultDisplacement
	}
	pi.Displacement = &Displacement{Direction: dir, Distance: distance}
	pi.Arrow = &Arrow{Direction: dir, Length: distance}
}
