package render

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/brickbook/pkg/geom"
	"github.com/matzehuels/brickbook/pkg/partgraph"
)

// Triangle is one filled face in model space.
type Triangle [3]r3.Vec

// Scene is the geometry handed to a [Measurer].
type Scene struct {
	Triangles []Triangle
	Bounds    r3.Box
}

// Empty reports whether the scene has nothing to draw.
func (s Scene) Empty() bool { return len(s.Triangles) == 0 }

// Digest returns a stable hash of the scene geometry. Two scenes with the
// same digest measure identically under the same view.
func (s Scene) Digest() string {
	h := sha256.New()
	var buf [8]byte
	for _, t := range s.Triangles {
		for _, p := range t {
			for _, v := range [3]float64{p.X, p.Y, p.Z} {
				binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
				h.Write(buf[:])
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// PartScene flattens an abstract part and all of its sub-parts.
func PartScene(p *partgraph.AbstractPart) Scene {
	s := Scene{Bounds: geom.EmptyBox()}
	s.add(p, geom.Identity())
	return s
}

// InstancesScene flattens placed instances, honoring displacement. This is
// the scene of a CSI.
func InstancesScene(instances []*partgraph.PartInstance) Scene {
	s := Scene{Bounds: geom.EmptyBox()}
	for _, pi := range instances {
		if pi.Part != nil {
			s.add(pi.Part, pi.DisplacedMatrix())
		}
	}
	return s
}

func (s *Scene) add(p *partgraph.AbstractPart, m geom.Matrix) {
	for _, prim := range p.Primitives {
		switch prim.Kind {
		case partgraph.PrimitiveTriangle:
			s.push(Triangle{m.Apply(prim.Points[0]), m.Apply(prim.Points[1]), m.Apply(prim.Points[2])})
		case partgraph.PrimitiveQuad:
			a, b, c, d := m.Apply(prim.Points[0]), m.Apply(prim.Points[1]), m.Apply(prim.Points[2]), m.Apply(prim.Points[3])
			s.push(Triangle{a, b, c})
			s.push(Triangle{a, c, d})
		}
	}
	for _, child := range p.Children {
		if child.Part != nil {
			s.add(child.Part, m.Mul(child.Matrix))
		}
	}
}

func (s *Scene) push(t Triangle) {
	s.Triangles = append(s.Triangles, t)
	for _, p := range t {
		s.Bounds = geom.ExpandPoint(s.Bounds, p)
	}
}
