package partgraph

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/brickbook/pkg/geom"
)

func brick(reg *Registry, name string, w, h, d float64) *AbstractPart {
	p := reg.Define(name)
	p.Primitives = []Primitive{{
		Kind:  PrimitiveQuad,
		Color: 16,
		Points: []r3.Vec{
			{X: -w / 2, Y: -h, Z: -d / 2},
			{X: w / 2, Y: -h, Z: -d / 2},
			{X: w / 2, Y: 0, Z: d / 2},
			{X: -w / 2, Y: 0, Z: d / 2},
		},
	}}
	return p
}

func TestRegistryDefineIsCaseInsensitive(t *testing.T) {
	reg := NewRegistry()
	a := reg.Define(`S\3001s01.DAT`)
	b := reg.Define("s/3001s01.dat")
	if a != b {
		t.Fatal("Define should return the same part for equivalent names")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestInstanceIDsAreMonotonic(t *testing.T) {
	reg := NewRegistry()
	p := brick(reg, "3001.dat", 80, 24, 40)
	reg.ReserveID(41)
	a := reg.NewInstance(p, 4, geom.Identity())
	b := reg.NewInstance(p, 4, geom.Identity())
	if a.ID != 42 || b.ID != 43 {
		t.Errorf("IDs = %d, %d; want 42, 43", a.ID, b.ID)
	}
}

func TestBoundsIncludeChildren(t *testing.T) {
	reg := NewRegistry()
	b := brick(reg, "3001.dat", 80, 24, 40)
	sub := reg.Define("tower.ldr")
	sub.IsSubmodel = true
	sub.Children = []*PartInstance{
		reg.NewInstance(b, 4, geom.Identity()),
		reg.NewInstance(b, 4, geom.Translation(0, -24, 0)),
	}

	box := sub.Bounds()
	if geom.Top(box) != 48 || geom.Bottom(box) != 0 {
		t.Errorf("Top/Bottom = %v/%v, want 48/0", geom.Top(box), geom.Bottom(box))
	}

	sub.Children = sub.Children[:1]
	if geom.Top(sub.Bounds()) != 48 {
		t.Error("bounds should stay cached until ResetGeometry")
	}
	reg.ResetGeometry(sub)
	if geom.Top(sub.Bounds()) != 24 {
		t.Errorf("Top after reset = %v, want 24", geom.Top(sub.Bounds()))
	}
}

func TestReparentWinding(t *testing.T) {
	reg := NewRegistry()
	p := brick(reg, "3001.dat", 80, 24, 40)
	mirror := geom.Matrix{0, 0, 0, -1, 0, 0, 0, 1, 0, 0, 0, 1}

	tests := []struct {
		name      string
		m         geom.Matrix
		inverted  bool
		inherited Winding
		want      Winding
	}{
		{"plain", geom.Identity(), false, WindingCCW, WindingCCW},
		{"mirrored", mirror, false, WindingCCW, WindingCW},
		{"invertnext", geom.Identity(), true, WindingCCW, WindingCW},
		{"mirrored and inverted", mirror, true, WindingCCW, WindingCCW},
		{"inherited cw", geom.Identity(), false, WindingCW, WindingCW},
		{"unknown defaults ccw", geom.Identity(), false, WindingUnknown, WindingCCW},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pi := reg.NewInstance(p, 1, tt.m)
			pi.Inverted = tt.inverted
			pi.Reparent(tt.inherited)
			if pi.Winding() != tt.want {
				t.Errorf("Winding() = %v, want %v", pi.Winding(), tt.want)
			}
		})
	}
}

func TestCheckAcyclic(t *testing.T) {
	reg := NewRegistry()
	a := reg.Define("a.ldr")
	b := reg.Define("b.ldr")
	a.Children = []*PartInstance{reg.NewInstance(b, 16, geom.Identity())}
	if err := reg.CheckAcyclic(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.Children = []*PartInstance{reg.NewInstance(a, 16, geom.Identity())}
	if err := reg.CheckAcyclic(); err == nil {
		t.Error("expected cycle error")
	}
}

func TestDisplace(t *testing.T) {
	reg := NewRegistry()
	pi := reg.NewInstance(brick(reg, "3001.dat", 80, 24, 40), 4, geom.Identity())
	pi.Displace(DirectionUp, 0)
	if pi.Displacement == nil || pi.Displacement.Distance != DefaultDisplacement {
		t.Fatalf("Displacement = %+v", pi.Displacement)
	}
	if off := pi.DisplacedMatrix().Offset(); off.Y != -DefaultDisplacement {
		t.Errorf("displaced offset = %v", off)
	}
	pi.Displace(DirectionNone, 0)
	if pi.Displacement != nil || pi.Arrow != nil {
		t.Error("DirectionNone should clear displacement and arrow")
	}
}
