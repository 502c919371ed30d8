package docio

import (
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/matzehuels/brickbook/pkg/document"
	"github.com/matzehuels/brickbook/pkg/errors"
	"github.com/matzehuels/brickbook/pkg/partgraph"
)

// Magic opens every saved book.
const Magic = "BRKB"

// Version is the format version written by [Write].
const Version uint16 = 1

const (
	partPrimitive uint8 = 1 << iota
	partSubmodel
)

type saver struct {
	enc   *encoder
	doc   *document.Document
	parts map[*partgraph.AbstractPart]int
	insts map[*partgraph.PartInstance]int
	order []*partgraph.PartInstance
}

// Write encodes d. The document must be synced.
func Write(w io.Writer, d *document.Document) error {
	if d.Dirty() {
		return errors.New(errors.ErrCodeNumberingInvariant, "save: document not resynced")
	}
	s := &saver{
		enc:   newEncoder(w),
		doc:   d,
		parts: make(map[*partgraph.AbstractPart]int),
		insts: make(map[*partgraph.PartInstance]int),
	}
	table := d.Registry.Parts()
	for i, p := range table {
		s.parts[p] = i
	}
	if err := s.collect(table); err != nil {
		return err
	}

	e := s.enc
	e.write([]byte(Magic))
	e.u16(Version)
	e.write(d.ID[:])
	e.f64(d.PageSize.W)
	e.f64(d.PageSize.H)

	e.count(len(table))
	for _, p := range table {
		s.writePart(p)
	}
	e.count(len(s.order))
	for _, pi := range s.order {
		s.writeInstance(pi)
	}
	for _, p := range table {
		e.count(len(p.Children))
		for _, c := range p.Children {
			e.i32(s.insts[c])
		}
	}
	s.writeSubmodel(d.Main)
	return e.flush()
}

// Save writes d to path through a temporary file in the same directory.
func Save(path string, d *document.Document) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".brickbook-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "save %s", path)
	}
	defer os.Remove(tmp.Name())
	if err := Write(tmp, d); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// collect numbers every instance: part children first, then step parts in
// tree order.
func (s *saver) collect(table []*partgraph.AbstractPart) error {
	add := func(pi *partgraph.PartInstance) error {
		if pi.Part != nil {
			if _, ok := s.parts[pi.Part]; !ok {
				return errors.New(errors.ErrCodeInvalidInput, "save: part %q is not registered", pi.Part.Name)
			}
		}
		if _, ok := s.insts[pi]; !ok {
			s.insts[pi] = len(s.order)
			s.order = append(s.order, pi)
		}
		return nil
	}
	for _, p := range table {
		for _, c := range p.Children {
			if err := add(c); err != nil {
				return err
			}
		}
	}
	var err error
	walkSteps(s.doc.Main, func(st *document.Step) {
		for _, pi := range st.Parts {
			if err == nil {
				err = add(pi)
			}
		}
	})
	return err
}

// walkSteps visits every step of sm and its descendants, callout steps
// included, in save order.
func walkSteps(sm *document.Submodel, fn func(*document.Step)) {
	var step func(*document.Step)
	step = func(st *document.Step) {
		fn(st)
		for _, c := range st.Callouts {
			for _, cs := range c.Steps {
				step(cs)
			}
		}
	}
	for _, p := range sm.Pages {
		for _, st := range p.Steps {
			step(st)
		}
	}
	for _, c := range sm.Children {
		walkSteps(c, fn)
	}
}

func (s *saver) partRef(p *partgraph.AbstractPart) int {
	if p == nil {
		return -1
	}
	if i, ok := s.parts[p]; ok {
		return i
	}
	return -1
}

func (s *saver) writePart(p *partgraph.AbstractPart) {
	e := s.enc
	e.str(p.Name)
	e.str(p.Description)
	var flags uint8
	if p.IsPrimitive {
		flags |= partPrimitive
	}
	if p.IsSubmodel {
		flags |= partSubmodel
	}
	e.u8(flags)
	s.writeView(p.View)

	m := p.Measurement
	e.bool(m.Valid)
	e.i32(m.Width)
	e.i32(m.Height)
	e.i32(m.LeftInset)
	e.i32(m.BottomInset)
	e.point(m.CenterOffset)

	e.count(len(p.Primitives))
	for _, prim := range p.Primitives {
		e.u8(uint8(prim.Kind))
		e.i32(prim.Color)
		e.u8(uint8(prim.Winding))
		e.count(len(prim.Points))
		for _, pt := range prim.Points {
			e.f64(pt.X)
			e.f64(pt.Y)
			e.f64(pt.Z)
		}
	}
}

func (s *saver) writeView(v partgraph.View) {
	s.enc.f64(v.Scale)
	for _, r := range v.Rotation {
		s.enc.f64(r)
	}
}

func (s *saver) writeInstance(pi *partgraph.PartInstance) {
	e := s.enc
	e.i32(pi.ID)
	e.i32(s.partRef(pi.Part))
	e.i32(pi.Color)
	for _, v := range pi.Matrix {
		e.f64(v)
	}
	e.bool(pi.Inverted)
	e.u8(uint8(pi.Winding()))
	e.bool(pi.Displacement != nil)
	if pi.Displacement != nil {
		e.u8(uint8(pi.Displacement.Direction))
		e.f64(pi.Displacement.Distance)
	}
	e.bool(pi.Arrow != nil)
	if pi.Arrow != nil {
		e.u8(uint8(pi.Arrow.Direction))
		e.f64(pi.Arrow.Length)
	}
}

func (s *saver) writeSubmodel(sm *document.Submodel) {
	e := s.enc
	e.i32(s.partRef(sm.Part))
	e.count(len(sm.Pages))
	for _, p := range sm.Pages {
		s.writePage(p)
	}
	e.count(len(sm.Children))
	for _, c := range sm.Children {
		s.writeSubmodel(c)
	}
}

func (s *saver) writePage(p *document.Page) {
	e := s.enc
	e.i32(p.Number)
	e.rect(p.Rect)
	e.rect(p.NumberRect)
	e.bool(p.Locked)
	e.count(len(p.Separators))
	for _, l := range p.Separators {
		e.line(l)
	}
	e.bool(p.Preview != nil)
	if sp := p.Preview; sp != nil {
		var part *partgraph.AbstractPart
		if sp.Submodel != nil {
			part = sp.Submodel.Part
		}
		e.i32(s.partRef(part))
		e.rect(sp.Rect)
		e.f64(sp.Scale)
	}
	e.count(len(p.Steps))
	for _, st := range p.Steps {
		s.writeStep(st)
	}
}

func (s *saver) writeStep(st *document.Step) {
	e := s.enc
	e.i32(st.Number)
	e.rect(st.Rect)
	e.rect(st.NumberRect)
	e.count(len(st.Parts))
	for _, pi := range st.Parts {
		e.i32(s.insts[pi])
	}

	csi := st.CSI
	e.rect(csi.Rect)
	s.writeView(csi.View)
	e.str(csi.Key)
	s.writeCSIRef(csi.Prev)
	e.blob(csi.Pixels)

	e.rect(st.PLI.Rect)
	e.count(len(st.PLI.Items))
	for _, it := range st.PLI.Items {
		e.i32(s.partRef(it.Part))
		e.i32(it.Color)
		e.i32(it.Quantity)
		e.rect(it.Rect)
		e.rect(it.PartRect)
		e.rect(it.LabelRect)
	}

	e.count(len(st.Callouts))
	for _, c := range st.Callouts {
		e.rect(c.Rect)
		e.line(c.Arrow)
		e.bool(c.Vertical)
		var part *partgraph.AbstractPart
		if c.Submodel != nil {
			part = c.Submodel.Part
		}
		e.i32(s.partRef(part))
		e.count(len(c.Steps))
		for _, cs := range c.Steps {
			s.writeStep(cs)
		}
	}
}

// writeCSIRef stores a CSI as the (page number, step number) of its
// top-level step, then one (callout row, step number) hop per callout level
// down to the CSI's own step. Page number 0 is no CSI.
func (s *saver) writeCSIRef(csi *document.CSI) {
	e := s.enc
	if csi == nil || csi.Step() == nil {
		e.i32(0)
		return
	}
	var hops [][2]int
	st := csi.Step()
	for st.Callout() != nil {
		c := st.Callout()
		hops = append(hops, [2]int{slices.Index(c.Step().Callouts, c), st.Number})
		st = c.Step()
	}
	slices.Reverse(hops)
	if st.Page() == nil {
		e.i32(0)
		return
	}

	e.i32(st.Page().Number)
	e.i32(st.Number)
	e.count(len(hops))
	for _, h := range hops {
		e.i32(h[0])
		e.i32(h[1])
	}
}
