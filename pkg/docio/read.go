package docio

import (
	"bytes"
	"io"
	"os"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/brickbook/pkg/document"
	"github.com/matzehuels/brickbook/pkg/errors"
	"github.com/matzehuels/brickbook/pkg/geom"
	"github.com/matzehuels/brickbook/pkg/partgraph"
)

// Structure is a loaded document whose cross references are still
// pending. Call [Structure.ResolveReferences] exactly once.
type Structure struct {
	Version  uint16
	Document *document.Document

	parts    []*partgraph.AbstractPart
	prevs    []pendingPrev
	previews []pendingSubmodel[*document.SubmodelPreview]
	callouts []pendingSubmodel[*document.Callout]
	pages    map[*document.Page]int
	steps    map[*document.Step]int
	resolved bool
}

// pendingPrev is a stored CSI reference: the numbers of a page and a step
// on it, then (callout row, step number) hops into nested callouts.
type pendingPrev struct {
	csi  *document.CSI
	page int
	step int
	hops [][2]int
}

type pendingSubmodel[T any] struct {
	node T
	part int
}

type loader struct {
	dec   *decoder
	st    *Structure
	reg   *partgraph.Registry
	insts []*partgraph.PartInstance
}

// LoadStructure decodes every node of a saved document. Previous CSI links
// and submodel references are left unresolved.
func LoadStructure(r io.Reader) (*Structure, error) {
	l := &loader{
		dec: newDecoder(r),
		reg: partgraph.NewRegistry(),
		st: &Structure{
			pages: make(map[*document.Page]int),
			steps: make(map[*document.Step]int),
		},
	}
	if err := l.header(); err != nil {
		return nil, err
	}
	var id uuid.UUID
	l.dec.read(id[:])
	size := geom.Size{W: l.dec.f64(), H: l.dec.f64()}

	l.readParts()
	l.readInstances()
	l.readChildren()
	if l.dec.err != nil {
		return nil, l.dec.err
	}

	main := l.dec.index(len(l.st.parts), false, "main part")
	if l.dec.err != nil {
		return nil, l.dec.err
	}
	d := document.New(l.reg, l.st.parts[main])
	d.ID = id
	d.PageSize = size
	l.st.Document = d
	l.readSubmodel(d.Main)
	if l.dec.err != nil {
		return nil, l.dec.err
	}
	if _, err := l.dec.r.ReadByte(); err != io.EOF {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "trailing data after document")
	}
	return l.st, nil
}

func (l *loader) header() error {
	magic := make([]byte, len(Magic))
	if !l.dec.read(magic) || !bytes.Equal(magic, []byte(Magic)) {
		return errors.New(errors.ErrCodeInvalidFormat, "not a brickbook document")
	}
	l.st.Version = l.dec.u16()
	if l.dec.err != nil {
		return l.dec.err
	}
	if l.st.Version == 0 || l.st.Version > Version {
		return errors.New(errors.ErrCodeUnsupported, "document version %d (supported up to %d)", l.st.Version, Version)
	}
	return nil
}

func (l *loader) readParts() {
	dec := l.dec
	n := dec.count()
	l.st.parts = make([]*partgraph.AbstractPart, 0, n)
	for range n {
		name := dec.str()
		if dec.err != nil {
			return
		}
		if _, dup := l.reg.Lookup(name); dup {
			dec.fail("duplicate part %q", name)
			return
		}
		p := l.reg.Define(name)
		p.Description = dec.str()
		flags := dec.u8()
		p.IsPrimitive = flags&partPrimitive != 0
		p.IsSubmodel = flags&partSubmodel != 0
		p.View = l.readView()
		p.Measurement = partgraph.Measurement{
			Valid:        dec.bool(),
			Width:        dec.i32(),
			Height:       dec.i32(),
			LeftInset:    dec.i32(),
			BottomInset:  dec.i32(),
			CenterOffset: dec.point(),
		}
		prims := dec.count()
		for range prims {
			prim := partgraph.Primitive{
				Kind:    partgraph.PrimitiveKind(dec.u8()),
				Color:   dec.i32(),
				Winding: partgraph.Winding(dec.u8()),
			}
			pts := dec.count()
			for range pts {
				prim.Points = append(prim.Points, r3.Vec{X: dec.f64(), Y: dec.f64(), Z: dec.f64()})
			}
			if dec.err != nil {
				return
			}
			p.Primitives = append(p.Primitives, prim)
		}
		l.st.parts = append(l.st.parts, p)
	}
}

func (l *loader) readView() partgraph.View {
	v := partgraph.View{Scale: l.dec.f64()}
	for i := range v.Rotation {
		v.Rotation[i] = l.dec.f64()
	}
	return v
}

func (l *loader) readInstances() {
	dec := l.dec
	n := dec.count()
	l.insts = make([]*partgraph.PartInstance, 0, n)
	for range n {
		pi := &partgraph.PartInstance{ID: dec.i32()}
		if part := dec.index(len(l.st.parts), true, "instance part"); part >= 0 {
			pi.Part = l.st.parts[part]
		}
		pi.Color = dec.i32()
		for i := range pi.Matrix {
			pi.Matrix[i] = dec.f64()
		}
		pi.Inverted = dec.bool()
		restoreWinding(pi, partgraph.Winding(dec.u8()))
		if dec.bool() {
			pi.Displacement = &partgraph.Displacement{
				Direction: partgraph.Direction(dec.u8()),
				Distance:  dec.f64(),
			}
		}
		if dec.bool() {
			pi.Arrow = &partgraph.Arrow{
				Direction: partgraph.Direction(dec.u8()),
				Length:    dec.f64(),
			}
		}
		if dec.err != nil {
			return
		}
		l.reg.ReserveID(pi.ID)
		l.insts = append(l.insts, pi)
	}
}

// restoreWinding recovers the inherited winding that yields w and
// reparents pi with it.
func restoreWinding(pi *partgraph.PartInstance, w partgraph.Winding) {
	if w == partgraph.WindingUnknown {
		return
	}
	if pi.Matrix.Mirrors() {
		w = w.Flip()
	}
	if pi.Inverted {
		w = w.Flip()
	}
	pi.Reparent(w)
}

func (l *loader) readChildren() {
	for _, p := range l.st.parts {
		n := l.dec.count()
		for range n {
			i := l.dec.index(len(l.insts), false, "child instance")
			if l.dec.err != nil {
				return
			}
			p.Children = append(p.Children, l.insts[i])
		}
	}
}

func (l *loader) readSubmodel(sm *document.Submodel) {
	dec := l.dec
	d := l.st.Document
	pages := dec.count()
	for range pages {
		p := l.readPage()
		if dec.err != nil {
			return
		}
		d.InsertPage(sm, len(sm.Pages), p)
	}
	children := dec.count()
	for range children {
		part := dec.index(len(l.st.parts), false, "submodel part")
		if dec.err != nil {
			return
		}
		l.readSubmodel(d.AddSubmodel(sm, l.st.parts[part]))
	}
}

func (l *loader) readPage() *document.Page {
	dec := l.dec
	d := l.st.Document
	number := dec.i32()
	rect := dec.rect()
	numberRect := dec.rect()
	locked := dec.bool()
	var seps []geom.Line
	if n := dec.count(); n > 0 {
		seps = make([]geom.Line, n)
		for i := range seps {
			seps[i] = dec.line()
		}
	}
	var preview *document.SubmodelPreview
	if dec.bool() {
		part := dec.index(len(l.st.parts), false, "preview submodel")
		preview = &document.SubmodelPreview{Rect: dec.rect(), Scale: dec.f64()}
		l.st.previews = append(l.st.previews, pendingSubmodel[*document.SubmodelPreview]{preview, part})
	}
	var steps []*document.Step
	n := dec.count()
	for range n {
		st := l.readStep()
		if dec.err != nil {
			return nil
		}
		steps = append(steps, st)
	}

	p := d.NewPage(steps...)
	p.Rect, p.NumberRect, p.Locked, p.Separators = rect, numberRect, locked, seps
	if preview != nil {
		d.SetPreview(p, preview)
	}
	l.st.pages[p] = number
	return p
}

func (l *loader) readStep() *document.Step {
	dec := l.dec
	d := l.st.Document
	number := dec.i32()
	rect := dec.rect()
	numberRect := dec.rect()
	var parts []*partgraph.PartInstance
	n := dec.count()
	for range n {
		i := dec.index(len(l.insts), false, "step part")
		if dec.err != nil {
			return nil
		}
		parts = append(parts, l.insts[i])
	}
	st := document.NewStep(parts...)
	st.Rect, st.NumberRect = rect, numberRect
	l.st.steps[st] = number

	csi := st.CSI
	csi.Rect = dec.rect()
	csi.View = l.readView()
	csi.Key = dec.str()
	if page := dec.i32(); page != 0 {
		pp := pendingPrev{csi: csi, page: page, step: dec.i32()}
		hops := dec.count()
		for range hops {
			pp.hops = append(pp.hops, [2]int{dec.i32(), dec.i32()})
		}
		l.st.prevs = append(l.st.prevs, pp)
	}
	csi.Pixels = dec.blob()

	st.PLI.Rect = dec.rect()
	items := dec.count()
	for range items {
		part := dec.index(len(l.st.parts), false, "parts list item")
		if dec.err != nil {
			return nil
		}
		it := st.PLI.AddItem(l.st.parts[part], dec.i32(), dec.i32())
		it.Rect, it.PartRect, it.LabelRect = dec.rect(), dec.rect(), dec.rect()
	}

	callouts := dec.count()
	for range callouts {
		c := &document.Callout{Rect: dec.rect(), Arrow: dec.line(), Vertical: dec.bool()}
		l.st.callouts = append(l.st.callouts, pendingSubmodel[*document.Callout]{c, dec.index(len(l.st.parts), true, "callout submodel")})
		cn := dec.count()
		for range cn {
			cs := l.readStep()
			if dec.err != nil {
				return nil
			}
			d.InsertCalloutStep(c, len(c.Steps), cs)
		}
		d.AttachCallout(st, len(st.Callouts), c)
	}
	return st
}

// ResolveReferences binds the pending references, resyncs the document and
// checks that the stored numbering survived.
func (s *Structure) ResolveReferences() (*document.Document, error) {
	if s.resolved {
		return nil, errors.New(errors.ErrCodeInvalidInput, "references already resolved")
	}
	s.resolved = true
	d := s.Document
	if err := d.Registry.CheckAcyclic(); err != nil {
		return nil, err
	}

	for _, p := range s.previews {
		sm := d.FindSubmodel(s.parts[p.part])
		if sm == nil {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "preview of unknown submodel %q", s.parts[p.part].Name)
		}
		p.node.Submodel = sm
	}
	for _, c := range s.callouts {
		if c.part < 0 {
			continue
		}
		part := s.parts[c.part]
		c.node.Submodel = d.FindSubmodel(part)
		if c.node.Submodel == nil {
			// Folded submodels are no longer in the tree.
			c.node.Submodel = &document.Submodel{Part: part}
		}
	}

	want := make(map[*document.CSI]*document.CSI, len(s.prevs))
	pages := make(map[int]*document.Page, len(s.pages))
	for p, n := range s.pages {
		pages[n] = p
	}
	for _, pp := range s.prevs {
		prev := s.resolveCSI(pages, pp)
		if prev == nil {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "previous CSI page %d step %d %v does not resolve", pp.page, pp.step, pp.hops)
		}
		pp.csi.Prev = prev
		want[pp.csi] = prev
	}

	d.Sync()
	for p, n := range s.pages {
		if p.Number != n {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "page stored as %d resolves to %d", n, p.Number)
		}
	}
	for st, n := range s.steps {
		if st.Number != n {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "step stored as %d resolves to %d", n, st.Number)
		}
		if st.CSI.Prev != want[st.CSI] {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "step %d has a stale previous CSI", n)
		}
	}
	if err := d.CheckNumbering(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "loaded document")
	}
	return d, nil
}

// resolveCSI finds a stored CSI reference by the page and step numbers
// written in the file.
func (s *Structure) resolveCSI(pages map[int]*document.Page, pp pendingPrev) *document.CSI {
	p := pages[pp.page]
	if p == nil {
		return nil
	}
	st := s.stepNumbered(p.Steps, pp.step)
	for _, h := range pp.hops {
		if st == nil || h[0] < 0 || h[0] >= len(st.Callouts) {
			return nil
		}
		st = s.stepNumbered(st.Callouts[h[0]].Steps, h[1])
	}
	if st == nil {
		return nil
	}
	return st.CSI
}

func (s *Structure) stepNumbered(steps []*document.Step, n int) *document.Step {
	for _, st := range steps {
		if s.steps[st] == n {
			return st
		}
	}
	return nil
}

// Read runs both load phases.
func Read(r io.Reader) (*document.Document, error) {
	s, err := LoadStructure(r)
	if err != nil {
		return nil, err
	}
	return s.ResolveReferences()
}

// Load reads the document saved at path.
func Load(path string) (*document.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "load %s", path)
		}
		return nil, err
	}
	defer f.Close()
	return Read(f)
}
