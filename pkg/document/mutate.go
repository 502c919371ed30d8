package document

import (
	"slices"

	"github.com/matzehuels/brickbook/pkg/geom"
	"github.com/matzehuels/brickbook/pkg/partgraph"
)

// Structural edits. Each one marks the document dirty; callers resync
// with Sync before handing the document back.

func clampIndex(i, n int) int {
	return max(0, min(i, n))
}

// NewPage returns a detached page of the document's page size.
func (d *Document) NewPage(steps ...*Step) *Page {
	p := &Page{Rect: geom.R(0, 0, d.PageSize.W, d.PageSize.H)}
	for _, s := range steps {
		s.page, s.callout = p, nil
	}
	p.Steps = steps
	return p
}

// AddSubmodel creates a child submodel of parent for part.
func (d *Document) AddSubmodel(parent *Submodel, part *partgraph.AbstractPart) *Submodel {
	sm := &Submodel{Part: part, doc: d}
	d.InsertSubmodel(parent, len(parent.Children), sm)
	return sm
}

// InsertSubmodel attaches sm as the i-th child of parent.
func (d *Document) InsertSubmodel(parent *Submodel, i int, sm *Submodel) {
	sm.parent, sm.doc = parent, d
	parent.Children = slices.Insert(parent.Children, clampIndex(i, len(parent.Children)), sm)
	d.dirty = true
}

// RemoveSubmodel detaches sm from its parent and returns its old index,
// or -1 when sm is not attached.
func (d *Document) RemoveSubmodel(sm *Submodel) (parent *Submodel, index int) {
	parent = sm.parent
	if parent == nil {
		return nil, -1
	}
	index = slices.Index(parent.Children, sm)
	if index < 0 {
		return parent, -1
	}
	parent.Children = slices.Delete(parent.Children, index, index+1)
	sm.parent = nil
	d.dirty = true
	return parent, index
}

// FindSubmodel returns the submodel built from part.
func (d *Document) FindSubmodel(part *partgraph.AbstractPart) *Submodel {
	for _, sm := range d.Submodels() {
		if sm.Part == part {
			return sm
		}
	}
	return nil
}

// AppendStepPage adds a page holding one new step with parts.
func (d *Document) AppendStepPage(sm *Submodel, parts ...*partgraph.PartInstance) *Page {
	p := d.NewPage(NewStep(parts...))
	d.InsertPage(sm, len(sm.Pages), p)
	return p
}

// InsertPage attaches p as the i-th page of sm.
func (d *Document) InsertPage(sm *Submodel, i int, p *Page) {
	p.submodel = sm
	if p.Preview != nil {
		p.Preview.page = p
	}
	sm.Pages = slices.Insert(sm.Pages, clampIndex(i, len(sm.Pages)), p)
	d.dirty = true
}

// RemovePage detaches p and returns where it was.
func (d *Document) RemovePage(p *Page) (sm *Submodel, index int) {
	sm = p.submodel
	if sm == nil {
		return nil, -1
	}
	index = slices.Index(sm.Pages, p)
	if index < 0 {
		return sm, -1
	}
	sm.Pages = slices.Delete(sm.Pages, index, index+1)
	d.dirty = true
	return sm, index
}

// SetPreview replaces the page's submodel preview. nil removes it.
func (d *Document) SetPreview(p *Page, sp *SubmodelPreview) (old *SubmodelPreview) {
	old = p.Preview
	if old != nil {
		old.page = nil
	}
	p.Preview = sp
	if sp != nil {
		sp.page = p
	}
	d.dirty = true
	return old
}

// InsertStep attaches s as the i-th step of page p.
func (d *Document) InsertStep(p *Page, i int, s *Step) {
	s.page, s.callout = p, nil
	p.Steps = slices.Insert(p.Steps, clampIndex(i, len(p.Steps)), s)
	d.dirty = true
}

// InsertCalloutStep attaches s as the i-th step of callout c.
func (d *Document) InsertCalloutStep(c *Callout, i int, s *Step) {
	s.page, s.callout = nil, c
	c.Steps = slices.Insert(c.Steps, clampIndex(i, len(c.Steps)), s)
	d.dirty = true
}

// RemoveStep detaches s from its page or callout and returns its index.
func (d *Document) RemoveStep(s *Step) int {
	var i int
	switch {
	case s.page != nil:
		i = slices.Index(s.page.Steps, s)
		if i >= 0 {
			s.page.Steps = slices.Delete(s.page.Steps, i, i+1)
		}
	case s.callout != nil:
		i = slices.Index(s.callout.Steps, s)
		if i >= 0 {
			s.callout.Steps = slices.Delete(s.callout.Steps, i, i+1)
		}
	default:
		return -1
	}
	d.dirty = true
	return i
}

// InsertPart adds pi to step s at position i.
func (d *Document) InsertPart(s *Step, i int, pi *partgraph.PartInstance) {
	s.Parts = slices.Insert(s.Parts, clampIndex(i, len(s.Parts)), pi)
	d.dirty = true
}

// RemovePart removes pi from s and returns its old index, or -1.
func (d *Document) RemovePart(s *Step, pi *partgraph.PartInstance) int {
	i := slices.Index(s.Parts, pi)
	if i < 0 {
		return -1
	}
	s.Parts = slices.Delete(s.Parts, i, i+1)
	d.dirty = true
	return i
}

// AttachCallout adds c as the i-th callout of s.
func (d *Document) AttachCallout(s *Step, i int, c *Callout) {
	c.step = s
	s.Callouts = slices.Insert(s.Callouts, clampIndex(i, len(s.Callouts)), c)
	d.dirty = true
}

// DetachCallout removes c from its step and returns its old index.
func (d *Document) DetachCallout(c *Callout) int {
	if c.step == nil {
		return -1
	}
	i := slices.Index(c.step.Callouts, c)
	if i >= 0 {
		c.step.Callouts = slices.Delete(c.step.Callouts, i, i+1)
	}
	d.dirty = true
	return i
}

// RemovedPage records an automatically deleted page.
type RemovedPage struct {
	Page     *Page
	Submodel *Submodel
	Index    int
}

// RemoveEmptyPages deletes every page with no steps and no preview.
func (d *Document) RemoveEmptyPages() []RemovedPage {
	var out []RemovedPage
	for _, sm := range d.Submodels() {
		for i := 0; i < len(sm.Pages); {
			p := sm.Pages[i]
			if !p.Empty() {
				i++
				continue
			}
			sm.Pages = slices.Delete(sm.Pages, i, i+1)
			out = append(out, RemovedPage{Page: p, Submodel: sm, Index: i})
			d.dirty = true
		}
	}
	return out
}

// RestorePages undoes RemoveEmptyPages.
func (d *Document) RestorePages(removed []RemovedPage) {
	for i := len(removed) - 1; i >= 0; i-- {
		r := removed[i]
		d.InsertPage(r.Submodel, r.Index, r.Page)
	}
}
