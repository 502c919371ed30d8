package document

import (
	"github.com/google/uuid"

	"github.com/matzehuels/brickbook/pkg/geom"
	"github.com/matzehuels/brickbook/pkg/partgraph"
)

// DefaultPageSize is A4 portrait at 96 dpi.
var DefaultPageSize = geom.Size{W: 794, H: 1123}

// Document is one instruction book.
type Document struct {
	ID       uuid.UUID
	Registry *partgraph.Registry
	Main     *Submodel
	PageSize geom.Size

	dirty bool
}

// New creates a document for the main model part.
func New(reg *partgraph.Registry, main *partgraph.AbstractPart) *Document {
	d := &Document{
		ID:       uuid.New(),
		Registry: reg,
		PageSize: DefaultPageSize,
	}
	d.Main = &Submodel{Part: main, doc: d}
	return d
}

// Dirty reports whether numbering is out of date.
func (d *Document) Dirty() bool { return d.dirty }

// MarkDirty flags the document for a resync.
func (d *Document) MarkDirty() { d.dirty = true }

// Submodel is an assembly with its own pages.
type Submodel struct {
	Part     *partgraph.AbstractPart
	Pages    []*Page
	Children []*Submodel

	parent *Submodel
	doc    *Document
}

// Parent returns the enclosing submodel, nil for the main model.
func (sm *Submodel) Parent() *Submodel { return sm.parent }

// Document returns the owning document.
func (sm *Submodel) Document() *Document { return sm.doc }

// Name returns the submodel's part name.
func (sm *Submodel) Name() string { return sm.Part.Name }

// OrderedSteps returns the submodel's steps in page order.
func (sm *Submodel) OrderedSteps() []*Step {
	var out []*Step
	for _, p := range sm.Pages {
		out = append(out, p.Steps...)
	}
	return out
}

// Page is one printed page.
type Page struct {
	Number     int
	Rect       geom.Rect
	Steps      []*Step
	Separators []geom.Line
	Preview    *SubmodelPreview
	Locked     bool
	NumberRect geom.Rect

	submodel *Submodel
}

// Submodel returns the submodel the page belongs to.
func (p *Page) Submodel() *Submodel { return p.submodel }

// Empty reports whether the page has neither steps nor a preview.
func (p *Page) Empty() bool { return len(p.Steps) == 0 && p.Preview == nil }

// SubmodelPreview shows a whole submodel on its first page.
type SubmodelPreview struct {
	Submodel *Submodel
	Rect     geom.Rect
	Scale    float64

	page *Page
}

// Step is one unit of construction.
type Step struct {
	Number     int
	Rect       geom.Rect
	NumberRect geom.Rect
	Parts      []*partgraph.PartInstance
	CSI        *CSI
	PLI        *PLI
	Callouts   []*Callout

	page    *Page
	callout *Callout
}

// NewStep returns a step with an empty CSI and parts list.
func NewStep(parts ...*partgraph.PartInstance) *Step {
	s := &Step{Parts: parts}
	s.CSI = &CSI{View: partgraph.DefaultView, step: s}
	s.PLI = &PLI{step: s}
	return s
}

// Page returns the page holding s, or nil for a callout step.
func (s *Step) Page() *Page { return s.page }

// Callout returns the callout holding s, or nil for a page step.
func (s *Step) Callout() *Callout { return s.callout }

// StepOwner numbers a sequence of steps.
type StepOwner interface {
	OrderedSteps() []*Step
}

// Owner returns the submodel or callout whose step sequence contains s.
func (s *Step) Owner() StepOwner {
	if s.callout != nil {
		return s.callout
	}
	if s.page != nil && s.page.submodel != nil {
		return s.page.submodel
	}
	return nil
}

// Submodel returns the submodel s belongs to, following callouts outward.
func (s *Step) Submodel() *Submodel {
	for st := s; st != nil; {
		if st.page != nil {
			return st.page.submodel
		}
		if st.callout == nil {
			return nil
		}
		st = st.callout.step
	}
	return nil
}

// CumulativeParts returns the parts of every step of the owner up to and
// including s, in step order. This is what the CSI of s shows.
func (s *Step) CumulativeParts() []*partgraph.PartInstance {
	owner := s.Owner()
	if owner == nil {
		return append([]*partgraph.PartInstance(nil), s.Parts...)
	}
	var out []*partgraph.PartInstance
	for _, st := range owner.OrderedSteps() {
		out = append(out, st.Parts...)
		if st == s {
			break
		}
	}
	return out
}

// CSI is the construction step image.
type CSI struct {
	Rect   geom.Rect
	View   partgraph.View
	Prev   *CSI
	Key    string // render key of the last measurement
	Pixels []byte // optional PNG

	step *Step
}

// Step returns the step the CSI belongs to.
func (c *CSI) Step() *Step { return c.step }

// PLI is a step's parts list.
type PLI struct {
	Rect  geom.Rect
	Items []*PLIItem

	step *Step
}

// Step returns the step the PLI belongs to.
func (p *PLI) Step() *Step { return p.step }

// Empty reports whether there is nothing to list.
func (p *PLI) Empty() bool { return len(p.Items) == 0 }

// AddItem appends an item. Loaders use it to restore a saved parts list
// before the document is synced.
func (p *PLI) AddItem(part *partgraph.AbstractPart, color, quantity int) *PLIItem {
	it := &PLIItem{Part: part, Color: color, Quantity: quantity, pli: p}
	p.Items = append(p.Items, it)
	return it
}

// PLIItem is one (part, color) entry with a quantity.
type PLIItem struct {
	Part      *partgraph.AbstractPart
	Color     int
	Quantity  int
	Rect      geom.Rect // relative to the PLI
	PartRect  geom.Rect // relative to the item
	LabelRect geom.Rect // relative to the item

	pli *PLI
}

// Callout is a nested step sequence drawn inside a step.
type Callout struct {
	Steps    []*Step
	Rect     geom.Rect // relative to the step
	Arrow    geom.Line
	Vertical bool
	Submodel *Submodel

	step *Step
}

// OrderedSteps returns the callout steps.
func (c *Callout) OrderedSteps() []*Step { return c.Steps }

// Step returns the step the callout is attached to.
func (c *Callout) Step() *Step { return c.step }
