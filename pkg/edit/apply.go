package edit

import (
	"slices"

	"github.com/matzehuels/brickbook/pkg/document"
	"github.com/matzehuels/brickbook/pkg/errors"
	"github.com/matzehuels/brickbook/pkg/geom"
	"github.com/matzehuels/brickbook/pkg/partgraph"
)

// Apply performs cmd on d, or reverts it when forward is false. It only
// changes structure and marks d dirty; renumbering and validation are the
// caller's job (see Transaction). A command must be applied forward before
// it can be applied backward.
func Apply(d *document.Document, cmd Command, forward bool) error {
	switch c := cmd.(type) {
	case *MoveItem:
		return applyMoveItem(c, forward)
	case *ResizePage:
		return applyResizePage(d, c, forward)
	case *MovePart:
		return applyMovePart(d, c, forward)
	case *AddStep:
		return applyAddStep(d, c, forward)
	case *DeleteStep:
		return applyDeleteStep(d, c, forward)
	case *SplitStep:
		return applySplitStep(d, c, forward)
	case *MergeStep:
		return applyMergeStep(d, c, forward)
	case *MoveStepToPage:
		return applyMoveStepToPage(d, c, forward)
	case *DisplacePart:
		return applyDisplacePart(d, c, forward)
	case *InsertPage:
		return applyInsertPage(d, c, forward)
	case *DeletePage:
		return applyDeletePage(d, c, forward)
	case *LockPage:
		return applyLockPage(d, c, forward)
	case *SubmodelToCallout:
		return applySubmodelToCallout(d, c, forward)
	case nil:
		return errors.New(errors.ErrCodeInvalidInput, "nil command")
	}
	return errors.New(errors.ErrCodeUnsupported, "unknown command %T", cmd)
}

func invalid(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidInput, format, args...)
}

func rectOf(n document.TreeNode) (*geom.Rect, error) {
	switch v := n.(type) {
	case *document.Step:
		return &v.Rect, nil
	case *document.CSI:
		return &v.Rect, nil
	case *document.PLI:
		return &v.Rect, nil
	case *document.PLIItem:
		return &v.Rect, nil
	case *document.Callout:
		return &v.Rect, nil
	case *document.SubmodelPreview:
		return &v.Rect, nil
	}
	return nil, invalid("%T cannot be moved", n)
}

func applyMoveItem(c *MoveItem, forward bool) error {
	r, err := rectOf(c.Node)
	if err != nil {
		return err
	}
	if forward {
		c.from = geom.Point{X: r.X, Y: r.Y}
		r.X, r.Y = c.To.X, c.To.Y
	} else {
		r.X, r.Y = c.from.X, c.from.Y
	}
	return nil
}

func applyResizePage(d *document.Document, c *ResizePage, forward bool) error {
	if c.Page == nil {
		return invalid("resize: no page")
	}
	if forward {
		if c.Size.W <= 0 || c.Size.H <= 0 {
			return invalid("resize: page size %gx%g", c.Size.W, c.Size.H)
		}
		c.from = c.Page.Rect.Size()
		c.Page.Rect.W, c.Page.Rect.H = c.Size.W, c.Size.H
	} else {
		c.Page.Rect.W, c.Page.Rect.H = c.from.W, c.from.H
	}
	d.MarkDirty()
	return nil
}

func applyMovePart(d *document.Document, c *MovePart, forward bool) error {
	if !forward {
		d.RemovePart(c.To, c.Part)
		d.InsertPart(c.From, c.index, c.Part)
		return nil
	}
	if c.From == nil || c.To == nil || c.From == c.To {
		return invalid("move part: need two different steps")
	}
	if c.From.Submodel() != c.To.Submodel() {
		return invalid("move part: steps belong to different submodels")
	}
	c.index = d.RemovePart(c.From, c.Part)
	if c.index < 0 {
		return invalid("move part: %s is not in the source step", c.Part.Name())
	}
	d.InsertPart(c.To, len(c.To.Parts), c.Part)
	return nil
}

func applyAddStep(d *document.Document, c *AddStep, forward bool) error {
	if !forward {
		d.RemoveStep(c.step)
		return nil
	}
	if c.Page == nil || c.Page.Submodel() == nil {
		return invalid("add step: page is not part of the document")
	}
	if c.step == nil {
		c.step = document.NewStep()
	}
	d.InsertStep(c.Page, c.Index, c.step)
	return nil
}

// absorbed records one step merged into another.
type absorbed struct {
	src, dst  *document.Step
	page      *document.Page
	callout   *document.Callout
	index     int
	partAt    int
	parts     []*partgraph.PartInstance
	calloutAt int
	callouts  []*document.Callout
}

// absorb moves src's parts and callouts into dst, in front of dst's own
// when prepend is set, and detaches src.
func absorb(d *document.Document, src, dst *document.Step, prepend bool) absorbed {
	a := absorbed{
		src:      src,
		dst:      dst,
		page:     src.Page(),
		callout:  src.Callout(),
		parts:    slices.Clone(src.Parts),
		callouts: slices.Clone(src.Callouts),
	}
	if !prepend {
		a.partAt, a.calloutAt = len(dst.Parts), len(dst.Callouts)
	}
	for _, p := range a.parts {
		d.RemovePart(src, p)
	}
	for i, p := range a.parts {
		d.InsertPart(dst, a.partAt+i, p)
	}
	for i, co := range a.callouts {
		d.DetachCallout(co)
		d.AttachCallout(dst, a.calloutAt+i, co)
	}
	a.index = d.RemoveStep(src)
	return a
}

func unabsorb(d *document.Document, a absorbed) {
	if a.callout != nil {
		d.InsertCalloutStep(a.callout, a.index, a.src)
	} else {
		d.InsertStep(a.page, a.index, a.src)
	}
	for _, p := range a.parts {
		d.RemovePart(a.dst, p)
	}
	for i, p := range a.parts {
		d.InsertPart(a.src, i, p)
	}
	for i, co := range a.callouts {
		d.DetachCallout(co)
		d.AttachCallout(a.src, i, co)
	}
}

func sequence(s *document.Step) ([]*document.Step, int, error) {
	owner := s.Owner()
	if owner == nil {
		return nil, -1, invalid("step is not part of the document")
	}
	steps := owner.OrderedSteps()
	return steps, slices.Index(steps, s), nil
}

func applyDeleteStep(d *document.Document, c *DeleteStep, forward bool) error {
	if !forward {
		unabsorb(d, c.absorb)
		return nil
	}
	steps, i, err := sequence(c.Step)
	if err != nil {
		return err
	}
	if len(steps) < 2 {
		return invalid("delete step: cannot delete the only step of %s", ownerName(c.Step))
	}
	if i > 0 {
		c.absorb = absorb(d, c.Step, steps[i-1], false)
	} else {
		c.absorb = absorb(d, c.Step, steps[1], true)
	}
	return nil
}

func ownerName(s *document.Step) string {
	if s.Callout() != nil {
		return "its callout"
	}
	if sm := s.Submodel(); sm != nil {
		return sm.Name()
	}
	return "its owner"
}

func applyMergeStep(d *document.Document, c *MergeStep, forward bool) error {
	if !forward {
		unabsorb(d, c.absorb)
		return nil
	}
	steps, i, err := sequence(c.Step)
	if err != nil {
		return err
	}
	if i+1 >= len(steps) {
		return invalid("merge step: step %d is the last of %s", c.Step.Number, ownerName(c.Step))
	}
	c.next = steps[i+1]
	c.absorb = absorb(d, c.next, c.Step, false)
	return nil
}

func applySplitStep(d *document.Document, c *SplitStep, forward bool) error {
	if !forward {
		page := c.Step.Page()
		d.RemovePage(c.newPage)
		for _, s := range c.trailing {
			d.RemoveStep(s)
			d.InsertStep(page, len(page.Steps), s)
		}
		for _, p := range c.Parts {
			d.RemovePart(c.newStep, p)
		}
		for i := len(c.Parts) - 1; i >= 0; i-- {
			d.InsertPart(c.Step, c.indices[i], c.Parts[i])
		}
		return nil
	}

	page := c.Step.Page()
	if page == nil || page.Submodel() == nil {
		return invalid("split step: only page steps can be split")
	}
	if len(c.Parts) == 0 {
		return invalid("split step: no parts to move")
	}
	for _, p := range c.Parts {
		if !slices.Contains(c.Step.Parts, p) {
			return invalid("split step: %s is not in step %d", p.Name(), c.Step.Number)
		}
	}
	sm := page.Submodel()
	if c.newStep == nil {
		c.newStep = document.NewStep()
		c.newPage = d.NewPage(c.newStep)
	}

	c.indices = make([]int, len(c.Parts))
	for i, p := range c.Parts {
		c.indices[i] = d.RemovePart(c.Step, p)
	}
	for i, p := range c.Parts {
		d.InsertPart(c.newStep, i, p)
	}

	pos := slices.Index(page.Steps, c.Step)
	c.trailing = slices.Clone(page.Steps[pos+1:])
	for i, s := range c.trailing {
		d.RemoveStep(s)
		d.InsertStep(c.newPage, 1+i, s)
	}
	d.InsertPage(sm, slices.Index(sm.Pages, page)+1, c.newPage)
	return nil
}

func applyMoveStepToPage(d *document.Document, c *MoveStepToPage, forward bool) error {
	if !forward {
		d.RemoveStep(c.Step)
		d.InsertStep(c.fromPage, c.fromIndex, c.Step)
		return nil
	}
	from := c.Step.Page()
	if from == nil || c.Page == nil {
		return invalid("move step: need a page step and a target page")
	}
	if from.Submodel() != c.Page.Submodel() {
		return invalid("move step: pages belong to different submodels")
	}
	c.fromPage = from
	c.fromIndex = d.RemoveStep(c.Step)
	d.InsertStep(c.Page, c.Index, c.Step)
	return nil
}

func applyDisplacePart(d *document.Document, c *DisplacePart, forward bool) error {
	if c.Part == nil {
		return invalid("displace: no part")
	}
	switch {
	case !forward:
		c.Part.Displacement, c.Part.Arrow = c.oldDisp, c.oldArrow
	case c.done:
		c.Part.Displacement, c.Part.Arrow = c.newDisp, c.newArrow
	default:
		c.oldDisp, c.oldArrow = c.Part.Displacement, c.Part.Arrow
		c.Part.Displace(c.Direction, c.Distance)
		c.newDisp, c.newArrow = c.Part.Displacement, c.Part.Arrow
		c.done = true
	}
	d.MarkDirty()
	return nil
}

func applyInsertPage(d *document.Document, c *InsertPage, forward bool) error {
	if !forward {
		d.RemovePage(c.page)
		return nil
	}
	if c.Submodel == nil {
		return invalid("insert page: no submodel")
	}
	if c.page == nil {
		c.page = d.NewPage(document.NewStep())
	}
	d.InsertPage(c.Submodel, c.Index, c.page)
	return nil
}

func applyDeletePage(d *document.Document, c *DeletePage, forward bool) error {
	if !forward {
		d.InsertPage(c.Page.Submodel(), c.index, c.Page)
		for i := len(c.absorb) - 1; i >= 0; i-- {
			unabsorb(d, c.absorb[i])
		}
		return nil
	}
	sm := c.Page.Submodel()
	if sm == nil {
		return invalid("delete page: page is not part of the document")
	}
	if len(sm.Pages) < 2 {
		return invalid("delete page: cannot delete the only page of %s", sm.Name())
	}
	if c.Page.Preview != nil {
		return invalid("delete page: page %d holds the submodel preview", c.Page.Number)
	}
	c.steps = slices.Clone(c.Page.Steps)
	c.absorb = c.absorb[:0]
	if len(c.steps) > 0 {
		all := sm.OrderedSteps()
		first := slices.Index(all, c.steps[0])
		last := first + len(c.steps) - 1
		switch {
		case first > 0:
			for _, s := range c.steps {
				c.absorb = append(c.absorb, absorb(d, s, all[first-1], false))
			}
		case last+1 < len(all):
			for j := len(c.steps) - 1; j >= 0; j-- {
				c.absorb = append(c.absorb, absorb(d, c.steps[j], all[last+1], true))
			}
		default:
			return invalid("delete page: no other step in %s takes the parts", sm.Name())
		}
	}
	_, c.index = d.RemovePage(c.Page)
	return nil
}

func applyLockPage(d *document.Document, c *LockPage, forward bool) error {
	if c.Page == nil {
		return invalid("lock page: no page")
	}
	if forward {
		c.was = c.Page.Locked
		c.Page.Locked = c.Locked
	} else {
		c.Page.Locked = c.was
	}
	return nil
}

func applySubmodelToCallout(d *document.Document, c *SubmodelToCallout, forward bool) error {
	if !forward {
		d.DetachCallout(c.callout)
		for i, p := range c.pages {
			for j, s := range c.pageSteps[i] {
				d.RemoveStep(s)
				d.InsertStep(p, j, s)
			}
		}
		d.InsertSubmodel(c.parent, c.index, c.Submodel)
		return nil
	}

	sm := c.Submodel
	if c.Step == nil || c.Step.Page() == nil || sm == nil {
		return invalid("callout: need a page step and a submodel")
	}
	if sm.Parent() == nil || sm.Parent() != c.Step.Submodel() {
		return invalid("callout: %s is not a child of the step's submodel", sm.Name())
	}
	if !slices.ContainsFunc(c.Step.Parts, func(p *partgraph.PartInstance) bool { return p.Part == sm.Part }) {
		return invalid("callout: step %d does not use %s", c.Step.Number, sm.Name())
	}
	if len(sm.Children) > 0 {
		return invalid("callout: %s has nested submodels", sm.Name())
	}
	if c.callout == nil {
		c.callout = &document.Callout{Submodel: sm, Vertical: true}
	}

	c.parent, c.index = d.RemoveSubmodel(sm)
	c.pages = slices.Clone(sm.Pages)
	c.pageSteps = make([][]*document.Step, len(c.pages))
	for i, p := range c.pages {
		c.pageSteps[i] = slices.Clone(p.Steps)
		for _, s := range c.pageSteps[i] {
			d.RemoveStep(s)
			d.InsertCalloutStep(c.callout, len(c.callout.Steps), s)
		}
	}
	d.AttachCallout(c.Step, len(c.Step.Callouts), c.callout)
	return nil
}
