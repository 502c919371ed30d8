package document

import "slices"

// TreeNode is the navigation capability shared by every document node.
type TreeNode interface {
	ChildCount() int
	ChildAt(i int) TreeNode
	Parent() TreeNode
	RowOf(child TreeNode) int
}

func rowOf(n TreeNode, child TreeNode) int {
	for i := 0; i < n.ChildCount(); i++ {
		if n.ChildAt(i) == child {
			return i
		}
	}
	return -1
}

// Walk visits n and its descendants depth first. Returning false from fn
// skips the node's children.
func Walk(n TreeNode, fn func(n TreeNode, depth int) bool) {
	walkTree(n, 0, fn)
}

func walkTree(n TreeNode, depth int, fn func(TreeNode, int) bool) {
	if !fn(n, depth) {
		return
	}
	// Document children are computed, so collect them once.
	if d, ok := n.(*Document); ok {
		for _, p := range d.Pages() {
			walkTree(p, depth+1, fn)
		}
		return
	}
	for i := 0; i < n.ChildCount(); i++ {
		walkTree(n.ChildAt(i), depth+1, fn)
	}
}

// Path returns the row indices leading from the root to n.
func Path(n TreeNode) []int {
	var rev []int
	for p := n.Parent(); p != nil; n, p = p, p.Parent() {
		rev = append(rev, p.RowOf(n))
	}
	out := make([]int, len(rev))
	for i, r := range rev {
		out[len(rev)-1-i] = r
	}
	return out
}

// Document: children are pages in number order. Each call walks the
// submodel tree; iterate Pages() instead of ChildAt.

func (d *Document) ChildCount() int        { return len(d.Pages()) }
func (d *Document) ChildAt(i int) TreeNode { return d.Pages()[i] }
func (d *Document) Parent() TreeNode       { return nil }

func (d *Document) RowOf(child TreeNode) int {
	p, ok := child.(*Page)
	if !ok {
		return -1
	}
	return slices.Index(d.Pages(), p)
}

// Page: the preview first, then steps.

func (p *Page) ChildCount() int {
	n := len(p.Steps)
	if p.Preview != nil {
		n++
	}
	return n
}

func (p *Page) ChildAt(i int) TreeNode {
	if p.Preview != nil {
		if i == 0 {
			return p.Preview
		}
		i--
	}
	return p.Steps[i]
}

func (p *Page) Parent() TreeNode {
	if p.submodel == nil || p.submodel.doc == nil {
		return nil
	}
	return p.submodel.doc
}

func (p *Page) RowOf(child TreeNode) int { return rowOf(p, child) }

// Step: CSI, PLI, then callouts.

func (s *Step) ChildCount() int { return 2 + len(s.Callouts) }

func (s *Step) ChildAt(i int) TreeNode {
	switch i {
	case 0:
		return s.CSI
	case 1:
		return s.PLI
	}
	return s.Callouts[i-2]
}

func (s *Step) Parent() TreeNode {
	if s.callout != nil {
		return s.callout
	}
	if s.page != nil {
		return s.page
	}
	return nil
}

func (s *Step) RowOf(child TreeNode) int { return rowOf(s, child) }

func (c *CSI) ChildCount() int      { return 0 }
func (c *CSI) ChildAt(int) TreeNode { return nil }
func (c *CSI) Parent() TreeNode     { return c.step }
func (c *CSI) RowOf(TreeNode) int   { return -1 }

func (p *PLI) ChildCount() int          { return len(p.Items) }
func (p *PLI) ChildAt(i int) TreeNode   { return p.Items[i] }
func (p *PLI) Parent() TreeNode         { return p.step }
func (p *PLI) RowOf(child TreeNode) int { return rowOf(p, child) }

func (it *PLIItem) ChildCount() int      { return 0 }
func (it *PLIItem) ChildAt(int) TreeNode { return nil }
func (it *PLIItem) Parent() TreeNode     { return it.pli }
func (it *PLIItem) RowOf(TreeNode) int   { return -1 }

func (c *Callout) ChildCount() int          { return len(c.Steps) }
func (c *Callout) ChildAt(i int) TreeNode   { return c.Steps[i] }
func (c *Callout) Parent() TreeNode         { return c.step }
func (c *Callout) RowOf(child TreeNode) int { return rowOf(c, child) }

func (sp *SubmodelPreview) ChildCount() int      { return 0 }
func (sp *SubmodelPreview) ChildAt(int) TreeNode { return nil }
func (sp *SubmodelPreview) Parent() TreeNode     { return sp.page }
func (sp *SubmodelPreview) RowOf(TreeNode) int   { return -1 }

var (
	_ TreeNode = (*Document)(nil)
	_ TreeNode = (*Page)(nil)
	_ TreeNode = (*Step)(nil)
	_ TreeNode = (*CSI)(nil)
	_ TreeNode = (*PLI)(nil)
	_ TreeNode = (*PLIItem)(nil)
	_ TreeNode = (*Callout)(nil)
	_ TreeNode = (*SubmodelPreview)(nil)
)
