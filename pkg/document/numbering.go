package document

import (
	"cmp"
	"slices"

	"github.com/matzehuels/brickbook/pkg/errors"
	"github.com/matzehuels/brickbook/pkg/partgraph"
)

// Pages returns every page in numbering order.
func (d *Document) Pages() []*Page {
	var out []*Page
	if d.Main != nil {
		walkPages(d.Main, func(p *Page) { out = append(out, p) })
	}
	return out
}

// Submodels returns the main model and every nested submodel, parents
// before children.
func (d *Document) Submodels() []*Submodel {
	var out []*Submodel
	var visit func(sm *Submodel)
	visit = func(sm *Submodel) {
		out = append(out, sm)
		for _, c := range sm.Children {
			visit(c)
		}
	}
	if d.Main != nil {
		visit(d.Main)
	}
	return out
}

func walkPages(sm *Submodel, visit func(*Page)) {
	uses := sm.firstUses()
	for _, c := range sm.Children {
		if _, used := uses[c]; !used {
			walkPages(c, visit)
		}
	}
	for i, p := range sm.Pages {
		for _, c := range sm.usedFirstOn(uses, i) {
			walkPages(c, visit)
		}
		visit(p)
	}
}

type use struct {
	page, order int
}

// firstUses maps each child submodel to the page index and appearance rank
// of its first instance.
func (sm *Submodel) firstUses() map[*Submodel]use {
	byPart := make(map[*partgraph.AbstractPart]*Submodel, len(sm.Children))
	for _, c := range sm.Children {
		byPart[c.Part] = c
	}
	uses := make(map[*Submodel]use)
	if len(byPart) == 0 {
		return uses
	}
	order := 0
	var scan func(s *Step, page int)
	scan = func(s *Step, page int) {
		for _, pi := range s.Parts {
			if c, ok := byPart[pi.Part]; ok {
				if _, seen := uses[c]; !seen {
					uses[c] = use{page: page, order: order}
					order++
				}
			}
		}
		for _, co := range s.Callouts {
			for _, cs := range co.Steps {
				scan(cs, page)
			}
		}
	}
	for i, p := range sm.Pages {
		for _, s := range p.Steps {
			scan(s, i)
		}
	}
	return uses
}

func (sm *Submodel) usedFirstOn(uses map[*Submodel]use, page int) []*Submodel {
	var out []*Submodel
	for _, c := range sm.Children {
		if u, ok := uses[c]; ok && u.page == page {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b *Submodel) int {
		return cmp.Compare(uses[a].order, uses[b].order)
	})
	return out
}

// SyncPageNumbers assigns 1..N in walk order.
func (d *Document) SyncPageNumbers() {
	for i, p := range d.Pages() {
		p.Number = i + 1
	}
}

// SyncStepNumbers numbers steps 1..k per submodel and per callout and
// relinks each CSI to its predecessor.
func (d *Document) SyncStepNumbers() {
	for _, sm := range d.Submodels() {
		numberSteps(sm.OrderedSteps())
	}
}

func numberSteps(steps []*Step) {
	var prev *CSI
	for i, s := range steps {
		s.Number = i + 1
		s.CSI.Prev = prev
		prev = s.CSI
		for _, c := range s.Callouts {
			numberSteps(c.Steps)
		}
	}
}

// SyncPLIs rebuilds every parts list from its step's parts.
func (d *Document) SyncPLIs() {
	for _, sm := range d.Submodels() {
		for _, s := range sm.OrderedSteps() {
			syncStepPLIs(s)
		}
	}
}

func syncStepPLIs(s *Step) {
	s.SyncPLI()
	for _, c := range s.Callouts {
		for _, cs := range c.Steps {
			syncStepPLIs(cs)
		}
	}
}

// SyncPLI makes the parts list hold one item per distinct (part, color)
// with its count. Surviving items keep their identity and geometry.
func (s *Step) SyncPLI() {
	type key struct {
		part  *partgraph.AbstractPart
		color int
	}
	existing := make(map[key]*PLIItem, len(s.PLI.Items))
	for _, it := range s.PLI.Items {
		existing[key{it.Part, it.Color}] = it
	}
	var items []*PLIItem
	index := make(map[key]*PLIItem)
	for _, pi := range s.Parts {
		if pi.Part == nil {
			continue
		}
		k := key{pi.Part, pi.Color}
		if it, ok := index[k]; ok {
			it.Quantity++
			continue
		}
		it := existing[k]
		if it == nil {
			it = &PLIItem{Part: pi.Part, Color: pi.Color, pli: s.PLI}
		}
		it.Quantity = 1
		index[k] = it
		items = append(items, it)
	}
	s.PLI.Items = items
}

// Sync restores every derived invariant and clears the dirty flag.
func (d *Document) Sync() {
	d.SyncPLIs()
	d.SyncStepNumbers()
	d.SyncPageNumbers()
	d.dirty = false
}

// CheckNumbering verifies page and step numbering, CSI links and that no
// page is empty.
func (d *Document) CheckNumbering() error {
	if d.dirty {
		return errors.New(errors.ErrCodeNumberingInvariant, "document not resynced")
	}
	for i, p := range d.Pages() {
		if p.Number != i+1 {
			return errors.New(errors.ErrCodeNumberingInvariant, "page at position %d numbered %d", i+1, p.Number)
		}
		if p.Empty() {
			return errors.New(errors.ErrCodeNumberingInvariant, "page %d is empty", p.Number)
		}
	}
	for _, sm := range d.Submodels() {
		if err := checkSteps(sm.Name(), sm.OrderedSteps()); err != nil {
			return err
		}
	}
	return nil
}

func checkSteps(owner string, steps []*Step) error {
	var prev *CSI
	for i, s := range steps {
		if s.Number != i+1 {
			return errors.New(errors.ErrCodeNumberingInvariant, "%s: step at position %d numbered %d", owner, i+1, s.Number)
		}
		if s.CSI.Prev != prev {
			return errors.New(errors.ErrCodeNumberingInvariant, "%s: step %d links the wrong previous CSI", owner, s.Number)
		}
		prev = s.CSI
		for _, c := range s.Callouts {
			if err := checkSteps(owner+" callout", c.Steps); err != nil {
				return err
			}
		}
	}
	return nil
}
