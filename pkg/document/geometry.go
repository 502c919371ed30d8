package document

import (
	"slices"

	"github.com/matzehuels/brickbook/pkg/geom"
	"github.com/matzehuels/brickbook/pkg/partgraph"
)

type itemGeometry struct {
	part                  *partgraph.AbstractPart
	color                 int
	rect, partRect, label geom.Rect
}

type nodeGeometry struct {
	rect   geom.Rect
	aux    geom.Rect
	lines  []geom.Line
	scale  float64
	locked bool
	key    string
	pixels []byte
	items  []itemGeometry
}

// Geometry is a snapshot of every layout field in the document: rects,
// separators, arrows, scales, render keys and parts-list item placement.
// Page and step structure is not part of it.
type Geometry map[TreeNode]nodeGeometry

// Geometry captures the current layout.
func (d *Document) Geometry() Geometry {
	g := make(Geometry)
	for _, sm := range d.Submodels() {
		for _, p := range sm.Pages {
			g[p] = nodeGeometry{rect: p.Rect, aux: p.NumberRect, lines: slices.Clone(p.Separators), locked: p.Locked}
			if p.Preview != nil {
				g[p.Preview] = nodeGeometry{rect: p.Preview.Rect, scale: p.Preview.Scale}
			}
			for _, s := range p.Steps {
				g.captureStep(s)
			}
		}
	}
	return g
}

func (g Geometry) captureStep(s *Step) {
	g[s] = nodeGeometry{rect: s.Rect, aux: s.NumberRect}
	g[s.CSI] = nodeGeometry{rect: s.CSI.Rect, scale: s.CSI.View.Scale, key: s.CSI.Key, pixels: s.CSI.Pixels}
	pg := nodeGeometry{rect: s.PLI.Rect}
	for _, it := range s.PLI.Items {
		pg.items = append(pg.items, itemGeometry{
			part: it.Part, color: it.Color, rect: it.Rect, partRect: it.PartRect, label: it.LabelRect,
		})
	}
	g[s.PLI] = pg
	for _, c := range s.Callouts {
		g[c] = nodeGeometry{rect: c.Rect, lines: []geom.Line{c.Arrow}}
		for _, cs := range c.Steps {
			g.captureStep(cs)
		}
	}
}

// Restore writes a snapshot back. Nodes absent from the snapshot keep
// their current geometry.
func (d *Document) Restore(g Geometry) {
	for n, ng := range g {
		switch v := n.(type) {
		case *Page:
			v.Rect, v.NumberRect, v.Separators, v.Locked = ng.rect, ng.aux, slices.Clone(ng.lines), ng.locked
		case *SubmodelPreview:
			v.Rect, v.Scale = ng.rect, ng.scale
		case *Step:
			v.Rect, v.NumberRect = ng.rect, ng.aux
		case *CSI:
			v.Rect, v.View.Scale, v.Key, v.Pixels = ng.rect, ng.scale, ng.key, ng.pixels
		case *PLI:
			v.Rect = ng.rect
			restoreItems(v, ng.items)
		case *Callout:
			v.Rect = ng.rect
			if len(ng.lines) > 0 {
				v.Arrow = ng.lines[0]
			}
		}
	}
}

// restoreItems reapplies item geometry by (part, color) and restores the
// snapshot order for items present in both.
func restoreItems(p *PLI, items []itemGeometry) {
	rank := make(map[*PLIItem]int, len(p.Items))
	for _, it := range p.Items {
		rank[it] = len(items) + len(rank)
		for i, ig := range items {
			if ig.part == it.Part && ig.color == it.Color {
				it.Rect, it.PartRect, it.LabelRect = ig.rect, ig.partRect, ig.label
				rank[it] = i
				break
			}
		}
	}
	slices.SortStableFunc(p.Items, func(a, b *PLIItem) int { return rank[a] - rank[b] })
}
