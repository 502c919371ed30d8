// Package splitter partitions the parts of a submodel into construction
// steps using a deterministic "build by horizontal layer" rule.
//
// Parts are ordered bottom-up: the part whose top face is lowest comes
// first, then back-to-front, then left-to-right, and finally by instance ID
// so that no two parts ever compare equal. The front of that order is a
// layer: the run of parts whose tops and heights match the first part within
// tolerance. Each iteration turns (part of) one layer into one step:
//
//   - a layer larger than MaxPerStep keeps only its most common part, the
//     rest go back to the pool;
//   - a single-part layer grows upwards with parts that sit directly on top
//     of it, and a part stacked straight on the previous one is pulled up
//     for an exploded view instead of getting its own step;
//   - any other layer becomes a step as is.
//
// Split never mutates its input and returns the same groups for the same
// input on every run.
package splitter

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/brickbook/pkg/geom"
	"github.com/matzehuels/brickbook/pkg/partgraph"
)

// Defaults. The tolerances are in LDraw units.
const (
	DefaultTopTolerance    = 6.0
	DefaultHeightTolerance = 4.0
	DefaultStackTolerance  = 4.0
	DefaultAlignTolerance  = 4.0
	DefaultMaxPerStep      = 5
)

// Options configures the layer rule.
type Options struct {
	// TopTolerance is how far tops may differ within one layer.
	TopTolerance float64
	// HeightTolerance is how far vertical extents may differ within one layer.
	HeightTolerance float64
	// StackTolerance is how far a part's bottom may be from the previous
	// part's top for the part to count as resting on it.
	StackTolerance float64
	// AlignTolerance is how far X/Z centers may differ for two parts to be
	// considered stacked straight on each other.
	AlignTolerance float64
	// MaxPerStep caps the number of parts in one step.
	MaxPerStep int
}

// DefaultOptions returns the standard tolerances.
func DefaultOptions() Options {
	return Options{
		TopTolerance:    DefaultTopTolerance,
		HeightTolerance: DefaultHeightTolerance,
		StackTolerance:  DefaultStackTolerance,
		AlignTolerance:  DefaultAlignTolerance,
		MaxPerStep:      DefaultMaxPerStep,
	}
}

// withDefaults fills zero fields.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TopTolerance <= 0 {
		o.TopTolerance = d.TopTolerance
	}
	if o.HeightTolerance <= 0 {
		o.HeightTolerance = d.HeightTolerance
	}
	if o.StackTolerance <= 0 {
		o.StackTolerance = d.StackTolerance
	}
	if o.AlignTolerance <= 0 {
		o.AlignTolerance = d.AlignTolerance
	}
	if o.MaxPerStep <= 0 {
		o.MaxPerStep = d.MaxPerStep
	}
	return o
}

// Group is the content of one step.
type Group struct {
	Parts []*partgraph.PartInstance
	// Displaced lists the parts of Parts that should be shown pulled up,
	// because they sit straight on top of the previous part of the group.
	Displaced []*partgraph.PartInstance
}

// item caches the geometry used for ordering.
type item struct {
	inst   *partgraph.PartInstance
	top    float64
	bottom float64
	height float64
	center r3.Vec
}

func newItem(pi *partgraph.PartInstance) item {
	b := pi.Bounds()
	if geom.IsEmpty(b) {
		o := pi.Matrix.Offset()
		b = r3.Box{Min: o, Max: o}
	}
	return item{
		inst:   pi,
		top:    geom.Top(b),
		bottom: geom.Bottom(b),
		height: geom.Height(b),
		center: geom.Center(b),
	}
}

// compareItems is the total build order.
func compareItems(a, b item) int {
	if c := cmp.Compare(a.top, b.top); c != 0 {
		return c
	}
	if c := cmp.Compare(a.center.Z, b.center.Z); c != 0 {
		return c
	}
	if c := cmp.Compare(a.center.X, b.center.X); c != 0 {
		return c
	}
	if c := cmp.Compare(a.inst.Name(), b.inst.Name()); c != 0 {
		return c
	}
	return cmp.Compare(a.inst.ID, b.inst.ID)
}

// Split partitions parts into ordered step groups. An empty input yields no
// groups.
func Split(parts []*partgraph.PartInstance, opts Options) []Group {
	opts = opts.withDefaults()

	pool := make([]item, len(parts))
	for i, p := range parts {
		pool[i] = newItem(p)
	}

	var groups []Group
	for len(pool) > 0 {
		slices.SortFunc(pool, compareItems)

		layer := layerLen(pool, opts)
		var g Group
		switch {
		case layer > opts.MaxPerStep:
			var rest []item
			g.Parts, rest = mostFrequent(pool[:layer], opts.MaxPerStep)
			pool = append(rest, pool[layer:]...)
		case layer == 1:
			var n int
			g, n = extendSingleton(pool, opts)
			pool = pool[n:]
		default:
			for _, it := range pool[:layer] {
				g.Parts = append(g.Parts, it.inst)
			}
			pool = pool[layer:]
		}
		groups = append(groups, g)
	}
	return groups
}

// layerLen returns the length of the layer at the front of a sorted pool.
func layerLen(pool []item, opts Options) int {
	first := pool[0]
	n := 1
	for n < len(pool) {
		it := pool[n]
		if !geom.Near(it.top, first.top, opts.TopTolerance) || !geom.Near(it.height, first.height, opts.HeightTolerance) {
			break
		}
		n++
	}
	return n
}

// mostFrequent keeps up to max parts of the most common part name in layer
// and returns the others. Ties go to the lexically smaller name.
func mostFrequent(layer []item, max int) ([]*partgraph.PartInstance, []item) {
	counts := map[string]int{}
	for _, it := range layer {
		counts[it.inst.Name()]++
	}
	best := ""
	for name, c := range counts {
		if c > counts[best] || (c == counts[best] && name < best) {
			best = name
		}
	}

	var keep []*partgraph.PartInstance
	var rest []item
	for _, it := range layer {
		if it.inst.Name() == best && len(keep) < max {
			keep = append(keep, it.inst)
			continue
		}
		rest = append(rest, it)
	}
	return keep, rest
}

// extendSingleton grows a one-part layer with the parts resting on it.
// It returns the group and how many pool items it consumed.
func extendSingleton(pool []item, opts Options) (Group, int) {
	cur := pool[0]
	g := Group{Parts: []*partgraph.PartInstance{cur.inst}}
	n := 1
	for n < len(pool) && len(g.Parts) < opts.MaxPerStep {
		next := pool[n]
		if !geom.Near(next.bottom, cur.top, opts.StackTolerance) {
			break
		}
		g.Parts = append(g.Parts, next.inst)
		if geom.Near(next.center.X, cur.center.X, opts.AlignTolerance) &&
			geom.Near(next.center.Z, cur.center.Z, opts.AlignTolerance) {
			g.Displaced = append(g.Displaced, next.inst)
		}
		cur = next
		n++
	}
	return g, n
}
