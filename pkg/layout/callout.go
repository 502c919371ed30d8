package layout

import (
	"math"

	"github.com/matzehuels/brickbook/pkg/geom"
)

// CalloutResult holds step rectangles relative to the callout's top-left
// corner and the callout's own size.
type CalloutResult struct {
	Rects []geom.Rect
	Size  geom.Size
}

// LayoutCallout stacks callout steps in one column (vertical) or one row,
// each in an equal cell, and wraps them with margin.
func LayoutCallout(sizes []geom.Size, vertical bool, margin float64) CalloutResult {
	var res CalloutResult
	n := len(sizes)
	if n == 0 {
		return res
	}
	var maxW, maxH float64
	for _, s := range sizes {
		maxW = math.Max(maxW, s.W)
		maxH = math.Max(maxH, s.H)
	}
	cw, ch := maxW+2*margin, maxH+2*margin

	cols, rows := n, 1
	container := geom.R(0, 0, cw*float64(n), ch)
	if vertical {
		cols, rows = 1, n
		container = geom.R(0, 0, cw, ch*float64(n))
	}
	grid := layoutCells(sizes, container, cols, rows, RowMajor, margin, false)

	var bounds geom.Rect
	for _, r := range grid.Rects {
		bounds = bounds.Union(r)
	}
	// Shift so the outer margin starts at the origin.
	dx, dy := margin-bounds.X, margin-bounds.Y
	res.Rects = make([]geom.Rect, n)
	for i, r := range grid.Rects {
		res.Rects[i] = r.Translate(dx, dy)
	}
	res.Size = geom.Size{W: bounds.W + 2*margin, H: bounds.H + 2*margin}
	return res
}

// Side is the edge of a CSI a callout arrow points at.
type Side int

const (
	SideBottom Side = iota
	SideTop
	SideLeft
	SideRight
)

func (s Side) String() string {
	return [...]string{"bottom", "top", "left", "right"}[s]
}

// CalloutArrow is a straight arrow from the callout's edge midpoint to the
// facing edge midpoint of the target.
type CalloutArrow struct {
	Line geom.Line
	Side Side
}

// PlaceCalloutArrow picks the first valid side in the order below, above,
// left, right. A callout overlapping its target gets the below arrow.
func PlaceCalloutArrow(callout, target geom.Rect) CalloutArrow {
	cc, tc := callout.Center(), target.Center()
	switch {
	case callout.Y >= target.Bottom():
		return CalloutArrow{
			Line: geom.Line{A: geom.Point{X: cc.X, Y: callout.Y}, B: geom.Point{X: tc.X, Y: target.Bottom()}},
			Side: SideBottom,
		}
	case callout.Bottom() <= target.Y:
		return CalloutArrow{
			Line: geom.Line{A: geom.Point{X: cc.X, Y: callout.Bottom()}, B: geom.Point{X: tc.X, Y: target.Y}},
			Side: SideTop,
		}
	case callout.Right() <= target.X:
		return CalloutArrow{
			Line: geom.Line{A: geom.Point{X: callout.Right(), Y: cc.Y}, B: geom.Point{X: target.X, Y: tc.Y}},
			Side: SideLeft,
		}
	case callout.X >= target.Right():
		return CalloutArrow{
			Line: geom.Line{A: geom.Point{X: callout.X, Y: cc.Y}, B: geom.Point{X: target.Right(), Y: tc.Y}},
			Side: SideRight,
		}
	}
	return CalloutArrow{
		Line: geom.Line{A: geom.Point{X: cc.X, Y: callout.Y}, B: geom.Point{X: tc.X, Y: target.Bottom()}},
		Side: SideBottom,
	}
}
