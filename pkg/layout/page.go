package layout

import (
	"math"

	"github.com/matzehuels/brickbook/pkg/geom"
)

// StepInput holds the measured pieces of one step.
type StepInput struct {
	Number   geom.Size
	PLI      geom.Size
	CSI      geom.Size
	Callouts []geom.Size
}

// StepLayout places a step's pieces relative to the step's top-left corner.
type StepLayout struct {
	Size     geom.Size
	Number   geom.Rect
	PLI      geom.Rect
	CSI      geom.Rect
	Callouts []geom.Rect
	Arrows   []CalloutArrow
}

// LayoutStep puts the number and parts list in a header row, the CSI
// centered below it and callouts in a column right of the CSI.
func LayoutStep(in StepInput, margin float64) StepLayout {
	var out StepLayout

	out.Number = geom.R(0, 0, in.Number.W, in.Number.H)
	headerW, headerH := in.Number.W, in.Number.H
	if in.PLI.W > 0 && in.PLI.H > 0 {
		out.PLI = geom.R(in.Number.W+margin, 0, in.PLI.W, in.PLI.H)
		headerW = out.PLI.Right()
		headerH = math.Max(headerH, in.PLI.H)
	}

	var stackW, stackH float64
	for i, c := range in.Callouts {
		stackW = math.Max(stackW, c.W)
		if i > 0 {
			stackH += margin
		}
		stackH += c.H
	}
	bodyW := in.CSI.W
	if len(in.Callouts) > 0 {
		bodyW += margin + stackW
	}
	width := math.Max(headerW, bodyW)

	top := headerH
	if headerH > 0 {
		top += margin
	}
	out.CSI = geom.R((width-bodyW)/2, top, in.CSI.W, in.CSI.H)

	y := top
	for _, c := range in.Callouts {
		r := geom.R(out.CSI.Right()+margin, y, c.W, c.H)
		out.Callouts = append(out.Callouts, r)
		out.Arrows = append(out.Arrows, PlaceCalloutArrow(r, out.CSI))
		y = r.Bottom() + margin
	}

	out.Size = geom.Size{W: width, H: top + math.Max(in.CSI.H, stackH)}
	return out
}

// PageInput holds the sized pieces of one page.
type PageInput struct {
	Page    geom.Rect
	Steps   []geom.Size
	Preview geom.Size
	Number  geom.Size
}

// PageOptions control page layout.
type PageOptions struct {
	Margin      float64
	Orientation Orientation
	Separators  bool
}

// PageLayout places a page's pieces in page space.
type PageLayout struct {
	Container  geom.Rect
	Steps      []geom.Rect
	Separators []geom.Line
	Preview    geom.Rect
	Number     geom.Rect
}

// LayoutPage anchors the submodel preview top-left, the page number
// bottom-right and fills the rest with the step grid.
func LayoutPage(in PageInput, opts PageOptions) PageLayout {
	var out PageLayout
	m := opts.Margin
	content := in.Page.Inset(m)

	out.Number = geom.R(content.Right()-in.Number.W, content.Bottom()-in.Number.H, in.Number.W, in.Number.H)

	container := content
	if in.Number.H > 0 {
		container.H = math.Max(0, container.H-in.Number.H-m)
	}
	if in.Preview.W > 0 && in.Preview.H > 0 {
		out.Preview = geom.R(content.X, content.Y, in.Preview.W, in.Preview.H)
		shift := in.Preview.H + m
		container.Y += shift
		container.H = math.Max(0, container.H-shift)
	}
	out.Container = container

	grid := LayoutGrid(in.Steps, container, opts.Orientation, m, opts.Separators)
	out.Steps = grid.Rects
	out.Separators = grid.Separators
	return out
}

// PageOverlaps reports whether any step of a laid out page fails
// CheckForLayoutOverlaps or collides with another step or the preview.
func PageOverlaps(page geom.Rect, pl PageLayout, steps []StepLayout) bool {
	if !pl.Preview.IsEmpty() && !page.Contains(pl.Preview) {
		return true
	}
	for i, r := range pl.Steps {
		if i >= len(steps) {
			break
		}
		if CheckForLayoutOverlaps(StepBoxes{Step: r, CSI: steps[i].CSI, PLI: steps[i].PLI, Page: page}) {
			return true
		}
		if r.Intersects(pl.Preview) {
			return true
		}
		for _, o := range pl.Steps[:i] {
			if r.Intersects(o) {
				return true
			}
		}
	}
	return false
}
