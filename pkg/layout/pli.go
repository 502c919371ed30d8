package layout

import (
	"math"
	"slices"

	"github.com/matzehuels/brickbook/pkg/geom"
	"github.com/matzehuels/brickbook/pkg/partgraph"
)

// LabelPadding separates a quantity label from the part image when the
// label does not fit inside the image's empty corner.
const LabelPadding = 3.0

// PLIItemLayout is the geometry of one parts-list entry, relative to its
// own top-left corner.
type PLIItemLayout struct {
	Size  geom.Size
	Part  geom.Rect
	Label geom.Rect
	// Inside is true when the label sits in the image's bottom-left inset.
	Inside bool
}

// PLIItemSize places a quantity label of size label against a measured part
// image. The label goes into the empty bottom-left corner when it fits
// there; otherwise it sits left of the image, separated by LabelPadding and
// bottom aligned with the full item height.
func PLIItemSize(m partgraph.Measurement, label geom.Size) PLIItemLayout {
	w, h := float64(m.Width), float64(m.Height)
	if label.W <= float64(m.LeftInset) && label.H <= float64(m.BottomInset) {
		return PLIItemLayout{
			Size:   geom.Size{W: w, H: h},
			Part:   geom.R(0, 0, w, h),
			Label:  geom.R(0, h-label.H, label.W, label.H),
			Inside: true,
		}
	}
	full := math.Max(h, label.H)
	return PLIItemLayout{
		Size:  geom.Size{W: label.W + LabelPadding + w, H: full},
		Part:  geom.R(label.W+LabelPadding, full-h, w, h),
		Label: geom.R(0, full-label.H, label.W, label.H),
	}
}

// PLIResult is a packed parts list. Rects is indexed like the input.
type PLIResult struct {
	Rects []geom.Rect
	Size  geom.Size
}

// LayoutPLI packs items of the given sizes with margin around and between
// them. The tallest item is placed first and fixes the height that later
// items pack into; the rest follow widest first, input order breaking ties.
// An item that fits under the previously placed one without growing the box
// is stacked there. A row wraps when the next item would push its right edge
// past maxWidth; zero disables wrapping.
func LayoutPLI(sizes []geom.Size, margin, maxWidth float64) PLIResult {
	res := PLIResult{Rects: make([]geom.Rect, len(sizes))}
	if len(sizes) == 0 {
		return res
	}

	order := make([]int, len(sizes))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case sizes[a].W > sizes[b].W:
			return -1
		case sizes[a].W < sizes[b].W:
			return 1
		}
		return 0
	})
	tallest := 0
	for i, idx := range order {
		if sizes[idx].H > sizes[order[tallest]].H {
			tallest = i
		}
	}
	anchor := order[tallest]
	order = append([]int{anchor}, slices.Delete(order, tallest, tallest+1)...)

	var (
		x, y      = margin, margin
		rowBottom float64
		boxW      float64
		boxH      float64
		last      = -1
	)
	for _, idx := range order {
		sz := sizes[idx]

		if last >= 0 {
			prev := res.Rects[last]
			under := geom.R(prev.X, prev.Bottom()+margin, sz.W, sz.H)
			if under.Right()+margin <= boxW && under.Bottom()+margin <= boxH {
				res.Rects[idx] = under
				rowBottom = math.Max(rowBottom, under.Bottom())
				last = idx
				continue
			}
		}

		if maxWidth > 0 && x > margin && x+sz.W+margin > maxWidth {
			x = margin
			y = rowBottom + margin
		}
		r := geom.R(x, y, sz.W, sz.H)
		res.Rects[idx] = r
		x = r.Right() + margin
		rowBottom = math.Max(rowBottom, r.Bottom())
		boxW = math.Max(boxW, r.Right()+margin)
		boxH = math.Max(boxH, r.Bottom()+margin)
		last = idx
	}
	res.Size = geom.Size{W: boxW, H: boxH}
	return res
}
