package layout

import (
	"math"

	"github.com/matzehuels/brickbook/pkg/geom"
)

// Orientation is the fill order of a grid.
type Orientation int

const (
	// RowMajor fills left to right, then top to bottom.
	RowMajor Orientation = iota
	// ColumnMajor fills top to bottom, then left to right.
	ColumnMajor
)

func (o Orientation) String() string {
	if o == ColumnMajor {
		return "column"
	}
	return "row"
}

// ParseOrientation accepts "row" or "column".
func ParseOrientation(s string) (Orientation, bool) {
	switch s {
	case "row", "horizontal", "":
		return RowMajor, true
	case "column", "vertical":
		return ColumnMajor, true
	}
	return RowMajor, false
}

// GridDims returns the near-square grid for n cells.
func GridDims(n int) (cols, rows int) {
	if n <= 0 {
		return 0, 0
	}
	cols = int(math.Ceil(math.Sqrt(float64(n))))
	rows = (n + cols - 1) / cols
	return cols, rows
}

// GridResult holds one rectangle per input item plus optional separators.
type GridResult struct {
	Rects      []geom.Rect
	Cells      []geom.Rect
	Separators []geom.Line
}

// LayoutGrid divides container into equal cells and centers one item in
// each cell, inset by margin.
func LayoutGrid(sizes []geom.Size, container geom.Rect, o Orientation, margin float64, separators bool) GridResult {
	cols, rows := GridDims(len(sizes))
	return layoutCells(sizes, container, cols, rows, o, margin, separators)
}

func layoutCells(sizes []geom.Size, container geom.Rect, cols, rows int, o Orientation, margin float64, separators bool) GridResult {
	var res GridResult
	if len(sizes) == 0 {
		return res
	}
	cw := container.W / float64(cols)
	ch := container.H / float64(rows)

	res.Rects = make([]geom.Rect, len(sizes))
	res.Cells = make([]geom.Rect, len(sizes))
	for i, sz := range sizes {
		r, c := i/cols, i%cols
		if o == ColumnMajor {
			c, r = i/rows, i%rows
		}
		cell := geom.R(container.X+float64(c)*cw, container.Y+float64(r)*ch, cw, ch).Inset(margin)
		res.Cells[i] = cell
		res.Rects[i] = geom.R(cell.X+(cell.W-sz.W)/2, cell.Y+(cell.H-sz.H)/2, sz.W, sz.H)
	}

	if separators {
		for c := 1; c < cols; c++ {
			x := container.X + float64(c)*cw
			res.Separators = append(res.Separators, geom.Line{
				A: geom.Point{X: x, Y: container.Y + margin},
				B: geom.Point{X: x, Y: container.Bottom() - margin},
			})
		}
		for r := 1; r < rows; r++ {
			y := container.Y + float64(r)*ch
			res.Separators = append(res.Separators, geom.Line{
				A: geom.Point{X: container.X + margin, Y: y},
				B: geom.Point{X: container.Right() - margin, Y: y},
			})
		}
	}
	return res
}
