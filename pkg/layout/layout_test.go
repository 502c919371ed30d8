package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/brickbook/pkg/errors"
	"github.com/matzehuels/brickbook/pkg/geom"
	"github.com/matzehuels/brickbook/pkg/partgraph"
)

func meas(w, h, left, bottom int) partgraph.Measurement {
	return partgraph.Measurement{Valid: true, Width: w, Height: h, LeftInset: left, BottomInset: bottom}
}

func TestPLIItemSize(t *testing.T) {
	label := geom.Size{W: 12, H: 10}

	t.Run("label in inset", func(t *testing.T) {
		got := PLIItemSize(meas(40, 30, 15, 12), label)
		assert.True(t, got.Inside)
		assert.Equal(t, geom.Size{W: 40, H: 30}, got.Size)
		assert.Equal(t, geom.R(0, 20, 12, 10), got.Label)
		assert.Equal(t, geom.R(0, 0, 40, 30), got.Part)
	})

	t.Run("label left with padding", func(t *testing.T) {
		got := PLIItemSize(meas(20, 50, 0, 0), label)
		assert.False(t, got.Inside)
		assert.Equal(t, geom.Size{W: 12 + LabelPadding + 20, H: 50}, got.Size)
		assert.Equal(t, geom.R(0, 40, 12, 10), got.Label)
		assert.Equal(t, geom.R(15, 0, 20, 50), got.Part)
	})

	t.Run("label taller than part", func(t *testing.T) {
		got := PLIItemSize(meas(20, 6, 0, 0), label)
		assert.Equal(t, 10.0, got.Size.H)
		assert.Equal(t, geom.R(15, 4, 20, 6), got.Part)
	})

	t.Run("inset too narrow", func(t *testing.T) {
		got := PLIItemSize(meas(40, 30, 11, 30), label)
		assert.False(t, got.Inside)
	})
}

// Two items, A x3 red and B x1 blue, both without insets.
func TestLayoutPLITwoItems(t *testing.T) {
	const margin = 5.0
	label := geom.Size{W: 12, H: 10}
	a := PLIItemSize(meas(40, 30, 0, 0), label)
	b := PLIItemSize(meas(20, 50, 0, 0), label)

	res := LayoutPLI([]geom.Size{a.Size, b.Size}, margin, 0)
	assert.Equal(t, a.Size.W+b.Size.W+3*margin, res.Size.W)
	assert.Equal(t, 50+2*margin, res.Size.H)
	// B is taller and anchors the start of the row.
	assert.Equal(t, geom.R(5, 5, 35, 50), res.Rects[1])
	assert.Equal(t, geom.R(45, 5, 55, 30), res.Rects[0])
}

func TestLayoutPLIStacksUnderAnchor(t *testing.T) {
	sizes := []geom.Size{{W: 30, H: 100}, {W: 20, H: 20}, {W: 20, H: 20}}
	res := LayoutPLI(sizes, 5, 0)
	assert.Equal(t, geom.R(5, 5, 30, 100), res.Rects[0])
	assert.Equal(t, geom.R(40, 5, 20, 20), res.Rects[1])
	assert.Equal(t, geom.R(40, 30, 20, 20), res.Rects[2])
	assert.Equal(t, geom.Size{W: 65, H: 110}, res.Size)
}

func TestLayoutPLIWraps(t *testing.T) {
	sizes := []geom.Size{
		{W: 10, H: 30}, // a
		{W: 12, H: 10}, // b
		{W: 12, H: 8},  // c
		{W: 16, H: 40}, // d, tallest
	}
	res := LayoutPLI(sizes, 2, 30)
	assert.Equal(t, geom.R(2, 2, 16, 40), res.Rects[3])
	assert.Equal(t, geom.R(2, 44, 12, 10), res.Rects[1])
	assert.Equal(t, geom.R(16, 44, 12, 8), res.Rects[2])
	assert.Equal(t, geom.R(2, 56, 10, 30), res.Rects[0])
	assert.Equal(t, geom.Size{W: 30, H: 88}, res.Size)

	for i := range res.Rects {
		for j := range i {
			assert.False(t, res.Rects[i].Intersects(res.Rects[j]), "items %d and %d overlap", i, j)
		}
	}
}

func TestLayoutPLIWrapsAfterStacking(t *testing.T) {
	sizes := []geom.Size{
		{W: 10, H: 50}, // anchor
		{W: 8, H: 10},
		{W: 8, H: 30}, // stacks under the previous item
		{W: 8, H: 15}, // too tall to stack, wraps
	}
	res := LayoutPLI(sizes, 1, 22)
	assert.Equal(t, geom.R(12, 1, 8, 10), res.Rects[1])
	assert.Equal(t, geom.R(12, 12, 8, 30), res.Rects[2])
	assert.Equal(t, geom.R(1, 52, 8, 15), res.Rects[3])
	assert.Equal(t, geom.Size{W: 21, H: 68}, res.Size)
	for i := range res.Rects {
		for j := range i {
			assert.False(t, res.Rects[i].Intersects(res.Rects[j]), "items %d and %d overlap", i, j)
		}
	}
}

func TestLayoutPLIStableOnEqualWidths(t *testing.T) {
	sizes := []geom.Size{{W: 10, H: 5}, {W: 10, H: 6}, {W: 10, H: 20}}
	res := LayoutPLI(sizes, 1, 0)
	assert.Equal(t, geom.R(1, 1, 10, 20), res.Rects[2])
	assert.Equal(t, geom.R(12, 1, 10, 5), res.Rects[0])
	assert.Equal(t, geom.R(12, 7, 10, 6), res.Rects[1])
}

func TestLayoutPLIEmpty(t *testing.T) {
	res := LayoutPLI(nil, 5, 0)
	assert.Empty(t, res.Rects)
	assert.Equal(t, geom.Size{}, res.Size)
}

func TestGridDims(t *testing.T) {
	tests := []struct{ n, cols, rows int }{
		{0, 0, 0}, {1, 1, 1}, {2, 2, 1}, {3, 2, 2}, {4, 2, 2}, {5, 3, 2}, {7, 3, 3}, {10, 4, 3},
	}
	for _, tt := range tests {
		c, r := GridDims(tt.n)
		if c != tt.cols || r != tt.rows {
			t.Errorf("GridDims(%d) = %d,%d; want %d,%d", tt.n, c, r, tt.cols, tt.rows)
		}
	}
}

func TestLayoutGrid(t *testing.T) {
	sizes := make([]geom.Size, 5)
	for i := range sizes {
		sizes[i] = geom.Size{W: 20, H: 20}
	}
	container := geom.R(0, 0, 300, 200)

	rows := LayoutGrid(sizes, container, RowMajor, 10, true)
	assert.Equal(t, geom.R(40, 40, 20, 20), rows.Rects[0])
	assert.Equal(t, geom.R(40, 140, 20, 20), rows.Rects[3])
	assert.Len(t, rows.Separators, 3)
	assert.Equal(t, geom.Line{A: geom.Point{X: 100, Y: 10}, B: geom.Point{X: 100, Y: 190}}, rows.Separators[0])

	cols := LayoutGrid(sizes, container, ColumnMajor, 10, false)
	assert.Equal(t, geom.R(40, 140, 20, 20), cols.Rects[1])
	assert.Equal(t, geom.R(140, 140, 20, 20), cols.Rects[3])
	assert.Empty(t, cols.Separators)
}

func TestLayoutCallout(t *testing.T) {
	res := LayoutCallout([]geom.Size{{W: 20, H: 10}, {W: 30, H: 20}}, true, 5)
	assert.Equal(t, geom.R(10, 5, 20, 10), res.Rects[0])
	assert.Equal(t, geom.R(5, 30, 30, 20), res.Rects[1])
	assert.Equal(t, geom.Size{W: 40, H: 55}, res.Size)

	side := LayoutCallout([]geom.Size{{W: 20, H: 10}, {W: 30, H: 20}}, false, 5)
	assert.Less(t, side.Rects[0].Right(), side.Rects[1].X)
}

func TestPlaceCalloutArrow(t *testing.T) {
	target := geom.R(0, 0, 50, 50)
	tests := []struct {
		name    string
		callout geom.Rect
		want    Side
	}{
		{"below", geom.R(0, 100, 20, 20), SideBottom},
		{"above", geom.R(0, -40, 20, 20), SideTop},
		{"left", geom.R(-40, 10, 20, 20), SideLeft},
		{"right", geom.R(100, 0, 20, 20), SideRight},
		{"below and right prefers below", geom.R(100, 100, 20, 20), SideBottom},
		{"overlapping", geom.R(10, 10, 20, 20), SideBottom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlaceCalloutArrow(tt.callout, target).Side)
		})
	}

	a := PlaceCalloutArrow(geom.R(0, 100, 20, 20), target)
	assert.Equal(t, geom.Line{A: geom.Point{X: 10, Y: 100}, B: geom.Point{X: 25, Y: 50}}, a.Line)
}

func TestCheckForLayoutOverlaps(t *testing.T) {
	page := geom.R(0, 0, 200, 200)
	ok := StepBoxes{Step: geom.R(10, 10, 100, 100), CSI: geom.R(0, 30, 100, 70), PLI: geom.R(0, 0, 60, 25), Page: page}
	assert.False(t, CheckForLayoutOverlaps(ok))

	csiOut := ok
	csiOut.CSI = geom.R(0, 30, 120, 70)
	assert.True(t, CheckForLayoutOverlaps(csiOut))

	collide := ok
	collide.PLI = geom.R(0, 0, 60, 40)
	assert.True(t, CheckForLayoutOverlaps(collide))

	offPage := ok
	offPage.Step = geom.R(150, 10, 100, 100)
	assert.True(t, CheckForLayoutOverlaps(offPage))
}

func TestShrinkToFit(t *testing.T) {
	t.Run("converges", func(t *testing.T) {
		var tried []float64
		scale, err := ShrinkToFit(1.0, 0.2, 0.2, func(s float64) bool {
			tried = append(tried, s)
			return s <= 0.5
		})
		require.NoError(t, err)
		assert.InDelta(t, 0.4, scale, 1e-9)
		assert.Len(t, tried, 4)
	})

	t.Run("floor reached", func(t *testing.T) {
		calls := 0
		scale, err := ShrinkToFit(1.0, 0.2, 0.5, func(float64) bool { calls++; return false })
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeOverlapUnresolvable))
		assert.InDelta(t, 0.6, scale, 1e-9)
		assert.Equal(t, 3, calls)
	})

	t.Run("zero step and floor terminate", func(t *testing.T) {
		calls := 0
		_, err := ShrinkToFit(1.0, 0, 0, func(float64) bool { calls++; return false })
		require.Error(t, err)
		assert.Equal(t, 5, calls)
	})
}

func TestLayoutStep(t *testing.T) {
	in := StepInput{
		Number: geom.Size{W: 10, H: 10},
		PLI:    geom.Size{W: 50, H: 20},
		CSI:    geom.Size{W: 80, H: 60},
	}
	got := LayoutStep(in, 5)
	assert.Equal(t, geom.R(15, 0, 50, 20), got.PLI)
	assert.Equal(t, geom.R(0, 25, 80, 60), got.CSI)
	assert.Equal(t, geom.Size{W: 80, H: 85}, got.Size)
	assert.False(t, got.CSI.Intersects(got.PLI))

	in.Callouts = []geom.Size{{W: 30, H: 30}}
	got = LayoutStep(in, 5)
	assert.Equal(t, geom.R(85, 25, 30, 30), got.Callouts[0])
	assert.Equal(t, SideRight, got.Arrows[0].Side)
	assert.Equal(t, geom.Size{W: 115, H: 85}, got.Size)
}

func TestLayoutPageIdempotent(t *testing.T) {
	in := PageInput{
		Page:    geom.R(0, 0, 400, 300),
		Steps:   []geom.Size{{W: 100, H: 80}, {W: 100, H: 80}},
		Preview: geom.Size{W: 50, H: 40},
		Number:  geom.Size{W: 20, H: 10},
	}
	opts := PageOptions{Margin: 10}
	first := LayoutPage(in, opts)
	assert.Equal(t, geom.R(370, 280, 20, 10), first.Number)
	assert.Equal(t, geom.R(10, 10, 50, 40), first.Preview)
	assert.Equal(t, geom.R(10, 60, 380, 210), first.Container)
	assert.Equal(t, geom.R(55, 125, 100, 80), first.Steps[0])
	assert.Equal(t, first, LayoutPage(in, opts))

	steps := []StepLayout{
		LayoutStep(StepInput{CSI: geom.Size{W: 100, H: 80}}, 10),
		LayoutStep(StepInput{CSI: geom.Size{W: 100, H: 80}}, 10),
	}
	assert.False(t, PageOverlaps(in.Page, first, steps))
}

func TestPageOverlapsWithBigPreview(t *testing.T) {
	page := geom.R(0, 0, 200, 200)
	step := LayoutStep(StepInput{CSI: geom.Size{W: 100, H: 100}}, 5)
	base := geom.Size{W: 150, H: 150}

	fits := func(scale float64) bool {
		pl := LayoutPage(PageInput{
			Page:    page,
			Steps:   []geom.Size{step.Size},
			Preview: geom.Size{W: base.W * scale, H: base.H * scale},
		}, PageOptions{Margin: 5})
		return !PageOverlaps(page, pl, []StepLayout{step})
	}
	assert.False(t, fits(1.0))

	scale, err := ShrinkToFit(1.0, DefaultShrinkStep, 0.2, fits)
	require.NoError(t, err)
	assert.True(t, fits(scale))
	assert.Less(t, scale, 1.0)

	// Idempotent: same inputs converge to the same scale.
	again, _ := ShrinkToFit(1.0, DefaultShrinkStep, 0.2, fits)
	assert.Equal(t, scale, again)
}
