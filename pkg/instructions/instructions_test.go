package instructions

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/brickbook/pkg/config"
	"github.com/matzehuels/brickbook/pkg/docio"
	"github.com/matzehuels/brickbook/pkg/document"
	"github.com/matzehuels/brickbook/pkg/edit"
	"github.com/matzehuels/brickbook/pkg/errors"
	"github.com/matzehuels/brickbook/pkg/geom"
	"github.com/matzehuels/brickbook/pkg/ldraw"
	"github.com/matzehuels/brickbook/pkg/partgraph"
	"github.com/matzehuels/brickbook/pkg/render"
)

const bricks = `0 FILE 3001.dat
4 16 -40 -24 -20 40 -24 -20 40 -24 20 -40 -24 20
4 16 -40 0 -20 40 0 -20 40 0 20 -40 0 20
0 FILE 3003.dat
4 16 -20 -24 -20 20 -24 -20 20 -24 20 -20 -24 20
4 16 -20 0 -20 20 0 -20 20 0 20 -20 0 20
`

// sevenBricks has seven bricks on one layer: five 2x4 and two 2x2.
const sevenBricks = `0 FILE main.ldr
1 4 0 0 0 1 0 0 0 1 0 0 0 1 3001.dat
1 4 100 0 0 1 0 0 0 1 0 0 0 1 3001.dat
1 4 200 0 0 1 0 0 0 1 0 0 0 1 3001.dat
1 4 300 0 0 1 0 0 0 1 0 0 0 1 3001.dat
1 4 400 0 0 1 0 0 0 1 0 0 0 1 3001.dat
1 1 500 0 0 1 0 0 0 1 0 0 0 1 3003.dat
1 1 560 0 0 1 0 0 0 1 0 0 0 1 3003.dat
` + bricks

// car uses a wheel submodel on top of a brick.
const car = `0 FILE car.ldr
1 4 0 0 0 1 0 0 0 1 0 0 0 1 3001.dat
1 16 0 -24 0 1 0 0 0 1 0 0 0 1 wheel.ldr
0 FILE wheel.ldr
1 1 0 0 0 1 0 0 0 1 0 0 0 1 3003.dat
1 1 40 0 0 1 0 0 0 1 0 0 0 1 3003.dat
` + bricks

// boxMeasurer sizes a scene from its bounds instead of rasterizing it.
type boxMeasurer struct {
	unit float64
}

func (m boxMeasurer) Measure(ctx context.Context, scene render.Scene, view partgraph.View, size int) (render.Result, bool, error) {
	if err := ctx.Err(); err != nil {
		return render.Result{}, false, err
	}
	if scene.Empty() {
		return render.Result{}, true, nil
	}
	b := scene.Bounds
	dz := b.Max.Z - b.Min.Z
	w := int(math.Ceil((b.Max.X - b.Min.X + dz) * view.Scale * m.unit))
	h := int(math.Ceil((b.Max.Y - b.Min.Y + dz/2) * view.Scale * m.unit))
	return render.Result{Width: w, Height: h}, w < size && h < size, nil
}

func newInstructions(t *testing.T, cfg *config.Config, opts ...Option) *Instructions {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
	}
	opts = append([]Option{
		WithConfig(cfg),
		WithResolver(ldraw.NewDirResolver("", t.TempDir())),
	}, opts...)
	in, err := New(opts...)
	require.NoError(t, err)
	return in
}

func withMeasurer(m render.Measurer) Option {
	return WithRenderCache(render.NewCache(m))
}

func importString(t *testing.T, in *Instructions, name, model string) {
	t.Helper()
	require.NoError(t, in.ImportReader(context.Background(), name, strings.NewReader(model), nil))
}

func encode(t *testing.T, d *document.Document) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, docio.Write(&buf, d))
	return buf.Bytes()
}

func TestImportSplitsLayer(t *testing.T) {
	in := newInstructions(t, nil)
	importString(t, in, "main.ldr", sevenBricks)

	d := in.Document()
	require.NotNil(t, d)
	require.NoError(t, d.CheckNumbering())
	pages := d.Pages()
	require.Len(t, pages, 2)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, 2, pages[1].Number)

	first, second := pages[0].Steps[0], pages[1].Steps[0]
	require.Len(t, first.Parts, 5)
	for _, pi := range first.Parts {
		assert.Equal(t, "3001.dat", pi.Name())
	}
	require.Len(t, second.Parts, 2)
	assert.Equal(t, []int{1, 2}, []int{first.Number, second.Number})
	require.Len(t, first.PLI.Items, 1)
	assert.Equal(t, 5, first.PLI.Items[0].Quantity)

	for _, s := range []*document.Step{first, second} {
		assert.False(t, s.CSI.Rect.IsEmpty(), "step %d CSI", s.Number)
		assert.NotEmpty(t, s.CSI.Key)
		assert.True(t, geom.R(0, 0, d.PageSize.W, d.PageSize.H).Contains(s.Rect))
	}
	assert.Same(t, first.CSI, second.CSI.Prev)
	assert.Empty(t, in.Warnings())

	st := in.Stats()
	assert.Equal(t, 2, st.Pages)
	assert.Equal(t, 2, st.Steps)
	assert.Equal(t, 2, st.Parts)
	assert.False(t, in.Modified())
}

func TestImportProgress(t *testing.T) {
	in := newInstructions(t, nil, withMeasurer(boxMeasurer{unit: 1}))

	type call struct {
		step, total int
		label       string
	}
	var calls []call
	err := in.ImportReader(context.Background(), "main.ldr", strings.NewReader(sevenBricks),
		func(step, total int, label string) bool {
			calls = append(calls, call{step, total, label})
			return true
		})
	require.NoError(t, err)

	require.Len(t, calls, 5)
	for i, c := range calls {
		assert.Equal(t, i+1, c.step)
		assert.LessOrEqual(t, c.step, c.total)
	}
	last := calls[len(calls)-1]
	assert.Equal(t, last.total, last.step)
	assert.Equal(t, "layout page 2", last.label)
}

func TestImportCancel(t *testing.T) {
	t.Run("progress", func(t *testing.T) {
		in := newInstructions(t, nil, withMeasurer(boxMeasurer{unit: 1}))
		importString(t, in, "car.ldr", car)
		require.NotNil(t, in.Document())

		n := 0
		err := in.ImportReader(context.Background(), "main.ldr", strings.NewReader(sevenBricks),
			func(int, int, string) bool {
				n++
				return n < 3
			})
		assert.True(t, errors.Is(err, errors.ErrCodeCanceled), "got %v", err)
		assert.Equal(t, 3, n)
		assert.Nil(t, in.Document())
		assert.Nil(t, in.History())
	})

	t.Run("context", func(t *testing.T) {
		in := newInstructions(t, nil, withMeasurer(boxMeasurer{unit: 1}))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := in.ImportReader(ctx, "main.ldr", strings.NewReader(sevenBricks), nil)
		assert.True(t, errors.Is(err, errors.ErrCodeCanceled), "got %v", err)
		assert.Nil(t, in.Document())
	})
}

func TestImportErrors(t *testing.T) {
	in := newInstructions(t, nil, withMeasurer(boxMeasurer{unit: 1}))

	err := in.ImportReader(context.Background(), "bad.ldr", strings.NewReader("1 4 0 0\n"), nil)
	assert.True(t, errors.Is(err, errors.ErrCodeParse), "got %v", err)
	assert.Nil(t, in.Document())

	err = in.ImportModel(context.Background(), filepath.Join(t.TempDir(), "nope.ldr"), nil)
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound), "got %v", err)
}

func TestImportModelFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.ldr")
	model := strings.Replace(sevenBricks, "1 1 560 0 0 1 0 0 0 1 0 0 0 1 3003.dat\n",
		"1 1 560 0 0 1 0 0 0 1 0 0 0 1 3003.dat\n1 2 700 0 0 1 0 0 0 1 0 0 0 1 9999.dat\n", 1)
	require.NoError(t, os.WriteFile(path, []byte(model), 0o644))

	in := newInstructions(t, nil, withMeasurer(boxMeasurer{unit: 1}))
	require.NoError(t, in.ImportModel(context.Background(), path, nil))

	require.Len(t, in.Missing(), 1)
	assert.Equal(t, "9999.dat", in.Missing()[0].Name)
	assert.Equal(t, 1, in.Stats().Missing)
	require.NoError(t, in.Document().CheckNumbering())
}

func TestImportKeepSteps(t *testing.T) {
	model := `0 FILE main.ldr
1 4 0 0 0 1 0 0 0 1 0 0 0 1 3001.dat
1 4 0 -24 0 1 0 0 0 1 0 0 0 1 3001.dat
0 STEP
1 1 0 -48 0 1 0 0 0 1 0 0 0 1 3003.dat
0 STEP
` + bricks
	cfg := &config.Config{
		Page:   config.Page{Separators: true},
		Import: config.Import{KeepSteps: true, StepsPerPage: 2},
	}
	in := newInstructions(t, cfg, withMeasurer(boxMeasurer{unit: 1}))
	importString(t, in, "main.ldr", model)

	pages := in.Document().Pages()
	require.Len(t, pages, 1)
	require.Len(t, pages[0].Steps, 2)
	assert.Len(t, pages[0].Steps[0].Parts, 2)
	assert.Len(t, pages[0].Steps[1].Parts, 1)
	assert.NotEmpty(t, pages[0].Separators)
}

func TestImportSubmodelPreview(t *testing.T) {
	in := newInstructions(t, nil, withMeasurer(boxMeasurer{unit: 1}))
	importString(t, in, "car.ldr", car)

	d := in.Document()
	require.Len(t, d.Main.Children, 1)
	wheel := d.Main.Children[0]
	assert.Equal(t, "wheel.ldr", wheel.Name())

	pages := d.Pages()
	require.NotEmpty(t, pages)
	assert.Same(t, wheel, pages[0].Submodel())
	require.NotNil(t, pages[0].Preview)
	assert.Same(t, wheel, pages[0].Preview.Submodel)
	assert.InDelta(t, 1.0, pages[0].Preview.Scale, 1e-9)
	assert.False(t, pages[0].Preview.Rect.IsEmpty())
	assert.Equal(t, 2, in.Stats().Submodels)
}

func TestPreviewShrinks(t *testing.T) {
	cfg := &config.Config{
		Page:   config.Page{Width: 300, Height: 400},
		Layout: config.Layout{PreviewScale: 3},
	}
	in := newInstructions(t, cfg, withMeasurer(boxMeasurer{unit: 1}))
	importString(t, in, "car.ldr", car)

	d := in.Document()
	p := d.Pages()[0]
	require.NotNil(t, p.Preview)
	assert.Less(t, p.Preview.Scale, 3.0)
	assert.GreaterOrEqual(t, p.Preview.Scale, 0.2)
	assert.True(t, geom.R(0, 0, 300, 400).Contains(p.Preview.Rect))

	// Layout is a pure function of the document.
	before := encode(t, d)
	require.NoError(t, in.Relayout(context.Background()))
	assert.Equal(t, before, encode(t, d))
}

func TestPreviewShrinkStopsAtFloor(t *testing.T) {
	cfg := &config.Config{Page: config.Page{Width: 300, Height: 300}}
	in := newInstructions(t, cfg, withMeasurer(boxMeasurer{unit: 10}))
	importString(t, in, "car.ldr", car)

	p := in.Document().Pages()[0]
	require.NotNil(t, p.Preview)
	assert.InDelta(t, 0.2, p.Preview.Scale, 1e-9)

	var unresolved int
	for _, w := range in.Warnings() {
		if errors.Is(w, errors.ErrCodeOverlapUnresolvable) {
			unresolved++
		}
	}
	assert.Positive(t, unresolved)
}

func TestLockedPageKeepsLayout(t *testing.T) {
	in := newInstructions(t, nil, withMeasurer(boxMeasurer{unit: 1}))
	importString(t, in, "main.ldr", sevenBricks)
	ctx := context.Background()
	p := in.Document().Pages()[0]
	s := p.Steps[0]

	require.NoError(t, in.Do(ctx, &edit.LockPage{Page: p, Locked: true}))
	require.NoError(t, in.Do(ctx, &edit.MoveItem{Node: s, To: geom.Point{X: 3, Y: 4}}))
	require.NoError(t, in.Relayout(ctx))
	assert.Equal(t, 3.0, s.Rect.X)
	assert.Equal(t, 4.0, s.Rect.Y)
	assert.True(t, in.Modified())

	require.NoError(t, in.Undo(ctx))
	require.NoError(t, in.Undo(ctx))
	require.NoError(t, in.Relayout(ctx))
	assert.NotEqual(t, geom.Point{X: 3, Y: 4}, geom.Point{X: s.Rect.X, Y: s.Rect.Y})
}

func TestEditRelayoutAndUndo(t *testing.T) {
	in := newInstructions(t, nil, withMeasurer(boxMeasurer{unit: 1}))
	importString(t, in, "main.ldr", sevenBricks)
	ctx := context.Background()
	d := in.Document()
	before := encode(t, d)

	second := d.Pages()[1].Steps[0]
	require.NoError(t, in.Do(ctx, &edit.DeleteStep{Step: second}))
	require.Len(t, d.Pages(), 1)
	merged := d.Pages()[0].Steps[0]
	assert.Len(t, merged.Parts, 7)
	assert.Len(t, merged.PLI.Items, 2)
	assert.False(t, merged.PLI.Items[1].Rect.IsEmpty())
	after := encode(t, d)

	require.NoError(t, in.Undo(ctx))
	assert.Equal(t, before, encode(t, d))
	require.NoError(t, in.Redo(ctx))
	assert.Equal(t, after, encode(t, d))
}

func TestDisplaceChangesCSIKey(t *testing.T) {
	in := newInstructions(t, nil, withMeasurer(boxMeasurer{unit: 1}))
	importString(t, in, "main.ldr", sevenBricks)
	ctx := context.Background()
	s := in.Document().Pages()[1].Steps[0]
	key := s.CSI.Key

	require.NoError(t, in.Do(ctx, &edit.DisplacePart{Part: s.Parts[0], Direction: partgraph.DirectionUp}))
	assert.NotEqual(t, key, s.CSI.Key)

	require.NoError(t, in.Undo(ctx))
	assert.Equal(t, key, s.CSI.Key)
}

func TestSaveAndLoad(t *testing.T) {
	in := newInstructions(t, nil, withMeasurer(boxMeasurer{unit: 1}))
	importString(t, in, "car.ldr", car)
	ctx := context.Background()
	require.NoError(t, in.Do(ctx, &edit.LockPage{Page: in.Document().Pages()[0], Locked: true}))
	require.True(t, in.Modified())

	path := filepath.Join(t.TempDir(), "car.brkb")
	require.NoError(t, in.Save(path))
	assert.False(t, in.Modified())
	saved := encode(t, in.Document())

	other := newInstructions(t, nil, withMeasurer(boxMeasurer{unit: 1}))
	require.NoError(t, other.Load(path))
	assert.Equal(t, saved, encode(t, other.Document()))
	assert.Equal(t, in.Document().ID, other.Document().ID)
	assert.False(t, other.History().CanUndo())
}

func TestNoDocument(t *testing.T) {
	in := newInstructions(t, nil)
	ctx := context.Background()
	for name, err := range map[string]error{
		"do":       in.Do(ctx, &edit.AddStep{}),
		"undo":     in.Undo(ctx),
		"redo":     in.Redo(ctx),
		"relayout": in.Relayout(ctx),
		"save":     in.Save(filepath.Join(t.TempDir(), "x.brkb")),
	} {
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "%s: %v", name, err)
	}
	assert.False(t, in.Modified())
}

func TestListenerSeesEdits(t *testing.T) {
	var kinds []string
	in := newInstructions(t, nil,
		withMeasurer(boxMeasurer{unit: 1}),
		WithListener(edit.ListenerFuncs{Changed: func(cmd edit.Command) { kinds = append(kinds, cmd.Kind()) }}))
	importString(t, in, "main.ldr", sevenBricks)
	ctx := context.Background()

	require.NoError(t, in.Do(ctx, &edit.LockPage{Page: in.Document().Pages()[0], Locked: true}))
	require.NoError(t, in.Undo(ctx))
	require.Len(t, kinds, 2)
	assert.Equal(t, kinds[0], kinds[1])
}
