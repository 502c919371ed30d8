package render

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/brickbook/pkg/cache"
	"github.com/matzehuels/brickbook/pkg/errors"
	"github.com/matzehuels/brickbook/pkg/geom"
	"github.com/matzehuels/brickbook/pkg/partgraph"
)

var flat = partgraph.View{Scale: 1}

func square(reg *partgraph.Registry, name string, half float64) *partgraph.AbstractPart {
	p := reg.Define(name)
	p.Primitives = append(p.Primitives, partgraph.Primitive{
		Kind: partgraph.PrimitiveQuad,
		Points: []r3.Vec{
			{X: -half, Y: -half}, {X: half, Y: -half}, {X: half, Y: half}, {X: -half, Y: half},
		},
	})
	return p
}

func TestRasterizerSquare(t *testing.T) {
	p := square(partgraph.NewRegistry(), "sq.dat", 20)

	res, fits, err := NewRasterizer().Measure(context.Background(), PartScene(p), flat, 128)
	require.NoError(t, err)
	assert.True(t, fits)
	assert.Equal(t, 40, res.Width)
	assert.Equal(t, 40, res.Height)
	assert.InDelta(t, 0, res.CenterOffset.X, 0.5)
	assert.InDelta(t, 0, res.CenterOffset.Y, 0.5)
	assert.Zero(t, res.LeftInset)
	assert.Zero(t, res.BottomInset)
}

func TestRasterizerInsets(t *testing.T) {
	p := partgraph.NewRegistry().Define("wedge.dat")
	// Right angle at the top right; the bottom-left corner is empty.
	p.Primitives = []partgraph.Primitive{{
		Kind:   partgraph.PrimitiveTriangle,
		Points: []r3.Vec{{X: -20, Y: -20}, {X: 20, Y: -20}, {X: 20, Y: 20}},
	}}
	res, fits, err := NewRasterizer().Measure(context.Background(), PartScene(p), flat, 128)
	require.NoError(t, err)
	assert.True(t, fits)
	assert.Greater(t, res.LeftInset, 30)
	assert.Greater(t, res.BottomInset, 30)
}

func TestRasterizerOverlappingFacesDoNotCancel(t *testing.T) {
	p := partgraph.NewRegistry().Define("double.dat")
	pts := []r3.Vec{{X: -10, Y: -10}, {X: 10, Y: -10}, {X: 10, Y: 10}}
	rev := []r3.Vec{pts[0], pts[2], pts[1]}
	p.Primitives = []partgraph.Primitive{
		{Kind: partgraph.PrimitiveTriangle, Points: pts},
		{Kind: partgraph.PrimitiveTriangle, Points: rev},
	}
	img := NewRasterizer().Render(PartScene(p), flat, 64)
	// A pixel well inside the triangle.
	assert.NotZero(t, img.AlphaAt(32+6, 32-6).A)
}

func TestRasterizerEmptyScene(t *testing.T) {
	p := partgraph.NewRegistry().Define("empty.dat")
	res, fits, err := NewRasterizer().Measure(context.Background(), PartScene(p), flat, 128)
	require.NoError(t, err)
	assert.True(t, fits)
	assert.Zero(t, res.Width)
}

func TestSceneFlattensChildren(t *testing.T) {
	reg := partgraph.NewRegistry()
	sq := square(reg, "sq.dat", 5)
	model := reg.Define("model.ldr")
	model.Children = []*partgraph.PartInstance{
		reg.NewInstance(sq, 4, geom.Translation(100, 0, 0)),
		reg.NewInstance(sq, 4, geom.Identity()),
	}
	s := PartScene(model)
	assert.Len(t, s.Triangles, 4)
	assert.InDelta(t, 105, s.Bounds.Max.X, 1e-9)
	assert.Equal(t, s.Digest(), PartScene(model).Digest())
	assert.NotEqual(t, s.Digest(), PartScene(sq).Digest())
}

func TestCacheLadder(t *testing.T) {
	ctx := context.Background()
	rc := NewCache(NewRasterizer())

	// 200 LDU touches the 128 buffer and fits at 256.
	m, err := rc.Measure(ctx, PartTarget(square(partgraph.NewRegistry(), "big.dat", 100)), flat)
	require.NoError(t, err)
	assert.True(t, m.Valid)
	assert.Equal(t, 200, m.Width)
	assert.Equal(t, 2, rc.Stats().Renders)
}

func TestCacheOutOfFrameIsMemoized(t *testing.T) {
	ctx := context.Background()
	rc := NewCache(NewRasterizer())
	target := PartTarget(square(partgraph.NewRegistry(), "huge.dat", 1500))

	_, err := rc.Measure(ctx, target, flat)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeOutOfFrame))
	renders := rc.Stats().Renders
	assert.Equal(t, len(PartLadder), renders)

	_, err = rc.Measure(ctx, target, flat)
	assert.True(t, errors.Is(err, errors.ErrCodeOutOfFrame))
	assert.Equal(t, renders, rc.Stats().Renders)
}

func TestCacheMemoAndInvalidate(t *testing.T) {
	ctx := context.Background()
	rc := NewCache(NewRasterizer())
	target := PartTarget(square(partgraph.NewRegistry(), "sq.dat", 10))
	tilted := partgraph.View{Scale: 1, Rotation: [3]float64{0, 45, 0}}

	_, err := rc.Measure(ctx, target, flat)
	require.NoError(t, err)
	_, err = rc.Measure(ctx, target, flat)
	require.NoError(t, err)
	_, err = rc.Measure(ctx, target, tilted)
	require.NoError(t, err)
	assert.Equal(t, Stats{Hits: 1, Renders: 2}, rc.Stats())

	// Only the flat view is dropped.
	rc.Invalidate(KeyFor(target, flat))
	assert.Equal(t, 1, rc.Len())
	_, _ = rc.Measure(ctx, target, tilted)
	_, _ = rc.Measure(ctx, target, flat)
	assert.Equal(t, Stats{Hits: 2, Renders: 3}, rc.Stats())

	rc.InvalidateID(KindPart, target.ID)
	assert.Zero(t, rc.Len())
}

func TestMeasurePartRecordsResult(t *testing.T) {
	p := square(partgraph.NewRegistry(), "sq.dat", 10)
	p.View = flat
	rc := NewCache(NewRasterizer())

	m, err := rc.MeasurePart(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, m, p.Measurement)
	assert.Equal(t, 20, p.Measurement.Width)

	_, _ = rc.MeasurePart(context.Background(), p)
	assert.Equal(t, 1, rc.Stats().Renders)
}

func TestMeasurePartAfterGeometryEdit(t *testing.T) {
	ctx := context.Background()
	reg := partgraph.NewRegistry()
	p := square(reg, "sq.dat", 10)
	p.View = flat
	rc := NewCache(NewRasterizer())

	before, err := rc.MeasurePart(ctx, p)
	require.NoError(t, err)

	p.Primitives = nil
	square(reg, "sq.dat", 20)
	reg.ResetGeometry(p)

	after, err := rc.MeasurePart(ctx, p)
	require.NoError(t, err)
	assert.Greater(t, after.Width, before.Width)
	assert.Greater(t, after.Height, before.Height)
	assert.Equal(t, 2, rc.Stats().Renders)

	// Restoring the old shape finds the old entry again.
	p.Primitives = nil
	square(reg, "sq.dat", 10)
	reg.ResetGeometry(p)
	again, err := rc.MeasurePart(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, before, again)
	assert.Equal(t, 2, rc.Stats().Renders)
}

type countingMeasurer struct {
	inner    Measurer
	calls    atomic.Int32
	inFlight atomic.Int32
	overlap  atomic.Bool
}

func (c *countingMeasurer) Measure(ctx context.Context, s Scene, v partgraph.View, size int) (Result, bool, error) {
	if c.inFlight.Add(1) > 1 {
		c.overlap.Store(true)
	}
	defer c.inFlight.Add(-1)
	c.calls.Add(1)
	time.Sleep(time.Millisecond)
	return c.inner.Measure(ctx, s, v, size)
}

func TestCachePersistentStore(t *testing.T) {
	ctx := context.Background()
	store, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	p := square(partgraph.NewRegistry(), "sq.dat", 10)

	first := NewCache(NewRasterizer(), WithStore(store, nil, 0))
	want, err := first.Measure(ctx, PartTarget(p), flat)
	require.NoError(t, err)

	cm := &countingMeasurer{inner: NewRasterizer()}
	second := NewCache(cm, WithStore(store, nil, 0))
	got, err := second.Measure(ctx, PartTarget(p), flat)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Zero(t, cm.calls.Load())
	assert.Equal(t, 1, second.Stats().Stored)
}

func TestCacheSerializesRenders(t *testing.T) {
	ctx := context.Background()
	cm := &countingMeasurer{inner: NewRasterizer()}
	rc := NewCache(cm)
	reg := partgraph.NewRegistry()

	var wg sync.WaitGroup
	for i := range 8 {
		p := square(reg, string(rune('a'+i))+".dat", float64(5+i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = rc.Measure(ctx, PartTarget(p), flat)
		}()
	}
	wg.Wait()
	assert.False(t, cm.overlap.Load())
	assert.EqualValues(t, 8, cm.calls.Load())
}

func TestCacheCancelNotMemoized(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rc := NewCache(NewRasterizer())
	target := PartTarget(square(partgraph.NewRegistry(), "sq.dat", 10))

	_, err := rc.Measure(ctx, target, flat)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, rc.Len())
}
