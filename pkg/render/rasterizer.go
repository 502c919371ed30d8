package render

import (
	"context"
	"image"
	"image/draw"

	"golang.org/x/image/vector"

	"github.com/matzehuels/brickbook/pkg/geom"
	"github.com/matzehuels/brickbook/pkg/partgraph"
)

// PixelsPerLDU is the projection scale at view scale 1.0.
const PixelsPerLDU = 1.0

// Result is one successful render.
type Result struct {
	Width, Height int
	// CenterOffset is the silhouette center minus the buffer center.
	CenterOffset geom.Point
	// LeftInset and BottomInset are the empty run lengths from the
	// bottom-left corner of the silhouette box along its bottom row and
	// left column.
	LeftInset, BottomInset int
}

// Measurer renders a scene into a square buffer of the given size. fits is
// false when the silhouette touches a buffer edge.
type Measurer interface {
	Measure(ctx context.Context, scene Scene, view partgraph.View, size int) (res Result, fits bool, err error)
}

// Rasterizer is a software orthographic silhouette renderer. The camera
// looks at the center of the scene bounds.
type Rasterizer struct{}

// NewRasterizer returns a Rasterizer.
func NewRasterizer() *Rasterizer { return &Rasterizer{} }

// Render draws the silhouette of scene into a size x size alpha mask.
func (r *Rasterizer) Render(scene Scene, view partgraph.View, size int) *image.Alpha {
	dst := image.NewAlpha(image.Rect(0, 0, size, size))
	if scene.Empty() {
		return dst
	}
	rot := geom.Rotation(view.Rotation[0], view.Rotation[1], view.Rotation[2])
	k := view.Scale * PixelsPerLDU
	if k <= 0 {
		k = PixelsPerLDU
	}
	eye := rot.Apply(geom.Center(scene.Bounds))
	half := float64(size) / 2

	z := vector.NewRasterizer(size, size)
	z.DrawOp = draw.Src
	for _, t := range scene.Triangles {
		var px, py [3]float64
		for i, p := range t {
			q := rot.Apply(p)
			px[i] = (q.X-eye.X)*k + half
			py[i] = (q.Y-eye.Y)*k + half
		}
		area := (px[1]-px[0])*(py[2]-py[0]) - (px[2]-px[0])*(py[1]-py[0])
		if area == 0 {
			continue
		}
		// All faces wound the same way so overlapping faces never cancel.
		if area < 0 {
			px[1], px[2] = px[2], px[1]
			py[1], py[2] = py[2], py[1]
		}
		z.MoveTo(float32(px[0]), float32(py[0]))
		z.LineTo(float32(px[1]), float32(py[1]))
		z.LineTo(float32(px[2]), float32(py[2]))
		z.ClosePath()
	}
	z.Draw(dst, dst.Bounds(), image.Opaque, image.Point{})
	return dst
}

// Measure renders scene and reports its silhouette box.
func (r *Rasterizer) Measure(ctx context.Context, scene Scene, view partgraph.View, size int) (Result, bool, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, false, err
	}
	res, fits := measureMask(r.Render(scene, view, size))
	return res, fits, nil
}

// measureMask finds the bounding box of non-zero pixels.
func measureMask(img *image.Alpha) (Result, bool) {
	b := img.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, -1, -1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.AlphaAt(x, y).A == 0 {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if maxX < 0 {
		return Result{}, true
	}
	touches := minX == b.Min.X || minY == b.Min.Y || maxX == b.Max.X-1 || maxY == b.Max.Y-1

	res := Result{
		Width:  maxX - minX + 1,
		Height: maxY - minY + 1,
		CenterOffset: geom.Point{
			X: float64(minX+maxX+1)/2 - float64(b.Dx())/2,
			Y: float64(minY+maxY+1)/2 - float64(b.Dy())/2,
		},
	}
	for x := minX; x <= maxX && img.AlphaAt(x, maxY).A == 0; x++ {
		res.LeftInset++
	}
	for y := maxY; y >= minY && img.AlphaAt(minX, y).A == 0; y-- {
		res.BottomInset++
	}
	return res, !touches
}

var _ Measurer = (*Rasterizer)(nil)
