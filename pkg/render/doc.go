// Package render measures the on-page size of parts and step images.
//
// # Overview
//
// Layout needs the pixel size of every part (for parts lists) and every
// construction step image (CSI) before anything can be placed. This package
// provides:
//
//   - [Scene]: a flattened, model-space triangle soup built from a part or
//     from the cumulative instances of a step
//   - [Measurer]: the rasterizer boundary, one render at one buffer size
//   - [Rasterizer]: a software orthographic silhouette renderer
//   - [Cache]: memoized measurement with a buffer-size ladder
//
// # Ladder
//
// A target is rendered into square buffers of increasing size until its
// silhouette no longer touches any buffer edge. Parts start at 128 pixels,
// CSIs at 512, both stop at 2048. A target still touching the edge at 2048
// fails with an OUT_OF_FRAME error, which is memoized like a result.
//
//	rc := render.NewCache(render.NewRasterizer())
//	m, err := rc.MeasurePart(ctx, part)
//
// # Concurrency
//
// The rasterizer models a single graphics context. [Cache] serializes every
// render behind one mutex, so concurrent callers are safe but never overlap.
package render
