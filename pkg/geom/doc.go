// Package geom provides the geometry primitives shared by the splitter, the
// measurement rasterizer and the page layout engine.
//
// Three families of values live here:
//
//   - 3D axis-aligned boxes over [r3.Vec] (gonum spatial/r3), used to order
//     parts into construction layers.
//   - [Matrix], the 3x4 affine placement matrix used by LDraw sub-part
//     references. Its determinant sign (computed with gonum/mat) decides
//     whether a placement mirrors geometry and so flips triangle winding.
//   - 2D page-space [Rect], [Point], [Size] and [Line] values used by the
//     layout engine. Page space has its origin top-left with Y growing down.
//
// LDraw model space has -Y pointing up: a part that sits higher in the
// finished model has a smaller Y. [Top] and [Bottom] hide this so callers can
// reason about "higher" and "lower" directly.
package geom
