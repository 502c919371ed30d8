// Package layout computes page-space rectangles for parts lists, steps,
// callouts and pages.
//
// All functions are pure: they take fixed sizes and return placements, so
// the same inputs always give the same rectangles. Sizes come from
// measurement (see package render); this package never renders.
//
// # Parts lists
//
// [LayoutPLI] packs parts-list items into rows. Items are sorted by width,
// the tallest item is moved to the end, and each item is tucked under its
// predecessor when that does not grow the enclosing box. [PLIItemSize]
// decides where the quantity label of one item goes.
//
// # Steps and pages
//
// [LayoutGrid] arranges steps in a near-square grid. [LayoutStep] places a
// step's number, parts list, CSI and callouts. [LayoutPage] puts it all on
// a page next to an optional submodel preview.
//
// # Overlaps
//
// [CheckForLayoutOverlaps] reports a step whose parts collide or overflow.
// [ShrinkToFit] runs the bounded shrink loop used for submodel previews.
package layout
