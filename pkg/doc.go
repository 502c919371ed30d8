// Package pkg provides the core libraries for Brickbook instruction layout.
//
// # Overview
//
// Brickbook turns an LDraw or MPD model into a paged building instruction
// book. The pkg directory is organized into four areas:
//
//  1. Model: [ldraw] parsing and [partgraph] parts, instances and views
//  2. Book: [document] pages, steps, parts lists and callouts, changed
//     through undoable [edit] commands and stored by [docio]
//  3. Layout: [splitter] step splitting, [render] image measurement and
//     [layout] page packing
//  4. Infrastructure: [cache], [config], [errors], [observability] and
//     [buildinfo]
//
// # Architecture
//
// The data flow of an import:
//
//	LDraw/MPD file
//	     ↓
//	[ldraw] package (parse, resolve part files)
//	     ↓
//	[splitter] package (layer the parts into steps)
//	     ↓
//	[document] package (pages, steps, parts lists)
//	     ↓
//	[render] + [layout] packages (measure images, place everything)
//	     ↓
//	.brkb book, layout JSON, DOT/SVG tree
//
// [instructions] ties these together and owns the undo history.
//
// # Quick Start
//
//	import "github.com/matzehuels/brickbook/pkg/instructions"
//
//	in, err := instructions.New()
//	if err != nil {
//	    return err
//	}
//	if err := in.ImportModel(ctx, "car.mpd", nil); err != nil {
//	    return err
//	}
//	return in.Save("car.brkb")
//
// # Main Packages
//
// [geom] - Points, rects, lines and 3D boxes and matrices.
//
// [layout] - Pure placement: steps in a page grid, parts list packing,
// callouts and arrows, and preview shrinking.
//
// [render] - Rasterizes parts and step images to find their visible
// bounds, memoized per view and optionally persisted in a [cache] backend.
//
// [edit] - Reversible layout edits with a transaction stack.
//
// [docio] - Binary book format, layout JSON and Graphviz export.
package pkg
