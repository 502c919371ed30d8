// Package docio saves and loads instruction books and exports their layout.
//
// # Binary Format
//
// A saved book is a little-endian stream:
//
//	magic     "BRKB"
//	version   uint16
//	id        16-byte document UUID
//	page size two float64
//	parts     part table: name, flags, view, measurement, primitives
//	instances instance table: ID, part index, color, matrix, flags
//	children  per part, instance indices of its children
//	tree      main submodel, recursively: pages, steps, CSIs, parts lists,
//	          callouts and child submodels
//
// Strings and blobs are uint32 length prefixed. Cross references are table
// indices. A CSI's previous CSI is stored as the page number and step
// number of its top-level step, then one (callout row, step number) pair
// per nested callout, with page number 0 for none. A CSI may carry a PNG
// blob.
//
// # Loading
//
// Loading runs in two explicit phases. [LoadStructure] rebuilds every node
// but leaves cross references (previous CSIs, preview and callout
// submodels) pending. [Structure.ResolveReferences] binds them, resyncs
// the document and rejects files whose stored numbering does not match:
//
//	s, err := docio.LoadStructure(r)
//	if err != nil {
//	    return err
//	}
//	doc, err := s.ResolveReferences()
//
// [Read] and [Load] do both.
//
// # Export
//
// [WriteLayoutJSON] writes the computed page geometry for external tools,
// and [ToDOT] / [RenderSVG] draw the document tree with Graphviz.
package docio
