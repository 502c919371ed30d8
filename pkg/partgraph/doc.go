// Package partgraph holds the brick model: reusable part definitions
// ([AbstractPart]) and their placed, colored uses ([PartInstance]).
//
// Part definitions are shared. Every instance of a 2x4 brick points at the
// same AbstractPart, which owns the geometry and the cached render
// measurement for that part. Definitions are owned by a [Registry]; each
// document owns exactly one Registry and passes it explicitly to the code
// that needs to look parts up. There is no package-level part dictionary.
//
// Instances are owned by exactly one container at a time (a step, a callout
// or the child list of an AbstractPart). Moving an instance between steps
// transfers ownership; it is never copied.
//
// # Winding
//
// Each instance carries an inversion flag set by a preceding
// "0 BFC INVERTNEXT" line. The winding a renderer must use for the
// instance's polygons is the XOR of that flag, the sign of the placement
// determinant and the winding inherited from the parent. [PartInstance.Reparent]
// recomputes it whenever an instance crosses an inversion boundary.
package partgraph
