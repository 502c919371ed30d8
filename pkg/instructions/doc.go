// Package instructions turns an LDraw model into a laid out instruction
// book and keeps it editable.
//
// An [Instructions] value owns at most one [document.Document] at a time,
// together with its undo history and the measurement cache shared by every
// layout pass.
//
// # Import
//
// [Instructions.ImportModel] runs the whole pipeline in one synchronous loop:
//
//	parse → split steps → paginate → measure parts → lay out every page
//
// After each bounded unit of work (one submodel split, a batch of part
// measurements, one page laid out) the loop calls the caller's
// [ProgressFunc]. Returning false, or cancelling the context, stops the
// import at that point with a CANCELED error and no document loaded.
//
// # Layout
//
// [Instructions.Relayout] recomputes every unlocked page. Step images are
// keyed by the digest of their cumulative geometry, so a step whose parts
// did not change reuses its measurement. Submodel previews start at the
// configured scale and shrink until the page no longer overlaps. Problems
// that do not stop the pass are collected in [Instructions.Warnings].
//
// # Editing
//
// [Instructions.Do], [Instructions.Undo] and [Instructions.Redo] go through
// an [edit.Stack]. Every new command triggers a relayout, except item moves
// and page locks, which are manual placement.
package instructions
