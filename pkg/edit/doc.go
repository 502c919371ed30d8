// Package edit implements undoable document edits.
//
// Every edit is a [Command] value. Commands are plain structs: the fields a
// caller sets describe the edit, and unexported fields record what the
// first forward application replaced, so the same value can be applied
// backward to undo it and forward again to redo it. One dispatcher,
// [Apply], interprets all of them.
//
// A [Transaction] wraps one command with the bookkeeping every edit
// needs: listener notifications around the change, removal of pages left
// empty, renumbering, validation, and rollback when validation fails.
// A [Stack] keeps applied transactions for undo and redo.
//
//	stack := edit.NewStack(doc)
//	err := stack.Do(ctx, &edit.MergeStep{Step: s})
//	err = stack.Undo(ctx)
package edit
