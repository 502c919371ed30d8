package edit

import (
	"context"

	"github.com/matzehuels/brickbook/pkg/document"
	"github.com/matzehuels/brickbook/pkg/errors"
	"github.com/matzehuels/brickbook/pkg/observability"
)

// Listener is told before and after every layout-affecting change so that
// views can resynchronize.
type Listener interface {
	LayoutAboutToChange(cmd Command)
	LayoutChanged(cmd Command)
}

// ListenerFuncs adapts two functions to a Listener. Nil fields are skipped.
type ListenerFuncs struct {
	AboutToChange func(Command)
	Changed       func(Command)
}

func (l ListenerFuncs) LayoutAboutToChange(cmd Command) {
	if l.AboutToChange != nil {
		l.AboutToChange(cmd)
	}
}

func (l ListenerFuncs) LayoutChanged(cmd Command) {
	if l.Changed != nil {
		l.Changed(cmd)
	}
}

// LayoutFunc recomputes layout after the first forward application of a
// command. Redo and undo restore the captured geometry instead of calling
// it again.
type LayoutFunc func(ctx context.Context, d *document.Document, cmd Command) error

// Transaction applies one command with notification, renumbering and
// rollback.
type Transaction struct {
	doc       *document.Document
	cmd       Command
	listeners []Listener
	layout    LayoutFunc

	removed []document.RemovedPage
	before  document.Geometry
	after   document.Geometry
	done    bool
}

// NewTransaction prepares cmd for d. layout may be nil.
func NewTransaction(d *document.Document, cmd Command, layout LayoutFunc, listeners ...Listener) *Transaction {
	return &Transaction{doc: d, cmd: cmd, layout: layout, listeners: listeners}
}

// Command returns the wrapped command.
func (tx *Transaction) Command() Command { return tx.cmd }

// Apply runs the command forward or backward. On a forward failure the
// document is back in its prior state when Apply returns.
func (tx *Transaction) Apply(ctx context.Context, forward bool) (err error) {
	if tx.cmd == nil {
		return errors.New(errors.ErrCodeInvalidInput, "nil command")
	}
	for _, l := range tx.listeners {
		l.LayoutAboutToChange(tx.cmd)
	}
	defer func() {
		for _, l := range tx.listeners {
			l.LayoutChanged(tx.cmd)
		}
		observability.Edit().OnCommand(ctx, tx.cmd.Kind(), forward, err)
	}()

	if forward {
		return tx.forward(ctx)
	}
	return tx.backward()
}

func (tx *Transaction) forward(ctx context.Context) error {
	d := tx.doc
	if !tx.done {
		tx.before = d.Geometry()
	}
	if err := Apply(d, tx.cmd, true); err != nil {
		// Commands validate before mutating.
		return err
	}
	tx.removed = d.RemoveEmptyPages()
	d.Sync()
	if err := d.CheckNumbering(); err != nil {
		tx.rollback()
		return err
	}

	if tx.done {
		d.Restore(tx.after)
		return nil
	}
	if tx.layout != nil {
		if err := tx.layout(ctx, d, tx.cmd); err != nil {
			tx.rollback()
			return err
		}
	}
	tx.after = d.Geometry()
	tx.done = true
	return nil
}

func (tx *Transaction) backward() error {
	d := tx.doc
	d.RestorePages(tx.removed)
	if err := Apply(d, tx.cmd, false); err != nil {
		return err
	}
	d.Sync()
	d.Restore(tx.before)
	return d.CheckNumbering()
}

func (tx *Transaction) rollback() {
	d := tx.doc
	d.RestorePages(tx.removed)
	_ = Apply(d, tx.cmd, false)
	d.Sync()
	d.Restore(tx.before)
	tx.removed = nil
}
