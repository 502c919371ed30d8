package edit

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/brickbook/pkg/document"
	"github.com/matzehuels/brickbook/pkg/errors"
)

// Stack is the undo manager of one document. entries[:index] are applied;
// entries[index:] can be redone.
type Stack struct {
	doc       *document.Document
	entries   []*Transaction
	index     int
	clean     int
	listeners []Listener
	layout    LayoutFunc
	logger    *log.Logger
}

// StackOption configures a Stack.
type StackOption func(*Stack)

// WithListener adds a layout listener.
func WithListener(l Listener) StackOption {
	return func(s *Stack) { s.listeners = append(s.listeners, l) }
}

// WithLayout sets the relayout function run after each new command.
func WithLayout(fn LayoutFunc) StackOption {
	return func(s *Stack) { s.layout = fn }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) StackOption {
	return func(s *Stack) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStack creates an empty stack. The document starts clean.
func NewStack(d *document.Document, opts ...StackOption) *Stack {
	s := &Stack{doc: d, logger: log.NewWithOptions(io.Discard, log.Options{})}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Do applies cmd and records it. Pending redo entries are dropped.
func (s *Stack) Do(ctx context.Context, cmd Command) error {
	if cmd == nil {
		return errors.New(errors.ErrCodeInvalidInput, "nil command")
	}
	tx := NewTransaction(s.doc, cmd, s.layout, s.listeners...)
	if err := tx.Apply(ctx, true); err != nil {
		s.logger.Debug("edit rejected", "kind", cmd.Kind(), "err", err)
		return err
	}
	if s.clean > s.index {
		s.clean = -1
	}
	s.entries = append(s.entries[:s.index], tx)
	s.index++
	s.logger.Debug("edit applied", "kind", cmd.Kind(), "depth", s.index)
	return nil
}

// Undo reverts the last applied command.
func (s *Stack) Undo(ctx context.Context) error {
	if !s.CanUndo() {
		return errors.New(errors.ErrCodeInvalidInput, "nothing to undo")
	}
	tx := s.entries[s.index-1]
	if err := tx.Apply(ctx, false); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "undo %s", tx.cmd.Kind())
	}
	s.index--
	return nil
}

// Redo reapplies the last undone command.
func (s *Stack) Redo(ctx context.Context) error {
	if !s.CanRedo() {
		return errors.New(errors.ErrCodeInvalidInput, "nothing to redo")
	}
	tx := s.entries[s.index]
	if err := tx.Apply(ctx, true); err != nil {
		return err
	}
	s.index++
	return nil
}

// CanUndo reports whether Undo has something to revert.
func (s *Stack) CanUndo() bool { return s.index > 0 }

// CanRedo reports whether Redo has something to reapply.
func (s *Stack) CanRedo() bool { return s.index < len(s.entries) }

// UndoKind names the command Undo would revert, or "".
func (s *Stack) UndoKind() string {
	if !s.CanUndo() {
		return ""
	}
	return s.entries[s.index-1].cmd.Kind()
}

// RedoKind names the command Redo would reapply, or "".
func (s *Stack) RedoKind() string {
	if !s.CanRedo() {
		return ""
	}
	return s.entries[s.index].cmd.Kind()
}

// MarkClean records the current position, typically after a save.
func (s *Stack) MarkClean() { s.clean = s.index }

// IsClean reports whether the document matches the last MarkClean.
func (s *Stack) IsClean() bool { return s.clean == s.index }

// Clear drops all history.
func (s *Stack) Clear() {
	s.entries, s.index, s.clean = nil, 0, 0
}
