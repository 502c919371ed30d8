package instructions

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/brickbook/pkg/config"
	"github.com/matzehuels/brickbook/pkg/docio"
	"github.com/matzehuels/brickbook/pkg/document"
	"github.com/matzehuels/brickbook/pkg/edit"
	"github.com/matzehuels/brickbook/pkg/errors"
	"github.com/matzehuels/brickbook/pkg/ldraw"
	"github.com/matzehuels/brickbook/pkg/render"
)

// Instructions holds the open instruction book and everything needed to
// lay it out and edit it. It is not safe for concurrent use.
type Instructions struct {
	cfg       *config.Config
	logger    *log.Logger
	measure   *render.Cache
	resolver  ldraw.Resolver
	listeners []edit.Listener

	doc      *document.Document
	stack    *edit.Stack
	missing  []*errors.MissingPartError
	warnings []error
	stats    Stats
}

// Stats summarizes the last import.
type Stats struct {
	Parts      int
	Submodels  int
	Pages      int
	Steps      int
	Missing    int
	ParseTime  time.Duration
	LayoutTime time.Duration
}

// Option configures an Instructions.
type Option func(*Instructions)

// WithConfig sets the settings. The config is validated by New.
func WithConfig(c *config.Config) Option {
	return func(in *Instructions) {
		if c != nil {
			in.cfg = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(in *Instructions) {
		if l != nil {
			in.logger = l
		}
	}
}

// WithRenderCache sets the measurement cache. The default measures with a
// [render.Rasterizer] and keeps results in memory only.
func WithRenderCache(rc *render.Cache) Option {
	return func(in *Instructions) { in.measure = rc }
}

// WithResolver sets where referenced parts are loaded from. The default
// searches the model's directory and the configured library.
func WithResolver(r ldraw.Resolver) Option {
	return func(in *Instructions) { in.resolver = r }
}

// WithListener adds a listener notified around every edit.
func WithListener(l edit.Listener) Option {
	return func(in *Instructions) { in.listeners = append(in.listeners, l) }
}

// New creates an Instructions with no document loaded.
func New(opts ...Option) (*Instructions, error) {
	in := &Instructions{
		cfg:    config.Default(),
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, o := range opts {
		o(in)
	}
	if err := in.cfg.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if in.measure == nil {
		in.measure = render.NewCache(render.NewRasterizer(), render.WithLogger(in.logger))
	}
	return in, nil
}

// Document returns the open document, or nil.
func (in *Instructions) Document() *document.Document { return in.doc }

// Config returns the settings in use.
func (in *Instructions) Config() *config.Config { return in.cfg }

// RenderCache returns the measurement cache.
func (in *Instructions) RenderCache() *render.Cache { return in.measure }

// History returns the undo stack of the open document, or nil.
func (in *Instructions) History() *edit.Stack { return in.stack }

// Missing returns the parts the last import could not find.
func (in *Instructions) Missing() []*errors.MissingPartError { return in.missing }

// Warnings returns the problems found by the last layout pass.
func (in *Instructions) Warnings() []error { return in.warnings }

// Stats returns the summary of the last import.
func (in *Instructions) Stats() Stats { return in.stats }

// Modified reports whether the document changed since it was loaded,
// imported or saved.
func (in *Instructions) Modified() bool {
	return in.stack != nil && !in.stack.IsClean()
}

// Close drops the open document and its history.
func (in *Instructions) Close() {
	in.doc = nil
	in.stack = nil
	in.missing = nil
	in.warnings = nil
}

func (in *Instructions) open(d *document.Document) {
	in.doc = d
	opts := []edit.StackOption{
		edit.WithLayout(in.layoutAfter),
		edit.WithLogger(in.logger),
	}
	for _, l := range in.listeners {
		opts = append(opts, edit.WithListener(l))
	}
	in.stack = edit.NewStack(d, opts...)
}

func errNoDocument() error {
	return errors.New(errors.ErrCodeInvalidInput, "no document loaded")
}

// Save writes the open document to path and marks it clean.
func (in *Instructions) Save(path string) error {
	if in.doc == nil {
		return errNoDocument()
	}
	if err := docio.Save(path, in.doc); err != nil {
		return err
	}
	in.stack.MarkClean()
	in.logger.Info("saved document", "path", path, "pages", len(in.doc.Pages()))
	return nil
}

// Load replaces the open document with the one saved at path. The stored
// layout is used as is.
func (in *Instructions) Load(path string) error {
	d, err := docio.Load(path)
	if err != nil {
		return err
	}
	in.Close()
	in.open(d)
	in.logger.Info("loaded document", "path", path, "pages", len(d.Pages()))
	return nil
}

// Do applies cmd to the open document and records it for undo.
func (in *Instructions) Do(ctx context.Context, cmd edit.Command) error {
	if in.stack == nil {
		return errNoDocument()
	}
	return in.stack.Do(ctx, cmd)
}

// Undo reverts the last applied command.
func (in *Instructions) Undo(ctx context.Context) error {
	if in.stack == nil {
		return errNoDocument()
	}
	return in.stack.Undo(ctx)
}

// Redo reapplies the last undone command.
func (in *Instructions) Redo(ctx context.Context) error {
	if in.stack == nil {
		return errNoDocument()
	}
	return in.stack.Redo(ctx)
}
