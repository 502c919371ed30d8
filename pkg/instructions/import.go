package instructions

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/matzehuels/brickbook/pkg/document"
	"github.com/matzehuels/brickbook/pkg/errors"
	"github.com/matzehuels/brickbook/pkg/ldraw"
	"github.com/matzehuels/brickbook/pkg/observability"
	"github.com/matzehuels/brickbook/pkg/partgraph"
	"github.com/matzehuels/brickbook/pkg/splitter"
)

// ProgressFunc is called after every unit of import work with the number
// of finished units, the current total and a short label. Returning false
// cancels the import. The total is exact once steps are split; before
// that it only counts parsing and splitting.
type ProgressFunc func(step, total int, label string) bool

// measureBatch is how many part measurements run between progress calls.
const measureBatch = 8

type progress struct {
	ctx   context.Context
	fn    ProgressFunc
	step  int
	total int
}

// yield reports one finished unit and checks for cancellation.
func (p *progress) yield(label string) error {
	p.step++
	if err := p.ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeCanceled, err, "import canceled during %s", label)
	}
	if p.fn != nil && !p.fn(p.step, p.total, label) {
		return errors.New(errors.ErrCodeCanceled, "import canceled during %s", label)
	}
	return nil
}

// ImportModel replaces the open document with a fresh instruction book for
// the LDraw or MPD file at path. On any error, cancellation included, no
// document is loaded afterwards.
func (in *Instructions) ImportModel(ctx context.Context, path string, fn ProgressFunc) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeFileNotFound, err, "import %s", path)
		}
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "import %s", path)
	}
	defer f.Close()

	res := in.resolver
	if res == nil {
		res = ldraw.NewDirResolver(in.cfg.Import.Library, filepath.Dir(path))
	}
	return in.importFrom(ctx, filepath.Base(path), f, res, fn)
}

// ImportReader is ImportModel for a model read from r. Referenced parts
// resolve against the configured library only.
func (in *Instructions) ImportReader(ctx context.Context, name string, r io.Reader, fn ProgressFunc) error {
	res := in.resolver
	if res == nil {
		res = ldraw.NewDirResolver(in.cfg.Import.Library, "")
	}
	return in.importFrom(ctx, name, r, res, fn)
}

func (in *Instructions) importFrom(ctx context.Context, name string, r io.Reader, res ldraw.Resolver, fn ProgressFunc) error {
	in.Close()
	in.stats = Stats{}

	d, err := in.build(ctx, name, r, res, fn)
	if err != nil {
		in.Close()
		if errors.Is(err, errors.ErrCodeCanceled) {
			in.logger.Info("import canceled", "model", name)
		}
		return err
	}
	in.open(d)
	in.logger.Info("imported model",
		"model", name,
		"pages", in.stats.Pages,
		"steps", in.stats.Steps,
		"missing", in.stats.Missing,
		"warnings", len(in.warnings))
	return nil
}

func (in *Instructions) build(ctx context.Context, name string, r io.Reader, res ldraw.Resolver, fn ProgressFunc) (*document.Document, error) {
	hooks := observability.Import()
	prog := &progress{ctx: ctx, fn: fn, total: 1}

	// Parse
	start := time.Now()
	hooks.OnParseStart(ctx, name)
	reg := partgraph.NewRegistry()
	parsed, err := ldraw.Parse(name, r, reg, res)
	in.stats.ParseTime = time.Since(start)
	hooks.OnParseComplete(ctx, name, reg.Len(), in.stats.ParseTime, err)
	if err != nil {
		return nil, err
	}
	in.missing = parsed.Missing
	in.stats.Missing = len(parsed.Missing)
	for _, m := range parsed.Missing {
		in.logger.Warn("missing part", "part", m.Name, "parent", m.Parent, "line", m.Line)
	}
	in.logger.Debug("parsed model", "model", name, "parts", reg.Len(), "duration", in.stats.ParseTime)

	d := document.New(reg, parsed.Main)
	d.PageSize = in.cfg.PageSize()
	addSubmodels(d)
	submodels := d.Submodels()
	in.stats.Submodels = len(submodels)
	prog.total += len(submodels)
	if err := prog.yield("parse " + name); err != nil {
		return nil, err
	}

	// Split and paginate
	for _, sm := range submodels {
		in.paginate(d, sm, in.stepGroups(sm.Part, parsed.StepBreaks[sm.Part]))
		if sm != d.Main && len(sm.Pages) > 0 {
			d.SetPreview(sm.Pages[0], &document.SubmodelPreview{
				Submodel: sm,
				Scale:    in.cfg.Layout.PreviewScale,
			})
		}
		if err := prog.yield("split " + sm.Name()); err != nil {
			return nil, err
		}
	}
	d.Sync()
	if err := d.CheckNumbering(); err != nil {
		return nil, err
	}

	pages := d.Pages()
	parts := listedParts(pages)
	in.stats.Pages = len(pages)
	in.stats.Parts = len(parts)
	for _, sm := range submodels {
		in.stats.Steps += len(sm.OrderedSteps())
	}
	prog.total += (len(parts)+measureBatch-1)/measureBatch + len(pages)

	// Measure parts
	for i, p := range parts {
		if _, err := in.measure.MeasurePart(ctx, p); err != nil {
			if ctx.Err() != nil {
				return nil, errors.Wrap(errors.ErrCodeCanceled, ctx.Err(), "import canceled")
			}
			in.logger.Warn("part not measured", "part", p.Name, "error", err)
		}
		if (i+1)%measureBatch == 0 || i == len(parts)-1 {
			if err := prog.yield("measure parts"); err != nil {
				return nil, err
			}
		}
	}

	// Lay out
	start = time.Now()
	err = in.relayout(ctx, d, prog)
	in.stats.LayoutTime = time.Since(start)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// addSubmodels builds the submodel tree. A submodel used by several
// assemblies belongs to the first one that references it.
func addSubmodels(d *document.Document) {
	seen := map[*partgraph.AbstractPart]bool{d.Main.Part: true}
	var visit func(sm *document.Submodel)
	visit = func(sm *document.Submodel) {
		for _, c := range sm.Part.Children {
			if c.Part == nil || !c.Part.IsSubmodel || seen[c.Part] {
				continue
			}
			seen[c.Part] = true
			visit(d.AddSubmodel(sm, c.Part))
		}
	}
	visit(d.Main)
}

// stepGroups splits a part's children into steps: at the model's own STEP
// lines when KeepSteps is set, otherwise by the layer rule.
func (in *Instructions) stepGroups(part *partgraph.AbstractPart, breaks []int) []splitter.Group {
	children := part.Children
	if !in.cfg.Import.KeepSteps {
		return splitter.Split(children, in.cfg.SplitterOptions())
	}
	var groups []splitter.Group
	prev := 0
	for _, b := range append(slices.Clone(breaks), len(children)) {
		b = min(b, len(children))
		if b > prev {
			groups = append(groups, splitter.Group{Parts: slices.Clone(children[prev:b])})
			prev = b
		}
	}
	return groups
}

// paginate appends groups to sm as steps, StepsPerPage to a page.
func (in *Instructions) paginate(d *document.Document, sm *document.Submodel, groups []splitter.Group) {
	per := max(in.cfg.Import.StepsPerPage, 1)
	for i := 0; i < len(groups); i += per {
		var steps []*document.Step
		for _, g := range groups[i:min(i+per, len(groups))] {
			for _, pi := range g.Displaced {
				pi.Displace(partgraph.DirectionUp, partgraph.DefaultDisplacement)
			}
			steps = append(steps, document.NewStep(g.Parts...))
		}
		d.InsertPage(sm, len(sm.Pages), d.NewPage(steps...))
	}
}

// listedParts returns every distinct part shown in a parts list, in page
// order.
func listedParts(pages []*document.Page) []*partgraph.AbstractPart {
	seen := make(map[*partgraph.AbstractPart]bool)
	var out []*partgraph.AbstractPart
	var visit func(s *document.Step)
	visit = func(s *document.Step) {
		for _, it := range s.PLI.Items {
			if it.Part != nil && !seen[it.Part] {
				seen[it.Part] = true
				out = append(out, it.Part)
			}
		}
		for _, c := range s.Callouts {
			for _, cs := range c.Steps {
				visit(cs)
			}
		}
	}
	for _, p := range pages {
		for _, s := range p.Steps {
			visit(s)
		}
	}
	return out
}

func stepLabel(s *document.Step) string {
	if p := s.Page(); p != nil {
		return fmt.Sprintf("page %d step %d", p.Number, s.Number)
	}
	return fmt.Sprintf("callout step %d", s.Number)
}
