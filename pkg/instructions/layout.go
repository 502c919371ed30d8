package instructions

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/matzehuels/brickbook/pkg/document"
	"github.com/matzehuels/brickbook/pkg/edit"
	"github.com/matzehuels/brickbook/pkg/errors"
	"github.com/matzehuels/brickbook/pkg/geom"
	"github.com/matzehuels/brickbook/pkg/layout"
	"github.com/matzehuels/brickbook/pkg/observability"
	"github.com/matzehuels/brickbook/pkg/partgraph"
	"github.com/matzehuels/brickbook/pkg/render"
)

// Text metrics of the built-in label font, in page units.
const (
	labelCharWidth  = 7.0
	labelHeight     = 14.0
	numberCharWidth = 12.0
	numberHeight    = 22.0
)

// quantityLabel is the size of an "Nx" parts-list label.
func quantityLabel(q int) geom.Size {
	return geom.Size{W: labelCharWidth * float64(len(strconv.Itoa(q))+1), H: labelHeight}
}

// numberSize is the size of a step or page number.
func numberSize(n int) geom.Size {
	return geom.Size{W: numberCharWidth * float64(len(strconv.Itoa(n))), H: numberHeight}
}

// Relayout recomputes the layout of every unlocked page of the open
// document.
func (in *Instructions) Relayout(ctx context.Context) error {
	if in.doc == nil {
		return errNoDocument()
	}
	return in.relayout(ctx, in.doc, nil)
}

// layoutAfter is the edit stack's layout hook. Item moves and page locks
// are manual placement and keep the current layout.
func (in *Instructions) layoutAfter(ctx context.Context, d *document.Document, cmd edit.Command) error {
	switch c := cmd.(type) {
	case *edit.MoveItem:
		return nil
	case *edit.LockPage:
		if c.Locked {
			return nil
		}
	}
	return in.relayout(ctx, d, nil)
}

// relayout lays out d page by page. Only cancellation stops it; every
// other problem becomes a warning. prog may be nil.
func (in *Instructions) relayout(ctx context.Context, d *document.Document, prog *progress) (err error) {
	hooks := observability.Import()
	pages := d.Pages()
	start := time.Now()
	hooks.OnLayoutStart(ctx, len(pages))
	defer func() {
		hooks.OnLayoutComplete(ctx, len(pages), time.Since(start), err)
	}()

	in.warnings = nil
	for _, p := range pages {
		if !p.Locked {
			if err := in.layoutPage(ctx, p); err != nil {
				return err
			}
		}
		if prog != nil {
			if err := prog.yield(fmt.Sprintf("layout page %d", p.Number)); err != nil {
				return err
			}
		}
	}
	for _, w := range in.warnings {
		in.logger.Warn("layout problem", "error", w)
	}
	return nil
}

func (in *Instructions) warn(err error) {
	in.warnings = append(in.warnings, err)
}

// canceled converts a context error into a CANCELED error.
func canceled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeCanceled, err, "layout canceled")
	}
	return nil
}

// layoutPage places the steps of p in the page grid. A submodel preview
// starts at the configured scale and shrinks until nothing overlaps.
func (in *Instructions) layoutPage(ctx context.Context, p *document.Page) error {
	steps := make([]layout.StepLayout, len(p.Steps))
	sizes := make([]geom.Size, len(p.Steps))
	for i, s := range p.Steps {
		sl, err := in.layoutStep(ctx, s)
		if err != nil {
			return err
		}
		steps[i] = sl
		sizes[i] = sl.Size
	}

	page := geom.R(0, 0, p.Rect.W, p.Rect.H)
	base := layout.PageInput{Page: page, Steps: sizes, Number: numberSize(p.Number)}
	opts := in.cfg.PageOptions()

	var (
		pl      layout.PageLayout
		measErr error
	)
	fits := func(scale float64) bool {
		input := base
		if p.Preview != nil {
			size, err := in.previewSize(ctx, p.Preview.Submodel, scale)
			if err != nil && measErr == nil {
				measErr = err
			}
			input.Preview = size
		}
		pl = layout.LayoutPage(input, opts)
		return !layout.PageOverlaps(page, pl, steps)
	}

	if p.Preview == nil {
		if !fits(0) {
			in.warn(errors.New(errors.ErrCodeOverlapUnresolvable, "page %d: steps do not fit", p.Number))
		}
	} else {
		scale, err := layout.ShrinkToFit(in.cfg.Layout.PreviewScale, in.cfg.Layout.ShrinkStep, in.cfg.Layout.ShrinkFloor, fits)
		if err := canceled(ctx); err != nil {
			return err
		}
		if measErr != nil {
			in.warn(fmt.Errorf("page %d preview: %w", p.Number, measErr))
		}
		if err != nil {
			in.warn(fmt.Errorf("page %d: %w", p.Number, err))
		}
		p.Preview.Scale = scale
		p.Preview.Rect = pl.Preview
	}

	for i, s := range p.Steps {
		s.Rect = pl.Steps[i]
	}
	p.Separators = pl.Separators
	p.NumberRect = pl.Number
	return nil
}

// previewSize measures a whole submodel at scale.
func (in *Instructions) previewSize(ctx context.Context, sm *document.Submodel, scale float64) (geom.Size, error) {
	if sm == nil || sm.Part == nil {
		return geom.Size{}, nil
	}
	view := partgraph.View{Scale: scale, Rotation: sm.Part.View.Rotation}
	m, err := in.measure.Measure(ctx, render.PartTarget(sm.Part), view)
	if err != nil {
		return geom.Size{}, err
	}
	return geom.Size{W: float64(m.Width), H: float64(m.Height)}, nil
}

// layoutStep lays out s and its callouts relative to the step's own
// corner and returns the result. The step's Rect is set by its container.
func (in *Instructions) layoutStep(ctx context.Context, s *document.Step) (layout.StepLayout, error) {
	margin := in.cfg.Layout.Margin

	csi, err := in.measureCSI(ctx, s)
	if err != nil {
		return layout.StepLayout{}, err
	}
	pli, err := in.layoutPLI(ctx, s.PLI)
	if err != nil {
		return layout.StepLayout{}, err
	}

	callouts := make([]geom.Size, len(s.Callouts))
	for i, c := range s.Callouts {
		sizes := make([]geom.Size, len(c.Steps))
		for j, cs := range c.Steps {
			sl, err := in.layoutStep(ctx, cs)
			if err != nil {
				return layout.StepLayout{}, err
			}
			sizes[j] = sl.Size
		}
		cr := layout.LayoutCallout(sizes, c.Vertical, margin)
		for j, cs := range c.Steps {
			cs.Rect = cr.Rects[j]
		}
		callouts[i] = cr.Size
	}

	sl := layout.LayoutStep(layout.StepInput{
		Number:   numberSize(s.Number),
		PLI:      pli,
		CSI:      csi,
		Callouts: callouts,
	}, margin)
	s.NumberRect = sl.Number
	s.CSI.Rect = sl.CSI
	s.PLI.Rect = sl.PLI
	for i, c := range s.Callouts {
		c.Rect = sl.Callouts[i]
		c.Arrow = sl.Arrows[i].Line
	}
	return sl, nil
}

// measureCSI measures the cumulative model of s. The CSI key is the
// digest of that geometry; a changed key drops the stale measurement.
func (in *Instructions) measureCSI(ctx context.Context, s *document.Step) (geom.Size, error) {
	parts := s.CumulativeParts()
	key := render.InstancesScene(parts).Digest()
	if old := s.CSI.Key; old != "" && old != key {
		in.measure.InvalidateID(render.KindCSI, old)
	}
	s.CSI.Key = key

	m, err := in.measure.Measure(ctx, render.CSITarget(key, parts), s.CSI.View)
	if err != nil {
		if err := canceled(ctx); err != nil {
			return geom.Size{}, err
		}
		in.warn(fmt.Errorf("%s: %w", stepLabel(s), err))
		return geom.Size{}, nil
	}
	return geom.Size{W: float64(m.Width), H: float64(m.Height)}, nil
}

// layoutPLI sizes and packs the items of pli and returns its size. Parts
// that cannot be measured keep a label-only entry.
func (in *Instructions) layoutPLI(ctx context.Context, pli *document.PLI) (geom.Size, error) {
	if pli.Empty() {
		return geom.Size{}, nil
	}
	items := make([]layout.PLIItemLayout, len(pli.Items))
	sizes := make([]geom.Size, len(pli.Items))
	for i, it := range pli.Items {
		var m partgraph.Measurement
		if it.Part != nil {
			var err error
			m, err = in.measure.MeasurePart(ctx, it.Part)
			if err != nil {
				if err := canceled(ctx); err != nil {
					return geom.Size{}, err
				}
				in.warn(fmt.Errorf("%s: part %s: %w", stepLabel(pli.Step()), it.Part.Name, err))
				m = partgraph.Measurement{}
			}
		}
		items[i] = layout.PLIItemSize(m, quantityLabel(it.Quantity))
		sizes[i] = items[i].Size
	}
	res := layout.LayoutPLI(sizes, in.cfg.Layout.Margin, in.cfg.Layout.PLIMaxWidth)
	for i, it := range pli.Items {
		it.Rect = res.Rects[i]
		it.PartRect = items[i].Part
		it.LabelRect = items[i].Label
	}
	return res.Size, nil
}
