package docio

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/brickbook/pkg/document"
	"github.com/matzehuels/brickbook/pkg/geom"
)

// DOTOptions configures the document tree diagram.
type DOTOptions struct {
	// Detailed adds rects and part counts to the node labels.
	Detailed bool
}

// ToDOT draws the submodel, page and step tree of d in Graphviz DOT.
// Dashed edges run from a submodel to the step that first uses it.
func ToDOT(d *document.Document, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	ids := make(map[any]string)
	id := func(n any, prefix string) string {
		if s, ok := ids[n]; ok {
			return s
		}
		s := fmt.Sprintf("%s%d", prefix, len(ids))
		ids[n] = s
		return s
	}

	var edges []string
	var steps func(parent string, list []*document.Step)
	steps = func(parent string, list []*document.Step) {
		for _, s := range list {
			sid := id(s, "s")
			fmt.Fprintf(&buf, "  %q [label=%q, fillcolor=lightyellow];\n", sid, stepLabel(s, opts.Detailed))
			edges = append(edges, fmt.Sprintf("  %q -> %q;", parent, sid))
			for _, c := range s.Callouts {
				cid := id(c, "c")
				fmt.Fprintf(&buf, "  %q [label=\"callout\", style=\"rounded,filled,dashed\", fillcolor=lightgrey];\n", cid)
				edges = append(edges, fmt.Sprintf("  %q -> %q;", sid, cid))
				steps(cid, c.Steps)
			}
		}
	}

	var submodel func(sm *document.Submodel)
	submodel = func(sm *document.Submodel) {
		smid := id(sm, "m")
		fmt.Fprintf(&buf, "  %q [label=%q, fillcolor=lightblue];\n", smid, sm.Name())
		if parent := sm.Parent(); parent != nil {
			edges = append(edges, fmt.Sprintf("  %q -> %q;", id(parent, "m"), smid))
		}
		for _, p := range sm.Pages {
			pid := id(p, "p")
			fmt.Fprintf(&buf, "  %q [label=%q];\n", pid, pageLabel(p, opts.Detailed))
			edges = append(edges, fmt.Sprintf("  %q -> %q;", smid, pid))
			steps(pid, p.Steps)
		}
		for _, c := range sm.Children {
			submodel(c)
		}
	}
	submodel(d.Main)

	// Uses are drawn after every node has an id.
	for _, sm := range d.Submodels() {
		for _, p := range sm.Pages {
			for _, s := range p.Steps {
				for _, child := range usedChildren(sm, s) {
					edges = append(edges, fmt.Sprintf("  %q -> %q [style=dashed, constraint=false];", ids[child], ids[s]))
				}
			}
		}
	}

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.String()
}

// usedChildren returns the children of sm whose first use is step s.
func usedChildren(sm *document.Submodel, s *document.Step) []*document.Submodel {
	var out []*document.Submodel
	for _, c := range sm.Children {
		for _, st := range sm.OrderedSteps() {
			if usesPart(st, c) {
				if st == s {
					out = append(out, c)
				}
				break
			}
		}
	}
	return out
}

func usesPart(s *document.Step, sm *document.Submodel) bool {
	for _, pi := range s.Parts {
		if pi.Part == sm.Part {
			return true
		}
	}
	return false
}

func pageLabel(p *document.Page, detailed bool) string {
	label := "page " + strconv.Itoa(p.Number)
	if p.Locked {
		label += " (locked)"
	}
	if !detailed {
		return label
	}
	return label + "\n" + fmtRect(p.Rect)
}

func stepLabel(s *document.Step, detailed bool) string {
	label := "step " + strconv.Itoa(s.Number)
	if !detailed {
		return label
	}
	parts := []string{
		fmt.Sprintf("parts: %d", len(s.Parts)),
		"csi: " + fmtRect(s.CSI.Rect),
		"pli: " + fmtRect(s.PLI.Rect),
	}
	return label + "\n" + strings.Join(parts, "\n")
}

func fmtRect(r geom.Rect) string {
	return fmt.Sprintf("%.0f,%.0f %.0fx%.0f", r.X, r.Y, r.W, r.H)
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the diagram scales from
// the origin.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
