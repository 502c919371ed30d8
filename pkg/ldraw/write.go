package ldraw

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/matzehuels/brickbook/pkg/partgraph"
)

// Write serializes main and every part it uses as a self-contained MPD
// document, in depth-first order. breaks may be nil; when set, "0 STEP" lines
// are emitted at the recorded child counts.
func Write(w io.Writer, main *partgraph.AbstractPart, breaks StepBreaks) error {
	bw := bufio.NewWriter(w)
	seen := map[*partgraph.AbstractPart]bool{}
	var order []*partgraph.AbstractPart
	var collect func(p *partgraph.AbstractPart)
	collect = func(p *partgraph.AbstractPart) {
		if seen[p] {
			return
		}
		seen[p] = true
		order = append(order, p)
		for _, c := range p.Children {
			if c.Part != nil && (len(c.Part.Primitives) > 0 || len(c.Part.Children) > 0) {
				collect(c.Part)
			}
		}
	}
	collect(main)

	for _, p := range order {
		writePart(bw, p, breaks[p])
	}
	return bw.Flush()
}

func writePart(w *bufio.Writer, p *partgraph.AbstractPart, breaks []int) {
	fmt.Fprintf(w, "0 FILE %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(w, "0 %s\n", p.Description)
	}
	fmt.Fprintf(w, "0 Name: %s\n", p.Name)

	certified := false
	for _, prim := range p.Primitives {
		if prim.Winding != partgraph.WindingUnknown {
			certified = true
			break
		}
	}
	current := partgraph.WindingUnknown
	if certified {
		w.WriteString("0 BFC CERTIFY CCW\n")
		current = partgraph.WindingCCW
	}
	for _, prim := range p.Primitives {
		if certified && prim.Winding != current && prim.Winding != partgraph.WindingUnknown {
			if prim.Winding == partgraph.WindingCW {
				w.WriteString("0 BFC CW\n")
			} else {
				w.WriteString("0 BFC CCW\n")
			}
			current = prim.Winding
		}
		toks := []string{strconv.Itoa(int(prim.Kind)), strconv.Itoa(prim.Color)}
		for _, pt := range prim.Points {
			toks = append(toks, num(pt.X), num(pt.Y), num(pt.Z))
		}
		w.WriteString(strings.Join(toks, " "))
		w.WriteByte('\n')
	}

	bi := 0
	for i, c := range p.Children {
		if c.Inverted {
			w.WriteString("0 BFC INVERTNEXT\n")
		}
		toks := []string{"1", strconv.Itoa(c.Color)}
		for _, v := range c.Matrix {
			toks = append(toks, num(v))
		}
		toks = append(toks, c.Name())
		w.WriteString(strings.Join(toks, " "))
		w.WriteByte('\n')
		for bi < len(breaks) && breaks[bi] == i+1 {
			w.WriteString("0 STEP\n")
			bi++
		}
	}
	w.WriteString("0 NOFILE\n")
}

func num(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
