package docio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/brickbook/pkg/document"
	"github.com/matzehuels/brickbook/pkg/geom"
)

type layoutJSON struct {
	ID       string     `json:"id"`
	PageSize sizeJSON   `json:"page_size"`
	Pages    []pageJSON `json:"pages"`
}

type sizeJSON struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type rectJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type lineJSON struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

type pageJSON struct {
	Number     int          `json:"number"`
	Submodel   string       `json:"submodel"`
	Rect       rectJSON     `json:"rect"`
	NumberRect rectJSON     `json:"number_rect"`
	Locked     bool         `json:"locked,omitempty"`
	Preview    *previewJSON `json:"preview,omitempty"`
	Separators []lineJSON   `json:"separators,omitempty"`
	Steps      []stepJSON   `json:"steps"`
}

type previewJSON struct {
	Submodel string   `json:"submodel"`
	Rect     rectJSON `json:"rect"`
	Scale    float64  `json:"scale"`
}

type stepJSON struct {
	Number     int           `json:"number"`
	Rect       rectJSON      `json:"rect"`
	NumberRect rectJSON      `json:"number_rect"`
	CSI        rectJSON      `json:"csi"`
	PLI        rectJSON      `json:"pli"`
	Items      []itemJSON    `json:"items,omitempty"`
	Callouts   []calloutJSON `json:"callouts,omitempty"`
}

type itemJSON struct {
	Part     string   `json:"part"`
	Color    int      `json:"color"`
	Quantity int      `json:"quantity"`
	Rect     rectJSON `json:"rect"`
}

type calloutJSON struct {
	Rect  rectJSON   `json:"rect"`
	Arrow lineJSON   `json:"arrow"`
	Steps []stepJSON `json:"steps"`
}

func toRect(r geom.Rect) rectJSON { return rectJSON{r.X, r.Y, r.W, r.H} }
func toLine(l geom.Line) lineJSON { return lineJSON{l.A.X, l.A.Y, l.B.X, l.B.Y} }

// WriteLayoutJSON writes the computed page geometry of d as indented JSON.
// Step, CSI and parts list rects are page coordinates; item rects are
// relative to their parts list and callout rects to their step.
func WriteLayoutJSON(w io.Writer, d *document.Document) error {
	out := layoutJSON{
		ID:       d.ID.String(),
		PageSize: sizeJSON{d.PageSize.W, d.PageSize.H},
	}
	for _, p := range d.Pages() {
		pj := pageJSON{
			Number:     p.Number,
			Rect:       toRect(p.Rect),
			NumberRect: toRect(p.NumberRect),
			Locked:     p.Locked,
			Steps:      make([]stepJSON, 0, len(p.Steps)),
		}
		if sm := p.Submodel(); sm != nil {
			pj.Submodel = sm.Name()
		}
		if sp := p.Preview; sp != nil {
			pv := &previewJSON{Rect: toRect(sp.Rect), Scale: sp.Scale}
			if sp.Submodel != nil {
				pv.Submodel = sp.Submodel.Name()
			}
			pj.Preview = pv
		}
		for _, l := range p.Separators {
			pj.Separators = append(pj.Separators, toLine(l))
		}
		for _, s := range p.Steps {
			pj.Steps = append(pj.Steps, stepToJSON(s))
		}
		out.Pages = append(out.Pages, pj)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func stepToJSON(s *document.Step) stepJSON {
	sj := stepJSON{
		Number:     s.Number,
		Rect:       toRect(s.Rect),
		NumberRect: toRect(s.NumberRect),
		CSI:        toRect(s.CSI.Rect),
		PLI:        toRect(s.PLI.Rect),
	}
	for _, it := range s.PLI.Items {
		sj.Items = append(sj.Items, itemJSON{
			Part:     it.Part.Name,
			Color:    it.Color,
			Quantity: it.Quantity,
			Rect:     toRect(it.Rect),
		})
	}
	for _, c := range s.Callouts {
		cj := calloutJSON{Rect: toRect(c.Rect), Arrow: toLine(c.Arrow)}
		for _, cs := range c.Steps {
			cj.Steps = append(cj.Steps, stepToJSON(cs))
		}
		sj.Callouts = append(sj.Callouts, cj)
	}
	return sj
}

// ExportLayoutJSON writes the layout of d to a file.
func ExportLayoutJSON(d *document.Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteLayoutJSON(f, d)
}
