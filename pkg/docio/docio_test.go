package docio

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/brickbook/pkg/document"
	"github.com/matzehuels/brickbook/pkg/errors"
	"github.com/matzehuels/brickbook/pkg/geom"
	"github.com/matzehuels/brickbook/pkg/partgraph"
)

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewAlpha(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

// sampleBook builds a synced document that touches every saved field.
func sampleBook(t *testing.T) *document.Document {
	t.Helper()
	reg := partgraph.NewRegistry()

	brick := reg.Define("3001.dat")
	brick.Description = "Brick 2 x 4"
	brick.Primitives = []partgraph.Primitive{
		{Kind: partgraph.PrimitiveQuad, Color: 16, Winding: partgraph.WindingCCW, Points: []r3.Vec{
			{X: -40, Y: 0, Z: -20}, {X: 40, Y: 0, Z: -20}, {X: 40, Y: 24, Z: -20}, {X: -40, Y: 24, Z: -20},
		}},
		{Kind: partgraph.PrimitiveLine, Color: 24, Points: []r3.Vec{{X: -40}, {X: 40}}},
	}
	brick.Measurement = partgraph.Measurement{Valid: true, Width: 80, Height: 60, LeftInset: 12, BottomInset: 9, CenterOffset: geom.Point{X: 1.5, Y: -2}}
	plate := reg.Define("3020.dat")
	door := reg.Define("door.ldr")
	door.IsSubmodel = true

	wheelPart := reg.Define("wheel.ldr")
	wheelPart.IsSubmodel = true
	wheelPart.Children = []*partgraph.PartInstance{
		reg.NewInstance(plate, 0, geom.Identity()),
		reg.NewInstance(brick, 0, geom.Translation(0, -24, 0)),
	}

	mainPart := reg.Define("main.ldr")
	mainPart.IsSubmodel = true
	mirrored := geom.Matrix{0, 0, 0, -1, 0, 0, 0, 1, 0, 0, 0, 1}
	mainPart.Children = []*partgraph.PartInstance{
		reg.NewInstance(brick, 4, geom.Identity()),
		reg.NewInstance(plate, 1, mirrored),
		reg.NewInstance(wheelPart, 16, geom.Translation(20, 0, 0)),
		reg.NewInstance(brick, 14, geom.Translation(0, -24, 0)),
	}
	mainPart.Children[1].Inverted = true
	for _, pi := range mainPart.Children {
		pi.Reparent(partgraph.WindingCCW)
	}
	mainPart.Children[0].Displace(partgraph.DirectionUp, 0)

	d := document.New(reg, mainPart)
	d.PageSize = geom.Size{W: 600, H: 800}

	wheel := d.AddSubmodel(d.Main, wheelPart)
	wp := d.AppendStepPage(wheel, wheelPart.Children...)
	d.SetPreview(wp, &document.SubmodelPreview{Submodel: wheel, Rect: geom.R(0, 0, 90, 90), Scale: 0.6})

	kids := mainPart.Children
	p1 := d.AppendStepPage(d.Main, kids[0], kids[1])
	p1.Locked = true
	p1.Separators = []geom.Line{{A: geom.Point{X: 0, Y: 400}, B: geom.Point{X: 600, Y: 400}}}
	p2 := d.AppendStepPage(d.Main, kids[2])
	d.InsertStep(p2, 1, document.NewStep(kids[3]))

	// A callout holding a folded submodel's step.
	co := &document.Callout{Rect: geom.R(300, 10, 120, 140), Vertical: true, Submodel: &document.Submodel{Part: door},
		Arrow: geom.Line{A: geom.Point{X: 360, Y: 150}, B: geom.Point{X: 200, Y: 200}}}
	d.AttachCallout(p2.Steps[0], 0, co)
	d.InsertCalloutStep(co, 0, document.NewStep(reg.NewInstance(plate, 7, geom.Identity())))
	d.InsertCalloutStep(co, 1, document.NewStep(reg.NewInstance(brick, 7, geom.Identity())))

	d.Sync()
	require.NoError(t, d.CheckNumbering())

	for i, p := range d.Pages() {
		p.NumberRect = geom.R(560, 770, 20, 20)
		for j, s := range p.Steps {
			s.Rect = geom.R(10, 10+float64(j)*390, 580, 380)
			s.CSI.Rect = geom.R(100, 80, 300+float64(i), 200)
			s.CSI.Key = "csi:" + strconv.Itoa(s.Number)
			s.PLI.Rect = geom.R(10, 10, 90, 60)
			for k, it := range s.PLI.Items {
				it.Rect = geom.R(float64(k)*45, 0, 45, 60)
				it.PartRect = geom.R(0, 0, 45, 45)
				it.LabelRect = geom.R(0, 45, 20, 15)
			}
		}
	}
	p1.Steps[0].CSI.Pixels = tinyPNG(t)
	return d
}

func encode(t *testing.T, d *document.Document) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, d))
	return buf.Bytes()
}

func TestRoundTripIsByteIdentical(t *testing.T) {
	d := sampleBook(t)
	first := encode(t, d)
	require.True(t, bytes.HasPrefix(first, []byte(Magic)))

	loaded, err := Read(bytes.NewReader(first))
	require.NoError(t, err)
	assert.Equal(t, first, encode(t, loaded))

	assert.Equal(t, d.ID, loaded.ID)
	assert.Equal(t, d.PageSize, loaded.PageSize)
	assert.Equal(t, len(d.Pages()), len(loaded.Pages()))
	require.NoError(t, loaded.CheckNumbering())
}

func TestRoundTripPreservesIdentityAndFlags(t *testing.T) {
	d := sampleBook(t)
	loaded, err := Read(bytes.NewReader(encode(t, d)))
	require.NoError(t, err)

	main := loaded.Main
	require.Len(t, main.Pages, 2)
	p1 := main.Pages[0]
	assert.True(t, p1.Locked)
	assert.Len(t, p1.Separators, 1)
	assert.Equal(t, tinyPNG(t), p1.Steps[0].CSI.Pixels)

	// Step parts are the very instances listed as the main part's children.
	assert.Same(t, main.Part.Children[0], p1.Steps[0].Parts[0])
	disp := main.Part.Children[0].Displacement
	require.NotNil(t, disp)
	assert.Equal(t, partgraph.DirectionUp, disp.Direction)

	mirrored := main.Part.Children[1]
	assert.True(t, mirrored.Inverted)
	assert.Equal(t, d.Main.Part.Children[1].Winding(), mirrored.Winding())

	brick, ok := loaded.Registry.Lookup("3001.dat")
	require.True(t, ok)
	assert.Equal(t, "Brick 2 x 4", brick.Description)
	assert.True(t, brick.Measurement.Valid)
	assert.Equal(t, 12, brick.Measurement.LeftInset)
	assert.Len(t, brick.Primitives, 2)

	// New instances never reuse a saved ID.
	fresh := loaded.Registry.NewInstance(brick, 1, geom.Identity())
	for _, p := range loaded.Registry.Parts() {
		for _, c := range p.Children {
			assert.Greater(t, fresh.ID, c.ID)
		}
	}

	wheel := main.Children[0]
	require.NotNil(t, wheel.Pages[0].Preview)
	assert.Same(t, wheel, wheel.Pages[0].Preview.Submodel)

	co := main.Pages[1].Steps[0].Callouts[0]
	require.Len(t, co.Steps, 2)
	assert.Same(t, co.Steps[0].CSI, co.Steps[1].CSI.Prev)
	require.NotNil(t, co.Submodel)
	assert.Equal(t, "door.ldr", co.Submodel.Name())
	assert.Nil(t, loaded.FindSubmodel(co.Submodel.Part))
}

func TestLoadStructureDefersReferences(t *testing.T) {
	d := sampleBook(t)
	s, err := LoadStructure(bytes.NewReader(encode(t, d)))
	require.NoError(t, err)
	assert.Equal(t, Version, s.Version)

	second := s.Document.Main.Pages[1].Steps[0]
	assert.Nil(t, second.CSI.Prev)
	assert.Nil(t, s.Document.Main.Children[0].Pages[0].Preview.Submodel)

	loaded, err := s.ResolveReferences()
	require.NoError(t, err)
	assert.Same(t, loaded.Main.Pages[0].Steps[0].CSI, second.CSI.Prev)

	_, err = s.ResolveReferences()
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestPreviousCSIStoredByNumber(t *testing.T) {
	d := sampleBook(t)
	p2 := d.Main.Pages[1]
	co := p2.Steps[0].Callouts[0]

	s, err := LoadStructure(bytes.NewReader(encode(t, d)))
	require.NoError(t, err)

	type ref struct {
		page, step int
		hops       [][2]int
	}
	var refs []ref
	for _, pp := range s.prevs {
		refs = append(refs, ref{pp.page, pp.step, pp.hops})
	}
	assert.Contains(t, refs, ref{d.Main.Pages[0].Number, d.Main.Pages[0].Steps[0].Number, nil})
	assert.Contains(t, refs, ref{p2.Number, p2.Steps[0].Number, [][2]int{{0, co.Steps[0].Number}}})
}

func TestResolveRejectsDanglingPreviousCSI(t *testing.T) {
	s, err := LoadStructure(bytes.NewReader(encode(t, sampleBook(t))))
	require.NoError(t, err)
	require.NotEmpty(t, s.prevs)

	s.prevs[0].step = 999
	_, err = s.ResolveReferences()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat), "got %v", err)
}

func TestReadRejectsBadInput(t *testing.T) {
	good := encode(t, sampleBook(t))

	future := bytes.Clone(good)
	future[4] = 0xff

	tests := []struct {
		name string
		data []byte
		code errors.Code
	}{
		{"empty", nil, errors.ErrCodeInvalidFormat},
		{"bad magic", append([]byte("NOPE"), good[4:]...), errors.ErrCodeInvalidFormat},
		{"future version", future, errors.ErrCodeUnsupported},
		{"truncated", good[:len(good)/2], errors.ErrCodeInvalidFormat},
		{"trailing data", append(bytes.Clone(good), 0), errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestWriteRefusesDirtyDocument(t *testing.T) {
	d := sampleBook(t)
	d.MarkDirty()
	err := Write(&bytes.Buffer{}, d)
	assert.True(t, errors.Is(err, errors.ErrCodeNumberingInvariant))
}

func TestSaveAndLoadFile(t *testing.T) {
	d := sampleBook(t)
	path := t.TempDir() + "/book.brkb"
	require.NoError(t, Save(path, d))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, encode(t, d), encode(t, loaded))

	_, err = Load(t.TempDir() + "/missing.brkb")
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound))
}

func TestWriteLayoutJSON(t *testing.T) {
	d := sampleBook(t)
	var buf bytes.Buffer
	require.NoError(t, WriteLayoutJSON(&buf, d))

	var out struct {
		ID    string `json:"id"`
		Pages []struct {
			Number   int    `json:"number"`
			Submodel string `json:"submodel"`
			Steps    []struct {
				Number   int `json:"number"`
				Items    []struct{ Part string }
				Callouts []struct {
					Steps []struct{ Number int }
				}
			}
		}
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, d.ID.String(), out.ID)
	require.Len(t, out.Pages, 3)
	assert.Equal(t, "main.ldr", out.Pages[0].Submodel)
	assert.Equal(t, "wheel.ldr", out.Pages[1].Submodel)
	assert.Equal(t, 3, out.Pages[2].Number)
	require.Len(t, out.Pages[2].Steps, 2)
	require.Len(t, out.Pages[2].Steps[0].Callouts, 1)
	assert.Len(t, out.Pages[2].Steps[0].Callouts[0].Steps, 2)
}

func TestToDOT(t *testing.T) {
	d := sampleBook(t)
	dot := ToDOT(d, DOTOptions{})
	assert.True(t, strings.HasPrefix(dot, "digraph G {"))
	assert.Contains(t, dot, `label="wheel.ldr"`)
	assert.Contains(t, dot, `label="page 1 (locked)"`)
	assert.Contains(t, dot, `label="callout"`)
	assert.Contains(t, dot, "style=dashed, constraint=false")

	detailed := ToDOT(d, DOTOptions{Detailed: true})
	assert.Contains(t, detailed, `parts: 2`)
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), ToDOT(sampleBook(t), DOTOptions{}))
	require.NoError(t, err)
	assert.Contains(t, string(svg), `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 `)
}
