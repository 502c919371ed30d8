package ldraw

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/brickbook/pkg/errors"
	"github.com/matzehuels/brickbook/pkg/geom"
	"github.com/matzehuels/brickbook/pkg/partgraph"
)

// Resolver opens sub-part files that are not embedded in the model.
type Resolver interface {
	Open(name string) (io.ReadCloser, error)
}

// DirResolver searches an LDraw library laid out as <root>/parts,
// <root>/p and <root>/models, plus any extra directories, in order.
type DirResolver struct {
	Dirs []string
}

// NewDirResolver creates a resolver for an LDraw library root and the
// directory of the model being imported.
func NewDirResolver(libraryRoot, modelDir string) *DirResolver {
	var dirs []string
	if modelDir != "" {
		dirs = append(dirs, modelDir)
	}
	if libraryRoot != "" {
		dirs = append(dirs,
			filepath.Join(libraryRoot, "parts"),
			filepath.Join(libraryRoot, "p"),
			filepath.Join(libraryRoot, "models"),
		)
	}
	return &DirResolver{Dirs: dirs}
}

// Open implements Resolver.
func (r *DirResolver) Open(name string) (io.ReadCloser, error) {
	if err := errors.ValidatePartName(name); err != nil {
		return nil, err
	}
	rel := filepath.FromSlash(errors.NormalizePartName(name))
	for _, dir := range r.Dirs {
		f, err := os.Open(filepath.Join(dir, rel))
		if err == nil {
			return f, nil
		}
	}
	return nil, errors.New(errors.ErrCodeFileNotFound, "%s not found in library", name)
}

// StepBreaks records, per part, the child counts at which a "0 STEP" line
// appeared. A break value n means a step ends after the first n children.
type StepBreaks map[*partgraph.AbstractPart][]int

// Result is the outcome of a successful parse.
type Result struct {
	Main       *partgraph.AbstractPart
	Submodels  []*partgraph.AbstractPart // embedded files after the first, in file order
	Missing    []*errors.MissingPartError
	StepBreaks StepBreaks
}

// section is one embedded file (or the whole input when not MPD).
type section struct {
	part      *partgraph.AbstractPart
	winding   partgraph.Winding
	invertNxt bool
	refs      []pendingRef
	stepLines []int
	breaks    []int
}

type pendingRef struct {
	inst *partgraph.PartInstance
	name string
	line int
}

type parser struct {
	reg      *partgraph.Registry
	resolver Resolver
	file     string
	embedded map[string]*section
	order    []*section
	loading  map[string]bool
	result   *Result
}

// Parse reads an LDraw or MPD model named name from r into reg.
// Parts that are not embedded are loaded through res; res may be nil.
func Parse(name string, r io.Reader, reg *partgraph.Registry, res Resolver) (*Result, error) {
	p := &parser{
		reg:      reg,
		resolver: res,
		file:     name,
		embedded: make(map[string]*section),
		loading:  make(map[string]bool),
		result:   &Result{StepBreaks: StepBreaks{}},
	}
	if err := p.readSections(name, r); err != nil {
		return nil, err
	}
	if len(p.order) == 0 {
		return nil, &errors.ParseError{File: name, Line: 0, Reason: "empty model"}
	}
	for i, s := range p.order {
		s.part.IsSubmodel = i == 0 || !strings.HasSuffix(strings.ToLower(s.part.Name), ".dat")
		s.part.IsPrimitive = isPrimitiveName(s.part.Name)
	}
	for _, s := range p.order {
		p.link(s)
	}
	if err := reg.CheckAcyclic(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCyclicSubmodel, err, "import %s", name)
	}

	p.result.Main = p.order[0].part
	for _, s := range p.order[1:] {
		p.result.Submodels = append(p.result.Submodels, s.part)
	}
	for _, s := range p.order {
		if len(s.breaks) > 0 {
			p.result.StepBreaks[s.part] = s.breaks
		}
	}
	return p.result, nil
}

// readSections splits the input on "0 FILE" and parses each section.
func (p *parser) readSections(name string, r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var cur *section
	open := func(partName string) {
		part := p.reg.Define(partName)
		part.Primitives = nil
		part.Children = nil
		part.ResetGeometry()
		cur = &section{part: part, winding: partgraph.WindingUnknown}
		p.embedded[partgraph.Key(partName)] = cur
		p.order = append(p.order, cur)
	}

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if fields[0] == "0" && len(fields) >= 3 && strings.EqualFold(fields[1], "FILE") {
			open(strings.Join(fields[2:], " "))
			continue
		}
		if fields[0] == "0" && len(fields) >= 2 && strings.EqualFold(fields[1], "NOFILE") {
			cur = nil
			continue
		}
		if cur == nil {
			if len(p.order) > 0 {
				// Content between NOFILE and the next FILE is ignored.
				continue
			}
			open(name)
		}
		if err := p.parseLine(cur, fields, lineNo); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return &errors.ParseError{File: name, Line: lineNo, Reason: err.Error()}
	}
	return nil
}

func (p *parser) parseLine(s *section, f []string, lineNo int) error {
	fail := func(format string, args ...any) error {
		return &errors.ParseError{File: p.file, Line: lineNo, Reason: fmt.Sprintf(format, args...)}
	}

	switch f[0] {
	case "0":
		p.parseMeta(s, f[1:], lineNo)
		return nil
	case "1":
		if len(f) < 15 {
			return fail("sub-part reference needs 15 tokens, got %d", len(f))
		}
		nums, err := floats(f[1:14])
		if err != nil {
			return fail("%v", err)
		}
		var m geom.Matrix
		copy(m[:], nums[1:13])
		ref := strings.Join(f[14:], " ")
		inst := p.reg.NewInstance(nil, int(nums[0]), m)
		inst.Inverted = s.invertNxt
		s.invertNxt = false
		s.refs = append(s.refs, pendingRef{inst: inst, name: ref, line: lineNo})
		return nil
	case "2", "3", "4":
		kind := partgraph.PrimitiveKind(f[0][0] - '0')
		want := 2 + 3*int(kind)
		if kind == partgraph.PrimitiveLine {
			want = 8
		}
		if len(f) != want {
			return fail("type %s line needs %d tokens, got %d", f[0], want, len(f))
		}
		nums, err := floats(f[1:])
		if err != nil {
			return fail("%v", err)
		}
		prim := partgraph.Primitive{Kind: kind, Color: int(nums[0]), Winding: s.winding}
		for i := 1; i+2 < len(nums); i += 3 {
			prim.Points = append(prim.Points, r3.Vec{X: nums[i], Y: nums[i+1], Z: nums[i+2]})
		}
		s.part.Primitives = append(s.part.Primitives, prim)
		return nil
	case "5":
		return nil
	}
	return fail("unknown line type %q", f[0])
}

func (p *parser) parseMeta(s *section, f []string, lineNo int) {
	if len(f) == 0 {
		return
	}
	switch strings.ToUpper(f[0]) {
	case "STEP":
		s.stepLines = append(s.stepLines, lineNo)
	case "BFC":
		for _, tok := range f[1:] {
			switch strings.ToUpper(tok) {
			case "INVERTNEXT":
				s.invertNxt = true
			case "CCW":
				s.winding = partgraph.WindingCCW
			case "CW":
				s.winding = partgraph.WindingCW
			}
		}
	default:
		if s.part.Description == "" && !strings.HasPrefix(f[0], "!") && !strings.HasPrefix(f[0], "//") {
			s.part.Description = strings.Join(f, " ")
		}
	}
}

// link binds the pending references of s to parts, loading library files
// and recording missing ones. A library file that fails to parse counts as
// missing so that one bad part does not abort the import.
func (p *parser) link(s *section) {
	kept := make([]*partgraph.PartInstance, 0, len(s.refs))
	var keptLines []int
	for _, ref := range s.refs {
		part, err := p.resolve(ref.name)
		if err != nil {
			p.result.Missing = append(p.result.Missing, &errors.MissingPartError{
				Parent: s.part.Name, Name: ref.name, Line: ref.line,
			})
			continue
		}
		ref.inst.Part = part
		ref.inst.Reparent(s.winding)
		kept = append(kept, ref.inst)
		keptLines = append(keptLines, ref.line)
	}
	s.part.Children = kept
	s.refs = nil

	s.breaks = s.breaks[:0]
	for _, stepLine := range s.stepLines {
		n := 0
		for _, ln := range keptLines {
			if ln < stepLine {
				n++
			}
		}
		if n > 0 && (len(s.breaks) == 0 || s.breaks[len(s.breaks)-1] != n) {
			s.breaks = append(s.breaks, n)
		}
	}
}

func (p *parser) resolve(name string) (*partgraph.AbstractPart, error) {
	key := partgraph.Key(name)
	if s, ok := p.embedded[key]; ok {
		return s.part, nil
	}
	if part, ok := p.reg.Lookup(name); ok && (len(part.Primitives) > 0 || len(part.Children) > 0) {
		return part, nil
	}
	if p.resolver == nil || p.loading[key] {
		return nil, errors.New(errors.ErrCodeMissingPart, "%s", name)
	}
	rc, err := p.resolver.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	p.loading[key] = true
	defer delete(p.loading, key)

	sub := &parser{
		reg:      p.reg,
		resolver: p.resolver,
		file:     name,
		embedded: map[string]*section{},
		loading:  p.loading,
		result:   p.result,
	}
	if err := sub.readSections(name, rc); err != nil {
		return nil, err
	}
	if len(sub.order) == 0 {
		return nil, errors.New(errors.ErrCodeMissingPart, "%s is empty", name)
	}
	for _, s := range sub.order {
		sub.link(s)
	}
	part := sub.order[0].part
	part.IsPrimitive = isPrimitiveName(name)
	return part, nil
}

// isPrimitiveName reports whether name lives in the LDraw primitive folders.
func isPrimitiveName(name string) bool {
	norm := errors.NormalizePartName(name)
	return strings.HasPrefix(norm, "p/") || strings.HasPrefix(norm, "48/") || strings.HasPrefix(norm, "8/")
}

func floats(tokens []string) ([]float64, error) {
	out := make([]float64, len(tokens))
	for i, t := range tokens {
		v, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", t)
		}
		out[i] = v
	}
	return out, nil
}
