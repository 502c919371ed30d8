package partgraph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/brickbook/pkg/geom"
)

// Registry owns every AbstractPart of one document, keyed by normalised
// name, and hands out instance IDs.
//
// Registry is not safe for concurrent use.
type Registry struct {
	parts  map[string]*AbstractPart
	nextID int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{parts: make(map[string]*AbstractPart)}
}

// Key returns the registry key for a part name.
func Key(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
}

// Lookup returns the part registered under name.
func (r *Registry) Lookup(name string) (*AbstractPart, bool) {
	p, ok := r.parts[Key(name)]
	return p, ok
}

// Define returns the part registered under name, creating an empty one
// on first reference.
func (r *Registry) Define(name string) *AbstractPart {
	k := Key(name)
	if p, ok := r.parts[k]; ok {
		return p
	}
	p := &AbstractPart{Name: name, View: DefaultView}
	r.parts[k] = p
	return p
}

// Add registers an existing part. It fails if the name is taken by a
// different part.
func (r *Registry) Add(p *AbstractPart) error {
	k := Key(p.Name)
	if existing, ok := r.parts[k]; ok && existing != p {
		return fmt.Errorf("duplicate part %q", p.Name)
	}
	r.parts[k] = p
	return nil
}

// Remove unregisters a part.
func (r *Registry) Remove(name string) {
	delete(r.parts, Key(name))
}

// Len returns the number of registered parts.
func (r *Registry) Len() int { return len(r.parts) }

// Parts returns all parts sorted by key.
func (r *Registry) Parts() []*AbstractPart {
	keys := make([]string, 0, len(r.parts))
	for k := range r.parts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]*AbstractPart, len(keys))
	for i, k := range keys {
		out[i] = r.parts[k]
	}
	return out
}

// NewInstance creates an instance with the next free ID.
func (r *Registry) NewInstance(part *AbstractPart, color int, m geom.Matrix) *PartInstance {
	r.nextID++
	return &PartInstance{ID: r.nextID, Part: part, Color: color, Matrix: m}
}

// ReserveID makes sure later instances get IDs above id. Loaders call it for
// every instance they restore.
func (r *Registry) ReserveID(id int) {
	if id > r.nextID {
		r.nextID = id
	}
}

// ResetGeometry resets p and every registered part that includes it.
func (r *Registry) ResetGeometry(p *AbstractPart) {
	for _, other := range r.parts {
		if other.Uses(p) {
			other.ResetGeometry()
		}
	}
}

// ResetMeasurements invalidates every cached measurement.
func (r *Registry) ResetMeasurements() {
	for _, p := range r.parts {
		p.ResetMeasurement()
	}
}

// CheckAcyclic returns an error naming the first part that contains itself.
func (r *Registry) CheckAcyclic() error {
	const (
		white = iota
		gray
		black
	)
	state := make(map[*AbstractPart]int, len(r.parts))
	var visit func(p *AbstractPart) *AbstractPart
	visit = func(p *AbstractPart) *AbstractPart {
		switch state[p] {
		case gray:
			return p
		case black:
			return nil
		}
		state[p] = gray
		for _, c := range p.Children {
			if c.Part == nil {
				continue
			}
			if bad := visit(c.Part); bad != nil {
				return bad
			}
		}
		state[p] = black
		return nil
	}
	for _, p := range r.Parts() {
		if bad := visit(p); bad != nil {
			return fmt.Errorf("part %q references itself", bad.Name)
		}
	}
	return nil
}
