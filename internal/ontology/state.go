package ontology

import (
	"github.com/graphwarehouse/engine/internal/models"
	appErr "github.com/graphwarehouse/engine/pkg/errors"
)

// state indexes a candidate once for the whole run.
type state struct {
	candidate          *Candidate
	classByName        map[string]*Class
	classByID          map[string]*Class
	relationshipByName map[string]*Relationship
	relationshipByID   map[string]*Relationship
	dataPropertyByID   map[string]*DataProperty

	// allPairNames holds the identity of every pair a class declares or
	// inherits, named after the class itself.
	allPairNames map[string]bool
}

// pairSpec is a pair derived from a class property, resolved to names.
type pairSpec struct {
	name         string
	origin       string
	relationship string
	destination  string
}

func newState(c *Candidate) (*state, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	s := &state{
		candidate:          c,
		classByName:        make(map[string]*Class, len(c.Classes)),
		classByID:          make(map[string]*Class, len(c.Classes)),
		relationshipByName: make(map[string]*Relationship, len(c.Relationships)),
		relationshipByID:   make(map[string]*Relationship, len(c.Relationships)),
		dataPropertyByID:   make(map[string]*DataProperty, len(c.DataProperties)),
		allPairNames:       map[string]bool{},
	}
	for i := range c.Classes {
		cl := &c.Classes[i]
		s.classByName[cl.Name] = cl
		s.classByID[cl.ID] = cl
	}
	for i := range c.Relationships {
		r := &c.Relationships[i]
		s.relationshipByName[r.Name] = r
		s.relationshipByID[r.ID] = r
	}
	for i := range c.DataProperties {
		dp := &c.DataProperties[i]
		s.dataPropertyByID[dp.ID] = dp
	}

	for i := range c.Classes {
		cl := &c.Classes[i]
		lineage, err := s.lineage(cl)
		if err != nil {
			return nil, err
		}
		for _, from := range lineage {
			for _, p := range s.pairsOf(from) {
				s.allPairNames[models.PairName(cl.Name, p.relationship, p.destination)] = true
			}
		}
	}
	return s, nil
}

// lineage returns cl followed by its ancestors, nearest first.
func (s *state) lineage(cl *Class) ([]*Class, error) {
	out := []*Class{cl}
	seen := map[string]bool{cl.ID: true}
	for cur := cl; !isRoot(cur.Parent); {
		parent := s.classByID[cur.Parent]
		if parent == nil {
			return nil, appErr.Newf(appErr.CodeInvalid, "class %s inherits from unknown class %q", cur.Name, cur.Parent)
		}
		if seen[parent.ID] {
			return nil, appErr.Newf(appErr.CodeInvalid, "class %s is part of an inheritance cycle", cl.Name)
		}
		seen[parent.ID] = true
		out = append(out, parent)
		cur = parent
	}
	return out, nil
}

// parentOf returns the parent class of cl, or nil for a root.
func (s *state) parentOf(cl *Class) *Class {
	if isRoot(cl.Parent) {
		return nil
	}
	return s.classByID[cl.Parent]
}

// keysOf derives the keys cl declares itself. Keys are unique by property
// name; the first declaration wins.
func (s *state) keysOf(cl *Class) []models.MetatypeKey {
	var out []models.MetatypeKey
	seen := map[string]bool{}
	for _, p := range cl.Properties {
		if p.Kind != Primitive {
			continue
		}
		dp := s.dataPropertyByID[p.Ref]
		propertyName := models.ToPropertyName(dp.Name)
		if seen[propertyName] {
			continue
		}
		seen[propertyName] = true

		zero := 0
		key := models.MetatypeKey{KeyDefinition: models.KeyDefinition{
			Name:         dp.Name,
			PropertyName: propertyName,
			Description:  dp.Description,
			DataType:     NormalizeDataType(dp.Type, len(dp.Enum) > 0),
			Required:     (p.Restriction == "min" || p.Restriction == "exact") && p.Cardinality == 1,
			Validation:   &models.KeyValidation{Min: &zero, Max: &zero},
		}}
		if len(dp.Enum) > 0 {
			key.Options = append([]string(nil), dp.Enum...)
		}
		out = append(out, key)
	}
	return out
}

// pairsOf derives the pairs cl declares itself.
func (s *state) pairsOf(cl *Class) []pairSpec {
	var out []pairSpec
	seen := map[string]bool{}
	for _, p := range cl.Properties {
		if p.Kind != Link {
			continue
		}
		rel := s.relationshipByID[p.Ref]
		dest := s.classByID[p.Target]
		name := models.PairName(cl.Name, rel.Name, dest.Name)
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, pairSpec{name: name, origin: cl.Name, relationship: rel.Name, destination: dest.Name})
	}
	return out
}

// keyNames returns the names of the keys cl declares.
func (s *state) keyNames(cl *Class) map[string]bool {
	out := map[string]bool{}
	for _, k := range s.keysOf(cl) {
		out[k.Name] = true
	}
	return out
}
