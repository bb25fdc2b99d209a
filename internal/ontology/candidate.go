package ontology

import (
	"fmt"
	"io"
	"strings"

	appErr "github.com/graphwarehouse/engine/pkg/errors"
	"gopkg.in/yaml.v3"
)

// PropertyKind says what a class property points at.
type PropertyKind string

const (
	// Primitive properties point at a data property and become metatype keys.
	Primitive PropertyKind = "primitive"
	// Link properties point at a relationship and become relationship pairs.
	Link PropertyKind = "relationship"
)

// Candidate is a parsed ontology that has not been reconciled with the live
// one. Classes, relationships and data properties are referenced by their
// source ids, never by name.
type Candidate struct {
	Name           string         `yaml:"name" json:"name"`
	Description    string         `yaml:"description" json:"description"`
	Classes        []Class        `yaml:"classes" json:"classes"`
	Relationships  []Relationship `yaml:"relationships" json:"relationships"`
	DataProperties []DataProperty `yaml:"data_properties" json:"data_properties"`
}

type Class struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	// Parent is the source id of the parent class. Empty or the Thing
	// sentinel means the class is a root.
	Parent     string     `yaml:"parent" json:"parent"`
	Properties []Property `yaml:"properties" json:"properties"`
}

type Property struct {
	Kind PropertyKind `yaml:"kind" json:"kind"`
	// Ref is the source id of the data property or relationship.
	Ref string `yaml:"ref" json:"ref"`
	// Target is the destination class id of a relationship property.
	Target string `yaml:"target" json:"target"`
	// Restriction is one of some, min, max or exact.
	Restriction string `yaml:"restriction" json:"restriction"`
	Cardinality int    `yaml:"cardinality" json:"cardinality"`
}

type Relationship struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

type DataProperty struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	// Type is the source type name, e.g. xsd integer or dateTime.
	Type string   `yaml:"type" json:"type"`
	Enum []string `yaml:"enum" json:"enum"`
}

// Parse decodes a candidate from YAML or JSON.
func Parse(data []byte) (*Candidate, error) {
	var c Candidate
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "unrecognized ontology document")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Read decodes a candidate from r.
func Read(r io.Reader) (*Candidate, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "unable to read ontology document")
	}
	return Parse(data)
}

// Validate checks that every entry has an id and a name, that names are
// unique per kind, and that every reference resolves.
func (c *Candidate) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return appErr.New(appErr.CodeInvalid, "ontology name is required")
	}

	classes := map[string]bool{}
	classNames := map[string]bool{}
	for _, cl := range c.Classes {
		if cl.ID == "" || cl.Name == "" {
			return appErr.Newf(appErr.CodeInvalid, "unable to find a name for the class with id %q", cl.ID)
		}
		if classes[cl.ID] || classNames[cl.Name] {
			return appErr.Newf(appErr.CodeInvalid, "class %s is declared twice", cl.Name)
		}
		classes[cl.ID] = true
		classNames[cl.Name] = true
	}

	rels := map[string]bool{}
	relNames := map[string]bool{}
	for _, r := range c.Relationships {
		if r.ID == "" || r.Name == "" {
			return appErr.Newf(appErr.CodeInvalid, "unable to find a name for the relationship with id %q", r.ID)
		}
		if rels[r.ID] || relNames[r.Name] {
			return appErr.Newf(appErr.CodeInvalid, "relationship %s is declared twice", r.Name)
		}
		rels[r.ID] = true
		relNames[r.Name] = true
	}

	props := map[string]bool{}
	for _, dp := range c.DataProperties {
		if dp.ID == "" || dp.Name == "" {
			return appErr.Newf(appErr.CodeInvalid, "unable to find a name for the data property with id %q", dp.ID)
		}
		if props[dp.ID] {
			return appErr.Newf(appErr.CodeInvalid, "data property %s is declared twice", dp.Name)
		}
		props[dp.ID] = true
	}

	for _, cl := range c.Classes {
		if !isRoot(cl.Parent) && !classes[cl.Parent] {
			return appErr.Newf(appErr.CodeInvalid, "class %s inherits from unknown class %q", cl.Name, cl.Parent)
		}
		for _, p := range cl.Properties {
			if err := checkProperty(cl, p, classes, rels, props); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkProperty(cl Class, p Property, classes, rels, props map[string]bool) error {
	switch p.Kind {
	case Primitive:
		if !props[p.Ref] {
			return appErr.Newf(appErr.CodeInvalid, "class %s references unknown data property %q", cl.Name, p.Ref)
		}
	case Link:
		if !rels[p.Ref] {
			return appErr.Newf(appErr.CodeInvalid, "class %s references unknown relationship %q", cl.Name, p.Ref)
		}
		if !classes[p.Target] {
			return appErr.Newf(appErr.CodeInvalid, "class %s relates to unknown class %q", cl.Name, p.Target)
		}
	default:
		return appErr.New(appErr.CodeInvalid, fmt.Sprintf("class %s has a property of unknown kind %q", cl.Name, p.Kind))
	}
	return nil
}

// isRoot reports whether a parent reference denotes the implicit root class.
func isRoot(parent string) bool {
	return parent == "" || parent == "Thing" || strings.HasSuffix(parent, "#Thing")
}
