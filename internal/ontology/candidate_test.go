package ontology

import (
	"strings"
	"testing"

	"github.com/graphwarehouse/engine/internal/models"
	appErr "github.com/graphwarehouse/engine/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plantYAML = `
name: Plant
description: Process plant equipment
classes:
  - id: ex#Asset
    name: Asset
    parent: owl#Thing
    properties:
      - {kind: primitive, ref: ex#serial, restriction: exact, cardinality: 1}
      - {kind: relationship, ref: ex#locatedAt, target: ex#Site}
  - id: ex#Pump
    name: Pump
    parent: ex#Asset
    properties:
      - {kind: primitive, ref: ex#flowRate, restriction: some}
      - {kind: primitive, ref: ex#status}
  - id: ex#Site
    name: Site
relationships:
  - {id: ex#locatedAt, name: located at}
data_properties:
  - {id: ex#serial, name: serial number, type: "xsd:string"}
  - {id: ex#flowRate, name: flow rate, type: "xsd:double"}
  - {id: ex#status, name: status, type: "xsd:string", enum: [running, stopped]}
`

// plant returns a fresh copy of the fixture ontology.
func plant(t *testing.T) *Candidate {
	t.Helper()
	c, err := Parse([]byte(plantYAML))
	require.NoError(t, err)
	return c
}

func TestParseYAML(t *testing.T) {
	c := plant(t)

	assert.Equal(t, "Plant", c.Name)
	require.Len(t, c.Classes, 3)
	assert.Equal(t, "ex#Asset", c.Classes[1].Parent)
	assert.Equal(t, Link, c.Classes[0].Properties[1].Kind)
	assert.Equal(t, []string{"running", "stopped"}, c.DataProperties[2].Enum)
}

func TestParseJSON(t *testing.T) {
	c, err := Read(strings.NewReader(`{"name": "Tiny", "classes": [{"id": "a", "name": "A"}], "relationships": [], "data_properties": []}`))
	require.NoError(t, err)
	assert.Equal(t, "Tiny", c.Name)
	assert.Len(t, c.Classes, 1)
}

func TestParseRejectsMalformedDocument(t *testing.T) {
	_, err := Parse([]byte("classes: [unclosed"))
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Candidate)
		want   string
	}{
		{"missing name", func(c *Candidate) { c.Name = " " }, "ontology name is required"},
		{"unnamed class", func(c *Candidate) { c.Classes[2].Name = "" }, `class with id "ex#Site"`},
		{"duplicate class", func(c *Candidate) { c.Classes[2].Name = "Pump" }, "class Pump is declared twice"},
		{"duplicate relationship", func(c *Candidate) {
			c.Relationships = append(c.Relationships, Relationship{ID: "ex#other", Name: "located at"})
		}, "relationship located at is declared twice"},
		{"unknown parent", func(c *Candidate) { c.Classes[1].Parent = "ex#Machine" }, `inherits from unknown class "ex#Machine"`},
		{"unknown data property", func(c *Candidate) { c.Classes[1].Properties[0].Ref = "ex#rpm" }, `unknown data property "ex#rpm"`},
		{"unknown relationship", func(c *Candidate) { c.Classes[0].Properties[1].Ref = "ex#feeds" }, `unknown relationship "ex#feeds"`},
		{"unknown target", func(c *Candidate) { c.Classes[0].Properties[1].Target = "ex#Plant" }, `relates to unknown class "ex#Plant"`},
		{"unknown kind", func(c *Candidate) { c.Classes[0].Properties[0].Kind = "annotation" }, `unknown kind "annotation"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := plant(t)
			tt.mutate(c)

			err := c.Validate()
			require.Error(t, err)
			assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNormalizeDataType(t *testing.T) {
	tests := []struct {
		source     string
		enumerated bool
		want       models.DataType
	}{
		{"xsd:integer", false, models.DataTypeNumber},
		{"http://www.w3.org/2001/XMLSchema#double", false, models.DataTypeNumber},
		{"xsd:nonNegativeInteger", false, models.DataTypeNumber},
		{"xsd:dateTime", false, models.DataTypeDate},
		{"xsd:date", false, models.DataTypeDate},
		{"xsd:boolean", false, models.DataTypeBoolean},
		{"xsd:anyURI", false, models.DataTypeFile},
		{"List", false, models.DataTypeList},
		{"xsd:string", false, models.DataTypeString},
		{"rdfs:Literal", false, models.DataTypeString},
		{"", false, models.DataTypeString},
		{"xsd:integer", true, models.DataTypeEnumeration},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDataType(tt.source, tt.enumerated), tt.source)
	}
}

func TestStateDerivesKeys(t *testing.T) {
	s, err := newState(plant(t))
	require.NoError(t, err)

	asset := s.keysOf(s.classByName["Asset"])
	require.Len(t, asset, 1)
	assert.Equal(t, "serial number", asset[0].Name)
	assert.Equal(t, "serial_number", asset[0].PropertyName)
	assert.Equal(t, models.DataTypeString, asset[0].DataType)
	assert.True(t, asset[0].Required)

	pump := s.keysOf(s.classByName["Pump"])
	require.Len(t, pump, 2)
	assert.Equal(t, models.DataTypeNumber, pump[0].DataType)
	assert.False(t, pump[0].Required)
	assert.Equal(t, models.DataTypeEnumeration, pump[1].DataType)
	assert.Equal(t, []string{"running", "stopped"}, pump[1].Options)
	require.NotNil(t, pump[1].Validation)
	assert.Equal(t, 0, *pump[1].Validation.Min)
}

func TestStateRequiresSingleMinOrExactCardinality(t *testing.T) {
	c := plant(t)
	c.Classes[0].Properties[0].Restriction = "min"
	c.Classes[0].Properties[0].Cardinality = 2
	s, err := newState(c)
	require.NoError(t, err)

	assert.False(t, s.keysOf(s.classByName["Asset"])[0].Required)
}

func TestStateNamesInheritedPairsAfterTheChild(t *testing.T) {
	s, err := newState(plant(t))
	require.NoError(t, err)

	assert.True(t, s.allPairNames["Asset : located at : Site"])
	assert.True(t, s.allPairNames["Pump : located at : Site"])
	assert.Len(t, s.allPairNames, 2)
	assert.Empty(t, s.pairsOf(s.classByName["Pump"]))
}

func TestStateRejectsInheritanceCycle(t *testing.T) {
	c := plant(t)
	c.Classes[0].Parent = "ex#Pump"

	_, err := newState(c)
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
	assert.Contains(t, err.Error(), "inheritance cycle")
}
