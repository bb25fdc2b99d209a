package schema

import (
	"errors"
	"testing"

	appErr "github.com/graphwarehouse/engine/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(i int) *int { return &i }

func colorFields() []Field {
	return []Field{
		{Name: "name", Kind: KindString, Required: true},
		{Name: "color", Kind: KindEnum, Options: []string{"red", "blue"}},
	}
}

func decodeErr(t *testing.T, err error) *DecodeError {
	t.Helper()
	var de *DecodeError
	require.True(t, errors.As(err, &de), "expected DecodeError, got %v", err)
	return de
}

func TestValidatorCorrectness(t *testing.T) {
	fields := colorFields()

	out, err := ValidateAndTransform(fields, map[string]any{"name": "x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "x"}, out)

	_, err = ValidateAndTransform(fields, map[string]any{})
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
	assert.Equal(t, []string{"name"}, decodeErr(t, err).Fields())

	_, err = ValidateAndTransform(fields, map[string]any{"name": "x", "color": "green"})
	require.Error(t, err)
	assert.Equal(t, []string{"color"}, decodeErr(t, err).Fields())
}

func TestDecodeListsEveryViolation(t *testing.T) {
	fields := []Field{
		{Name: "count", Kind: KindNumber, Required: true},
		{Name: "active", Kind: KindBoolean, Required: true},
		{Name: "tags", Kind: KindList},
		{Name: "seen", Kind: KindDate},
	}
	err := Compile(fields).Decode(map[string]any{
		"count": "three",
		"tags":  "a,b",
		"seen":  20240101,
		"extra": map[string]any{"free": true},
	})
	require.Error(t, err)
	assert.Equal(t, []string{"active", "count", "seen", "tags"}, decodeErr(t, err).Fields())
}

func TestOptionalAcceptsNullAndExtras(t *testing.T) {
	fields := []Field{
		{Name: "count", Kind: KindNumber},
		{Name: "blob", Kind: KindUnknown, Required: true},
		{Name: "tags", Kind: KindList, Required: true},
	}
	err := Compile(fields).Decode(map[string]any{
		"count":   nil,
		"blob":    map[string]any{"x": 1},
		"tags":    []string{"a"},
		"surplus": 42,
	})
	require.NoError(t, err)
}

func TestEnumWithoutOptionsIsNullableString(t *testing.T) {
	d := Compile([]Field{{Name: "status", Kind: KindEnum, Required: true}})

	require.NoError(t, d.Decode(map[string]any{"status": nil}))
	require.NoError(t, d.Decode(map[string]any{"status": "anything"}))
	require.Error(t, d.Decode(map[string]any{"status": 3.0}))
	require.Error(t, d.Decode(map[string]any{}))
}

func TestDefaultInjection(t *testing.T) {
	fields := []Field{
		{Name: "weight", Kind: KindNumber, Default: 1},
		{Name: "ratio", Kind: KindNumber, Default: "2.5"},
		{Name: "enabled", Kind: KindBoolean, Default: "t"},
		{Name: "hidden", Kind: KindBoolean, Default: "yes"},
		{Name: "label", Kind: KindString, Default: "none"},
		{Name: "skip", Kind: KindString},
	}
	input := map[string]any{"label": "given"}

	out, err := ValidateAndTransform(fields, input)
	require.NoError(t, err)
	assert.Equal(t, 1, out["weight"])
	assert.Equal(t, 2.5, out["ratio"])
	assert.Equal(t, true, out["enabled"])
	assert.Equal(t, false, out["hidden"])
	assert.Equal(t, "given", out["label"])
	assert.NotContains(t, out, "skip")
	assert.Equal(t, map[string]any{"label": "given"}, input, "caller map is not mutated")
}

func TestSecondaryCardinality(t *testing.T) {
	fields := []Field{
		{Name: "serial", Kind: KindString, Check: &Constraint{Min: intp(1)}},
		{Name: "alias", Kind: KindString, Check: &Constraint{Min: intp(1), Max: intp(0)}},
		{Name: "free", Kind: KindString, Check: &Constraint{Min: intp(0), Max: intp(0)}},
	}

	_, err := ValidateAndTransform(fields, map[string]any{"alias": "a"})
	require.Error(t, err)
	assert.Equal(t,
		"Validation of serial failed, this key is required. 0 provided, less than min (1). "+
			"Validation of alias failed, too many of this key provided. 1 provided, more than max (0).",
		appErr.MessageOf(err))
}

func TestSecondaryRegex(t *testing.T) {
	fields := []Field{
		{Name: "code", Kind: KindString, Check: &Constraint{Regex: `^[A-Z]{3}$`}},
		{Name: "port", Kind: KindNumber, Check: &Constraint{Regex: `^\d+$`}},
	}

	_, err := ValidateAndTransform(fields, map[string]any{"code": "ABC", "port": 8080.0})
	require.NoError(t, err)

	_, err = ValidateAndTransform(fields, map[string]any{})
	require.NoError(t, err, "absent optional values are not matched")

	_, err = ValidateAndTransform(fields, map[string]any{"code": "abcd"})
	require.Error(t, err)
	assert.Equal(t, "Validation of code failed, regex mismatch. Should match ^[A-Z]{3}$.", appErr.MessageOf(err))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNumber, KindOf("number"))
	assert.Equal(t, KindEnum, KindOf("enumeration"))
	assert.Equal(t, KindUnknown, KindOf("file"))
	assert.Equal(t, "date", KindDate.String())
}

func TestCompileCachedReuses(t *testing.T) {
	a := CompileCached(colorFields())
	b := CompileCached(colorFields())
	assert.Same(t, a, b)
	assert.Len(t, a.Fields(), 2)
	assert.True(t, a.Fields()[0].Required)
}
