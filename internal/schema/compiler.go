package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
)

// checker returns a non-empty reason when v is not acceptable for f. It is
// never called with a nil value.
type checker func(f Field, v any) string

var checkers = map[Kind]checker{
	KindNumber:  checkNumber,
	KindString:  checkString,
	KindDate:    checkString,
	KindBoolean: checkBoolean,
	KindList:    checkList,
	KindEnum:    checkEnum,
	KindUnknown: func(Field, any) string { return "" },
}

// Decoder validates a property bag against the required and optional fields
// it was compiled from. Properties not named by any field are accepted.
type Decoder struct {
	required []Field
	optional []Field
}

// Compile partitions fields into the required and optional shapes.
func Compile(fields []Field) *Decoder {
	d := &Decoder{}
	for _, f := range fields {
		if f.Required {
			d.required = append(d.required, f)
		} else {
			d.optional = append(d.optional, f)
		}
	}
	return d
}

// Fields returns every compiled field, required first.
func (d *Decoder) Fields() []Field {
	return append(slices.Clone(d.required), d.optional...)
}

// Decode checks input and returns a *DecodeError listing every violation.
func (d *Decoder) Decode(input map[string]any) error {
	var violations []Violation

	for _, f := range d.required {
		v, ok := input[f.Name]
		if !ok {
			violations = append(violations, Violation{Field: f.Name, Reason: fmt.Sprintf("required %s is missing", f.Kind)})
			continue
		}
		// an enumeration without options degrades to a nullable string
		if v == nil {
			if f.Kind == KindEnum && len(f.Options) == 0 {
				continue
			}
			violations = append(violations, Violation{Field: f.Name, Reason: fmt.Sprintf("required %s is null", f.Kind)})
			continue
		}
		if reason := checkers[f.Kind](f, v); reason != "" {
			violations = append(violations, Violation{Field: f.Name, Reason: reason})
		}
	}

	for _, f := range d.optional {
		v, ok := input[f.Name]
		if !ok || v == nil {
			continue
		}
		if reason := checkers[f.Kind](f, v); reason != "" {
			violations = append(violations, Violation{Field: f.Name, Reason: reason})
		}
	}

	if len(violations) > 0 {
		return &DecodeError{Violations: violations}
	}
	return nil
}

// DecodeError enumerates every field that failed structural decoding.
type DecodeError struct {
	Violations []Violation
}

func (e *DecodeError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return strings.Join(parts, "; ")
}

// Fields returns the names of the violated fields, sorted.
func (e *DecodeError) Fields() []string {
	out := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		out = append(out, v.Field)
	}
	sort.Strings(out)
	return out
}

func checkNumber(_ Field, v any) string {
	switch n := v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return ""
	case json.Number:
		if _, err := n.Float64(); err == nil {
			return ""
		}
	}
	return fmt.Sprintf("expected number, got %s", describe(v))
}

func checkString(f Field, v any) string {
	if _, ok := v.(string); ok {
		return ""
	}
	return fmt.Sprintf("expected %s as string, got %s", f.Kind, describe(v))
}

func checkBoolean(_ Field, v any) string {
	if _, ok := v.(bool); ok {
		return ""
	}
	return fmt.Sprintf("expected boolean, got %s", describe(v))
}

func checkList(_ Field, v any) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return ""
	}
	return fmt.Sprintf("expected list, got %s", describe(v))
}

func checkEnum(f Field, v any) string {
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("expected enumeration value as string, got %s", describe(v))
	}
	if len(f.Options) == 0 || slices.Contains(f.Options, s) {
		return ""
	}
	return fmt.Sprintf("expected one of [%s], got %q", strings.Join(f.Options, " "), s)
}

func describe(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return "list"
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64, reflect.Int32:
		return "number"
	}
	return rv.Kind().String()
}
