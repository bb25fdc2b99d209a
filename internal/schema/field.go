// Package schema compiles a set of key definitions into a property decoder.
// Each key becomes a Field tagged with a Kind; decoding dispatches on the tag.
package schema

import "fmt"

// Kind is the structural type a Field accepts.
type Kind int

const (
	KindUnknown Kind = iota
	KindNumber
	KindString
	KindBoolean
	KindDate
	KindList
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindDate:
		return "date"
	case KindList:
		return "list"
	case KindEnum:
		return "enumeration"
	default:
		return "unknown"
	}
}

// KindOf maps a stored data type name onto a Kind. Types the decoder has no
// structural rule for (file, unknown, anything new) pass through.
func KindOf(dataType string) Kind {
	switch dataType {
	case "number":
		return KindNumber
	case "string":
		return KindString
	case "boolean":
		return KindBoolean
	case "date":
		return KindDate
	case "list":
		return KindList
	case "enumeration":
		return KindEnum
	default:
		return KindUnknown
	}
}

// Constraint holds the checks a structural decoder cannot express. A zero Min
// and Max disable the cardinality check.
type Constraint struct {
	Regex string `json:"regex,omitempty"`
	Min   *int   `json:"min,omitempty"`
	Max   *int   `json:"max,omitempty"`
}

// Field is one compiled key.
type Field struct {
	Name     string      `json:"name"`
	Kind     Kind        `json:"kind"`
	Required bool        `json:"required"`
	Options  []string    `json:"options,omitempty"`
	Default  any         `json:"default,omitempty"`
	Check    *Constraint `json:"check,omitempty"`
}

// Violation is a single field that failed structural decoding.
type Violation struct {
	Field  string
	Reason string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Reason)
}
