package models

import (
	"strings"
	"unicode"
)

// PairName is the identity of a relationship pair used when diffing ontologies.
func PairName(origin, relationship, destination string) string {
	return origin + " : " + relationship + " : " + destination
}

// ToPropertyName turns a display name into a valid property name: every rune
// outside [_a-zA-Z0-9] becomes '_' and a leading digit gets a '_' prefix.
func ToPropertyName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if r == '_' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	out := b.String()
	if out == "" {
		return "_"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}
