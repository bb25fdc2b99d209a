package schema

import (
	"fmt"
	"maps"
	"regexp"
	"strconv"
	"strings"

	appErr "github.com/graphwarehouse/engine/pkg/errors"
)

// ApplyDefaults returns a copy of input with every absent field that has a
// non-nil default filled in, coerced by kind.
func ApplyDefaults(fields []Field, input map[string]any) map[string]any {
	out := make(map[string]any, len(input)+len(fields))
	maps.Copy(out, input)
	for _, f := range fields {
		if _, ok := out[f.Name]; ok || f.Default == nil {
			continue
		}
		out[f.Name] = coerceDefault(f.Kind, f.Default)
	}
	return out
}

func coerceDefault(k Kind, v any) any {
	switch k {
	case KindNumber:
		if s, ok := v.(string); ok {
			if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return n
			}
		}
		return v
	case KindBoolean:
		switch b := v.(type) {
		case bool:
			return b
		case string:
			return b == "true" || b == "t"
		}
		return false
	default:
		return v
	}
}

// Check runs the secondary constraints against an already decoded payload and
// returns one message per violation.
func Check(fields []Field, payload map[string]any) []string {
	var msgs []string
	for _, f := range fields {
		c := f.Check
		if c == nil {
			continue
		}

		if nonZero(c.Min) || nonZero(c.Max) {
			count := 0
			if _, ok := payload[f.Name]; ok {
				count++
			}
			if c.Min != nil && *c.Min > count {
				msgs = append(msgs, fmt.Sprintf(
					"Validation of %s failed, this key is required. %d provided, less than min (%d).", f.Name, count, *c.Min))
			}
			if c.Max != nil && *c.Max < count {
				msgs = append(msgs, fmt.Sprintf(
					"Validation of %s failed, too many of this key provided. %d provided, more than max (%d).", f.Name, count, *c.Max))
			}
		}

		if c.Regex == "" {
			continue
		}
		v, ok := payload[f.Name]
		if !ok || v == nil {
			continue
		}
		re, err := regexp.Compile(c.Regex)
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("Validation of %s failed, invalid regex %s.", f.Name, c.Regex))
			continue
		}
		if !re.MatchString(stringify(v)) {
			msgs = append(msgs, fmt.Sprintf("Validation of %s failed, regex mismatch. Should match %s.", f.Name, c.Regex))
		}
	}
	return msgs
}

// ValidateAndTransform injects defaults, decodes, then runs secondary checks.
// Failures are CodeInvalid errors; the returned payload carries the defaults.
func ValidateAndTransform(fields []Field, input map[string]any) (map[string]any, error) {
	payload := ApplyDefaults(fields, input)

	if err := CompileCached(fields).Decode(payload); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid properties")
	}

	if msgs := Check(fields, payload); len(msgs) > 0 {
		return nil, appErr.New(appErr.CodeInvalid, strings.Join(msgs, " "))
	}
	return payload, nil
}

func nonZero(p *int) bool { return p != nil && *p != 0 }

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
