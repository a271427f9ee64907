package avro

import (
	"math"
	"unicode/utf8"
)

// validDefault reports whether a JSON-like default value fits schema s,
// following Avro's JSON encoding of defaults. Union defaults must match the
// first member.
func validDefault(s Schema, v any) bool {
	switch t := Deref(s).(type) {
	case *Primitive:
		return validPrimitiveDefault(t.Type, v)
	case *Record:
		m, ok := v.(map[string]any)
		if !ok {
			return false
		}
		for _, f := range t.Fields {
			fv, ok := m[f.Name]
			if !ok {
				if f.HasDefault {
					continue
				}
				return false
			}
			if !validDefault(f.Type, fv) {
				return false
			}
		}
		return true
	case *Enum:
		sym, ok := v.(string)
		if !ok {
			return false
		}
		for _, s := range t.Symbols {
			if s == sym {
				return true
			}
		}
		return false
	case *Array:
		arr, ok := v.([]any)
		if !ok {
			return false
		}
		for _, it := range arr {
			if !validDefault(t.Items, it) {
				return false
			}
		}
		return true
	case *Map:
		m, ok := v.(map[string]any)
		if !ok {
			return false
		}
		for _, it := range m {
			if !validDefault(t.Values, it) {
				return false
			}
		}
		return true
	case *Union:
		return len(t.Types) > 0 && validDefault(t.Types[0], v)
	case *Fixed:
		s, ok := v.(string)
		return ok && utf8.RuneCountInString(s) == t.Size
	}
	return false
}

func validPrimitiveDefault(k Kind, v any) bool {
	switch k {
	case KindNull:
		return v == nil
	case KindBoolean:
		_, ok := v.(bool)
		return ok
	case KindInt:
		n, ok := intValue(v)
		return ok && n >= math.MinInt32 && n <= math.MaxInt32
	case KindLong:
		_, ok := intValue(v)
		return ok
	case KindFloat, KindDouble:
		switch n := v.(type) {
		case int64, float64:
			return true
		case string:
			return n == "NaN" || n == "Infinity" || n == "-Infinity"
		}
		return false
	case KindBytes, KindString:
		_, ok := v.(string)
		return ok
	}
	return false
}
