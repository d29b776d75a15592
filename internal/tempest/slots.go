package tempest

import "math"

// slotKind selects the coercion rule for one positional slot. JSON
// numbers arrive as float64; the kind decides what shapes are legal
// rather than relying on implicit promotion.
type slotKind int

const (
	// kindFloat accepts any JSON number.
	kindFloat slotKind = iota
	// kindInt accepts only integral JSON numbers (wind direction,
	// counters, bitmasks).
	kindInt
	// kindEpoch accepts only integral JSON numbers, read as seconds.
	kindEpoch
)

// slot describes one element of a positional array payload: a fixed
// 0-based index (its position in the schema slice), a semantic name
// used in error values, a coercion rule, and flags.
//
// Invariant: optional slots form a contiguous suffix. A null element
// is legal only for nullable or optional slots and leaves the field
// unset.
type slot struct {
	name     string
	kind     slotKind
	optional bool
	nullable bool
	set      func(v float64)
}

// extractSlots reads raw by fixed index according to schema. Elements
// beyond the last declared slot are ignored so firmware additions
// never break decoding. raw is never mutated; values land in the
// variant struct through each slot's set func.
func extractSlots(raw []any, schema []slot) *DecodeError {
	if min := requiredPrefix(schema); len(raw) < min {
		return errArityTooSmall(min, len(raw))
	}

	for i, s := range schema {
		if i >= len(raw) {
			// Only the optional suffix can be missing; the arity check
			// above already rejected anything shorter.
			continue
		}
		v := raw[i]
		if v == nil {
			if s.optional || s.nullable {
				continue
			}
			return errTypeMismatch(s.name, "number", "null")
		}
		n, ok := v.(float64)
		if !ok {
			return errTypeMismatch(s.name, "number", jsonTypeName(v))
		}
		if s.kind != kindFloat && n != math.Trunc(n) {
			return errTypeMismatch(s.name, "integer", "float")
		}
		s.set(n)
	}
	return nil
}

// requiredPrefix returns the minimum legal array length: one past the
// last required slot.
func requiredPrefix(schema []slot) int {
	min := 0
	for i, s := range schema {
		if !s.optional {
			min = i + 1
		}
	}
	return min
}

// jsonTypeName names the JSON shape of a decoded value for error messages.
func jsonTypeName(v any) string {
	switch v.(type) {
	case float64:
		return "number"
	case string:
		return "string"
	case bool:
		return "bool"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "null"
	}
}
