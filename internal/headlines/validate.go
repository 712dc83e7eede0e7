package headlines

import (
	"encoding/json"
	"strings"
)

// Validate checks that the payload is non-empty and holds only scalar values.
func (f NoteFields) Validate() error {
	if len(f) == 0 {
		return &ValidationError{Reason: "note must have at least one field"}
	}
	for k, v := range f {
		if strings.TrimSpace(k) == "" {
			return &ValidationError{Field: k, Reason: "empty field name"}
		}
		if !isScalar(v) {
			return &ValidationError{Field: k, Reason: "value must be a string, number, boolean or null"}
		}
	}
	return nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// NormalizeNumbers replaces json.Number values in place: integer literals that
// fit become int64, everything else float64. Payloads decoded with UseNumber
// keep integers above 2^53 exact this way.
func (f NoteFields) NormalizeNumbers() error {
	for k, v := range f {
		n, ok := v.(json.Number)
		if !ok {
			continue
		}
		if i, err := n.Int64(); err == nil {
			f[k] = i
			continue
		}
		x, err := n.Float64()
		if err != nil {
			return &ValidationError{Field: k, Reason: "number out of range"}
		}
		f[k] = x
	}
	return nil
}
