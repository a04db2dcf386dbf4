package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Field is a loosely-typed catalog value. The upstream API encodes the same
// attribute either as a bare JSON value ("42", 42, true) or wrapped in an
// attribute object ({"value": 42}); Field normalizes both shapes on
// unmarshal so call sites never shape-sniff.
type Field struct {
	raw     string
	present bool
}

// UnmarshalJSON accepts a bare string, number, bool, null, or a wrapped
// {"value": …} attribute object (unwrapped recursively).
func (f *Field) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = Field{}
		return nil
	}

	switch b[0] {
	case '{':
		var wrapped struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(b, &wrapped); err != nil {
			return err
		}
		if wrapped.Value == nil {
			*f = Field{}
			return nil
		}
		return f.UnmarshalJSON(wrapped.Value)
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Field{raw: s, present: true}
		return nil
	default:
		*f = Field{raw: string(b), present: true}
		return nil
	}
}

// Present reports whether the upstream supplied any value at all.
func (f Field) Present() bool {
	return f.present
}

// String returns the value as a string, "" when absent.
func (f Field) String() string {
	return f.raw
}

// Int returns the value parsed as an integer, 0 when absent or unparsable.
// Fractional values are truncated, matching the upstream's habit of sending
// "2.0" for whole numbers.
func (f Field) Int() int {
	if !f.present {
		return 0
	}
	if n, err := strconv.Atoi(f.raw); err == nil {
		return n
	}
	if fl, err := strconv.ParseFloat(f.raw, 64); err == nil {
		return int(fl)
	}
	return 0
}

// Float returns the value parsed as a float, 0 when absent or unparsable.
func (f Field) Float() float64 {
	if !f.present {
		return 0
	}
	fl, err := strconv.ParseFloat(f.raw, 64)
	if err != nil {
		return 0
	}
	return fl
}
