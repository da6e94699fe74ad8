package graph

import (
	"maps"
	"math"
	"slices"

	"github.com/sadolini/openvino/pkg/errors"
)

// Attrs stores operator-specific attributes keyed by name. Values are
// numeric scalars, numeric slices, strings or booleans. The typed accessors
// fail explicitly when a key is absent or holds the wrong kind of value;
// they never fall back to a default.
//
// Decoded JSON yields float64 and []any for numbers and arrays, so the
// accessors accept any Go numeric type and convert.
type Attrs map[string]any

// Has reports whether key is present.
func (a Attrs) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Clone returns a deep copy of a. Slice values are copied so the clone can
// be mutated independently.
func (a Attrs) Clone() Attrs {
	if a == nil {
		return Attrs{}
	}
	out := make(Attrs, len(a))
	for k, v := range a {
		out[k] = cloneValue(v)
	}
	return out
}

// Keys returns the attribute keys in sorted order.
func (a Attrs) Keys() []string {
	return slices.Sorted(maps.Keys(a))
}

// Int returns the integer scalar stored at key.
func (a Attrs) Int(key string) (int64, error) {
	v, err := a.lookup(key)
	if err != nil {
		return 0, err
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, typeError(key, "integer", v)
	}
	return int64(f), nil
}

// Ints returns the integer slice stored at key. A scalar is not promoted to
// a one-element slice.
func (a Attrs) Ints(key string) ([]int64, error) {
	fs, err := a.Floats(key)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(fs))
	for i, f := range fs {
		if f != math.Trunc(f) {
			return nil, typeError(key, "integer array", a[key])
		}
		out[i] = int64(f)
	}
	return out, nil
}

// Float returns the numeric scalar stored at key.
func (a Attrs) Float(key string) (float64, error) {
	v, err := a.lookup(key)
	if err != nil {
		return 0, err
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, typeError(key, "number", v)
	}
	return f, nil
}

// Floats returns the numeric slice stored at key.
func (a Attrs) Floats(key string) ([]float64, error) {
	v, err := a.lookup(key)
	if err != nil {
		return nil, err
	}
	fs, ok := toFloats(v)
	if !ok {
		return nil, typeError(key, "numeric array", v)
	}
	return fs, nil
}

// Values returns the value at key as a flat numeric slice, promoting a
// scalar to a one-element slice. This is how constant payloads are read:
// importers store them either way.
func (a Attrs) Values(key string) ([]float64, error) {
	v, err := a.lookup(key)
	if err != nil {
		return nil, err
	}
	if f, ok := toFloat(v); ok {
		return []float64{f}, nil
	}
	fs, ok := toFloats(v)
	if !ok {
		return nil, typeError(key, "numeric value", v)
	}
	return fs, nil
}

// Size returns the number of elements of the numeric value at key; a
// scalar has size 1.
func (a Attrs) Size(key string) (int, error) {
	vs, err := a.Values(key)
	if err != nil {
		return 0, err
	}
	return len(vs), nil
}

// String returns the string stored at key.
func (a Attrs) String(key string) (string, error) {
	v, err := a.lookup(key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", typeError(key, "string", v)
	}
	return s, nil
}

// Bool returns the boolean stored at key.
func (a Attrs) Bool(key string) (bool, error) {
	v, err := a.lookup(key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, typeError(key, "boolean", v)
	}
	return b, nil
}

// Flag reports whether key holds boolean true. Absent or non-boolean values
// read as false; use [Attrs.Bool] when absence is an error.
func (a Attrs) Flag(key string) bool {
	b, _ := a[key].(bool)
	return b
}

func (a Attrs) lookup(key string) (any, error) {
	v, ok := a[key]
	if !ok {
		return nil, errors.New(errors.ErrCodeMissingAttribute, "attribute %q is not set", key)
	}
	return v, nil
}

func typeError(key, want string, got any) error {
	return errors.New(errors.ErrCodeAttributeType, "attribute %q: want %s, got %T", key, want, got)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	}
	return 0, false
}

func toFloats(v any) ([]float64, bool) {
	switch s := v.(type) {
	case []float64:
		return slices.Clone(s), true
	case []float32:
		return convert(s), true
	case []int:
		return convert(s), true
	case []int32:
		return convert(s), true
	case []int64:
		return convert(s), true
	case []any:
		out := make([]float64, len(s))
		for i, e := range s {
			f, ok := toFloat(e)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	}
	return nil, false
}

func convert[T int | int32 | int64 | float32](s []T) []float64 {
	out := make([]float64, len(s))
	for i, e := range s {
		out[i] = float64(e)
	}
	return out
}

func cloneValue(v any) any {
	switch s := v.(type) {
	case []float64:
		return slices.Clone(s)
	case []float32:
		return slices.Clone(s)
	case []int:
		return slices.Clone(s)
	case []int32:
		return slices.Clone(s)
	case []int64:
		return slices.Clone(s)
	case []string:
		return slices.Clone(s)
	case []any:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(s))
		for k, e := range s {
			out[k] = cloneValue(e)
		}
		return out
	}
	return v
}
