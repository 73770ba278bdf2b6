package command

import (
	"fmt"
	"strconv"
)

// PropertyMap holds a message's typed property set. Keys are non-empty
// UTF-8 strings; values are one of bool, int8, int16, int32, int64,
// float32, float64, string, []byte, []any (nested list), or
// map[string]any (nested map).
type PropertyMap map[string]any

// Set stores value under name, rejecting an empty name.
func (p PropertyMap) Set(name string, value any) error {
	if name == "" {
		return fmt.Errorf("command: %w: empty property name", ErrInvalid)
	}
	p[name] = value
	return nil
}

// Get returns the raw stored value, or nil if absent.
func (p PropertyMap) Get(name string) (any, bool) {
	v, ok := p[name]
	return v, ok
}

// Names returns the set of property names, in no particular order.
func (p PropertyMap) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	return names
}

// numericRank orders the widening lattice i8 < i16 < i32 < i64 and f32 < f64.
// A value may be read back out at its own rank or any wider rank of the
// same family; narrowing (e.g. reading an int64 as an int8) is rejected.
func numericRank(v any) (rank int, isFloat bool, ok bool) {
	switch v.(type) {
	case int8:
		return 0, false, true
	case int16:
		return 1, false, true
	case int32:
		return 2, false, true
	case int64:
		return 3, false, true
	case float32:
		return 0, true, true
	case float64:
		return 1, true, true
	default:
		return 0, false, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// GetBoolean returns the named property as a bool. A string value is
// parsed lexically; any other stored type fails with ErrMessageFormat.
func (p PropertyMap) GetBoolean(name string) (bool, error) {
	v, ok := p[name]
	if !ok {
		return false, nil
	}
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return false, fmt.Errorf("command: property %q: %w: %v", name, ErrMessageFormat, err)
		}
		return b, nil
	default:
		return false, fmt.Errorf("command: property %q: %w: cannot read %T as bool", name, ErrMessageFormat, v)
	}
}

// SetBoolean stores a bool property.
func (p PropertyMap) SetBoolean(name string, value bool) error {
	return p.Set(name, value)
}

// getWideningInt reads a stored numeric/string value as an integer of the
// given rank (0=int8 .. 3=int64), permitting only same-or-wider reads.
func getWideningInt(p PropertyMap, name string, wantRank int) (int64, error) {
	v, ok := p[name]
	if !ok {
		return 0, nil
	}
	if s, isStr := v.(string); isStr {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("command: property %q: %w: %v", name, ErrMessageFormat, err)
		}
		return n, nil
	}
	rank, isFloat, ok := numericRank(v)
	if !ok || isFloat {
		return 0, fmt.Errorf("command: property %q: %w: cannot read %T as integer", name, ErrMessageFormat, v)
	}
	if rank > wantRank {
		return 0, fmt.Errorf("command: property %q: %w: narrowing read not permitted", name, ErrMessageFormat)
	}
	n, _ := asInt64(v)
	return n, nil
}

// GetByte returns the named property widened to int8 (rank 0: no widening
// source is narrower, so only an int8 or numeric string round-trips).
func (p PropertyMap) GetByte(name string) (int8, error) {
	n, err := getWideningInt(p, name, 0)
	return int8(n), err
}

// SetByte stores an int8 property.
func (p PropertyMap) SetByte(name string, value int8) error { return p.Set(name, value) }

// GetShort returns the named property widened to int16.
func (p PropertyMap) GetShort(name string) (int16, error) {
	n, err := getWideningInt(p, name, 1)
	return int16(n), err
}

// SetShort stores an int16 property.
func (p PropertyMap) SetShort(name string, value int16) error { return p.Set(name, value) }

// GetInt returns the named property widened to int32.
func (p PropertyMap) GetInt(name string) (int32, error) {
	n, err := getWideningInt(p, name, 2)
	return int32(n), err
}

// SetInt stores an int32 property.
func (p PropertyMap) SetInt(name string, value int32) error { return p.Set(name, value) }

// GetLong returns the named property widened to int64.
func (p PropertyMap) GetLong(name string) (int64, error) {
	return getWideningInt(p, name, 3)
}

// SetLong stores an int64 property.
func (p PropertyMap) SetLong(name string, value int64) error { return p.Set(name, value) }

// GetFloat returns the named property as a float32 (only a float32 itself
// or a numeric string is permitted; a float64 would narrow).
func (p PropertyMap) GetFloat(name string) (float32, error) {
	v, ok := p[name]
	if !ok {
		return 0, nil
	}
	if s, isStr := v.(string); isStr {
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return 0, fmt.Errorf("command: property %q: %w: %v", name, ErrMessageFormat, err)
		}
		return float32(f), nil
	}
	if f, ok := v.(float32); ok {
		return f, nil
	}
	return 0, fmt.Errorf("command: property %q: %w: cannot read %T as float32", name, ErrMessageFormat, v)
}

// SetFloat stores a float32 property.
func (p PropertyMap) SetFloat(name string, value float32) error { return p.Set(name, value) }

// GetDouble returns the named property widened to float64.
func (p PropertyMap) GetDouble(name string) (float64, error) {
	v, ok := p[name]
	if !ok {
		return 0, nil
	}
	if s, isStr := v.(string); isStr {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("command: property %q: %w: %v", name, ErrMessageFormat, err)
		}
		return f, nil
	}
	_, isFloat, ok := numericRank(v)
	if !ok || !isFloat {
		return 0, fmt.Errorf("command: property %q: %w: cannot read %T as float64", name, ErrMessageFormat, v)
	}
	f, _ := asFloat64(v)
	return f, nil
}

// SetDouble stores a float64 property.
func (p PropertyMap) SetDouble(name string, value float64) error { return p.Set(name, value) }

// GetString returns the named property's lexical string form. Every
// primitive converts to a string; this is the universal escape hatch of
// the conversion lattice.
func (p PropertyMap) GetString(name string) (string, error) {
	v, ok := p[name]
	if !ok {
		return "", nil
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("command: property %q: %w: cannot read %T as string", name, ErrMessageFormat, v)
	}
}

// SetString stores a string property. Strings are always convertible back
// to any primitive via lexical parse, per the conversion lattice.
func (p PropertyMap) SetString(name string, value string) error { return p.Set(name, value) }
