package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Value is a loosely-typed scalar reported by a marketplace: platforms send
// prices, ratings and delivery times either as JSON numbers or as display
// strings ("₹249", "4.5/5", "10 mins"). The raw text is kept and parsed later
// by the normalizer.
type Value string

// NumberValue builds a Value from a float.
func NumberValue(f float64) Value {
	return Value(strconv.FormatFloat(f, 'f', -1, 64))
}

// IsZero reports whether the value was absent or empty.
func (v Value) IsZero() bool {
	return strings.TrimSpace(string(v)) == ""
}

// String returns the raw text.
func (v Value) String() string {
	return string(v)
}

// UnmarshalJSON accepts a number, a string, a bool or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = valueFromAny(raw)
	return nil
}

// MarshalJSON emits numeric text as a JSON number and everything else as a string.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsZero() {
		return []byte("null"), nil
	}
	if f, err := strconv.ParseFloat(string(v), 64); err == nil {
		return json.Marshal(f)
	}
	return json.Marshal(string(v))
}

// UnmarshalYAML accepts any YAML scalar.
func (v *Value) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	*v = valueFromAny(raw)
	return nil
}

func valueFromAny(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return ""
	case string:
		return Value(t)
	case float64:
		return NumberValue(t)
	case float32:
		return NumberValue(float64(t))
	case int:
		return Value(strconv.Itoa(t))
	case int64:
		return Value(strconv.FormatInt(t, 10))
	case uint64:
		return Value(strconv.FormatUint(t, 10))
	case bool:
		return Value(strconv.FormatBool(t))
	default:
		return Value(fmt.Sprint(t))
	}
}
