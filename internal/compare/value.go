// internal/compare/value.go
package compare

import (
	"encoding/json"
	"strconv"
)

// Kind is the type of a configuration value.
type Kind uint8

const (
	Null Kind = iota
	Number
	String
)

// Value is one configuration value of one unit.
type Value struct {
	Kind Kind
	Num  float64
	Str  string // display text; for numbers the literal as received
}

// NumberValue builds a numeric value.
func NumberValue(f float64) Value {
	return Value{Kind: Number, Num: f, Str: strconv.FormatFloat(f, 'f', -1, 64)}
}

// StringValue builds a string value.
func StringValue(s string) Value {
	return Value{Kind: String, Str: s}
}

// FromJSON converts a decoded JSON value.
// Booleans, arrays and objects are compared as their compact JSON text.
// telnet.Parse decodes with UseNumber, so numbers normally arrive as
// json.Number; float64 and int serve documents decoded without it.
func FromJSON(v any) Value {
	switch x := v.(type) {
	case nil:
		return Value{}
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return StringValue(x.String())
		}
		return Value{Kind: Number, Num: f, Str: x.String()}
	case float64:
		return NumberValue(x)
	case int:
		return NumberValue(float64(x))
	case string:
		return StringValue(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return StringValue("?")
		}
		return StringValue(string(b))
	}
}

// FromDocument converts a decoded JSON object.
func FromDocument(doc map[string]any) map[string]Value {
	if doc == nil {
		return nil
	}
	out := make(map[string]Value, len(doc))
	for k, v := range doc {
		out[k] = FromJSON(v)
	}
	return out
}

func (v Value) IsNull() bool { return v.Kind == Null }

// String is the display text; null renders as "-".
func (v Value) String() string {
	if v.Kind == Null {
		return "-"
	}
	return v.Str
}

// identity is the equality key used for counting: numbers compare by value,
// so 10 and 10.0 are the same.
func (v Value) identity() string {
	switch v.Kind {
	case Number:
		return "n:" + strconv.FormatFloat(v.Num, 'g', -1, 64)
	case String:
		return "s:" + v.Str
	default:
		return ""
	}
}
