package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueNumber
	ValueText
	ValueDimensions
	ValueOther
)

func (k ValueKind) String() string {
	switch k {
	case ValueNone:
		return "none"
	case ValueNumber:
		return "number"
	case ValueText:
		return "text"
	case ValueDimensions:
		return "dimensions"
	default:
		return "other"
	}
}

// Dimensions holds the raw width/height members of a resize value. They stay
// untyped until an operation asks for them.
type Dimensions struct {
	Width  Value `json:"width"`
	Height Value `json:"height"`
}

// Value is the operation argument. Which field is meaningful depends on Kind.
type Value struct {
	Kind   ValueKind
	Number float64
	Text   string
	Dims   *Dimensions
	raw    json.RawMessage
}

func NumberValue(n float64) Value { return Value{Kind: ValueNumber, Number: n} }

func TextValue(s string) Value { return Value{Kind: ValueText, Text: s} }

func DimensionsValue(width, height int) Value {
	return Value{Kind: ValueDimensions, Dims: &Dimensions{
		Width:  NumberValue(float64(width)),
		Height: NumberValue(float64(height)),
	}}
}

func (v Value) IsNone() bool { return v.Kind == ValueNone }

func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*v = Value{}
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("decode text value: %w", err)
		}
		*v = TextValue(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return fmt.Errorf("decode bool value: %w", err)
		}
		if b {
			*v = NumberValue(1)
		} else {
			*v = NumberValue(0)
		}
	case '{':
		var members map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &members); err != nil {
			return fmt.Errorf("decode object value: %w", err)
		}
		w, hasW := members["width"]
		h, hasH := members["height"]
		if !hasW || !hasH {
			*v = Value{Kind: ValueOther, raw: append(json.RawMessage(nil), trimmed...)}
			return nil
		}
		dims := &Dimensions{}
		if err := dims.Width.UnmarshalJSON(w); err != nil {
			return err
		}
		if err := dims.Height.UnmarshalJSON(h); err != nil {
			return err
		}
		*v = Value{Kind: ValueDimensions, Dims: dims}
	case '[':
		*v = Value{Kind: ValueOther, raw: append(json.RawMessage(nil), trimmed...)}
	default:
		n, err := strconv.ParseFloat(string(trimmed), 64)
		if err != nil {
			return fmt.Errorf("decode number value: %w", err)
		}
		*v = NumberValue(n)
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueNumber:
		return json.Marshal(v.Number)
	case ValueText:
		return json.Marshal(v.Text)
	case ValueDimensions:
		return json.Marshal(v.Dims)
	case ValueOther:
		if len(v.raw) > 0 {
			return v.raw, nil
		}
		return []byte("null"), nil
	default:
		return []byte("null"), nil
	}
}

// Float reads a number, accepting numeric text such as "21".
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case ValueNumber:
		return v.Number, true
	case ValueText:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Int reads an integer, truncating toward zero.
func (v Value) Int() (int, bool) {
	f, ok := v.Float()
	if !ok || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

func (v Value) Truthy() bool {
	switch v.Kind {
	case ValueNumber:
		return v.Number != 0
	case ValueText:
		return v.Text != ""
	case ValueDimensions:
		return true
	case ValueOther:
		s := string(bytes.TrimSpace(v.raw))
		return s != "{}" && s != "[]" && s != ""
	default:
		return false
	}
}

// Size returns positive integer dimensions, or false when the value does not
// carry them.
func (v Value) Size() (width, height int, ok bool) {
	if v.Kind != ValueDimensions || v.Dims == nil {
		return 0, 0, false
	}
	width, okW := v.Dims.Width.Int()
	height, okH := v.Dims.Height.Int()
	if !okW || !okH || width <= 0 || height <= 0 {
		return 0, 0, false
	}
	return width, height, true
}
