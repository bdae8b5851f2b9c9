package state

import (
	"fmt"
	"math"
)

// Kind is the semantic type of a state field.
type Kind int

const (
	KindText Kind = iota + 1
	KindInteger
	KindReal
	KindBool
	KindTextList
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindBool:
		return "bool"
	case KindTextList:
		return "text list"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) valid() bool {
	return k >= KindText && k <= KindTextList
}

// zero returns the value a field of this kind holds before anything is
// written to it. Text lists start empty, never nil.
func (k Kind) zero() any {
	switch k {
	case KindText:
		return ""
	case KindInteger:
		return 0
	case KindReal:
		return 0.0
	case KindBool:
		return false
	case KindTextList:
		return []string{}
	default:
		return nil
	}
}

// normalize converts v to the canonical Go type for the kind: string, int,
// float64, bool or []string. Values decoded from YAML or JSON (float64 for
// whole numbers, []any for sequences) are accepted. Text lists are always
// copied so callers never share backing arrays with the state.
func (k Kind) normalize(v any) (any, bool) {
	switch k {
	case KindText:
		s, ok := v.(string)
		return s, ok
	case KindInteger:
		return toInt(v)
	case KindReal:
		return toFloat(v)
	case KindBool:
		b, ok := v.(bool)
		return b, ok
	case KindTextList:
		return toTextList(v)
	default:
		return nil, false
	}
}

// toInt accepts any integer or whole float that fits in int.
func toInt(v any) (any, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return fromInt64(int64(n))
	case int64:
		return fromInt64(n)
	case uint:
		return fromUint64(uint64(n))
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return fromUint64(uint64(n))
	case uint64:
		return fromUint64(n)
	case float64:
		return fromFloat64(n)
	case float32:
		return fromFloat64(float64(n))
	}
	return nil, false
}

func fromInt64(n int64) (any, bool) {
	if n < math.MinInt || n > math.MaxInt {
		return nil, false
	}
	return int(n), true
}

func fromUint64(n uint64) (any, bool) {
	if n > math.MaxInt {
		return nil, false
	}
	return int(n), true
}

// fromFloat64 rejects fractions, NaN and values outside int. The upper
// bound is exclusive: float64(math.MaxInt) rounds up to a power of two.
func fromFloat64(f float64) (any, bool) {
	if f != math.Trunc(f) || f < math.MinInt || f >= -float64(math.MinInt) {
		return nil, false
	}
	return int(f), true
}

func toFloat(v any) (any, bool) {
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
	}
	return nil, false
}

func toTextList(v any) (any, bool) {
	switch l := v.(type) {
	case nil:
		return []string{}, true
	case []string:
		return append([]string{}, l...), true
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// MergePolicy governs how a partial update combines with a field's current
// value.
type MergePolicy int

const (
	// Overwrite replaces the current value.
	Overwrite MergePolicy = iota
	// Append concatenates the update after the current sequence, preserving
	// the order returned by the node. Only valid on KindTextList fields.
	Append
)

func (p MergePolicy) String() string {
	switch p {
	case Overwrite:
		return "overwrite"
	case Append:
		return "append"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// Field declares one named entry of a schema.
type Field struct {
	Name   string
	Kind   Kind
	Policy MergePolicy
}

// Field constructors, one per kind. AppendField declares a message log.
func TextField(name string) Field { return Field{Name: name, Kind: KindText} }
func IntField(name string) Field { return Field{Name: name, Kind: KindInteger} }
func RealField(name string) Field { return Field{Name: name, Kind: KindReal} }
func BoolField(name string) Field { return Field{Name: name, Kind: KindBool} }
func ListField(name string) Field { return Field{Name: name, Kind: KindTextList} }
func AppendField(name string) Field { return Field{Name: name, Kind: KindTextList, Policy: Append} }

// Schema is the fixed, ordered field set shared by every state of a graph.
// A Schema is immutable once created and safe for concurrent use.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema validates the field declarations and returns a Schema that keeps
// them in declaration order.
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}

	for _, f := range fields {
		if f.Name == "" {
			return nil, &SchemaError{Reason: "field name cannot be empty"}
		}
		if _, exists := s.index[f.Name]; exists {
			return nil, &SchemaError{Field: f.Name, Reason: "duplicate field"}
		}
		if !f.Kind.valid() {
			return nil, &SchemaError{Field: f.Name, Reason: fmt.Sprintf("unknown kind %s", f.Kind)}
		}
		switch f.Policy {
		case Overwrite:
		case Append:
			if f.Kind != KindTextList {
				return nil, &SchemaError{Field: f.Name, Reason: fmt.Sprintf("append policy requires a text list, got %s", f.Kind)}
			}
		default:
			return nil, &SchemaError{Field: f.Name, Reason: fmt.Sprintf("unknown merge %s", f.Policy)}
		}

		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}

	return s, nil
}

// MustSchema is like NewSchema but panics on an invalid declaration. It is
// meant for package-level schemas whose fields are fixed at compile time.
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns the declared fields in order.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Field looks up a declared field by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Len returns the number of declared fields.
func (s *Schema) Len() int {
	return len(s.fields)
}
