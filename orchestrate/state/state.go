package state

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Update is the partial result a node returns: a subset of the schema's
// fields mapped to new values. Absent fields mean "no change".
type Update map[string]any

// State represents the working record flowing through graph execution.
//
// State is an immutable value: every field declared by its Schema is always
// present, and all operations that change values return a new State. Text
// lists are copied on the way in and on the way out, so a node holding a
// snapshot can neither observe nor cause later mutation.
type State struct {
	schema *Schema
	values map[string]any
}

// NewState creates a State for schema from caller-supplied initial values.
//
// Fields missing from values start at their kind's zero value. Undeclared
// fields fail with UndeclaredFieldError and values of the wrong kind with
// FieldTypeError.
//
// Example:
//
//	s, err := state.NewState(schema, map[string]any{
//	    "score":      750,
//	    "employment": "employed",
//	})
func NewState(schema *Schema, values map[string]any) (State, error) {
	if schema == nil {
		return State{}, &SchemaError{Reason: "schema cannot be nil"}
	}

	s := State{
		schema: schema,
		values: make(map[string]any, schema.Len()),
	}
	for _, f := range schema.fields {
		s.values[f.Name] = f.Kind.zero()
	}

	for _, key := range sortedKeys(values) {
		f, ok := schema.Field(key)
		if !ok {
			return State{}, &UndeclaredFieldError{Field: key}
		}
		v, ok := f.Kind.normalize(values[key])
		if !ok {
			return State{}, &FieldTypeError{Field: key, Kind: f.Kind, Value: values[key]}
		}
		s.values[key] = v
	}

	return s, nil
}

// Schema returns the schema the state was created with.
func (s State) Schema() *Schema {
	return s.schema
}

// Get retrieves a field's value. Returns false for undeclared fields.
func (s State) Get(key string) (any, bool) {
	v, ok := s.values[key]
	if !ok {
		return nil, false
	}
	if l, isList := v.([]string); isList {
		return append([]string{}, l...), true
	}
	return v, true
}

// Text returns a text field, or "" if key is not a text field.
func (s State) Text(key string) string {
	v, _ := s.values[key].(string)
	return v
}

// Int returns an integer field, or 0 if key is not an integer field.
func (s State) Int(key string) int {
	v, _ := s.values[key].(int)
	return v
}

// Real returns a real field, or 0 if key is not a real field.
func (s State) Real(key string) float64 {
	v, _ := s.values[key].(float64)
	return v
}

// Bool returns a boolean field, or false if key is not a boolean field.
func (s State) Bool(key string) bool {
	v, _ := s.values[key].(bool)
	return v
}

// TextList returns a copy of a text list field, or nil if key is not one.
func (s State) TextList(key string) []string {
	v, ok := s.values[key].([]string)
	if !ok {
		return nil
	}
	return append([]string{}, v...)
}

// Keys returns the field names in schema order.
func (s State) Keys() []string {
	if s.schema == nil {
		return nil
	}
	keys := make([]string, len(s.schema.fields))
	for i, f := range s.schema.fields {
		keys[i] = f.Name
	}
	return keys
}

// Data returns a copy of all field values.
func (s State) Data() map[string]any {
	data := make(map[string]any, len(s.values))
	for k := range s.values {
		data[k], _ = s.Get(k)
	}
	return data
}

// Decode copies the state into target, a pointer to a struct whose fields
// are tagged with `state:"name"`.
//
// Example:
//
//	var out struct {
//	    Decision string `state:"decision"`
//	}
//	err := final.Decode(&out)
func (s State) Decode(target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "state",
		Result:  target,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(s.Data()); err != nil {
		return fmt.Errorf("failed to decode state: %w", err)
	}
	return nil
}

// Equal reports whether two states share a schema and hold equal values.
func (s State) Equal(other State) bool {
	return s.schema == other.schema && reflect.DeepEqual(s.values, other.values)
}

// String renders the state as name=value pairs in schema order.
func (s State) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, k := range s.Keys() {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%s=%v", k, s.values[k])
	}
	sb.WriteString("}")
	return sb.String()
}

// Merge returns a new State with update applied field by field according to
// each field's MergePolicy. The receiver is not modified.
//
// Overwrite replaces the current value. Append concatenates the update after
// the current text list, in the order given. A nil or empty update returns an
// equal state.
//
// Fails with UndeclaredFieldError if update names a field outside the schema
// and with FieldTypeError if a value does not match its field's kind. On
// failure no field is applied.
func (s State) Merge(update Update) (State, error) {
	if s.schema == nil {
		return State{}, &SchemaError{Reason: "cannot merge into a state without schema"}
	}

	keys := sortedKeys(update)
	normalized := make(map[string]any, len(keys))
	for _, key := range keys {
		f, ok := s.schema.Field(key)
		if !ok {
			return s, &UndeclaredFieldError{Field: key}
		}
		v, ok := f.Kind.normalize(update[key])
		if !ok {
			return s, &FieldTypeError{Field: key, Kind: f.Kind, Value: update[key]}
		}
		normalized[key] = v
	}

	next := State{
		schema: s.schema,
		values: make(map[string]any, len(s.values)),
	}
	for k, v := range s.values {
		next.values[k] = v
	}

	for key, v := range normalized {
		f, _ := s.schema.Field(key)
		switch f.Policy {
		case Append:
			current := s.values[key].([]string)
			merged := make([]string, 0, len(current)+len(v.([]string)))
			merged = append(merged, current...)
			next.values[key] = append(merged, v.([]string)...)
		default:
			next.values[key] = v
		}
	}

	return next, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
