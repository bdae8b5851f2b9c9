package state

import (
	"reflect"
	"sort"
)

// End is the reserved terminal marker. An edge or outcome pointing to End
// stops the run after the source node has executed. No node may use it as
// its name.
const End = "__end__"

// Edge is an unconditional transition between two nodes.
type Edge struct {
	From string
	To   string
}

// Router picks an outcome key from the state produced by the source node.
// Routers must be pure: the same state always yields the same key.
type Router func(s State) string

// ConditionalEdge transitions from From to the node that Outcomes maps the
// Router's result to. Outcomes values are node names or End.
type ConditionalEdge struct {
	From     string
	Router   Router
	Outcomes map[string]string
}

// OutcomeKeys returns the outcome keys in sorted order.
func (c ConditionalEdge) OutcomeKeys() []string {
	keys := make([]string, 0, len(c.Outcomes))
	for k := range c.Outcomes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Predicate evaluates state for routing decisions. Combine predicates with
// Not, And and Or, and turn them into a Router with When.
type Predicate func(s State) bool

// KeyExists returns a predicate that checks a field is declared and holds
// something other than its zero value. Every declared field is always
// present, so a field that was never written does not exist for routing
// purposes. A text list exists once it has at least one entry.
//
// Example:
//
//	hasName := state.KeyExists("user_name")
func KeyExists(key string) Predicate {
	return func(s State) bool {
		v, ok := s.Get(key)
		if !ok {
			return false
		}
		if l, isList := v.([]string); isList {
			return len(l) > 0
		}
		f, _ := s.Schema().Field(key)
		return !reflect.DeepEqual(v, f.Kind.zero())
	}
}

// KeyEquals returns a predicate that checks if a field has a specific value.
//
// Example:
//
//	approved := state.KeyEquals("decision", "approved")
func KeyEquals(key string, value any) Predicate {
	return func(s State) bool {
		v, ok := s.Get(key)
		if !ok {
			return false
		}
		f, _ := s.Schema().Field(key)
		want, ok := f.Kind.normalize(value)
		return ok && reflect.DeepEqual(v, want)
	}
}

// Not inverts a predicate.
func Not(predicate Predicate) Predicate {
	return func(s State) bool {
		return !predicate(s)
	}
}

// And combines predicates with logical AND (all must be true).
//
// Example:
//
//	adult := state.And(
//	    state.KeyExists("user_name"),
//	    state.KeyEquals("verified", true),
//	)
func And(predicates ...Predicate) Predicate {
	return func(s State) bool {
		for _, p := range predicates {
			if !p(s) {
				return false
			}
		}
		return true
	}
}

// Or combines predicates with logical OR (at least one must be true).
func Or(predicates ...Predicate) Predicate {
	return func(s State) bool {
		for _, p := range predicates {
			if p(s) {
				return true
			}
		}
		return false
	}
}

// When builds a two-way Router: thenKey when predicate holds, elseKey
// otherwise.
//
// Example:
//
//	g.AddConditionalEdge("classify",
//	    state.When(state.KeyEquals("found_answer", true), "found", "missing"),
//	    map[string]string{"found": "retrieve", "missing": "unknown"})
func When(predicate Predicate, thenKey, elseKey string) Router {
	return func(s State) string {
		if predicate(s) {
			return thenKey
		}
		return elseKey
	}
}
