package bash

import (
	"maps"
	"slices"
	"strings"
)

// A shell variable, either a plain string or an indexed array.
type Value struct {
	Str   string   // Value of a string variable.
	Items []string // Elements of an array variable.
	Array bool     // Whether the variable is an indexed array.
}

// Creates a string value.
func String(s string) Value {
	return Value{Str: s}
}

// Creates an indexed array value.
func Array(items ...string) Value {
	return Value{Items: slices.Clone(items), Array: true}
}

// Returns the string value, or the elements joined by spaces for arrays.
func (v Value) String() string {
	if v.Array {
		return strings.Join(v.Items, " ")
	}
	return v.Str
}

// Mapping of variable names to values.
type Variables map[string]Value

// Returns the variable names in sorted order.
func (vars Variables) Names() []string {
	return slices.Sorted(maps.Keys(vars))
}

// Returns a copy of the variables.
func (vars Variables) Clone() Variables {
	out := make(Variables, len(vars))
	for k, v := range vars {
		if v.Array {
			v.Items = slices.Clone(v.Items)
		}
		out[k] = v
	}
	return out
}
