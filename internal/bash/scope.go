package bash

// Ordered stack of variable layers. Lookups walk from the last layer to the
// first, so later layers override earlier ones.
//
// Scopes are values: [Scope.With] returns a new scope and never changes the
// receiver, so a scope can be shared by several descendants.
type Scope struct {
	layers []Variables
}

// Creates a scope from layers ordered from lowest to highest precedence. Nil
// layers are skipped.
func NewScope(layers ...Variables) Scope {
	var s Scope
	for _, layer := range layers {
		s = s.With(layer)
	}
	return s
}

// Returns a new scope with layer stacked on top of the receiver's layers.
func (s Scope) With(layer Variables) Scope {
	if layer == nil {
		return s
	}
	layers := make([]Variables, len(s.layers), len(s.layers)+1)
	copy(layers, s.layers)
	return Scope{layers: append(layers, layer)}
}

// Returns the number of layers.
func (s Scope) Depth() int {
	return len(s.layers)
}

// Returns the value of the topmost layer defining name.
func (s Scope) Lookup(name string) (Value, bool) {
	for i := len(s.layers) - 1; i >= 0; i-- {
		if v, ok := s.layers[i][name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// Returns the layer index that provides name, or -1 if no layer defines it.
func (s Scope) Origin(name string) int {
	for i := len(s.layers) - 1; i >= 0; i-- {
		if _, ok := s.layers[i][name]; ok {
			return i
		}
	}
	return -1
}

// Flattens the scope into a single mapping.
func (s Scope) Resolve() Variables {
	out := make(Variables)
	for _, layer := range s.layers {
		for k, v := range layer.Clone() {
			out[k] = v
		}
	}
	return out
}
