package internal

import "strings"

// PathSeparator for dot-notation lookups
const PathSeparator = "."

// Scope provides name resolution for expression evaluation.
type Scope interface {
	// Lookup resolves a dot-notation path and reports whether it was found.
	Lookup(path string) (any, bool)
}

// Frame is a lexical scope in the executor. Child frames shadow their
// parents; definitions made in a child disappear when the child is
// discarded, which is what bounds the visibility of tag-generated
// names such as catch handlers.
type Frame struct {
	parent *Frame
	vars   map[string]any
}

// NewFrame creates a root frame over the given data map.
// If data is nil, an empty map is used.
func NewFrame(data map[string]any) *Frame {
	if data == nil {
		data = make(map[string]any)
	}
	return &Frame{vars: data}
}

// Child creates a nested frame that inherits from this one.
func (f *Frame) Child() *Frame {
	return &Frame{parent: f, vars: make(map[string]any)}
}

// Define binds a name in this frame, shadowing any parent binding.
func (f *Frame) Define(name string, val any) {
	f.vars[name] = val
}

// Lookup resolves a dot-notation path, walking up the frame chain.
func (f *Frame) Lookup(path string) (any, bool) {
	if path == StringValueEmpty {
		return nil, false
	}

	for frame := f; frame != nil; frame = frame.parent {
		if val, ok := resolvePath(frame.vars, path); ok {
			return val, true
		}
	}
	return nil, false
}

// Has reports whether a path resolves in this frame chain.
func (f *Frame) Has(path string) bool {
	_, ok := f.Lookup(path)
	return ok
}

// resolvePath traverses a dot-notation path within a single data map.
func resolvePath(data map[string]any, path string) (any, bool) {
	parts := strings.Split(path, PathSeparator)
	var current any = data

	for _, part := range parts {
		if part == StringValueEmpty {
			continue
		}

		switch v := current.(type) {
		case map[string]any:
			val, ok := v[part]
			if !ok {
				return nil, false
			}
			current = val
		case map[string]string:
			val, ok := v[part]
			if !ok {
				return nil, false
			}
			current = val
		default:
			return nil, false
		}
	}

	return current, true
}
