package temply

import (
	"sort"

	"github.com/itsatony/go-temply/internal"
)

// Context is a scoped variable store for rendering. Lookups walk from
// the current scope to its parents; dot-paths descend into nested
// maps. A Context is not safe for concurrent mutation.
type Context struct {
	vars   map[string]any
	parent *Context
}

// NewContext creates a context seeded with the given data.
// The map is copied so later caller mutations do not leak in.
func NewContext(data map[string]any) *Context {
	vars := make(map[string]any, len(data))
	for k, v := range data {
		vars[k] = v
	}
	return &Context{vars: vars}
}

// Child creates a nested scope. Names defined in the child shadow the
// parent without modifying it.
func (c *Context) Child() *Context {
	return &Context{
		vars:   make(map[string]any),
		parent: c,
	}
}

// Set defines or overwrites a variable in the current scope
func (c *Context) Set(key string, value any) {
	c.vars[key] = value
}

// Get resolves a dot-path, walking parent scopes for the head segment
func (c *Context) Get(path string) (any, bool) {
	return c.frame().Lookup(path)
}

// Has reports whether a path resolves
func (c *Context) Has(path string) bool {
	_, ok := c.Get(path)
	return ok
}

// Keys returns the variable names of the current scope in sorted order
func (c *Context) Keys() []string {
	keys := make([]string, 0, len(c.vars))
	for k := range c.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// frame builds the internal frame chain mirroring this context chain
func (c *Context) frame() *internal.Frame {
	var frame *internal.Frame
	if c.parent != nil {
		frame = c.parent.frame().Child()
	} else {
		frame = internal.NewFrame(nil)
	}
	for k, v := range c.vars {
		frame.Define(k, v)
	}
	return frame
}
