package hwgraph

import (
	"github.com/pkg/errors"
)

// A Context owns every module, signal, register and memory created for one
// design. It is append-only: entities are never freed individually, the
// whole design is discarded together.
//
// A Context is not safe for concurrent construction. Validation and
// generation over finished contexts are pure and may run concurrently.
//
type Context struct {
	modules map[string]*Module
	order   []*Module
}

// NewContext creates a new, empty Context.
//
func NewContext() *Context {
	return &Context{modules: make(map[string]*Module)}
}

// Module creates a new module called name in this Context.
//
// Module panics if name is empty or if a module with the same name already
// exists in this Context.
//
func (c *Context) Module(name string) *Module {
	if name == "" {
		panic(errors.New("hwgraph: module name must not be empty"))
	}
	if _, ok := c.modules[name]; ok {
		panic(errors.Errorf("hwgraph: a module named %q already exists in this context", name))
	}
	m := &Module{
		ctx:     c,
		name:    name,
		inputs:  make(map[string]*Signal),
		outputs: make(map[string]*Signal),
		names:   make(map[string]string),
	}
	c.modules[name] = m
	c.order = append(c.order, m)
	return m
}

// FindModule returns the module called name, or nil if no such module
// exists in this Context.
//
func (c *Context) FindModule(name string) *Module {
	return c.modules[name]
}

// Modules returns all modules of this Context in creation order.
//
func (c *Context) Modules() []*Module {
	return c.order
}
