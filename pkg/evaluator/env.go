package evaluator

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

type binding struct {
	value   Value
	library bool
}

// Env is a scoped environment for variable bindings.
// It supports parent-chained lookup for lexical scoping. Every Env knows its
// global scope so library bindings can be protected from any depth.
type Env struct {
	bindings map[string]*binding
	order    []string
	parent   *Env
	globals  *Env
}

// NewGlobals creates a root environment.
func NewGlobals() *Env {
	e := &Env{bindings: make(map[string]*binding)}
	e.globals = e
	return e
}

// NewEnv creates a child environment of parent.
func NewEnv(parent *Env) *Env {
	return &Env{
		bindings: make(map[string]*binding),
		parent:   parent,
		globals:  parent.globals,
	}
}

// Parent returns the enclosing scope, or nil for the global scope.
func (e *Env) Parent() *Env { return e.parent }

// Globals returns the root of the chain.
func (e *Env) Globals() *Env { return e.globals }

// Define binds name in this scope.
func (e *Env) Define(name string, val Value) error {
	return e.define(name, val, false)
}

// DefineLibrary binds name as an immutable library binding.
func (e *Env) DefineLibrary(name string, val Value) error {
	return e.define(name, val, true)
}

func (e *Env) define(name string, val Value, library bool) error {
	if b, ok := e.globals.bindings[name]; ok && b.library {
		if _, isFn := b.value.(*NativeFunction); isFn {
			return RuntimeErrorf("%q is a builtin function and cannot be redefined.", name)
		}
		return RuntimeErrorf("%q is a builtin variable and cannot be redefined.", name)
	}
	if _, ok := e.bindings[name]; ok {
		return RuntimeErrorf("%q is already defined in this scope, did you mean to assign to it instead?", name)
	}
	e.bindings[name] = &binding{value: val, library: library}
	e.order = append(e.order, name)
	return nil
}

// set overwrites a binding in this scope without checks.
func (e *Env) set(name string, val Value) {
	if b, ok := e.bindings[name]; ok {
		b.value = val
		return
	}
	e.bindings[name] = &binding{value: val}
	e.order = append(e.order, name)
}

// Get looks up a variable by name, traversing parent scopes.
func (e *Env) Get(name string) (Value, error) {
	for env := e; env != nil; env = env.parent {
		if b, ok := env.bindings[name]; ok {
			return b.value, nil
		}
	}
	return nil, RuntimeErrorf("Variable %q is undefined.", name)
}

// Assign rebinds an existing variable, traversing parent scopes.
func (e *Env) Assign(name string, val Value) error {
	if b, ok := e.globals.bindings[name]; ok && b.library {
		return RuntimeErrorf("Variable %q is read-only.", name)
	}
	for env := e; env != nil; env = env.parent {
		if b, ok := env.bindings[name]; ok {
			b.value = val
			return nil
		}
	}
	return RuntimeErrorf("Variable %q is undefined.", name)
}

// Ancestor returns the environment depth hops up the chain.
func (e *Env) Ancestor(depth int) *Env {
	env := e
	for i := 0; i < depth && env != nil; i++ {
		env = env.parent
	}
	return env
}

// GetAt reads name from the scope exactly depth hops up.
func (e *Env) GetAt(depth int, name string) (Value, error) {
	if env := e.Ancestor(depth); env != nil {
		if b, ok := env.bindings[name]; ok {
			return b.value, nil
		}
	}
	return nil, RuntimeErrorf("Variable %q is undefined.", name)
}

// AssignAt writes name in the scope exactly depth hops up.
func (e *Env) AssignAt(depth int, name string, val Value) error {
	if b, ok := e.globals.bindings[name]; ok && b.library {
		return RuntimeErrorf("Variable %q is read-only.", name)
	}
	if env := e.Ancestor(depth); env != nil {
		if b, ok := env.bindings[name]; ok {
			b.value = val
			return nil
		}
	}
	return RuntimeErrorf("Variable %q is undefined.", name)
}

// IsLibrary reports whether name is a library binding in the global scope.
func (e *Env) IsLibrary(name string) bool {
	b, ok := e.globals.bindings[name]
	return ok && b.library
}

// Names returns the names bound directly in this scope in definition order.
func (e *Env) Names() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// EnvEntry is one row of an environment snapshot.
type EnvEntry struct {
	Depth   int
	Name    string
	Value   string
	Library bool
}

// Snapshot lists every binding from this scope outward. Library bindings are
// included only when withLibrary is set.
func (e *Env) Snapshot(withLibrary bool) []EnvEntry {
	var out []EnvEntry
	depth := 0
	for env := e; env != nil; env = env.parent {
		for _, name := range env.order {
			b := env.bindings[name]
			if b.library && !withLibrary {
				continue
			}
			out = append(out, EnvEntry{
				Depth:   depth,
				Name:    name,
				Value:   ValueToString(b.value),
				Library: b.library,
			})
		}
		depth++
	}
	return out
}

// Dump writes the user bindings of the chain as a table.
func (e *Env) Dump(w io.Writer) {
	entries := e.Snapshot(false)
	fmt.Fprintf(w, "Environment (%d scopes):\n", e.depthToRoot()+1)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Depth", "Name", "Value", "Library"})
	table.SetAutoFormatHeaders(false)
	for _, entry := range entries {
		table.Append([]string{
			strconv.Itoa(entry.Depth),
			entry.Name,
			entry.Value,
			strconv.FormatBool(entry.Library),
		})
	}
	table.Render()
}

func (e *Env) depthToRoot() int {
	n := 0
	for env := e.parent; env != nil; env = env.parent {
		n++
	}
	return n
}
