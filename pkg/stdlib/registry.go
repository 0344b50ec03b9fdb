// Package stdlib provides the BotLang standard library bundles and the
// importer that binds them into a global environment.
package stdlib

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set"

	"github.com/thomasrohde/botlang/pkg/evaluator"
	"github.com/thomasrohde/botlang/pkg/robot"
)

// Fn represents a standard library function.
type Fn struct {
	Name  string
	Arity int
	// ArgTypes, when set, is checked against every call before Execute runs.
	ArgTypes []string
	Doc      string
	Execute  evaluator.NativeFn
}

// Bundle is a named group of functions and variables imported together.
type Bundle struct {
	Name      string
	Doc       string
	Functions []Fn
	Variables map[string]evaluator.Value
}

// valueKinds are the names accepted in Fn.ArgTypes.
var valueKinds = mapset.NewSet(
	evaluator.TypeArray,
	evaluator.TypeBoolean,
	evaluator.TypeClass,
	evaluator.TypeFunction,
	evaluator.TypeInstance,
	evaluator.TypeNil,
	evaluator.TypeNumber,
	evaluator.TypeString,
	evaluator.TypeLibrary,
)

// Validate reports malformed bundle definitions.
func (b *Bundle) Validate() error {
	seen := mapset.NewSet()
	for _, fn := range b.Functions {
		if !seen.Add(fn.Name) {
			return fmt.Errorf("%s: duplicate member %q", b.Name, fn.Name)
		}
		if fn.Execute == nil {
			return fmt.Errorf("%s.%s: missing implementation", b.Name, fn.Name)
		}
		if len(fn.ArgTypes) > 0 && len(fn.ArgTypes) != fn.Arity {
			return fmt.Errorf("%s.%s: %d argument types for arity %d", b.Name, fn.Name, len(fn.ArgTypes), fn.Arity)
		}
		for _, kind := range fn.ArgTypes {
			if !valueKinds.Contains(kind) {
				return fmt.Errorf("%s.%s: unknown argument type %q", b.Name, fn.Name, kind)
			}
		}
	}
	for name := range b.Variables {
		if !seen.Add(name) {
			return fmt.Errorf("%s: duplicate member %q", b.Name, name)
		}
	}
	return nil
}

// Members returns the sorted names of every function and variable.
func (b *Bundle) Members() []string {
	names := make([]string, 0, len(b.Functions)+len(b.Variables))
	for _, fn := range b.Functions {
		names = append(names, fn.Name)
	}
	for name := range b.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// native wraps fn as a callable, adding the argument-type check when the
// function declares one. Every received kind is listed on a mismatch.
func (b *Bundle) native(fn Fn) *evaluator.NativeFunction {
	if len(fn.ArgTypes) == 0 {
		return evaluator.NewNativeFunction(fn.Name, fn.Arity, fn.Execute)
	}
	qualified := b.Name + "." + fn.Name
	return evaluator.NewNativeFunction(fn.Name, fn.Arity, func(args []evaluator.Value) (evaluator.Value, error) {
		received := make([]string, len(fn.ArgTypes))
		invalid := false
		for i, want := range fn.ArgTypes {
			var got string
			if i < len(args) {
				got = evaluator.TypeName(args[i])
			} else {
				got = evaluator.TypeNil
			}
			if got != want {
				invalid = true
			}
			received[i] = got
		}
		if invalid {
			return nil, evaluator.TypeErrorf("Invalid argument types to %s: Expected (%s), recieved (%s).",
				qualified, strings.Join(fn.ArgTypes, ", "), strings.Join(received, ", "))
		}
		return fn.Execute(args)
	})
}

// Import binds every member of b as an immutable global, and b itself as a
// library object under its name.
func Import(globals *evaluator.Env, b *Bundle) error {
	if err := b.Validate(); err != nil {
		return err
	}
	fields := make(map[string]evaluator.Value, len(b.Functions)+len(b.Variables))
	for _, fn := range b.Functions {
		fields[fn.Name] = b.native(fn)
	}
	for name, val := range b.Variables {
		fields[name] = val
	}
	for _, name := range b.Members() {
		if err := globals.DefineLibrary(name, fields[name]); err != nil {
			return fmt.Errorf("import %s: %w", b.Name, err)
		}
	}
	if err := globals.DefineLibrary(b.Name, evaluator.NewLibrary(b.Name, fields)); err != nil {
		return fmt.Errorf("import %s: %w", b.Name, err)
	}
	return nil
}

// Registry holds registered bundles.
type Registry struct {
	bundles map[string]*Bundle
}

// NewRegistry creates a new empty stdlib registry.
func NewRegistry() *Registry {
	return &Registry{
		bundles: make(map[string]*Bundle),
	}
}

// Register adds a bundle to the registry, replacing one with the same name.
func (r *Registry) Register(b *Bundle) {
	r.bundles[b.Name] = b
}

// Get retrieves a bundle by name.
func (r *Registry) Get(name string) *Bundle {
	return r.bundles[name]
}

// All returns all registered bundles ordered by name.
func (r *Registry) All() []*Bundle {
	out := make([]*Bundle, 0, len(r.bundles))
	for _, b := range r.bundles {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RegisterDefaults adds the Math and Robot bundles.
func RegisterDefaults(r *Registry, rng *rand.Rand, t *robot.Turtle) {
	r.Register(MathBundle(rng))
	r.Register(RobotBundle(t))
}

// ImportAll imports every registered bundle into globals.
func (r *Registry) ImportAll(globals *evaluator.Env) error {
	for _, b := range r.All() {
		if err := Import(globals, b); err != nil {
			return err
		}
	}
	return nil
}
