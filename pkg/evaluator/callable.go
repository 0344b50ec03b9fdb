package evaluator

import (
	"github.com/thomasrohde/botlang/pkg/ast"
)

// Callable is implemented by every value that can appear before "(".
type Callable interface {
	Value
	Name() string
	Arity() int
	Call(in *Interpreter, args []Value) (Value, error)
}

// Method is a Callable stored on a class that must be bound to an object
// before it is called.
type Method interface {
	Callable
	Bind(self Object) Callable
}

// Object is a value with properties: class instances and arrays.
type Object interface {
	Value
	Class() *Class
	Get(name string) (Value, error)
	Set(name string, val Value) error
	HasProperty(name string) bool
}

// --- Native functions ---

// NativeFn is the host implementation behind a NativeFunction.
type NativeFn func(args []Value) (Value, error)

// NativeFunction is a host-implemented function.
type NativeFunction struct {
	name  string
	arity int
	fn    NativeFn
}

func (*NativeFunction) value() {}

// NewNativeFunction wraps fn as a BotLang function.
func NewNativeFunction(name string, arity int, fn NativeFn) *NativeFunction {
	return &NativeFunction{name: name, arity: arity, fn: fn}
}

func (f *NativeFunction) Name() string { return f.name }
func (f *NativeFunction) Arity() int   { return f.arity }

func (f *NativeFunction) Call(_ *Interpreter, args []Value) (Value, error) {
	v, err := f.fn(args)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return Nil{}, nil
	}
	return v, nil
}

// --- Native methods ---

// NativeMethodFn is the host implementation behind a NativeMethod.
type NativeMethodFn func(self Object, args []Value) (Value, error)

// NativeMethod is a host-implemented method. Only bound copies can be called.
type NativeMethod struct {
	name  string
	arity int
	fn    NativeMethodFn
	self  Object
}

func (*NativeMethod) value() {}

// NewNativeMethod creates an unbound native method.
func NewNativeMethod(name string, arity int, fn NativeMethodFn) *NativeMethod {
	return &NativeMethod{name: name, arity: arity, fn: fn}
}

func (m *NativeMethod) Name() string { return m.name }
func (m *NativeMethod) Arity() int   { return m.arity }

// Bind returns a copy of m whose receiver is self.
func (m *NativeMethod) Bind(self Object) Callable {
	return &NativeMethod{name: m.name, arity: m.arity, fn: m.fn, self: self}
}

func (m *NativeMethod) Call(_ *Interpreter, args []Value) (Value, error) {
	if m.self == nil {
		return nil, newInternalError("Attempted to call method %q without binding it to a class instance.", m.name)
	}
	v, err := m.fn(m.self, args)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return Nil{}, nil
	}
	return v, nil
}

// --- User functions ---

// UserFunction is a function or method declared in BotLang source. It closes
// over the environment it was declared in.
type UserFunction struct {
	decl          *ast.FnDecl
	closure       *Env
	isInitializer bool
}

func (*UserFunction) value() {}

// NewUserFunction creates a closure for decl.
func NewUserFunction(decl *ast.FnDecl, closure *Env, isInitializer bool) *UserFunction {
	return &UserFunction{decl: decl, closure: closure, isInitializer: isInitializer}
}

func (f *UserFunction) Name() string { return f.decl.Name }
func (f *UserFunction) Arity() int   { return len(f.decl.Params) }

// Bind returns a copy of f whose closure defines "this" as self.
func (f *UserFunction) Bind(self Object) Callable {
	env := NewEnv(f.closure)
	env.set("this", self)
	return &UserFunction{decl: f.decl, closure: env, isInitializer: f.isInitializer}
}

// Call runs the body in a fresh scope holding the parameters. Initializers
// always yield the bound instance.
func (f *UserFunction) Call(in *Interpreter, args []Value) (Value, error) {
	env := NewEnv(f.closure)
	for i, p := range f.decl.Params {
		if err := env.Define(p, args[i]); err != nil {
			return nil, err
		}
	}

	c, err := in.executeBlock(f.decl.Body, env)
	if err != nil {
		return nil, err
	}
	if f.isInitializer {
		return f.closure.GetAt(0, "this")
	}
	if c.returned {
		return c.value, nil
	}
	return Nil{}, nil
}
