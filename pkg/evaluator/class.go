package evaluator

// Class is a BotLang class. Calling it constructs an object and runs init.
type Class struct {
	name       string
	superclass *Class
	methods    map[string]Method
	// construct builds the bare object for a call; nil means *Instance.
	construct func(c *Class) Object
	sealed    bool
}

func (*Class) value() {}

// NewClass creates a class whose method table is seeded with hasProperty.
// User methods override the seeded entry.
func NewClass(name string, superclass *Class, methods map[string]Method) *Class {
	table := map[string]Method{"hasProperty": hasPropertyMethod}
	for k, m := range methods {
		table[k] = m
	}
	return &Class{name: name, superclass: superclass, methods: table}
}

// hasPropertyMethod reports whether the receiver has a field or method.
var hasPropertyMethod = NewNativeMethod("hasProperty", 1, func(self Object, args []Value) (Value, error) {
	name, ok := args[0].(String)
	if !ok {
		return nil, TypeErrorf("Property name must be a string (recieved %s).", ValueToString(args[0]))
	}
	return Bool(self.HasProperty(string(name))), nil
})

func (c *Class) Name() string { return c.name }

// Superclass returns the parent class or nil.
func (c *Class) Superclass() *Class { return c.superclass }

// Sealed reports whether the class refuses subclasses.
func (c *Class) Sealed() bool { return c.sealed }

// FindMethod looks name up on c and then along the superclass chain.
func (c *Class) FindMethod(name string) Method {
	for k := c; k != nil; k = k.superclass {
		if m, ok := k.methods[name]; ok {
			return m
		}
	}
	return nil
}

// Arity is the arity of init, or 0 without one.
func (c *Class) Arity() int {
	if init := c.FindMethod("init"); init != nil {
		return init.Arity()
	}
	return 0
}

// Call constructs a new object, runs init when present and returns the
// object regardless of what init returns.
func (c *Class) Call(in *Interpreter, args []Value) (Value, error) {
	var obj Object
	if c.construct != nil {
		obj = c.construct(c)
	} else {
		obj = &Instance{class: c, fields: make(map[string]Value)}
	}
	if init := c.FindMethod("init"); init != nil {
		if _, err := init.Bind(obj).Call(in, args); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// --- Instances ---

// Instance is an object created by calling a user class.
type Instance struct {
	class  *Class
	fields map[string]Value
}

func (*Instance) value() {}

// Class returns the class the instance was created from.
func (i *Instance) Class() *Class { return i.class }

// Get returns a field, or else a method bound to the instance.
func (i *Instance) Get(name string) (Value, error) {
	if v, ok := i.fields[name]; ok {
		return v, nil
	}
	if m := i.class.FindMethod(name); m != nil {
		return m.Bind(i), nil
	}
	return nil, RuntimeErrorf("Undefined property %q.", name)
}

// Set writes a field, creating it when missing.
func (i *Instance) Set(name string, val Value) error {
	i.fields[name] = val
	return nil
}

// HasProperty reports whether name is a field or a method of the instance.
func (i *Instance) HasProperty(name string) bool {
	if _, ok := i.fields[name]; ok {
		return true
	}
	return i.class.FindMethod(name) != nil
}
