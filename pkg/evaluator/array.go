package evaluator

// ArrayClass is the sealed built-in Array class. Array(n) creates an array of
// n nils.
var ArrayClass = newArrayClass()

// Array is an instance of ArrayClass backed by an ordered slice.
type Array struct {
	items []Value
}

func (*Array) value() {}

// NewArray creates an array holding items.
func NewArray(items []Value) *Array {
	return &Array{items: items}
}

// Items returns the backing slice.
func (a *Array) Items() []Value { return a.items }

// Len returns the number of items.
func (a *Array) Len() int { return len(a.items) }

// Class returns ArrayClass.
func (a *Array) Class() *Class { return ArrayClass }

// Get returns length or a method bound to the array.
func (a *Array) Get(name string) (Value, error) {
	if name == "length" {
		return Number(len(a.items)), nil
	}
	if m := ArrayClass.FindMethod(name); m != nil {
		return m.Bind(a), nil
	}
	return nil, RuntimeErrorf("Undefined property %q.", name)
}

// Set always fails: arrays have no writable properties.
func (a *Array) Set(name string, _ Value) error {
	if name == "length" {
		return RuntimeErrorf("Array length is read-only.")
	}
	return RuntimeErrorf("Properties cannot be added to arrays.")
}

// HasProperty reports whether name is length or an array method.
func (a *Array) HasProperty(name string) bool {
	return name == "length" || ArrayClass.FindMethod(name) != nil
}

// index resolves a possibly negative index. ok is false when out of range.
func (a *Array) index(i int) (int, bool) {
	if i < 0 {
		i += len(a.items)
	}
	return i, i >= 0 && i < len(a.items)
}

// At returns the item at i, counting from the end when i is negative.
func (a *Array) At(i int) (Value, error) {
	j, ok := a.index(i)
	if !ok {
		return nil, RangeErrorf("Array index out of range (recieved index %d but array only has %d items).", i, len(a.items))
	}
	return a.items[j], nil
}

// SetAt replaces the item at i, counting from the end when i is negative.
func (a *Array) SetAt(i int, val Value) error {
	j, ok := a.index(i)
	if !ok {
		return RangeErrorf("Array index out of range (recieved index %d but array only has %d items).", i, len(a.items))
	}
	a.items[j] = val
	return nil
}

// MaxArrayLength is the largest size Array(n) allocates.
const MaxArrayLength = 1 << 24

func arrayReceiver(self Object) *Array {
	return self.(*Array)
}

func newArrayClass() *Class {
	methods := map[string]Method{
		"init": NewNativeMethod("init", 1, func(self Object, args []Value) (Value, error) {
			n, ok := args[0].(Number)
			if !ok {
				return nil, TypeErrorf("Array length must be a number (recieved %s).", ValueToString(args[0]))
			}
			if n < 0 || !IsInteger(n) {
				return nil, RangeErrorf("Array length must be a non-negative integer (recieved %s).", ValueToString(n))
			}
			if n > MaxArrayLength {
				return nil, RangeErrorf("Array length %s is larger than the maximum of %d.", ValueToString(n), MaxArrayLength)
			}
			arr := arrayReceiver(self)
			arr.items = make([]Value, int(n))
			for i := range arr.items {
				arr.items[i] = Nil{}
			}
			return nil, nil
		}),
		"push": NewNativeMethod("push", 1, func(self Object, args []Value) (Value, error) {
			arr := arrayReceiver(self)
			arr.items = append(arr.items, args[0])
			return Number(len(arr.items)), nil
		}),
		"pop": NewNativeMethod("pop", 0, func(self Object, _ []Value) (Value, error) {
			arr := arrayReceiver(self)
			if len(arr.items) == 0 {
				return Nil{}, nil
			}
			last := arr.items[len(arr.items)-1]
			arr.items = arr.items[:len(arr.items)-1]
			return last, nil
		}),
		"shift": NewNativeMethod("shift", 0, func(self Object, _ []Value) (Value, error) {
			arr := arrayReceiver(self)
			if len(arr.items) == 0 {
				return Nil{}, nil
			}
			first := arr.items[0]
			arr.items = arr.items[1:]
			return first, nil
		}),
		"unshift": NewNativeMethod("unshift", 1, func(self Object, args []Value) (Value, error) {
			arr := arrayReceiver(self)
			arr.items = append([]Value{args[0]}, arr.items...)
			return Number(len(arr.items)), nil
		}),
	}
	c := NewClass("Array", nil, methods)
	c.sealed = true
	c.construct = func(*Class) Object { return &Array{} }
	return c
}
