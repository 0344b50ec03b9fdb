package evaluator

import "sort"

// Library is a read-only object exposing a standard-library bundle, such as
// Math or Robot.
type Library struct {
	name   string
	fields map[string]Value
}

func (*Library) value() {}

// NewLibrary creates a library object holding fields.
func NewLibrary(name string, fields map[string]Value) *Library {
	copied := make(map[string]Value, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return &Library{name: name, fields: copied}
}

func (l *Library) Name() string { return l.name }

// Get returns the named member of the library.
func (l *Library) Get(name string) (Value, error) {
	if v, ok := l.fields[name]; ok {
		return v, nil
	}
	return nil, RuntimeErrorf("%q does not exist in library %q.", name, l.name)
}

// Members returns the sorted member names.
func (l *Library) Members() []string {
	names := make([]string, 0, len(l.fields))
	for k := range l.fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
