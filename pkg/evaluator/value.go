// Package evaluator implements the BotLang runtime: the value model,
// environments, callables, classes, arrays, library objects and the
// tree-walking interpreter.
package evaluator

import (
	"math"
	"strconv"
	"strings"
)

// Value is the interface for all BotLang runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	value() // sealed marker
}

// Nil is the nil value.
type Nil struct{}

// Bool is a boolean value.
type Bool bool

// Number is a numeric value. All BotLang numbers are float64.
type Number float64

// String is a string value.
type String string

func (Nil) value()    {}
func (Bool) value()   {}
func (Number) value() {}
func (String) value() {}

// Type names reported by TypeName.
const (
	TypeNil      = "nil"
	TypeBoolean  = "boolean"
	TypeNumber   = "number"
	TypeString   = "string"
	TypeFunction = "function"
	TypeClass    = "class"
	TypeInstance = "instance"
	TypeArray    = "array"
	TypeLibrary  = "library"
)

// TypeName returns the kind name of v as used in argument-type checks.
func TypeName(v Value) string {
	switch v.(type) {
	case nil, Nil:
		return TypeNil
	case Bool:
		return TypeBoolean
	case Number:
		return TypeNumber
	case String:
		return TypeString
	case *NativeFunction, *NativeMethod, *UserFunction:
		return TypeFunction
	case *Class:
		return TypeClass
	case *Array:
		return TypeArray
	case *Instance:
		return TypeInstance
	case *Library:
		return TypeLibrary
	}
	return "unknown"
}

// IsTruthy returns the boolean interpretation of v.
// nil, false and 0 are falsy; everything else is truthy.
func IsTruthy(v Value) bool {
	switch val := v.(type) {
	case nil, Nil:
		return false
	case Bool:
		return bool(val)
	case Number:
		return val != 0
	default:
		return true
	}
}

// Equal reports whether a and b have the same kind and value. Objects compare
// by identity.
func Equal(a, b Value) bool {
	if a == nil {
		a = Nil{}
	}
	if b == nil {
		b = Nil{}
	}
	return a == b
}

// ValueToString renders v the way print shows it.
func ValueToString(v Value) string {
	switch val := v.(type) {
	case nil, Nil:
		return "nil"
	case Bool:
		if val {
			return "true"
		}
		return "false"
	case Number:
		return FormatNumber(float64(val))
	case String:
		return string(val)
	case *NativeFunction:
		return "<function " + val.name + ">"
	case *NativeMethod:
		return "<function " + val.name + ">"
	case *UserFunction:
		return "<function " + val.Name() + ">"
	case *Class:
		return "<class " + val.name + ">"
	case *Array:
		parts := make([]string, len(val.items))
		for i, item := range val.items {
			parts[i] = ValueToString(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *Instance:
		return "<instance of " + val.class.name + ">"
	case *Library:
		return "<library " + val.name + ">"
	}
	return "<unknown>"
}

// FormatNumber renders f as the shortest decimal that round-trips, switching
// to exponent notation outside [1e-6, 1e21).
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// IsInteger reports whether n has no fractional part.
func IsInteger(n Number) bool {
	f := float64(n)
	return !math.IsInf(f, 0) && f == math.Trunc(f)
}
