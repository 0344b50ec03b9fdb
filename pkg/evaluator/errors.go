package evaluator

import (
	"fmt"

	"github.com/go-stack/stack"

	"github.com/thomasrohde/botlang/pkg/ast"
	"github.com/thomasrohde/botlang/pkg/diagnostics"
)

// RuntimeError is a language-level fault raised while a program runs.
// Code is one of diagnostics.EType, ERange, ERuntime or EInfiniteLoop.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts the fault into a reportable diagnostic.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, "")
}

// InternalError signals a host bug, such as a library calling a native method
// that was never bound. The interpreter never turns it into a diagnostic.
type InternalError struct {
	Message string
	Caller  stack.Call
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %s (at %+v in %n)", e.Message, e.Caller, e.Caller)
}

// newInternalError records the frame that detected the inconsistency.
func newInternalError(format string, args ...interface{}) *InternalError {
	return &InternalError{
		Message: fmt.Sprintf(format, args...),
		Caller:  stack.Caller(1),
	}
}

// TypeErrorf builds an E_TYPE fault.
func TypeErrorf(format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Code: diagnostics.EType, Message: fmt.Sprintf(format, args...)}
}

// RangeErrorf builds an E_RANGE fault.
func RangeErrorf(format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Code: diagnostics.ERange, Message: fmt.Sprintf(format, args...)}
}

// RuntimeErrorf builds an E_RUNTIME fault.
func RuntimeErrorf(format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Code: diagnostics.ERuntime, Message: fmt.Sprintf(format, args...)}
}

// withSpan attaches span to err when it is a RuntimeError that has none yet.
func withSpan(err error, span ast.Span) error {
	if rerr, ok := err.(*RuntimeError); ok && rerr.Span == nil {
		s := span
		rerr.Span = &s
	}
	return err
}
