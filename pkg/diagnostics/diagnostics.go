// Package diagnostics defines BotLang diagnostic types for scan, parse,
// resolution and runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thomasrohde/botlang/pkg/ast"
)

// Diagnostic code constants.
const (
	EScan         = "E_SCAN"
	EParse        = "E_PARSE"
	EResolve      = "E_RESOLVE"
	EType         = "E_TYPE"
	ERange        = "E_RANGE"
	ERuntime      = "E_RUNTIME"
	EInfiniteLoop = "E_INFINITE_LOOP"
	EInternal     = "E_INTERNAL"
	EIO           = "E_IO"
	EConfig       = "E_CONFIG"
)

var faultNames = map[string]string{
	EScan:         "ScanFault",
	EParse:        "ParseFault",
	EResolve:      "ResolutionFault",
	EType:         "TypeFault",
	ERange:        "RangeFault",
	ERuntime:      "RuntimeFault",
	EInfiniteLoop: "InfiniteLoopFault",
	EInternal:     "InternalFault",
}

// FaultName returns the taxonomy name for a diagnostic code, or the code itself.
func FaultName(code string) string {
	if name, ok := faultNames[code]; ok {
		return name
	}
	return code
}

// IsStatic reports whether a code belongs to a stage that runs before execution.
func IsStatic(code string) bool {
	return code == EScan || code == EParse || code == EResolve
}

// Diagnostic represents a scan, parse, resolution or runtime diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Where   string    `json:"where,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// Line returns the 1-based source line of the diagnostic, or 0 when unknown.
func (d Diagnostic) Line() int {
	if d.Span == nil {
		return 0
	}
	return d.Span.StartLine
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		file := d.Span.File
		if file == "" {
			file = "<input>"
		}
		loc = fmt.Sprintf("%s:%d:%d", file, d.Span.StartLine, d.Span.StartCol)
	}
	if d.Where != "" {
		loc += " " + d.Where
	}
	out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, loc)
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}

// FormatLine renders a diagnostic in the one-line console form
// `Error [line N at "x"]: message`.
func FormatLine(d Diagnostic) string {
	where := ""
	if d.Where != "" {
		where = " " + d.Where
	}
	if d.Line() == 0 {
		return fmt.Sprintf("%s: %s", FaultName(d.Code), d.Message)
	}
	return fmt.Sprintf("%s [line %d%s]: %s", FaultName(d.Code), d.Line(), where, d.Message)
}
