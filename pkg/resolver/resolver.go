// Package resolver performs static scope resolution of BotLang programs.
//
// Every variable, assignment, this and super reference that binds to an
// enclosing local scope receives a fresh ast.Ref ID, and the returned Locals
// table maps that ID to the number of scopes between the reference and its
// binding. References that are not found in any open scope are globals and
// keep a zero ID.
package resolver

import (
	"fmt"
	"sync/atomic"

	"github.com/thomasrohde/botlang/pkg/ast"
	"github.com/thomasrohde/botlang/pkg/diagnostics"
)

// Locals maps a resolved ast.Ref ID to its scope depth.
type Locals map[int]int

type functionKind int

const (
	fnNone functionKind = iota
	fnFunction
	fnInitializer
	fnMethod
)

type classKind int

const (
	classNone classKind = iota
	classPlain
	classSub
)

// scope tracks declared names; false means declared but not yet defined.
type scope map[string]bool

type resolver struct {
	scopes []scope
	fn     functionKind
	class  classKind
	locals Locals
	diags  []diagnostics.Diagnostic
}

// refIDs hands out Ref IDs that are unique across every resolved program, so
// tables from separate REPL inputs can be merged.
var refIDs int64

// Resolve walks program and returns the resolution table together with any
// static errors. The AST's Ref slots are rewritten in place.
func Resolve(program *ast.Program) (Locals, []diagnostics.Diagnostic) {
	r := &resolver{locals: make(Locals)}
	r.resolveStmts(program.Statements)
	return r.locals, r.diags
}

// Merge copies every entry of other into l.
func (l Locals) Merge(other Locals) {
	for id, depth := range other {
		l[id] = depth
	}
}

func (r *resolver) addDiag(msg string, span ast.Span, name string) {
	d := diagnostics.MakeDiag(diagnostics.EResolve, msg, &span, "")
	if name != "" {
		d.Where = fmt.Sprintf("at %q", name)
	}
	r.diags = append(r.diags, d)
}

func (r *resolver) begin() {
	r.scopes = append(r.scopes, make(scope))
}

func (r *resolver) end() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *resolver) declare(name string, span ast.Span) {
	if len(r.scopes) == 0 {
		return
	}
	top := r.scopes[len(r.scopes)-1]
	if _, ok := top[name]; ok {
		r.addDiag(fmt.Sprintf("%q is already defined in this scope, did you mean to assign to it instead?", name), span, name)
	}
	top[name] = false
}

func (r *resolver) define(name string) {
	if len(r.scopes) == 0 {
		return
	}
	r.scopes[len(r.scopes)-1][name] = true
}

// resolveLocal binds ref to the innermost open scope declaring name.
func (r *resolver) resolveLocal(ref *ast.Ref, name string) {
	ref.ID = 0
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if _, ok := r.scopes[i][name]; ok {
			ref.ID = int(atomic.AddInt64(&refIDs, 1))
			r.locals[ref.ID] = len(r.scopes) - 1 - i
			return
		}
	}
}

// --- Statements ---

func (r *resolver) resolveStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		r.resolveStmt(s)
	}
}

func (r *resolver) resolveStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.BlockStmt:
		r.begin()
		r.resolveStmts(s.Statements)
		r.end()

	case *ast.ClassDecl:
		r.resolveClass(s)

	case *ast.FnDecl:
		r.declare(s.Name, s.Span)
		r.define(s.Name)
		r.resolveFunction(s, fnFunction)

	case *ast.ExprStmt:
		r.resolveExpr(s.Expr)

	case *ast.IfStmt:
		r.resolveExpr(s.Cond)
		r.resolveStmt(s.Then)
		if s.Else != nil {
			r.resolveStmt(s.Else)
		}

	case *ast.PrintStmt:
		r.resolveExpr(s.Expr)

	case *ast.ReturnStmt:
		if r.fn == fnNone {
			r.addDiag(`"return" can only be used inside a function.`, s.Span, "")
		}
		if s.Value != nil {
			if r.fn == fnInitializer {
				r.addDiag("Class initializers cannot return a value.", s.Span, "")
			}
			r.resolveExpr(s.Value)
		}

	case *ast.VarStmt:
		r.declare(s.Name, s.Span)
		if s.Init != nil {
			r.resolveExpr(s.Init)
		}
		r.define(s.Name)

	case *ast.WhileStmt:
		r.resolveExpr(s.Cond)
		r.resolveStmt(s.Body)
	}
}

func (r *resolver) resolveClass(c *ast.ClassDecl) {
	enclosing := r.class
	r.class = classPlain

	r.declare(c.Name, c.Span)
	r.define(c.Name)

	hasSuper := false
	if c.Superclass != nil {
		if c.Superclass.Name == c.Name {
			r.addDiag("A class cannot inherit from itself.", c.Superclass.Span, c.Name)
		} else {
			hasSuper = true
			r.class = classSub
			r.resolveExpr(c.Superclass)
			r.begin()
			r.scopes[len(r.scopes)-1]["super"] = true
		}
	}

	r.begin()
	r.scopes[len(r.scopes)-1]["this"] = true
	for _, m := range c.Methods {
		kind := fnMethod
		if m.Name == "init" {
			kind = fnInitializer
		}
		r.resolveFunction(m, kind)
	}
	r.end()

	if hasSuper {
		r.end()
	}
	r.class = enclosing
}

// resolveFunction resolves parameters and body in one scope; the body is not
// a separate block.
func (r *resolver) resolveFunction(fn *ast.FnDecl, kind functionKind) {
	enclosing := r.fn
	r.fn = kind

	r.begin()
	for _, p := range fn.Params {
		r.declare(p, fn.Span)
		r.define(p)
	}
	r.resolveStmts(fn.Body)
	r.end()

	r.fn = enclosing
}

// --- Expressions ---

func (r *resolver) resolveExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.NumberLiteral, *ast.StringLiteral, *ast.BoolLiteral, *ast.NilLiteral:
		// nothing to bind

	case *ast.VariableExpr:
		if len(r.scopes) > 0 {
			if defined, ok := r.scopes[len(r.scopes)-1][e.Name]; ok && !defined {
				r.addDiag("Local variables cannot be read in their own initializer.", e.Span, e.Name)
			}
		}
		r.resolveLocal(&e.Ref, e.Name)

	case *ast.AssignExpr:
		r.resolveExpr(e.Value)
		r.resolveLocal(&e.Ref, e.Name)

	case *ast.ThisExpr:
		if r.class == classNone {
			r.addDiag(`"this" cannot be used outside of a class.`, e.Span, "this")
			return
		}
		r.resolveLocal(&e.Ref, "this")

	case *ast.SuperExpr:
		switch r.class {
		case classNone:
			r.addDiag(`"super" cannot be used outside of a class.`, e.Span, "super")
			return
		case classPlain:
			r.addDiag(`"super" cannot be used in a class with no superclass.`, e.Span, "super")
			return
		}
		r.resolveLocal(&e.Ref, "super")

	case *ast.BinaryExpr:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)

	case *ast.LogicalExpr:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)

	case *ast.UnaryExpr:
		r.resolveExpr(e.Operand)

	case *ast.GroupingExpr:
		r.resolveExpr(e.Inner)

	case *ast.CallExpr:
		r.resolveExpr(e.Callee)
		for _, a := range e.Args {
			r.resolveExpr(a)
		}

	case *ast.GetExpr:
		r.resolveExpr(e.Object)

	case *ast.SetExpr:
		r.resolveExpr(e.Value)
		r.resolveExpr(e.Object)

	case *ast.IndexGetExpr:
		r.resolveExpr(e.Object)
		r.resolveExpr(e.Index)

	case *ast.IndexSetExpr:
		r.resolveExpr(e.Object)
		r.resolveExpr(e.Index)
		r.resolveExpr(e.Value)

	case *ast.ArrayExpr:
		for _, el := range e.Elements {
			r.resolveExpr(el)
		}
	}
}
