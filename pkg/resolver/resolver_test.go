package resolver_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/botlang/pkg/ast"
	"github.com/thomasrohde/botlang/pkg/diagnostics"
	"github.com/thomasrohde/botlang/pkg/parser"
	"github.com/thomasrohde/botlang/pkg/resolver"
)

// helper parses source and resolves it, returning the program, table and
// resolver diagnostics. It fatals on parse errors so test cases focus on
// resolution.
func mustParseAndResolve(t *testing.T, source string) (*ast.Program, resolver.Locals, []diagnostics.Diagnostic) {
	t.Helper()
	prog, parseErrs := parser.ParseSource(source, "test.bl", parser.Options{AllowInheritance: true})
	if len(parseErrs) > 0 {
		t.Fatalf("unexpected parse error: %s", parseErrs[0].Message)
	}
	locals, diags := resolver.Resolve(prog)
	return prog, locals, diags
}

// assertNoDiags asserts zero diagnostics were produced.
func assertNoDiags(t *testing.T, diags []diagnostics.Diagnostic) {
	t.Helper()
	if len(diags) != 0 {
		var msgs []string
		for _, d := range diags {
			msgs = append(msgs, d.Code+": "+d.Message)
		}
		t.Errorf("expected no diagnostics, got %d:\n  %s", len(diags), strings.Join(msgs, "\n  "))
	}
}

// assertSingleDiag asserts exactly one E_RESOLVE diagnostic with the message.
func assertSingleDiag(t *testing.T, diags []diagnostics.Diagnostic, msg string) {
	t.Helper()
	require.Len(t, diags, 1, "diagnostics: %v", diags)
	assert.Equal(t, diagnostics.EResolve, diags[0].Code)
	assert.Equal(t, msg, diags[0].Message)
}

// findVar returns every VariableExpr named name in the order the walk meets them.
func findVars(prog *ast.Program, name string) []*ast.VariableExpr {
	var out []*ast.VariableExpr
	var walkExpr func(ast.Expr)
	var walkStmt func(ast.Stmt)
	walkExpr = func(e ast.Expr) {
		switch n := e.(type) {
		case *ast.VariableExpr:
			if n.Name == name {
				out = append(out, n)
			}
		case *ast.AssignExpr:
			walkExpr(n.Value)
		case *ast.BinaryExpr:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case *ast.CallExpr:
			walkExpr(n.Callee)
			for _, a := range n.Args {
				walkExpr(a)
			}
		case *ast.GroupingExpr:
			walkExpr(n.Inner)
		}
	}
	walkStmt = func(s ast.Stmt) {
		switch n := s.(type) {
		case *ast.BlockStmt:
			for _, c := range n.Statements {
				walkStmt(c)
			}
		case *ast.ExprStmt:
			walkExpr(n.Expr)
		case *ast.PrintStmt:
			walkExpr(n.Expr)
		case *ast.VarStmt:
			if n.Init != nil {
				walkExpr(n.Init)
			}
		case *ast.FnDecl:
			for _, c := range n.Body {
				walkStmt(c)
			}
		case *ast.ReturnStmt:
			if n.Value != nil {
				walkExpr(n.Value)
			}
		case *ast.WhileStmt:
			walkExpr(n.Cond)
			walkStmt(n.Body)
		}
	}
	for _, s := range prog.Statements {
		walkStmt(s)
	}
	return out
}

// ---- 1. Valid programs ----

func TestValidPrograms(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"globals", "var a = 1; print a;"},
		{"global self reference", "var a = a;"},
		{"global redeclaration", "var a = 1; var a = 2;"},
		{"shadowing", "var x = 1; { var x = 2; print x; }"},
		{"function", "function f(a, b) { return a + b; } print f(1, 2);"},
		{"recursion", "function fib(n) { if (n < 2) return n; return fib(n - 1) + fib(n - 2); }"},
		{"closure", "function mk() { var n = 0; function inc() { n += 1; return n; } return inc; }"},
		{"class with this", "class A { init(x) { this.x = x; } get() { return this.x; } }"},
		{"bare return in init", "class A { init() { return; } }"},
		{"this in nested function", "class A { m() { function f() { return this; } return f; } }"},
		{"super in subclass", "class A { m() {} } class B < A { m() { return super.m(); } }"},
		{"for loop", "for (var i = 0; i < 4; i += 1) { print i; }"},
		{"two loops reuse name", "for (var i = 0; i < 2; i += 1) {} for (var i = 0; i < 2; i += 1) {}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, diags := mustParseAndResolve(t, tt.source)
			assertNoDiags(t, diags)
		})
	}
}

// ---- 2. Static errors ----

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		msg    string
	}{
		{"local self reference", "{ var a = a; }", "Local variables cannot be read in their own initializer."},
		{"local self reference in function", "function f() { var a = a + 1; }", "Local variables cannot be read in their own initializer."},
		{"local redeclaration", "{ var a = 1; var a = 2; }", `"a" is already defined in this scope, did you mean to assign to it instead?`},
		{"duplicate parameter", "function f(a, a) {}", `"a" is already defined in this scope, did you mean to assign to it instead?`},
		{"parameter redeclared in body", "function f(a) { var a = 1; }", `"a" is already defined in this scope, did you mean to assign to it instead?`},
		{"this at top level", "print this;", `"this" cannot be used outside of a class.`},
		{"this in function", "function f() { return this; }", `"this" cannot be used outside of a class.`},
		{"super at top level", "super.m();", `"super" cannot be used outside of a class.`},
		{"super without superclass", "class A { m() { super.m(); } }", `"super" cannot be used in a class with no superclass.`},
		{"top level return", "return 1;", `"return" can only be used inside a function.`},
		{"return value from init", "class A { init() { return 1; } }", "Class initializers cannot return a value."},
		{"inherit from itself", "class A < A {}", "A class cannot inherit from itself."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, diags := mustParseAndResolve(t, tt.source)
			assertSingleDiag(t, diags, tt.msg)
		})
	}
}

func TestMultipleErrorsAreCollected(t *testing.T) {
	_, _, diags := mustParseAndResolve(t, "return 1;\nprint this;\n{ var a = a; }")
	require.Len(t, diags, 3)
	for i, d := range diags {
		assert.Equal(t, i+1, d.Line())
	}
}

func TestDiagnosticWhere(t *testing.T) {
	_, _, diags := mustParseAndResolve(t, "{ var x = 1; var x = 2; }")
	require.Len(t, diags, 1)
	assert.Equal(t, `at "x"`, diags[0].Where)
}

// ---- 3. Resolution distances ----

func TestGlobalsStayUnresolved(t *testing.T) {
	prog, locals, diags := mustParseAndResolve(t, "var g = 1; print g; function f() { return g; }")
	assertNoDiags(t, diags)
	for _, v := range findVars(prog, "g") {
		assert.False(t, v.Ref.Resolved(), "global reference should keep a zero ref")
	}
	assert.Empty(t, locals)
}

func TestDepths(t *testing.T) {
	src := `{
  var a = 1;
  print a;
  {
    print a;
    function f() {
      print a;
    }
  }
}`
	prog, locals, diags := mustParseAndResolve(t, src)
	assertNoDiags(t, diags)

	refs := findVars(prog, "a")
	require.Len(t, refs, 3)
	want := []int{0, 1, 2}
	for i, v := range refs {
		require.True(t, v.Ref.Resolved(), "reference %d should be local", i)
		assert.Equal(t, want[i], locals[v.Ref.ID], "reference %d", i)
	}
}

func TestShadowedDepth(t *testing.T) {
	prog, locals, diags := mustParseAndResolve(t, "{ var x = 1; { var x = 2; print x; } print x; }")
	assertNoDiags(t, diags)
	refs := findVars(prog, "x")
	require.Len(t, refs, 2)
	assert.Equal(t, 0, locals[refs[0].Ref.ID])
	assert.Equal(t, 0, locals[refs[1].Ref.ID])
	assert.NotEqual(t, refs[0].Ref.ID, refs[1].Ref.ID)
}

func TestParametersResolveInFunctionScope(t *testing.T) {
	prog, locals, diags := mustParseAndResolve(t, "function f(n) { return n; }")
	assertNoDiags(t, diags)
	refs := findVars(prog, "n")
	require.Len(t, refs, 1)
	assert.Equal(t, 0, locals[refs[0].Ref.ID], "the body shares the parameter scope")
}

func TestForLoopDepths(t *testing.T) {
	prog, locals, diags := mustParseAndResolve(t, "for (var i = 0; i < 4; i += 1) { print i; }")
	assertNoDiags(t, diags)

	block := prog.Statements[0].(*ast.BlockStmt)
	loop := block.Statements[1].(*ast.WhileStmt)
	cond := loop.Cond.(*ast.BinaryExpr).Left.(*ast.VariableExpr)
	assert.Equal(t, 0, locals[cond.Ref.ID])

	body := loop.Body.(*ast.BlockStmt)
	printed := body.Statements[0].(*ast.BlockStmt).Statements[0].(*ast.PrintStmt).Expr.(*ast.VariableExpr)
	assert.Equal(t, 2, locals[printed.Ref.ID])

	incr := body.Statements[1].(*ast.ExprStmt).Expr.(*ast.AssignExpr)
	assert.Equal(t, 1, locals[incr.Ref.ID])
}

func TestThisAndSuperDepths(t *testing.T) {
	src := "class A { m() {} } class B < A { m() { print this; return super.m(); } }"
	prog, locals, diags := mustParseAndResolve(t, src)
	assertNoDiags(t, diags)

	b := prog.Statements[1].(*ast.ClassDecl)
	m := b.Methods[0]
	this := m.Body[0].(*ast.PrintStmt).Expr.(*ast.ThisExpr)
	assert.Equal(t, 1, locals[this.Ref.ID], "method scope, then the this scope")

	call := m.Body[1].(*ast.ReturnStmt).Value.(*ast.CallExpr)
	super := call.Callee.(*ast.SuperExpr)
	assert.Equal(t, 2, locals[super.Ref.ID], "method scope, this scope, then the super scope")
}

func TestRefIDsAreUniqueAcrossRuns(t *testing.T) {
	_, first, _ := mustParseAndResolve(t, "{ var a; print a; }")
	_, second, _ := mustParseAndResolve(t, "{ var a; print a; }")
	merged := resolver.Locals{}
	merged.Merge(first)
	merged.Merge(second)
	assert.Len(t, merged, len(first)+len(second))
}
