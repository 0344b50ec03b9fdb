package ast_test

import (
	"testing"

	"github.com/thomasrohde/botlang/pkg/ast"
)

func TestNodeKinds(t *testing.T) {
	nodes := []ast.Node{
		&ast.NumberLiteral{Value: 42},
		&ast.StringLiteral{Value: "hello"},
		&ast.BoolLiteral{Value: true},
		&ast.NilLiteral{},
		&ast.VariableExpr{Name: "x"},
		&ast.ArrayExpr{},
		&ast.SuperExpr{Method: "init"},
		&ast.BlockStmt{},
		&ast.WhileStmt{},
		&ast.ClassDecl{Name: "A"},
	}

	expected := []string{
		"NumberLiteral", "StringLiteral", "BoolLiteral", "NilLiteral",
		"VariableExpr", "ArrayExpr", "SuperExpr", "BlockStmt", "WhileStmt", "ClassDecl",
	}

	for i, node := range nodes {
		if got := node.Kind(); got != expected[i] {
			t.Errorf("node %d: got Kind() = %q, want %q", i, got, expected[i])
		}
	}
}

func TestIsLiteral(t *testing.T) {
	tests := []struct {
		expr ast.Expr
		want bool
	}{
		{&ast.NumberLiteral{}, true},
		{&ast.StringLiteral{}, true},
		{&ast.NilLiteral{}, true},
		{&ast.VariableExpr{}, false},
		{&ast.GroupingExpr{}, false},
	}
	for _, tt := range tests {
		if got := ast.IsLiteral(tt.expr); got != tt.want {
			t.Errorf("IsLiteral(%s) = %v, want %v", tt.expr.Kind(), got, tt.want)
		}
	}
}

func TestRefResolved(t *testing.T) {
	var r ast.Ref
	if r.Resolved() {
		t.Error("zero Ref should be unresolved")
	}
	r.ID = 3
	if !r.Resolved() {
		t.Error("Ref with ID should be resolved")
	}
}
