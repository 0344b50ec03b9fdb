// Package ast defines the BotLang AST node types.
package ast

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// Ref is the resolution slot carried by variable-like expressions.
// The resolver assigns a non-zero ID to every reference it binds to a local
// scope; a zero ID means the reference is global.
type Ref struct {
	ID int
}

// Resolved reports whether the resolver bound this reference to a local scope.
func (r Ref) Resolved() bool { return r.ID != 0 }

// BinaryOp represents a binary operator.
type BinaryOp string

const (
	OpAdd       BinaryOp = "+"
	OpSub       BinaryOp = "-"
	OpMul       BinaryOp = "*"
	OpDiv       BinaryOp = "/"
	OpPow       BinaryOp = "^"
	OpMod       BinaryOp = "%"
	OpEuclidMod BinaryOp = "%%"
	OpGt        BinaryOp = ">"
	OpLt        BinaryOp = "<"
	OpGtEq      BinaryOp = ">="
	OpLtEq      BinaryOp = "<="
	OpEqEq      BinaryOp = "=="
	OpNeq       BinaryOp = "!="
)

// LogicalOp represents a short-circuiting operator.
type LogicalOp string

const (
	OpAnd LogicalOp = "and"
	OpOr  LogicalOp = "or"
)

// UnaryOp represents a unary operator.
type UnaryOp string

const (
	OpNeg UnaryOp = "-"
	OpNot UnaryOp = "!"
)

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all statement nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// Program is the root of a parsed source file.
type Program struct {
	Span       Span
	Statements []Stmt
}

// --- Literal Expressions ---

type NumberLiteral struct {
	Span  Span
	Value float64
}

func (n *NumberLiteral) Kind() string   { return "NumberLiteral" }
func (n *NumberLiteral) NodeSpan() Span { return n.Span }
func (n *NumberLiteral) exprNode()      {}

type StringLiteral struct {
	Span  Span
	Value string
}

func (n *StringLiteral) Kind() string   { return "StringLiteral" }
func (n *StringLiteral) NodeSpan() Span { return n.Span }
func (n *StringLiteral) exprNode()      {}

type BoolLiteral struct {
	Span  Span
	Value bool
}

func (n *BoolLiteral) Kind() string   { return "BoolLiteral" }
func (n *BoolLiteral) NodeSpan() Span { return n.Span }
func (n *BoolLiteral) exprNode()      {}

type NilLiteral struct {
	Span Span
}

func (n *NilLiteral) Kind() string   { return "NilLiteral" }
func (n *NilLiteral) NodeSpan() Span { return n.Span }
func (n *NilLiteral) exprNode()      {}

// IsLiteral reports whether e is one of the literal expression nodes.
func IsLiteral(e Expr) bool {
	switch e.(type) {
	case *NumberLiteral, *StringLiteral, *BoolLiteral, *NilLiteral:
		return true
	}
	return false
}

// --- Variables ---

type VariableExpr struct {
	Span Span
	Name string
	Ref  Ref
}

func (n *VariableExpr) Kind() string   { return "VariableExpr" }
func (n *VariableExpr) NodeSpan() Span { return n.Span }
func (n *VariableExpr) exprNode()      {}

type AssignExpr struct {
	Span  Span
	Name  string
	Value Expr
	Ref   Ref
}

func (n *AssignExpr) Kind() string   { return "AssignExpr" }
func (n *AssignExpr) NodeSpan() Span { return n.Span }
func (n *AssignExpr) exprNode()      {}

type ThisExpr struct {
	Span Span
	Ref  Ref
}

func (n *ThisExpr) Kind() string   { return "ThisExpr" }
func (n *ThisExpr) NodeSpan() Span { return n.Span }
func (n *ThisExpr) exprNode()      {}

type SuperExpr struct {
	Span   Span
	Method string
	Ref    Ref
}

func (n *SuperExpr) Kind() string   { return "SuperExpr" }
func (n *SuperExpr) NodeSpan() Span { return n.Span }
func (n *SuperExpr) exprNode()      {}

// --- Operators ---

type BinaryExpr struct {
	Span  Span
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (n *BinaryExpr) Kind() string   { return "BinaryExpr" }
func (n *BinaryExpr) NodeSpan() Span { return n.Span }
func (n *BinaryExpr) exprNode()      {}

type LogicalExpr struct {
	Span  Span
	Op    LogicalOp
	Left  Expr
	Right Expr
}

func (n *LogicalExpr) Kind() string   { return "LogicalExpr" }
func (n *LogicalExpr) NodeSpan() Span { return n.Span }
func (n *LogicalExpr) exprNode()      {}

type UnaryExpr struct {
	Span    Span
	Op      UnaryOp
	Operand Expr
}

func (n *UnaryExpr) Kind() string   { return "UnaryExpr" }
func (n *UnaryExpr) NodeSpan() Span { return n.Span }
func (n *UnaryExpr) exprNode()      {}

type GroupingExpr struct {
	Span  Span
	Inner Expr
}

func (n *GroupingExpr) Kind() string   { return "GroupingExpr" }
func (n *GroupingExpr) NodeSpan() Span { return n.Span }
func (n *GroupingExpr) exprNode()      {}

// --- Calls, properties and indexing ---

type CallExpr struct {
	Span   Span
	Callee Expr
	Args   []Expr
}

func (n *CallExpr) Kind() string   { return "CallExpr" }
func (n *CallExpr) NodeSpan() Span { return n.Span }
func (n *CallExpr) exprNode()      {}

type GetExpr struct {
	Span   Span
	Object Expr
	Name   string
}

func (n *GetExpr) Kind() string   { return "GetExpr" }
func (n *GetExpr) NodeSpan() Span { return n.Span }
func (n *GetExpr) exprNode()      {}

type SetExpr struct {
	Span   Span
	Object Expr
	Name   string
	Value  Expr
}

func (n *SetExpr) Kind() string   { return "SetExpr" }
func (n *SetExpr) NodeSpan() Span { return n.Span }
func (n *SetExpr) exprNode()      {}

type IndexGetExpr struct {
	Span   Span
	Object Expr
	Index  Expr
}

func (n *IndexGetExpr) Kind() string   { return "IndexGetExpr" }
func (n *IndexGetExpr) NodeSpan() Span { return n.Span }
func (n *IndexGetExpr) exprNode()      {}

type IndexSetExpr struct {
	Span   Span
	Object Expr
	Index  Expr
	Value  Expr
}

func (n *IndexSetExpr) Kind() string   { return "IndexSetExpr" }
func (n *IndexSetExpr) NodeSpan() Span { return n.Span }
func (n *IndexSetExpr) exprNode()      {}

type ArrayExpr struct {
	Span     Span
	Elements []Expr
}

func (n *ArrayExpr) Kind() string   { return "ArrayExpr" }
func (n *ArrayExpr) NodeSpan() Span { return n.Span }
func (n *ArrayExpr) exprNode()      {}

// --- Statements ---

// BlockStmt is a braced statement list with its own scope. FromFor marks the
// outer block synthesized for a desugared for loop.
type BlockStmt struct {
	Span       Span
	Statements []Stmt
	FromFor    bool
}

func (n *BlockStmt) Kind() string   { return "BlockStmt" }
func (n *BlockStmt) NodeSpan() Span { return n.Span }
func (n *BlockStmt) stmtNode()      {}

type ClassDecl struct {
	Span       Span
	Name       string
	Superclass *VariableExpr
	Methods    []*FnDecl
}

func (n *ClassDecl) Kind() string   { return "ClassDecl" }
func (n *ClassDecl) NodeSpan() Span { return n.Span }
func (n *ClassDecl) stmtNode()      {}

type FnDecl struct {
	Span   Span
	Name   string
	Params []string
	Body   []Stmt
}

func (n *FnDecl) Kind() string   { return "FnDecl" }
func (n *FnDecl) NodeSpan() Span { return n.Span }
func (n *FnDecl) stmtNode()      {}

type ExprStmt struct {
	Span Span
	Expr Expr
}

func (n *ExprStmt) Kind() string   { return "ExprStmt" }
func (n *ExprStmt) NodeSpan() Span { return n.Span }
func (n *ExprStmt) stmtNode()      {}

type IfStmt struct {
	Span Span
	Cond Expr
	Then Stmt
	Else Stmt
}

func (n *IfStmt) Kind() string   { return "IfStmt" }
func (n *IfStmt) NodeSpan() Span { return n.Span }
func (n *IfStmt) stmtNode()      {}

type PrintStmt struct {
	Span Span
	Expr Expr
}

func (n *PrintStmt) Kind() string   { return "PrintStmt" }
func (n *PrintStmt) NodeSpan() Span { return n.Span }
func (n *PrintStmt) stmtNode()      {}

type ReturnStmt struct {
	Span  Span
	Value Expr
}

func (n *ReturnStmt) Kind() string   { return "ReturnStmt" }
func (n *ReturnStmt) NodeSpan() Span { return n.Span }
func (n *ReturnStmt) stmtNode()      {}

type VarStmt struct {
	Span Span
	Name string
	Init Expr
}

func (n *VarStmt) Kind() string   { return "VarStmt" }
func (n *VarStmt) NodeSpan() Span { return n.Span }
func (n *VarStmt) stmtNode()      {}

// WhileStmt is a while loop. FromFor marks loops produced by for desugaring.
type WhileStmt struct {
	Span    Span
	Cond    Expr
	Body    Stmt
	FromFor bool
}

func (n *WhileStmt) Kind() string   { return "WhileStmt" }
func (n *WhileStmt) NodeSpan() Span { return n.Span }
func (n *WhileStmt) stmtNode()      {}
