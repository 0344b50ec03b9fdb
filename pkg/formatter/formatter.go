// Package formatter implements the BotLang source code formatter.
package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thomasrohde/botlang/pkg/ast"
)

const indent = "  "

// maxInline is the widest array literal kept on one line.
const maxInline = 72

// compoundOps are the operators with an `op=` assignment form.
var compoundOps = map[ast.BinaryOp]bool{
	ast.OpAdd: true, ast.OpSub: true, ast.OpMul: true, ast.OpDiv: true,
}

// Format pretty-prints a BotLang AST back to source code. Groupings are kept
// as written, desugared for loops are printed as for loops again, and
// assignments of the form `x = x + y` are printed as `x += y`.
func Format(program *ast.Program) string {
	var lines []string
	var prev ast.Stmt
	for _, s := range program.Statements {
		// blank line around declarations
		if prev != nil && (isDecl(s) || isDecl(prev)) {
			lines = append(lines, "")
		}
		lines = append(lines, formatStmt(s, 0))
		prev = s
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func isDecl(s ast.Stmt) bool {
	switch s.(type) {
	case *ast.FnDecl, *ast.ClassDecl:
		return true
	}
	return false
}

// HasComments checks if a source string contains BotLang comments (# prefix).
func HasComments(source string) bool {
	for _, line := range strings.Split(source, "\n") {
		var quote byte
		for i := 0; i < len(line); i++ {
			ch := line[i]
			switch {
			case quote != 0 && ch == '\\':
				i++
			case quote != 0 && ch == quote:
				quote = 0
			case quote != 0:
			case ch == '"' || ch == '\'':
				quote = ch
			case ch == '#':
				return true
			}
		}
	}
	return false
}

func formatStmt(s ast.Stmt, depth int) string {
	prefix := strings.Repeat(indent, depth)
	switch stmt := s.(type) {
	case *ast.VarStmt:
		if stmt.Init == nil {
			return prefix + "var " + stmt.Name + ";"
		}
		return prefix + "var " + stmt.Name + " = " + formatExpr(stmt.Init, depth) + ";"
	case *ast.ExprStmt:
		return prefix + formatExpr(stmt.Expr, depth) + ";"
	case *ast.PrintStmt:
		return prefix + "print " + formatExpr(stmt.Expr, depth) + ";"
	case *ast.ReturnStmt:
		if stmt.Value == nil {
			return prefix + "return;"
		}
		return prefix + "return " + formatExpr(stmt.Value, depth) + ";"
	case *ast.BlockStmt:
		if stmt.FromFor {
			if out, ok := formatFor(stmt, depth); ok {
				return out
			}
		}
		return prefix + formatBlock(stmt.Statements, depth)
	case *ast.IfStmt:
		return prefix + formatIf(stmt, depth)
	case *ast.WhileStmt:
		return prefix + "while (" + formatExpr(stmt.Cond, depth) + ")" + formatBody(stmt.Body, depth)
	case *ast.FnDecl:
		return prefix + "function " + formatFunction(stmt, depth)
	case *ast.ClassDecl:
		head := prefix + "class " + stmt.Name
		if stmt.Superclass != nil {
			head += " < " + stmt.Superclass.Name
		}
		if len(stmt.Methods) == 0 {
			return head + " {}"
		}
		methods := make([]string, len(stmt.Methods))
		for i, m := range stmt.Methods {
			methods[i] = strings.Repeat(indent, depth+1) + formatFunction(m, depth+1)
		}
		return head + " {\n" + strings.Join(methods, "\n\n") + "\n" + prefix + "}"
	}
	return ""
}

func formatFunction(fn *ast.FnDecl, depth int) string {
	return fn.Name + "(" + strings.Join(fn.Params, ", ") + ") " + formatBlock(fn.Body, depth)
}

// formatBlock renders a braced statement list whose closing brace sits at depth.
func formatBlock(stmts []ast.Stmt, depth int) string {
	if len(stmts) == 0 {
		return "{}"
	}
	lines := make([]string, len(stmts))
	for i, s := range stmts {
		lines[i] = formatStmt(s, depth+1)
	}
	return "{\n" + strings.Join(lines, "\n") + "\n" + strings.Repeat(indent, depth) + "}"
}

// formatBody renders a loop or branch body: blocks stay on the header line,
// single statements go on their own indented line.
func formatBody(body ast.Stmt, depth int) string {
	if block, ok := body.(*ast.BlockStmt); ok && !block.FromFor {
		return " " + formatBlock(block.Statements, depth)
	}
	return "\n" + formatStmt(body, depth+1)
}

func formatIf(stmt *ast.IfStmt, depth int) string {
	out := "if (" + formatExpr(stmt.Cond, depth) + ")" + formatBody(stmt.Then, depth)
	if stmt.Else == nil {
		return out
	}
	if block, ok := stmt.Then.(*ast.BlockStmt); ok && !block.FromFor {
		out += " else"
	} else {
		out += "\n" + strings.Repeat(indent, depth) + "else"
	}
	if elif, ok := stmt.Else.(*ast.IfStmt); ok {
		return out + " " + formatIf(elif, depth)
	}
	return out + formatBody(stmt.Else, depth)
}

// formatFor recovers `for (init; cond; incr) body` from the
// `{ init; while (cond) { body; incr; } }` shape the parser produces.
func formatFor(outer *ast.BlockStmt, depth int) (string, bool) {
	var init ast.Stmt
	var loop *ast.WhileStmt
	switch len(outer.Statements) {
	case 1:
		loop, _ = outer.Statements[0].(*ast.WhileStmt)
	case 2:
		init = outer.Statements[0]
		loop, _ = outer.Statements[1].(*ast.WhileStmt)
	}
	if loop == nil || !loop.FromFor {
		return "", false
	}
	inner, ok := loop.Body.(*ast.BlockStmt)
	if !ok || len(inner.Statements) == 0 || len(inner.Statements) > 2 {
		return "", false
	}

	initStr := ";"
	if init != nil {
		initStr = strings.TrimSpace(formatStmt(init, 0))
	}
	incrStr := ""
	if len(inner.Statements) == 2 {
		incr, ok := inner.Statements[1].(*ast.ExprStmt)
		if !ok {
			return "", false
		}
		incrStr = " " + formatExpr(incr.Expr, depth)
	}
	condStr := " " + formatExpr(loop.Cond, depth) + ";"

	prefix := strings.Repeat(indent, depth)
	return prefix + "for (" + initStr + condStr + incrStr + ")" + formatBody(inner.Statements[0], depth), true
}

func formatExpr(e ast.Expr, depth int) string {
	switch expr := e.(type) {
	case *ast.NumberLiteral:
		return strconv.FormatFloat(expr.Value, 'f', -1, 64)
	case *ast.StringLiteral:
		return quote(expr.Value)
	case *ast.BoolLiteral:
		if expr.Value {
			return "true"
		}
		return "false"
	case *ast.NilLiteral:
		return "nil"
	case *ast.VariableExpr:
		return expr.Name
	case *ast.ThisExpr:
		return "this"
	case *ast.SuperExpr:
		return "super." + expr.Method
	case *ast.AssignExpr:
		return formatAssign(expr.Name, expr.Value, depth)
	case *ast.SetExpr:
		return formatAssign(formatExpr(expr.Object, depth)+"."+expr.Name, expr.Value, depth)
	case *ast.IndexSetExpr:
		target := formatExpr(expr.Object, depth) + "[" + formatExpr(expr.Index, depth) + "]"
		return formatAssign(target, expr.Value, depth)
	case *ast.BinaryExpr:
		return formatExpr(expr.Left, depth) + " " + string(expr.Op) + " " + formatExpr(expr.Right, depth)
	case *ast.LogicalExpr:
		return formatExpr(expr.Left, depth) + " " + string(expr.Op) + " " + formatExpr(expr.Right, depth)
	case *ast.UnaryExpr:
		return string(expr.Op) + formatExpr(expr.Operand, depth)
	case *ast.GroupingExpr:
		return "(" + formatExpr(expr.Inner, depth) + ")"
	case *ast.CallExpr:
		args := make([]string, len(expr.Args))
		for i, a := range expr.Args {
			args[i] = formatExpr(a, depth)
		}
		return formatExpr(expr.Callee, depth) + "(" + strings.Join(args, ", ") + ")"
	case *ast.GetExpr:
		return formatExpr(expr.Object, depth) + "." + expr.Name
	case *ast.IndexGetExpr:
		return formatExpr(expr.Object, depth) + "[" + formatExpr(expr.Index, depth) + "]"
	case *ast.ArrayExpr:
		return formatList(expr, depth)
	}
	return ""
}

// formatAssign prints `target = value`, or `target op= rhs` when value is
// `target op rhs`.
func formatAssign(target string, value ast.Expr, depth int) string {
	if bin, ok := value.(*ast.BinaryExpr); ok && compoundOps[bin.Op] && formatExpr(bin.Left, depth) == target {
		return target + " " + string(bin.Op) + "= " + formatExpr(bin.Right, depth)
	}
	return target + " = " + formatExpr(value, depth)
}

// quote renders s as a double-quoted literal using the escapes the scanner
// understands.
func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; ch {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		default:
			sb.WriteByte(ch)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func formatList(list *ast.ArrayExpr, depth int) string {
	if len(list.Elements) == 0 {
		return "[]"
	}

	// Try inline first
	inlineParts := make([]string, len(list.Elements))
	for i, e := range list.Elements {
		inlineParts[i] = formatExpr(e, depth+1)
	}
	inline := "[" + strings.Join(inlineParts, ", ") + "]"
	if len(inline) <= maxInline && !strings.Contains(inline, "\n") {
		return inline
	}

	// Multi-line
	inner := strings.Repeat(indent, depth+1)
	outer := strings.Repeat(indent, depth)
	parts := make([]string, len(list.Elements))
	for i, e := range list.Elements {
		parts[i] = inner + formatExpr(e, depth+1)
	}
	return fmt.Sprintf("[\n%s,\n%s]", strings.Join(parts, ",\n"), outer)
}
