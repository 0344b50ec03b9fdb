// Package parser implements the BotLang recursive-descent parser.
package parser

import (
	"fmt"
	"strconv"

	mapset "github.com/deckarep/golang-set"

	"github.com/thomasrohde/botlang/pkg/ast"
	"github.com/thomasrohde/botlang/pkg/diagnostics"
	"github.com/thomasrohde/botlang/pkg/lexer"
)

// MaxArgs is the largest number of parameters or call arguments accepted.
const MaxArgs = 255

// Options controls optional grammar features.
type Options struct {
	// AllowInheritance enables the `class A < B` superclass clause.
	AllowInheritance bool
}

// statementStarts holds the tokens synchronization stops in front of.
var statementStarts = func() mapset.Set {
	s := mapset.NewSet()
	for _, t := range []lexer.TokenType{
		lexer.TokClass, lexer.TokFunction, lexer.TokFor, lexer.TokIf,
		lexer.TokWhile, lexer.TokPrint, lexer.TokReturn,
	} {
		s.Add(t)
	}
	return s
}()

// parseError unwinds the current declaration; it has already been reported.
type parseError struct{}

type parser struct {
	tokens []lexer.Token
	pos    int
	opts   Options
	diags  []diagnostics.Diagnostic
}

// ParseSource tokenizes source and parses it. Scan diagnostics are returned
// together with parse diagnostics; the program is nil if any were produced.
func ParseSource(source, filename string, opts Options) (*ast.Program, []diagnostics.Diagnostic) {
	tokens, scanDiags := lexer.Tokenize(source, filename)
	prog, parseDiags := Parse(tokens, opts)
	diags := append(scanDiags, parseDiags...)
	if len(diags) > 0 {
		return nil, diags
	}
	return prog, nil
}

// Parse builds a program from a token stream terminated by TokEOF. Syntax
// errors are collected after synchronizing to the next statement, so several
// can be reported at once; the program is nil if any occurred.
func Parse(tokens []lexer.Token, opts Options) (*ast.Program, []diagnostics.Diagnostic) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.TokEOF {
		tokens = append(tokens, lexer.Token{Type: lexer.TokEOF})
	}
	p := &parser{tokens: tokens, opts: opts}
	prog := p.parseProgram()
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return prog, nil
}

// --- Token cursor ---

func (p *parser) current() lexer.Token {
	return p.tokens[p.pos]
}

func (p *parser) previous() lexer.Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) atEnd() bool {
	return p.peek() == lexer.TokEOF
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if !p.atEnd() {
		p.pos++
	}
	return tok
}

func (p *parser) check(typ lexer.TokenType) bool {
	return !p.atEnd() && p.peek() == typ
}

func (p *parser) match(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

// expect consumes a token of the given type or reports msg and unwinds.
func (p *parser) expect(typ lexer.TokenType, msg string) lexer.Token {
	if p.check(typ) {
		return p.advance()
	}
	panic(p.errorAt(p.current(), msg))
}

// errorAt records a diagnostic pointing at tok and returns the unwind value.
func (p *parser) errorAt(tok lexer.Token, msg string) parseError {
	where := "at end"
	if tok.Type != lexer.TokEOF {
		where = fmt.Sprintf("at %q", tok.Lexeme)
	}
	span := tok.Span
	d := diagnostics.MakeDiag(diagnostics.EParse, msg, &span, "")
	d.Where = where
	p.diags = append(p.diags, d)
	return parseError{}
}

// synchronize discards tokens until just after a semicolon or just before a
// token that starts a statement.
func (p *parser) synchronize() {
	p.advance()
	for !p.atEnd() {
		if p.previous().Type == lexer.TokSemicolon || statementStarts.Contains(p.peek()) {
			return
		}
		p.advance()
	}
}

func spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

// to returns the span from start to the last consumed token.
func (p *parser) to(start ast.Span) ast.Span {
	return spanFromTo(start, p.previous().Span)
}

// --- Program & declarations ---

func (p *parser) parseProgram() *ast.Program {
	start := p.current().Span
	var stmts []ast.Stmt
	for !p.atEnd() {
		if stmt := p.declaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return &ast.Program{Span: p.to(start), Statements: stmts}
}

// declaration parses one declaration, recovering from syntax errors. It
// returns nil after an error.
func (p *parser) declaration() (stmt ast.Stmt) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(parseError); !ok {
				panic(r)
			}
			p.synchronize()
			stmt = nil
		}
	}()

	switch {
	case p.match(lexer.TokClass):
		return p.classDecl()
	case p.match(lexer.TokFunction):
		return p.function("function")
	case p.match(lexer.TokVar):
		return p.varDecl()
	}
	return p.statement()
}

func (p *parser) classDecl() ast.Stmt {
	start := p.previous().Span
	name := p.expect(lexer.TokIdent, "Expected class name.")

	var super *ast.VariableExpr
	if p.opts.AllowInheritance && p.match(lexer.TokLt) {
		tok := p.expect(lexer.TokIdent, "Expected superclass name.")
		super = &ast.VariableExpr{Span: tok.Span, Name: tok.Lexeme}
	}

	p.expect(lexer.TokLBrace, `Expected "{" before class body.`)
	var methods []*ast.FnDecl
	for !p.check(lexer.TokRBrace) && !p.atEnd() {
		p.match(lexer.TokFunction)
		methods = append(methods, p.function("method"))
	}
	p.expect(lexer.TokRBrace, `Expected "}" after class body.`)

	return &ast.ClassDecl{
		Span:       p.to(start),
		Name:       name.Lexeme,
		Superclass: super,
		Methods:    methods,
	}
}

// function parses a function or method after its leading keyword; kind is
// used in messages.
func (p *parser) function(kind string) *ast.FnDecl {
	start := p.current().Span
	if p.previous().Type == lexer.TokFunction {
		start = p.previous().Span
	}
	name := p.expect(lexer.TokIdent, fmt.Sprintf("Expected %s name.", kind))
	p.expect(lexer.TokLParen, fmt.Sprintf(`Expected "(" after %s name.`, kind))

	var params []string
	if !p.check(lexer.TokRParen) {
		for {
			if len(params) >= MaxArgs {
				p.errorAt(p.current(), fmt.Sprintf("Cannot have more than %d arguments.", MaxArgs))
			}
			params = append(params, p.expect(lexer.TokIdent, "Expected parameter name.").Lexeme)
			if !p.match(lexer.TokComma) {
				break
			}
		}
	}
	p.expect(lexer.TokRParen, `Expected ")" after parameter list.`)
	p.expect(lexer.TokLBrace, fmt.Sprintf(`Expected "{" before %s body.`, kind))
	body := p.block()

	return &ast.FnDecl{Span: p.to(start), Name: name.Lexeme, Params: params, Body: body}
}

func (p *parser) varDecl() ast.Stmt {
	start := p.previous().Span
	name := p.expect(lexer.TokIdent, "Expected a variable name.")

	var init ast.Expr
	if p.match(lexer.TokEq) {
		init = p.expression()
	}
	p.expect(lexer.TokSemicolon, `Expected ";" after variable declaration.`)
	return &ast.VarStmt{Span: p.to(start), Name: name.Lexeme, Init: init}
}

// --- Statements ---

func (p *parser) statement() ast.Stmt {
	switch {
	case p.match(lexer.TokFor):
		return p.forStmt()
	case p.match(lexer.TokIf):
		return p.ifStmt()
	case p.match(lexer.TokReturn):
		return p.returnStmt()
	case p.match(lexer.TokPrint):
		return p.printStmt()
	case p.match(lexer.TokWhile):
		return p.whileStmt()
	case p.match(lexer.TokLBrace):
		start := p.previous().Span
		stmts := p.block()
		return &ast.BlockStmt{Span: p.to(start), Statements: stmts}
	}
	return p.exprStmt()
}

// block parses declarations up to and including the closing brace.
func (p *parser) block() []ast.Stmt {
	var stmts []ast.Stmt
	for !p.check(lexer.TokRBrace) && !p.atEnd() {
		if stmt := p.declaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	p.expect(lexer.TokRBrace, `Expected "}" after block.`)
	return stmts
}

func (p *parser) exprStmt() ast.Stmt {
	expr := p.expression()
	p.expect(lexer.TokSemicolon, `Expected ";" after expression.`)
	return &ast.ExprStmt{Span: p.to(expr.NodeSpan()), Expr: expr}
}

// forStmt desugars `for (init; cond; incr) body` into
// `{ init; while (cond) { body; incr; } }`.
func (p *parser) forStmt() ast.Stmt {
	start := p.previous().Span
	p.expect(lexer.TokLParen, `Expected "(" after "for".`)

	var init ast.Stmt
	switch {
	case p.match(lexer.TokSemicolon):
	case p.match(lexer.TokVar):
		init = p.varDecl()
	default:
		init = p.exprStmt()
	}

	var cond ast.Expr
	if !p.check(lexer.TokSemicolon) {
		cond = p.expression()
	}
	semi := p.expect(lexer.TokSemicolon, `Expected ";" after loop condition.`)
	if cond == nil {
		cond = &ast.BoolLiteral{Span: semi.Span, Value: true}
	}

	var incr ast.Expr
	if !p.check(lexer.TokRParen) {
		incr = p.expression()
	}
	p.expect(lexer.TokRParen, `Expected ")" after loop clauses.`)

	body := p.statement()
	span := p.to(start)

	loopBody := []ast.Stmt{body}
	if incr != nil {
		loopBody = append(loopBody, &ast.ExprStmt{Span: incr.NodeSpan(), Expr: incr})
	}
	loop := &ast.WhileStmt{
		Span:    span,
		Cond:    cond,
		Body:    &ast.BlockStmt{Span: body.NodeSpan(), Statements: loopBody},
		FromFor: true,
	}

	var outer []ast.Stmt
	if init != nil {
		outer = append(outer, init)
	}
	outer = append(outer, loop)
	return &ast.BlockStmt{Span: span, Statements: outer, FromFor: true}
}

func (p *parser) ifStmt() ast.Stmt {
	start := p.previous().Span
	p.expect(lexer.TokLParen, `Expected "(" after "if".`)
	cond := p.expression()
	p.expect(lexer.TokRParen, `Expected ")" after if condition.`)

	then := p.statement()
	var els ast.Stmt
	if p.match(lexer.TokElse) {
		els = p.statement()
	}
	return &ast.IfStmt{Span: p.to(start), Cond: cond, Then: then, Else: els}
}

func (p *parser) returnStmt() ast.Stmt {
	start := p.previous().Span
	var value ast.Expr
	if !p.check(lexer.TokSemicolon) {
		value = p.expression()
	}
	msg := `Expected ";" after "return".`
	if value != nil {
		msg = `Expected ";" after return value.`
	}
	p.expect(lexer.TokSemicolon, msg)
	return &ast.ReturnStmt{Span: p.to(start), Value: value}
}

func (p *parser) printStmt() ast.Stmt {
	start := p.previous().Span
	value := p.expression()
	p.expect(lexer.TokSemicolon, `Expected ";" after value.`)
	return &ast.PrintStmt{Span: p.to(start), Expr: value}
}

func (p *parser) whileStmt() ast.Stmt {
	start := p.previous().Span
	p.expect(lexer.TokLParen, `Expected "(" after "while".`)
	cond := p.expression()
	p.expect(lexer.TokRParen, `Expected ")" after while loop condition.`)
	body := p.statement()
	return &ast.WhileStmt{Span: p.to(start), Cond: cond, Body: body}
}

// --- Expressions ---

func (p *parser) expression() ast.Expr {
	return p.assignment()
}

var compoundOps = map[lexer.TokenType]ast.BinaryOp{
	lexer.TokPlusEq:  ast.OpAdd,
	lexer.TokMinusEq: ast.OpSub,
	lexer.TokStarEq:  ast.OpMul,
	lexer.TokSlashEq: ast.OpDiv,
}

// assignment handles `=` and the compound forms. Compound assignment is
// rewritten into a plain assignment of a binary expression over the target.
func (p *parser) assignment() ast.Expr {
	expr := p.or()

	if p.match(lexer.TokEq) {
		eq := p.previous()
		value := p.assignment()
		if target := p.assignTo(expr, value); target != nil {
			return target
		}
		p.errorAt(eq, "Invalid assignment target.")
		return expr
	}

	if p.match(lexer.TokPlusEq, lexer.TokMinusEq, lexer.TokStarEq, lexer.TokSlashEq) {
		opTok := p.previous()
		rhs := p.assignment()
		value := &ast.BinaryExpr{
			Span:  spanFromTo(expr.NodeSpan(), rhs.NodeSpan()),
			Op:    compoundOps[opTok.Type],
			Left:  expr,
			Right: rhs,
		}
		if target := p.assignTo(expr, value); target != nil {
			return target
		}
		p.errorAt(opTok, "Invalid assignment target.")
	}

	return expr
}

// assignTo converts a read expression into the matching write, or returns nil
// when target is not assignable.
func (p *parser) assignTo(target, value ast.Expr) ast.Expr {
	span := spanFromTo(target.NodeSpan(), value.NodeSpan())
	switch t := target.(type) {
	case *ast.VariableExpr:
		return &ast.AssignExpr{Span: span, Name: t.Name, Value: value}
	case *ast.GetExpr:
		return &ast.SetExpr{Span: span, Object: t.Object, Name: t.Name, Value: value}
	case *ast.IndexGetExpr:
		return &ast.IndexSetExpr{Span: span, Object: t.Object, Index: t.Index, Value: value}
	}
	return nil
}

func (p *parser) or() ast.Expr {
	expr := p.and()
	for p.match(lexer.TokOr) {
		right := p.and()
		expr = &ast.LogicalExpr{Span: spanFromTo(expr.NodeSpan(), right.NodeSpan()), Op: ast.OpOr, Left: expr, Right: right}
	}
	return expr
}

func (p *parser) and() ast.Expr {
	expr := p.equality()
	for p.match(lexer.TokAnd) {
		right := p.equality()
		expr = &ast.LogicalExpr{Span: spanFromTo(expr.NodeSpan(), right.NodeSpan()), Op: ast.OpAnd, Left: expr, Right: right}
	}
	return expr
}

var binaryOps = map[lexer.TokenType]ast.BinaryOp{
	lexer.TokEqEq:           ast.OpEqEq,
	lexer.TokBangEq:         ast.OpNeq,
	lexer.TokGt:             ast.OpGt,
	lexer.TokGtEq:           ast.OpGtEq,
	lexer.TokLt:             ast.OpLt,
	lexer.TokLtEq:           ast.OpLtEq,
	lexer.TokPlus:           ast.OpAdd,
	lexer.TokMinus:          ast.OpSub,
	lexer.TokStar:           ast.OpMul,
	lexer.TokSlash:          ast.OpDiv,
	lexer.TokCaret:          ast.OpPow,
	lexer.TokPercent:        ast.OpMod,
	lexer.TokPercentPercent: ast.OpEuclidMod,
}

// leftAssoc parses `next (op next)*` for the given operator tokens.
func (p *parser) leftAssoc(next func() ast.Expr, ops ...lexer.TokenType) ast.Expr {
	expr := next()
	for p.match(ops...) {
		op := binaryOps[p.previous().Type]
		right := next()
		expr = &ast.BinaryExpr{Span: spanFromTo(expr.NodeSpan(), right.NodeSpan()), Op: op, Left: expr, Right: right}
	}
	return expr
}

func (p *parser) equality() ast.Expr {
	return p.leftAssoc(p.comparison, lexer.TokBangEq, lexer.TokEqEq)
}

func (p *parser) comparison() ast.Expr {
	return p.leftAssoc(p.term, lexer.TokGt, lexer.TokGtEq, lexer.TokLt, lexer.TokLtEq)
}

func (p *parser) term() ast.Expr {
	return p.leftAssoc(p.factor, lexer.TokPlus, lexer.TokMinus)
}

func (p *parser) factor() ast.Expr {
	return p.leftAssoc(p.exponent, lexer.TokStar, lexer.TokSlash)
}

// exponent is right-associative: 2 ^ 3 ^ 2 is 2 ^ (3 ^ 2).
func (p *parser) exponent() ast.Expr {
	expr := p.modulo()
	if p.match(lexer.TokCaret) {
		right := p.exponent()
		return &ast.BinaryExpr{Span: spanFromTo(expr.NodeSpan(), right.NodeSpan()), Op: ast.OpPow, Left: expr, Right: right}
	}
	return expr
}

func (p *parser) modulo() ast.Expr {
	return p.leftAssoc(p.unary, lexer.TokPercent, lexer.TokPercentPercent)
}

func (p *parser) unary() ast.Expr {
	if p.match(lexer.TokBang, lexer.TokMinus) {
		opTok := p.previous()
		op := ast.OpNeg
		if opTok.Type == lexer.TokBang {
			op = ast.OpNot
		}
		operand := p.unary()
		return &ast.UnaryExpr{Span: spanFromTo(opTok.Span, operand.NodeSpan()), Op: op, Operand: operand}
	}
	return p.call()
}

func (p *parser) call() ast.Expr {
	expr := p.primary()
	for {
		switch {
		case p.match(lexer.TokLParen):
			expr = p.finishCall(expr)
		case p.match(lexer.TokLBracket):
			expr = p.indexer(expr)
		case p.match(lexer.TokDot):
			name := p.expect(lexer.TokIdent, `Expected property name after ".".`)
			expr = &ast.GetExpr{Span: spanFromTo(expr.NodeSpan(), name.Span), Object: expr, Name: name.Lexeme}
		default:
			return expr
		}
	}
}

func (p *parser) finishCall(callee ast.Expr) ast.Expr {
	var args []ast.Expr
	if !p.check(lexer.TokRParen) {
		for {
			if len(args) >= MaxArgs {
				p.errorAt(p.current(), fmt.Sprintf("Cannot have more than %d arguments.", MaxArgs))
			}
			args = append(args, p.expression())
			if !p.match(lexer.TokComma) {
				break
			}
		}
	}
	paren := p.expect(lexer.TokRParen, `Expected ")" after argument list.`)
	return &ast.CallExpr{Span: spanFromTo(callee.NodeSpan(), paren.Span), Callee: callee, Args: args}
}

func (p *parser) indexer(object ast.Expr) ast.Expr {
	if p.check(lexer.TokRBracket) {
		panic(p.errorAt(p.current(), "Expected argument to array or string indexer."))
	}
	index := p.expression()
	closing := p.expect(lexer.TokRBracket, `Expected "]" after index.`)
	return &ast.IndexGetExpr{Span: spanFromTo(object.NodeSpan(), closing.Span), Object: object, Index: index}
}

func (p *parser) primary() ast.Expr {
	tok := p.current()
	switch {
	case p.match(lexer.TokTrue):
		return &ast.BoolLiteral{Span: tok.Span, Value: true}
	case p.match(lexer.TokFalse):
		return &ast.BoolLiteral{Span: tok.Span, Value: false}
	case p.match(lexer.TokNil):
		return &ast.NilLiteral{Span: tok.Span}
	case p.match(lexer.TokNumber):
		v, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			panic(p.errorAt(tok, fmt.Sprintf("Invalid number %q.", tok.Lexeme)))
		}
		return &ast.NumberLiteral{Span: tok.Span, Value: v}
	case p.match(lexer.TokString):
		return &ast.StringLiteral{Span: tok.Span, Value: tok.Value}
	case p.match(lexer.TokSuper):
		p.expect(lexer.TokDot, `Expected "." after "super".`)
		method := p.expect(lexer.TokIdent, "Expected superclass method name.")
		return &ast.SuperExpr{Span: spanFromTo(tok.Span, method.Span), Method: method.Lexeme}
	case p.match(lexer.TokThis):
		return &ast.ThisExpr{Span: tok.Span}
	case p.match(lexer.TokIdent):
		return &ast.VariableExpr{Span: tok.Span, Name: tok.Lexeme}
	case p.match(lexer.TokLBracket):
		return p.arrayLiteral(tok)
	case p.match(lexer.TokLParen):
		inner := p.expression()
		closing := p.expect(lexer.TokRParen, `Expected ")" after expression.`)
		return &ast.GroupingExpr{Span: spanFromTo(tok.Span, closing.Span), Inner: inner}
	}
	panic(p.errorAt(tok, "Expected an expression."))
}

// arrayLiteral parses the elements after "["; a trailing comma is allowed.
func (p *parser) arrayLiteral(open lexer.Token) ast.Expr {
	var elems []ast.Expr
	for !p.check(lexer.TokRBracket) {
		elems = append(elems, p.expression())
		if !p.match(lexer.TokComma) {
			break
		}
	}
	closing := p.expect(lexer.TokRBracket, `Expected "]" after array initializer.`)
	return &ast.ArrayExpr{Span: spanFromTo(open.Span, closing.Span), Elements: elems}
}
