// Package lexer implements the BotLang scanner.
package lexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/thomasrohde/botlang/pkg/ast"
	"github.com/thomasrohde/botlang/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Single-character tokens
	TokLParen   TokenType = iota // (
	TokRParen                    // )
	TokLBracket                  // [
	TokRBracket                  // ]
	TokLBrace                    // {
	TokRBrace                    // }
	TokComma                     // ,
	TokDot                       // .
	TokSemicolon                 // ;
	TokCaret                     // ^

	// One or two character tokens
	TokPlus           // +
	TokPlusEq         // +=
	TokMinus          // -
	TokMinusEq        // -=
	TokSlash          // /
	TokSlashEq        // /=
	TokStar           // *
	TokStarEq         // *=
	TokBang           // !
	TokBangEq         // !=
	TokEq             // =
	TokEqEq           // ==
	TokGt             // >
	TokGtEq           // >=
	TokLt             // <
	TokLtEq           // <=
	TokPercent        // %
	TokPercentPercent // %%

	// Literals
	TokIdent
	TokString
	TokNumber

	// Keywords
	TokAnd
	TokClass
	TokElse
	TokFalse
	TokFunction
	TokFor
	TokIf
	TokNil
	TokOr
	TokPrint
	TokReturn
	TokSuper
	TokThis
	TokTrue
	TokVar
	TokWhile

	// Special
	TokEOF
)

var tokenNames = [...]string{
	TokLParen: "(", TokRParen: ")", TokLBracket: "[", TokRBracket: "]",
	TokLBrace: "{", TokRBrace: "}", TokComma: ",", TokDot: ".",
	TokSemicolon: ";", TokCaret: "^",
	TokPlus: "+", TokPlusEq: "+=", TokMinus: "-", TokMinusEq: "-=",
	TokSlash: "/", TokSlashEq: "/=", TokStar: "*", TokStarEq: "*=",
	TokBang: "!", TokBangEq: "!=", TokEq: "=", TokEqEq: "==",
	TokGt: ">", TokGtEq: ">=", TokLt: "<", TokLtEq: "<=",
	TokPercent: "%", TokPercentPercent: "%%",
	TokIdent: "identifier", TokString: "string", TokNumber: "number",
	TokAnd: "and", TokClass: "class", TokElse: "else", TokFalse: "false",
	TokFunction: "function", TokFor: "for", TokIf: "if", TokNil: "nil",
	TokOr: "or", TokPrint: "print", TokReturn: "return", TokSuper: "super",
	TokThis: "this", TokTrue: "true", TokVar: "var", TokWhile: "while",
	TokEOF: "end of file",
}

func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenNames) && tokenNames[t] != "" {
		return tokenNames[t]
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// IsKeyword reports whether the token type is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t >= TokAnd && t <= TokWhile
}

// Token represents a single lexer token. Lexeme is the exact source text;
// Value holds the decoded contents of string literals and equals Lexeme for
// every other token.
type Token struct {
	Type   TokenType
	Lexeme string
	Value  string
	Span   ast.Span
}

// Line returns the 1-based line the token starts on.
func (t Token) Line() int {
	return t.Span.StartLine
}

var keywords = map[string]TokenType{
	"and":      TokAnd,
	"class":    TokClass,
	"else":     TokElse,
	"false":    TokFalse,
	"function": TokFunction,
	"for":      TokFor,
	"if":       TokIf,
	"nil":      TokNil,
	"or":       TokOr,
	"print":    TokPrint,
	"return":   TokReturn,
	"super":    TokSuper,
	"this":     TokThis,
	"true":     TokTrue,
	"var":      TokVar,
	"while":    TokWhile,
}

// Keywords returns the reserved words in no particular order.
func Keywords() []string {
	out := make([]string, 0, len(keywords))
	for k := range keywords {
		out = append(out, k)
	}
	return out
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
	tokens   []Token
	diags    []diagnostics.Diagnostic
}

func newScanner(source, filename string) *scanner {
	return &scanner{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

// match consumes the next byte if it equals want.
func (s *scanner) match(want byte) bool {
	if s.atEnd() || s.source[s.pos] != want {
		return false
	}
	s.advance()
	return true
}

func (s *scanner) span(startLine, startCol int) ast.Span {
	return ast.Span{
		File:      s.filename,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func (s *scanner) skipWhitespaceAndComments() {
	for !s.atEnd() {
		ch := s.peek()
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
			s.advance()
		} else if ch == '#' {
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		} else {
			break
		}
	}
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}

func (s *scanner) emit(typ TokenType, startPos, startLine, startCol int) {
	text := s.source[startPos:s.pos]
	s.tokens = append(s.tokens, Token{
		Type:   typ,
		Lexeme: text,
		Value:  text,
		Span:   s.span(startLine, startCol),
	})
}

func (s *scanner) scanString(quote byte, startPos, startLine, startCol int) {
	var buf strings.Builder
	for !s.atEnd() && s.peek() != quote {
		ch := s.advance()
		if ch != '\\' || s.atEnd() {
			buf.WriteByte(ch)
			continue
		}
		switch esc := s.advance(); esc {
		case 'n':
			buf.WriteByte('\n')
		case 'r':
			buf.WriteByte('\r')
		case 't':
			buf.WriteByte('\t')
		case 'b':
			buf.WriteByte('\b')
		case 'f':
			buf.WriteByte('\f')
		case '\\', '"', '\'':
			buf.WriteByte(esc)
		default:
			buf.WriteByte('\\')
			buf.WriteByte(esc)
		}
	}

	if s.atEnd() {
		s.lexError(startLine, startCol, "Unclosed string.")
		return
	}
	s.advance() // closing quote

	s.tokens = append(s.tokens, Token{
		Type:   TokString,
		Lexeme: s.source[startPos:s.pos],
		Value:  buf.String(),
		Span:   s.span(startLine, startCol),
	})
}

// scanNumber reads an integer with at most one fractional part. Signs and
// exponents are not part of number literals.
func (s *scanner) scanNumber(startPos, startLine, startCol int) {
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekAt(1)) {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	s.emit(TokNumber, startPos, startLine, startCol)
}

func (s *scanner) scanIdentOrKeyword(startPos, startLine, startCol int) {
	for isAlphaNumeric(s.peek()) {
		s.advance()
	}
	typ := TokIdent
	if kw, ok := keywords[s.source[startPos:s.pos]]; ok {
		typ = kw
	}
	s.emit(typ, startPos, startLine, startCol)
}

func (s *scanner) lexError(line, col int, msg string) {
	s.diags = append(s.diags, diagnostics.MakeDiag(
		diagnostics.EScan,
		msg,
		&ast.Span{File: s.filename, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1},
		"",
	))
}

// twoChar emits long when the next byte is next, short otherwise.
func (s *scanner) twoChar(next byte, long, short TokenType, startPos, startLine, startCol int) {
	if s.match(next) {
		s.emit(long, startPos, startLine, startCol)
		return
	}
	s.emit(short, startPos, startLine, startCol)
}

func (s *scanner) scanToken() {
	startPos := s.pos
	startLine, startCol := s.line, s.col
	ch := s.advance()

	switch ch {
	case '(':
		s.emit(TokLParen, startPos, startLine, startCol)
	case ')':
		s.emit(TokRParen, startPos, startLine, startCol)
	case '[':
		s.emit(TokLBracket, startPos, startLine, startCol)
	case ']':
		s.emit(TokRBracket, startPos, startLine, startCol)
	case '{':
		s.emit(TokLBrace, startPos, startLine, startCol)
	case '}':
		s.emit(TokRBrace, startPos, startLine, startCol)
	case ',':
		s.emit(TokComma, startPos, startLine, startCol)
	case '.':
		s.emit(TokDot, startPos, startLine, startCol)
	case ';':
		s.emit(TokSemicolon, startPos, startLine, startCol)
	case '^':
		s.emit(TokCaret, startPos, startLine, startCol)
	case '+':
		s.twoChar('=', TokPlusEq, TokPlus, startPos, startLine, startCol)
	case '-':
		s.twoChar('=', TokMinusEq, TokMinus, startPos, startLine, startCol)
	case '/':
		s.twoChar('=', TokSlashEq, TokSlash, startPos, startLine, startCol)
	case '*':
		s.twoChar('=', TokStarEq, TokStar, startPos, startLine, startCol)
	case '!':
		s.twoChar('=', TokBangEq, TokBang, startPos, startLine, startCol)
	case '=':
		s.twoChar('=', TokEqEq, TokEq, startPos, startLine, startCol)
	case '>':
		s.twoChar('=', TokGtEq, TokGt, startPos, startLine, startCol)
	case '<':
		s.twoChar('=', TokLtEq, TokLt, startPos, startLine, startCol)
	case '%':
		s.twoChar('%', TokPercentPercent, TokPercent, startPos, startLine, startCol)
	case '"', '\'':
		s.scanString(ch, startPos, startLine, startCol)
	default:
		switch {
		case isDigit(ch):
			s.scanNumber(startPos, startLine, startCol)
		case isAlpha(ch):
			s.scanIdentOrKeyword(startPos, startLine, startCol)
		default:
			r, size := utf8.DecodeRuneInString(s.source[startPos:])
			for i := 1; i < size; i++ {
				s.advance()
			}
			s.lexError(startLine, startCol, fmt.Sprintf("Unexpected character %q.", string(r)))
		}
	}
}

// Tokenize breaks source code into a slice of tokens. Invalid input is
// reported through the returned diagnostics and skipped; the token slice is
// always terminated by a TokEOF token.
func Tokenize(source, filename string) ([]Token, []diagnostics.Diagnostic) {
	s := newScanner(source, filename)
	for {
		s.skipWhitespaceAndComments()
		if s.atEnd() {
			break
		}
		s.scanToken()
	}
	s.tokens = append(s.tokens, Token{
		Type: TokEOF,
		Span: s.span(s.line, s.col),
	})
	return s.tokens, s.diags
}
