package formatter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/botlang/pkg/parser"
)

func format(t *testing.T, src string) string {
	t.Helper()
	prog, diags := parser.ParseSource(src, "fmt.bl", parser.Options{AllowInheritance: true})
	require.Empty(t, diags, "parse %q", src)
	return Format(prog)
}

// ---- Canonical output ----

func TestFormat(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		expect string
	}{
		{"var", "var   x=1;", "var x = 1;\n"},
		{"var without init", "var x;", "var x;\n"},
		{"print grouping", "print (1+2)*3;", "print (1 + 2) * 3;\n"},
		{"strings", `print "a\"b\n";`, "print \"a\\\"b\\n\";\n"},
		{"single quotes", `print 'it';`, "print \"it\";\n"},
		{"numbers", "print 1.50 + 10;", "print 1.5 + 10;\n"},
		{"logic", "print !a and b or -c;", "print !a and b or -c;\n"},
		{"compound", "x += 2; y = y * 3; z = 3 * z;", "x += 2;\ny *= 3;\nz = 3 * z;\n"},
		{"index compound", "a[0] -= 1;", "a[0] -= 1;\n"},
		{"property", "p.x = p.x / 2;", "p.x /= 2;\n"},
		{"array", "var a = [1,2,3,];", "var a = [1, 2, 3];\n"},
		{"calls", `Robot.moveFwd(10); setPos(1,2);`, "Robot.moveFwd(10);\nsetPos(1, 2);\n"},
		{"empty", "", ""},
		{
			"while",
			"while (i < 3) i = i + 1;",
			"while (i < 3)\n  i += 1;\n",
		},
		{
			"if else",
			"if (a) { print 1; } else if (b) print 2; else { print 3; }",
			"if (a) {\n  print 1;\n} else if (b)\n  print 2;\nelse {\n  print 3;\n}\n",
		},
		{
			"for",
			"for (var i = 0; i < 3; i += 1) { print i; }",
			"for (var i = 0; i < 3; i += 1) {\n  print i;\n}\n",
		},
		{
			"for without clauses",
			"for (;;) print 1;",
			"for (; true;)\n  print 1;\n",
		},
		{
			"for with expression init",
			"for (i = 0; i < 2;) print i;",
			"for (i = 0; i < 2;)\n  print i;\n",
		},
		{
			"function",
			"function add(a,b){return a+b;} print add(1,2);",
			"function add(a, b) {\n  return a + b;\n}\n\nprint add(1, 2);\n",
		},
		{
			"class",
			"class B < A { init(x) { this.x = x; } get() { return super.get(); } }",
			"class B < A {\n  init(x) {\n    this.x = x;\n  }\n\n  get() {\n    return super.get();\n  }\n}\n",
		},
		{"empty class and block", "class A {} {}", "class A {}\n\n{}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := format(t, tt.src)
			if diff := cmp.Diff(tt.expect, got); diff != "" {
				t.Errorf("format mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatIsIdempotent(t *testing.T) {
	src := `
class Shape { init(n) { this.n = n; } draw(size) {
  for (var i = 0; i < this.n; i += 1) { moveFwd(size); rotate(360 / this.n); }
} }
var s = Shape(5);
if (getX() > 100) s.draw(20); else { s.draw(40); }
var pts = [[1, 2], [3, 4], "a long string that keeps going", "and another long string to wrap it"];
while (pts.length > 0) pts.pop();
`
	once := format(t, src)
	twice := format(t, once)
	assert.Equal(t, once, twice)
}

func TestLongArraysWrap(t *testing.T) {
	got := format(t, `var a = ["aaaaaaaaaaaaaaaaaaaa", "bbbbbbbbbbbbbbbbbbbb", "cccccccccccccccccccc", "d"];`)
	want := "var a = [\n  \"aaaaaaaaaaaaaaaaaaaa\",\n  \"bbbbbbbbbbbbbbbbbbbb\",\n  \"cccccccccccccccccccc\",\n  \"d\",\n];\n"
	assert.Equal(t, want, got)
}

func TestHasComments(t *testing.T) {
	tests := []struct {
		src    string
		expect bool
	}{
		{"# note\nprint 1;", true},
		{"print 1; # trailing", true},
		{`print "#not a comment";`, false},
		{`print 'a # b';`, false},
		{`print "esc \" # still string";`, false},
		{"print 1;", false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.expect, HasComments(tt.src))
		})
	}
}
