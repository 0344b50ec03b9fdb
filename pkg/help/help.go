// Package help holds the built-in BotLang language reference shown by
// `botlang help`.
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thomasrohde/botlang/pkg/robot"
	"github.com/thomasrohde/botlang/pkg/stdlib"
)

// Version is the language and CLI version.
const Version = "v0.3"

// QUICKREF is printed by `botlang help` without a topic.
var QUICKREF = `BotLang ` + Version + ` quick reference

  var x = 10;                 declare          x += 1;  x -= 1;  x *= 2;  x /= 2;
  print x;                    print a value    # comment to end of line
  if (c) { ... } else { ... } branch           while (c) { ... }
  for (var i = 0; i < 4; i += 1) { ... }       loops stop after 10000 iterations
  function f(a, b) { return a + b; }           closures capture their scope
  class Dog < Animal { init(n) { this.n = n; } speak() { super.speak(); } }
  var a = [1, 2, 3];  a[0] = 5;  a.push(4);  a.length

  Operators:  or  and  == !=  < <= > >=  + -  * /  ^  % %%  ! -
  Values:     nil  true/false  numbers  "strings"  arrays  functions  classes  instances

  Robot:  moveFwd(100); rotate(90); penUp(); setColor(COLOR_RED); beginPoly(); endPoly();
  Math:   sin(30) uses degrees, sqrt(2), randomInt(1, 6), PI

Topics (botlang help <topic>):
  syntax     statements, operators and precedence
  types      values, truthiness, equality and number printing
  classes    classes, methods, init, this, super and inheritance
  arrays     the Array class and its methods
  stdlib     the Math library (botlang help stdlib --index lists every member)
  robot      the Robot library: motion, pen, colors and polygons
  errors     fault kinds and how they are reported
  examples   complete example programs
`

// Topics maps each help topic to its text.
var Topics = map[string]string{
	"syntax": `SYNTAX

Programs are statements separated by semicolons. Comments start with # and
run to the end of the line.

  var name = expr;          declaration; redeclaring a global is a fault
  name = expr;              assignment is an expression and yields its value
  x += e; x -= e; x *= e; x /= e;
  print expr;
  { ... }                   block with its own scope
  if (cond) stmt else stmt
  while (cond) stmt
  for (init; cond; step) stmt
  function name(params) { ... return expr; }
  class Name < Super { method(params) { ... } }

Precedence, lowest first:
  =  or  and  == !=  < <= > >=  + -  * /  ^  % %%  unary ! -  call . []

^ is right associative: 2 ^ 3 ^ 2 is 2 ^ 9. % keeps the sign of the dividend;
%% is the Euclidean modulo and is never negative.

Every loop is limited to 10000 iterations. A loop that goes further raises an
InfiniteLoopFault. Calls nest at most 1000 deep.
`,
	"types": `TYPES

  nil        the absence of a value
  boolean    true, false
  number     64-bit floats: 3, 0.5, 100
  string     "double" or 'single' quoted; escapes \n \t \" \' \\
  array      ordered, growable, indexed from 0
  function   declared functions, closures and library functions
  class      callable; calling it makes an instance
  instance   holds fields set through this.name = value
  library    Math and Robot

Only nil and false are falsy.

== compares numbers, strings, booleans and nil by value; everything else by
identity. Values of different types are never equal. < <= > >= compare two
numbers or two strings. Comparisons with NaN are always false.

+ adds numbers. When either side is a string the other side is printed and
the two are joined. Other arithmetic requires numbers and raises a TypeFault
otherwise. Division by zero gives Infinity or NaN.

Whole numbers print without a decimal point: print 10 / 2; prints 5.
`,
	"classes": `CLASSES

  class Point {
    init(x, y) { this.x = x; this.y = y; }
    len() { return sqrt(this.x ^ 2 + this.y ^ 2); }
  }
  var p = Point(3, 4);
  print p.len();            # 5

init runs when the class is called and always returns the instance. Methods
are bound to their instance when read, so var f = p.len; f(); works.

Inheritance uses < and super:

  class Point3 < Point {
    init(x, y, z) { super.init(x, y); this.z = z; }
  }

A class cannot inherit from itself or from a non-class value. Reading a
missing field raises a RuntimeFault naming the property.
`,
	"arrays": `ARRAYS

  var a = [1, 2, 3];
  var b = Array(5);         # five nils
  a[0] = 10;  print a[1];   a.length

Methods:
  push(v)        append, returns the new length
  pop()          remove and return the last element, nil when empty
  shift()        remove and return the first element, nil when empty
  unshift(v)     prepend, returns the new length

Indexes must be integers. Negative indexes count from the end. An index out
of range raises a RangeFault. Strings can be indexed the same way and yield
one-character strings, but cannot be assigned through an index.
`,
	"robot": `ROBOT

The robot starts in the middle of a 600x600 canvas facing up. Angles are in
degrees and grow clockwise. y grows downward.

Motion    moveFwd(d) rotate(deg) setAngle(deg) getAngle() setPos(x, y)
          getX() getY() goHome() setMoveSpeed(pps) getMoveSpeed()
Pen       penUp() penDown() setColor(COLOR_RED) setColorCSS("#ff8800")
          setLineThickness(w) resetPen()
Polygons  beginPoly() dropVertex() endPoly()
Canvas    clearCanvas() resetAll() CANVAS_WIDTH CANVAS_HEIGHT
Robot     showRobot() hideRobot() show() hide() isHidden()

Colors: COLOR_BLACK COLOR_GRAY COLOR_WHITE COLOR_RED COLOR_ORANGE COLOR_YELLOW
COLOR_GREEN COLOR_CYAN COLOR_SKY COLOR_BLUE COLOR_PURPLE COLOR_PINK

moveFwd glides at the move speed; the program waits for each glide to finish.
Every function is also available as Robot.name.
`,
	"stdlib": `STDLIB

Math functions take and return degrees for angles:

  sin cos tan asin acos atan atan2(y, x)
  sqrt pow abs floor ceil round min max
  random()            number in [0, 1)
  randomInt(lo, hi)   integer in [lo, hi]

Constants: PI E TAU SQRT2 LN2 LN10

Every member is also available as Math.name. Library names are immutable:
assigning or redeclaring one is a RuntimeFault.

Run botlang help stdlib --index for the full member list.
`,
	"errors": `ERRORS

Static faults stop a program before it runs (exit code 2):
  ScanFault         unexpected character or unterminated string
  ParseFault        malformed statement or expression
  ResolutionFault   e.g. return outside a function, reading a local in its
                    own initializer, this outside a class

Runtime faults stop the program where they happen (exit code 4):
  TypeFault          wrong operand or argument types
  RangeFault         index out of range, bad Array size, NaN or infinite
                     robot argument
  RuntimeFault       undefined variable, wrong argument count, polygon misuse,
                     calls nested more than 1000 deep
  InfiniteLoopFault  a loop passed 10000 iterations

Faults print as:  TypeFault [line 3]: Operands must be numbers.
`,
	"examples": `EXAMPLES

Square:
  for (var i = 0; i < 4; i += 1) { moveFwd(100); rotate(90); }

Filled star:
  setColor(COLOR_YELLOW);
  beginPoly();
  for (var i = 0; i < 5; i += 1) { moveFwd(150); rotate(144); dropVertex(); }
  endPoly();

Spiral:
  setMoveSpeed(0);
  for (var i = 1; i < 200; i += 1) { setColor(i % 12); moveFwd(i); rotate(59); }

Fibonacci:
  function fib(n) { if (n < 2) return n; return fib(n - 1) + fib(n - 2); }
  print fib(20);
`,
}

// TopicList is the display order of the topics.
var TopicList = []string{"syntax", "types", "classes", "arrays", "stdlib", "robot", "errors", "examples"}

// MatchTopic finds a topic by exact name or unique prefix.
func MatchTopic(query string) (string, string, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[query]; ok {
		return query, content, nil
	}
	var matches []string
	for _, name := range TopicList {
		if query != "" && strings.HasPrefix(name, query) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown help topic %q", query)
	}
	return "", "", fmt.Errorf("ambiguous help topic %q: %s", query, strings.Join(matches, ", "))
}

// StdlibIndex lists every library member with its documentation.
func StdlibIndex() string {
	reg := stdlib.NewRegistry()
	stdlib.RegisterDefaults(reg, nil, robot.New(robot.DefaultConfig(), nil))

	var sb strings.Builder
	fns, vars := 0, 0
	for _, b := range reg.All() {
		fmt.Fprintf(&sb, "%s: %s\n", b.Name, b.Doc)
		for _, fn := range b.Functions {
			fmt.Fprintf(&sb, "  %-18s %s\n", signature(fn), fn.Doc)
			fns++
		}
		names := make([]string, 0, len(b.Variables))
		for name := range b.Variables {
			names = append(names, name)
		}
		sort.Strings(names)
		if len(names) > 0 {
			fmt.Fprintf(&sb, "  %s\n", strings.Join(names, " "))
		}
		vars += len(names)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Total: %d functions, %d variables\n", fns, vars)
	return sb.String()
}

func signature(fn stdlib.Fn) string {
	params := make([]string, fn.Arity)
	for i := range params {
		if i < len(fn.ArgTypes) {
			params[i] = fn.ArgTypes[i]
		} else {
			params[i] = "_"
		}
	}
	return fn.Name + "(" + strings.Join(params, ", ") + ")"
}
