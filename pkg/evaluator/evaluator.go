package evaluator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"
	"unicode/utf8"

	"github.com/inconshreveable/log15"

	"github.com/thomasrohde/botlang/pkg/ast"
	"github.com/thomasrohde/botlang/pkg/diagnostics"
)

// DefaultMaxLoopIterations is the loop guard ceiling used when Options leaves
// it unset.
const DefaultMaxLoopIterations = 10000

// DefaultMaxCallDepth bounds nested calls when Options leaves it unset.
const DefaultMaxCallDepth = 1000

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart  TraceEventType = "run_start"
	TraceRunEnd    TraceEventType = "run_end"
	TraceCallStart TraceEventType = "call_start"
	TraceCallEnd   TraceEventType = "call_end"
	TraceSuspend   TraceEventType = "suspend"
	TraceResume    TraceEventType = "resume"
	TraceLoopGuard TraceEventType = "loop_guard"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string            `json:"ts"`
	RunID     string            `json:"runId"`
	Event     TraceEventType    `json:"event"`
	Span      *ast.Span         `json:"span,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

// Options configures an Interpreter.
type Options struct {
	// MaxLoopIterations bounds every while and for loop; 0 means
	// DefaultMaxLoopIterations.
	MaxLoopIterations int
	// MaxCallDepth bounds nested function, method and class calls; 0 means
	// DefaultMaxCallDepth.
	MaxCallDepth int
	// DumpEnvOnError writes the environment chain at the fault site to
	// DumpWriter (stderr when nil) when a run fails.
	DumpEnvOnError bool
	DumpWriter     io.Writer
	// Verbose logs every executed statement at debug level.
	Verbose bool
	// Output receives one line per print statement.
	Output func(line string)
	Actor  Actor
	Logger log15.Logger
	Trace  func(event TraceEvent)
	RunID  string
}

// completion is the outcome of executing a statement: either it ran to the
// end or a return statement unwound it with a value.
type completion struct {
	returned bool
	value    Value
}

// Interpreter holds the state of one program run: the global scope, the
// current scope, the resolution table and the kill switch.
type Interpreter struct {
	opts     Options
	logger   log15.Logger
	maxLoops int
	maxDepth int
	depth    int
	ctx      context.Context
	globals  *Env
	env      *Env
	locals   map[int]int
	kill     *killSwitch
	faultEnv *Env
}

// New creates an interpreter with a fresh global scope.
func New(opts Options) *Interpreter {
	in := &Interpreter{
		opts:     opts,
		logger:   opts.Logger,
		maxLoops: opts.MaxLoopIterations,
		maxDepth: opts.MaxCallDepth,
		ctx:      context.Background(),
		kill:     newKillSwitch(),
	}
	if in.logger == nil {
		in.logger = log15.New()
		in.logger.SetHandler(log15.DiscardHandler())
	}
	if in.maxLoops <= 0 {
		in.maxLoops = DefaultMaxLoopIterations
	}
	if in.maxDepth <= 0 {
		in.maxDepth = DefaultMaxCallDepth
	}
	in.Reset()
	return in
}

// Reset discards every binding and resolution entry from earlier runs.
func (in *Interpreter) Reset() {
	in.globals = NewGlobals()
	in.env = in.globals
	in.locals = make(map[int]int)
	_ = in.globals.DefineLibrary("Array", ArrayClass)
}

// Globals returns the global scope, where libraries are imported.
func (in *Interpreter) Globals() *Env { return in.globals }

// SetRunID changes the id stamped on logs and trace events.
func (in *Interpreter) SetRunID(id string) { in.opts.RunID = id }

// Interpret executes program. locals is the resolver's table for program; it
// is merged into the tables of earlier runs so a REPL can keep its globals.
// Language faults are returned as *RuntimeError; any other error is a host
// fault.
func (in *Interpreter) Interpret(ctx context.Context, program *ast.Program, locals map[int]int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	in.ctx = ctx
	in.kill.rearm()
	in.env = in.globals
	in.depth = 0
	in.faultEnv = nil
	for id, depth := range locals {
		in.locals[id] = depth
	}

	in.emit(TraceRunStart, &program.Span, nil)
	err := in.run(program.Statements)
	in.emit(TraceRunEnd, &program.Span, nil)
	return err
}

func (in *Interpreter) run(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if _, err := in.execute(s); err != nil {
			var rerr *RuntimeError
			if !errors.As(err, &rerr) {
				return err
			}
			in.logger.Debug("Runtime fault", "runId", in.opts.RunID, "code", rerr.Code, "err", rerr.Message)
			if in.opts.DumpEnvOnError && in.faultEnv != nil {
				w := in.opts.DumpWriter
				if w == nil {
					w = os.Stderr
				}
				in.faultEnv.Dump(w)
			}
			return rerr
		}
	}
	return nil
}

func (in *Interpreter) emit(event TraceEventType, span *ast.Span, data map[string]string) {
	if in.opts.Trace != nil {
		in.opts.Trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     in.opts.RunID,
			Event:     event,
			Span:      span,
			Data:      data,
		})
	}
}

// --- Statements ---

func (in *Interpreter) execute(stmt ast.Stmt) (completion, error) {
	if err := in.checkpoint(); err != nil {
		return completion{}, withSpan(err, stmt.NodeSpan())
	}
	if in.opts.Verbose {
		in.logger.Debug("Executing", "stmt", stmt.Kind(), "line", stmt.NodeSpan().StartLine)
	}
	c, err := in.exec(stmt)
	if err != nil {
		if in.faultEnv == nil {
			in.faultEnv = in.env
		}
		return completion{}, withSpan(err, stmt.NodeSpan())
	}
	return c, nil
}

// executeBlock runs stmts in env and restores the previous scope on every
// exit path.
func (in *Interpreter) executeBlock(stmts []ast.Stmt, env *Env) (completion, error) {
	prev := in.env
	in.env = env
	defer func() { in.env = prev }()

	for _, s := range stmts {
		c, err := in.execute(s)
		if err != nil || c.returned {
			return c, err
		}
	}
	return completion{}, nil
}

func (in *Interpreter) exec(stmt ast.Stmt) (completion, error) {
	switch s := stmt.(type) {
	case *ast.BlockStmt:
		return in.executeBlock(s.Statements, NewEnv(in.env))

	case *ast.ClassDecl:
		return completion{}, in.execClass(s)

	case *ast.FnDecl:
		return completion{}, in.env.Define(s.Name, NewUserFunction(s, in.env, false))

	case *ast.ExprStmt:
		_, err := in.eval(s.Expr)
		return completion{}, err

	case *ast.IfStmt:
		cond, err := in.eval(s.Cond)
		if err != nil {
			return completion{}, err
		}
		if IsTruthy(cond) {
			return in.execute(s.Then)
		}
		if s.Else != nil {
			return in.execute(s.Else)
		}
		return completion{}, nil

	case *ast.PrintStmt:
		v, err := in.eval(s.Expr)
		if err != nil {
			return completion{}, err
		}
		if in.opts.Output != nil {
			in.opts.Output(ValueToString(v))
		}
		return completion{}, nil

	case *ast.ReturnStmt:
		var v Value = Nil{}
		if s.Value != nil {
			var err error
			if v, err = in.eval(s.Value); err != nil {
				return completion{}, err
			}
		}
		return completion{returned: true, value: v}, nil

	case *ast.VarStmt:
		var v Value = Nil{}
		if s.Init != nil {
			var err error
			if v, err = in.eval(s.Init); err != nil {
				return completion{}, err
			}
		}
		return completion{}, in.env.Define(s.Name, v)

	case *ast.WhileStmt:
		return in.execWhile(s)
	}
	return completion{}, newInternalError("unknown statement kind %s", stmt.Kind())
}

// execWhile runs a loop under the iteration guard. The fault fires when
// iteration maxLoops+1 would start.
func (in *Interpreter) execWhile(s *ast.WhileStmt) (completion, error) {
	count := 0
	for {
		cond, err := in.eval(s.Cond)
		if err != nil {
			return completion{}, err
		}
		if !IsTruthy(cond) {
			return completion{}, nil
		}
		if count >= in.maxLoops {
			in.emit(TraceLoopGuard, &s.Span, map[string]string{"iterations": fmt.Sprint(count)})
			return completion{}, &RuntimeError{
				Code:    diagnostics.EInfiniteLoop,
				Message: fmt.Sprintf("Maximum number of loop iterations (%d) exceeded.", in.maxLoops),
			}
		}
		count++
		c, err := in.execute(s.Body)
		if err != nil || c.returned {
			return c, err
		}
	}
}

func (in *Interpreter) execClass(s *ast.ClassDecl) error {
	var superclass *Class
	if s.Superclass != nil {
		v, err := in.lookup(s.Superclass.Name, s.Superclass.Ref)
		if err != nil {
			return withSpan(err, s.Superclass.Span)
		}
		c, ok := v.(*Class)
		if !ok {
			return withSpan(RuntimeErrorf("Superclass must be a class."), s.Superclass.Span)
		}
		if c.Sealed() {
			return withSpan(RuntimeErrorf("Class %q cannot be inherited from.", c.Name()), s.Superclass.Span)
		}
		superclass = c
	}

	if err := in.env.Define(s.Name, Nil{}); err != nil {
		return err
	}

	closure := in.env
	if superclass != nil {
		closure = NewEnv(in.env)
		closure.set("super", superclass)
	}
	methods := make(map[string]Method, len(s.Methods))
	for _, m := range s.Methods {
		methods[m.Name] = NewUserFunction(m, closure, m.Name == "init")
	}
	in.env.set(s.Name, NewClass(s.Name, superclass, methods))
	return nil
}

// --- Expressions ---

// lookup reads a variable through the resolution table, falling back to the
// global scope for unresolved references.
func (in *Interpreter) lookup(name string, ref ast.Ref) (Value, error) {
	if ref.Resolved() {
		if depth, ok := in.locals[ref.ID]; ok {
			return in.env.GetAt(depth, name)
		}
	}
	return in.globals.Get(name)
}

func (in *Interpreter) assign(name string, ref ast.Ref, val Value) error {
	if ref.Resolved() {
		if depth, ok := in.locals[ref.ID]; ok {
			return in.env.AssignAt(depth, name, val)
		}
	}
	return in.globals.Assign(name, val)
}

func (in *Interpreter) eval(expr ast.Expr) (Value, error) {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		return Number(e.Value), nil
	case *ast.StringLiteral:
		return String(e.Value), nil
	case *ast.BoolLiteral:
		return Bool(e.Value), nil
	case *ast.NilLiteral:
		return Nil{}, nil

	case *ast.VariableExpr:
		v, err := in.lookup(e.Name, e.Ref)
		return v, withSpan(err, e.Span)

	case *ast.AssignExpr:
		v, err := in.eval(e.Value)
		if err != nil {
			return nil, err
		}
		if err := in.assign(e.Name, e.Ref, v); err != nil {
			return nil, withSpan(err, e.Span)
		}
		return v, nil

	case *ast.ThisExpr:
		v, err := in.lookup("this", e.Ref)
		return v, withSpan(err, e.Span)

	case *ast.SuperExpr:
		return in.evalSuper(e)

	case *ast.GroupingExpr:
		return in.eval(e.Inner)

	case *ast.UnaryExpr:
		v, err := in.eval(e.Operand)
		if err != nil {
			return nil, err
		}
		if e.Op == ast.OpNot {
			return Bool(!IsTruthy(v)), nil
		}
		n, ok := v.(Number)
		if !ok {
			return nil, withSpan(TypeErrorf("Operand must be a number."), e.Span)
		}
		return -n, nil

	case *ast.LogicalExpr:
		left, err := in.eval(e.Left)
		if err != nil {
			return nil, err
		}
		if e.Op == ast.OpOr && IsTruthy(left) {
			return Bool(true), nil
		}
		if e.Op == ast.OpAnd && !IsTruthy(left) {
			return Bool(false), nil
		}
		return in.eval(e.Right)

	case *ast.BinaryExpr:
		left, err := in.eval(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := in.eval(e.Right)
		if err != nil {
			return nil, err
		}
		v, err := Binary(e.Op, left, right)
		return v, withSpan(err, e.Span)

	case *ast.CallExpr:
		return in.evalCall(e)

	case *ast.GetExpr:
		obj, err := in.eval(e.Object)
		if err != nil {
			return nil, err
		}
		v, err := getProperty(obj, e.Name)
		return v, withSpan(err, e.Span)

	case *ast.SetExpr:
		return in.evalSet(e)

	case *ast.IndexGetExpr:
		return in.evalIndexGet(e)

	case *ast.IndexSetExpr:
		return in.evalIndexSet(e)

	case *ast.ArrayExpr:
		items := make([]Value, 0, len(e.Elements))
		for _, el := range e.Elements {
			v, err := in.eval(el)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return NewArray(items), nil
	}
	return nil, newInternalError("unknown expression kind %s", expr.Kind())
}

// Binary applies a binary operator to two evaluated operands.
func Binary(op ast.BinaryOp, left, right Value) (Value, error) {
	switch op {
	case ast.OpEqEq:
		return Bool(Equal(left, right)), nil
	case ast.OpNeq:
		return Bool(!Equal(left, right)), nil
	case ast.OpAdd:
		ls, lstr := left.(String)
		rs, rstr := right.(String)
		if lstr || rstr {
			if !lstr {
				ls = String(ValueToString(left))
			}
			if !rstr {
				rs = String(ValueToString(right))
			}
			return ls + rs, nil
		}
		ln, lnum := left.(Number)
		rn, rnum := right.(Number)
		if lnum && rnum {
			return ln + rn, nil
		}
		return nil, TypeErrorf("Operands must be numbers or strings.")
	case ast.OpGt, ast.OpGtEq, ast.OpLt, ast.OpLtEq:
		return compare(op, left, right)
	}

	ln, lok := left.(Number)
	rn, rok := right.(Number)
	if !lok || !rok {
		return nil, TypeErrorf("Operands must be numbers.")
	}
	switch op {
	case ast.OpSub:
		return ln - rn, nil
	case ast.OpMul:
		return ln * rn, nil
	case ast.OpDiv:
		return ln / rn, nil
	case ast.OpPow:
		return Number(math.Pow(float64(ln), float64(rn))), nil
	case ast.OpMod:
		return Number(math.Mod(float64(ln), float64(rn))), nil
	case ast.OpEuclidMod:
		a, b := float64(ln), float64(rn)
		return Number(math.Mod(math.Mod(a, b)+b, b)), nil
	}
	return nil, newInternalError("unknown binary operator %s", op)
}

func compare(op ast.BinaryOp, left, right Value) (Value, error) {
	var c int
	switch l := left.(type) {
	case Number:
		r, ok := right.(Number)
		if !ok {
			return nil, TypeErrorf("Operands must be two numbers or two strings.")
		}
		switch {
		case l < r:
			c = -1
		case l > r:
			c = 1
		case l != r:
			// NaN is unordered
			return Bool(false), nil
		}
	case String:
		r, ok := right.(String)
		if !ok {
			return nil, TypeErrorf("Operands must be two numbers or two strings.")
		}
		switch {
		case l < r:
			c = -1
		case l > r:
			c = 1
		}
	default:
		return nil, TypeErrorf("Operands must be two numbers or two strings.")
	}
	switch op {
	case ast.OpGt:
		return Bool(c > 0), nil
	case ast.OpGtEq:
		return Bool(c >= 0), nil
	case ast.OpLt:
		return Bool(c < 0), nil
	default:
		return Bool(c <= 0), nil
	}
}

func (in *Interpreter) evalCall(e *ast.CallExpr) (Value, error) {
	callee, err := in.eval(e.Callee)
	if err != nil {
		return nil, err
	}
	args := make([]Value, 0, len(e.Args))
	for _, a := range e.Args {
		v, err := in.eval(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	fn, ok := callee.(Callable)
	if !ok {
		name := ValueToString(callee)
		if v, isVar := e.Callee.(*ast.VariableExpr); isVar {
			name = v.Name
		}
		return nil, withSpan(RuntimeErrorf("%q is not a function.", name), e.Span)
	}
	if len(args) != fn.Arity() {
		return nil, withSpan(RuntimeErrorf("%s expects %d arguments, but recieved %d.", fn.Name(), fn.Arity(), len(args)), e.Span)
	}

	if in.depth >= in.maxDepth {
		return nil, withSpan(RuntimeErrorf("Maximum call depth (%d) exceeded.", in.maxDepth), e.Span)
	}
	in.depth++
	defer func() { in.depth-- }()

	if in.opts.Trace != nil {
		in.emit(TraceCallStart, &e.Span, map[string]string{"fn": fn.Name()})
		defer in.emit(TraceCallEnd, &e.Span, map[string]string{"fn": fn.Name()})
	}
	v, err := fn.Call(in, args)
	if err != nil {
		return nil, withSpan(err, e.Span)
	}
	return v, nil
}

func (in *Interpreter) evalSuper(e *ast.SuperExpr) (Value, error) {
	depth, ok := in.locals[e.Ref.ID]
	if !e.Ref.Resolved() || !ok {
		return nil, newInternalError("super expression at line %d was not resolved", e.Span.StartLine)
	}
	sv, err := in.env.GetAt(depth, "super")
	if err != nil {
		return nil, err
	}
	superclass, ok := sv.(*Class)
	if !ok {
		return nil, newInternalError("super is bound to %s", TypeName(sv))
	}
	tv, err := in.env.GetAt(depth-1, "this")
	if err != nil {
		return nil, err
	}
	self, ok := tv.(Object)
	if !ok {
		return nil, newInternalError("this is bound to %s", TypeName(tv))
	}
	m := superclass.FindMethod(e.Method)
	if m == nil {
		return nil, withSpan(RuntimeErrorf("Undefined property %q.", e.Method), e.Span)
	}
	return m.Bind(self), nil
}

func getProperty(obj Value, name string) (Value, error) {
	switch o := obj.(type) {
	case Object:
		return o.Get(name)
	case *Library:
		return o.Get(name)
	case String:
		if name == "length" {
			return Number(utf8.RuneCountInString(string(o))), nil
		}
	}
	return nil, RuntimeErrorf("Only classes and arrays have properties (strings also have a .length property).")
}

func (in *Interpreter) evalSet(e *ast.SetExpr) (Value, error) {
	obj, err := in.eval(e.Object)
	if err != nil {
		return nil, err
	}
	if _, isLib := obj.(*Library); isLib {
		return nil, withSpan(RuntimeErrorf("Library objects are read-only."), e.Span)
	}
	target, ok := obj.(Object)
	if !ok {
		return nil, withSpan(RuntimeErrorf("Only classes have properties."), e.Span)
	}
	v, err := in.eval(e.Value)
	if err != nil {
		return nil, err
	}
	if err := target.Set(e.Name, v); err != nil {
		return nil, withSpan(err, e.Span)
	}
	return v, nil
}

// indexBase evaluates the expression before an indexer. Only variables and
// literals may be indexed.
func (in *Interpreter) indexBase(obj ast.Expr) (Value, error) {
	switch obj.(type) {
	case *ast.VariableExpr, *ast.ArrayExpr:
	default:
		if !ast.IsLiteral(obj) {
			return nil, withSpan(TypeErrorf("Expected identifier or string before indexer."), obj.NodeSpan())
		}
	}
	return in.eval(obj)
}

func toIndex(v Value) (int, error) {
	n, ok := v.(Number)
	if !ok || !IsInteger(n) {
		return 0, TypeErrorf("Indexes must be integer numbers.")
	}
	return int(n), nil
}

func (in *Interpreter) evalIndexGet(e *ast.IndexGetExpr) (Value, error) {
	obj, err := in.indexBase(e.Object)
	if err != nil {
		return nil, err
	}
	idx, err := in.eval(e.Index)
	if err != nil {
		return nil, err
	}
	v, err := IndexGet(obj, idx)
	return v, withSpan(err, e.Span)
}

// IndexGet reads obj[idx] for strings and arrays.
func IndexGet(obj, idx Value) (Value, error) {
	switch o := obj.(type) {
	case String:
		i, err := toIndex(idx)
		if err != nil {
			return nil, err
		}
		runes := []rune(string(o))
		j := i
		if j < 0 {
			j += len(runes)
		}
		if j < 0 || j >= len(runes) {
			return nil, RangeErrorf("String index out of range (recieved index %d but string only has %d characters).", i, len(runes))
		}
		return String(runes[j]), nil
	case *Array:
		i, err := toIndex(idx)
		if err != nil {
			return nil, err
		}
		return o.At(i)
	}
	return nil, TypeErrorf("Only arrays and strings can be indexed.")
}

func (in *Interpreter) evalIndexSet(e *ast.IndexSetExpr) (Value, error) {
	obj, err := in.indexBase(e.Object)
	if err != nil {
		return nil, err
	}
	idx, err := in.eval(e.Index)
	if err != nil {
		return nil, err
	}
	v, err := in.eval(e.Value)
	if err != nil {
		return nil, err
	}
	switch o := obj.(type) {
	case String:
		return nil, withSpan(TypeErrorf("Strings cannot be set using an index."), e.Span)
	case *Array:
		i, err := toIndex(idx)
		if err != nil {
			return nil, withSpan(err, e.Span)
		}
		if err := o.SetAt(i, v); err != nil {
			return nil, withSpan(err, e.Span)
		}
		return v, nil
	}
	return nil, withSpan(TypeErrorf("Only arrays and strings can be indexed."), e.Span)
}
