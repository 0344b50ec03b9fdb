// Package runtime provides the top-level BotLang runtime orchestrator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/inconshreveable/log15"
	"golang.org/x/crypto/sha3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/thomasrohde/botlang/pkg/ast"
	"github.com/thomasrohde/botlang/pkg/config"
	"github.com/thomasrohde/botlang/pkg/diagnostics"
	"github.com/thomasrohde/botlang/pkg/evaluator"
	"github.com/thomasrohde/botlang/pkg/formatter"
	"github.com/thomasrohde/botlang/pkg/parser"
	"github.com/thomasrohde/botlang/pkg/resolver"
	"github.com/thomasrohde/botlang/pkg/robot"
	"github.com/thomasrohde/botlang/pkg/stdlib"
)

// Exit codes shared by the CLI and the conformance suite.
const (
	ExitOK       = 0
	ExitUsage    = 1
	ExitStatic   = 2
	ExitRuntime  = 4
	ExitInternal = 5
)

// Result holds the outcome of a program execution.
type Result struct {
	RunID  string        `json:"runId"`
	Output []string      `json:"output"`
	Shapes []robot.Shape `json:"shapes"`
	Robot  robot.State   `json:"robot"`
}

// Hooks stream a run's effects as they happen. Any field may be nil.
type Hooks struct {
	Output func(line string)
	Shape  func(shape robot.Shape)
	Trace  func(event evaluator.TraceEvent)
}

// Runtime wires together all BotLang components for program execution.
type Runtime struct {
	cfg        *config.Config
	logger     log15.Logger
	hooks      Hooks
	runID      string
	dumpWriter io.Writer
	cache      *lru.ARCCache

	mu     sync.Mutex
	active map[string]*evaluator.Interpreter
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithConfig sets the configuration. The default is config.Default().
func WithConfig(cfg *config.Config) Option {
	return func(rt *Runtime) {
		rt.cfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(l log15.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = l
	}
}

// WithHooks sets the default hooks used by Run.
func WithHooks(h Hooks) Option {
	return func(rt *Runtime) {
		rt.hooks = h
	}
}

// WithRunID fixes the run ID instead of generating one per run.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithDumpWriter sets where the environment dump goes when
// Interpreter.DumpEnvOnError is enabled.
func WithDumpWriter(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.dumpWriter = w
	}
}

// New creates a new Runtime with the given options.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		cfg:    config.Default(),
		active: make(map[string]*evaluator.Interpreter),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.logger == nil {
		rt.logger = log15.New()
		rt.logger.SetHandler(log15.DiscardHandler())
	}
	if n := rt.cfg.Cache.Programs; n > 0 {
		// NewARC only fails for a non-positive size.
		rt.cache, _ = lru.NewARC(n)
	}
	return rt
}

// Config returns the effective configuration.
func (rt *Runtime) Config() *config.Config { return rt.cfg }

// --- Compilation ---

type compiled struct {
	program *ast.Program
	locals  resolver.Locals
}

// cacheKey hashes everything that affects the compiled form.
func (rt *Runtime) cacheKey(source, filename string) [32]byte {
	h := sha3.New256()
	io.WriteString(h, filename)
	h.Write([]byte{0})
	if rt.cfg.Interpreter.AllowInheritance {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	io.WriteString(h, source)
	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}

// compile normalizes, scans, parses and resolves source. Each stage runs only
// if the previous ones reported nothing.
func (rt *Runtime) compile(source, filename string) (*compiled, []diagnostics.Diagnostic) {
	source = norm.NFC.String(source)

	var key [32]byte
	if rt.cache != nil {
		key = rt.cacheKey(source, filename)
		if c, ok := rt.cache.Get(key); ok {
			return c.(*compiled), nil
		}
	}

	rep := diagnostics.NewReporter(nil)
	program, diags := parser.ParseSource(source, filename, parser.Options{
		AllowInheritance: rt.cfg.Interpreter.AllowInheritance,
	})
	rep.ReportAll(diags)
	if rep.HadError() {
		return nil, rep.Diagnostics()
	}

	locals, diags := resolver.Resolve(program)
	rep.ReportAll(diags)
	if rep.HadError() {
		return nil, rep.Diagnostics()
	}

	c := &compiled{program: program, locals: locals}
	if rt.cache != nil {
		rt.cache.Add(key, c)
	}
	return c, nil
}

// --- Execution ---

// Run compiles and executes a BotLang program with the default hooks.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	return rt.RunWith(ctx, source, filename, rt.hooks)
}

// RunWith compiles and executes a BotLang program. The robot animator runs
// alongside the interpreter; the run ends once the program finishes and the
// robot's last glide completes. The Result is non-nil whenever compilation
// succeeded, even if the program faulted.
func (rt *Runtime) RunWith(ctx context.Context, source, filename string, hooks Hooks) (*Result, error) {
	runID := rt.runID
	if runID == "" {
		runID = uuid.New().String()
	}
	logger := rt.logger.New("run", runID)

	c, diags := rt.compile(source, filename)
	if len(diags) > 0 {
		logger.Debug("Compilation failed", "file", filename, "diagnostics", len(diags))
		return nil, &DiagnosticError{Diagnostics: diags}
	}

	res := &Result{RunID: runID, Output: []string{}}
	var outMu sync.Mutex

	turtle := robot.New(rt.cfg.Robot.Turtle(), logger)
	turtle.OnShape(func(s robot.Shape) {
		if hooks.Shape != nil {
			hooks.Shape(s)
		}
	})

	in := evaluator.New(evaluator.Options{
		MaxLoopIterations: rt.cfg.Interpreter.MaxLoopIterations,
		MaxCallDepth:      rt.cfg.Interpreter.MaxCallDepth,
		DumpEnvOnError:    rt.cfg.Interpreter.DumpEnvOnError,
		DumpWriter:        rt.dumpWriter,
		Verbose:           rt.cfg.Interpreter.Verbose,
		Output: func(line string) {
			outMu.Lock()
			res.Output = append(res.Output, line)
			outMu.Unlock()
			if hooks.Output != nil {
				hooks.Output(line)
			}
		},
		Actor:  turtle,
		Logger: logger,
		Trace:  hooks.Trace,
		RunID:  runID,
	})
	if err := rt.importBundles(in, turtle); err != nil {
		return nil, err
	}
	turtle.ResetAll()

	rt.track(runID, in)
	defer rt.untrack(runID)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	anim := robot.NewAnimator(turtle, rt.cfg.Robot.FrameRate, rt.cfg.Robot.TimeScale)
	g.Go(func() error {
		return anim.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		if err := in.Interpret(gctx, c.program, c.locals); err != nil {
			return err
		}
		// Let the final glide land so its line is part of the result.
		select {
		case <-turtle.Done():
		case <-gctx.Done():
			turtle.StopGlide()
		}
		return nil
	})
	err := g.Wait()

	outMu.Lock()
	res.Shapes = turtle.Shapes()
	res.Robot = turtle.State()
	outMu.Unlock()

	if err != nil {
		logger.Debug("Run failed", "err", err)
		return res, err
	}
	logger.Debug("Run finished", "lines", len(res.Output), "shapes", len(res.Shapes))
	return res, nil
}

// importBundles binds the Math and Robot libraries into in's globals.
func (rt *Runtime) importBundles(in *evaluator.Interpreter, turtle *robot.Turtle) error {
	seed := rt.cfg.Math.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	reg := stdlib.NewRegistry()
	stdlib.RegisterDefaults(reg, rand.New(rand.NewSource(seed)), turtle)
	return reg.ImportAll(in.Globals())
}

func (rt *Runtime) track(id string, in *evaluator.Interpreter) {
	rt.mu.Lock()
	rt.active[id] = in
	rt.mu.Unlock()
}

func (rt *Runtime) untrack(id string) {
	rt.mu.Lock()
	delete(rt.active, id)
	rt.mu.Unlock()
}

// Kill stops every run in flight. It is safe to call from any goroutine.
func (rt *Runtime) Kill() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for _, in := range rt.active {
		in.Kill()
	}
}

// KillRun stops the run with the given ID and reports whether it was found.
func (rt *Runtime) KillRun(id string) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	in, ok := rt.active[id]
	if ok {
		in.Kill()
	}
	return ok
}

// Check compiles a BotLang program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	_, diags := rt.compile(source, filename)
	return diags
}

// Format parses and formats a BotLang program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, diags := parser.ParseSource(norm.NFC.String(source), filename, parser.Options{
		AllowInheritance: rt.cfg.Interpreter.AllowInheritance,
	})
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	return formatter.Format(program), nil
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}

// Diagnostics converts err into diagnostics, or nil for host errors.
func Diagnostics(err error) []diagnostics.Diagnostic {
	var derr *DiagnosticError
	if errors.As(err, &derr) {
		return derr.Diagnostics
	}
	var rerr *evaluator.RuntimeError
	if errors.As(err, &rerr) {
		return []diagnostics.Diagnostic{rerr.Diagnostic()}
	}
	return nil
}

// ExitCode maps a Run, Check or Format error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var derr *DiagnosticError
	if errors.As(err, &derr) {
		return ExitStatic
	}
	var rerr *evaluator.RuntimeError
	if errors.As(err, &rerr) {
		return ExitRuntime
	}
	var ierr *evaluator.InternalError
	if errors.As(err, &ierr) {
		return ExitInternal
	}
	return ExitUsage
}
