package runtime

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/thomasrohde/botlang/pkg/evaluator"
	"github.com/thomasrohde/botlang/pkg/robot"
)

// Session is a long-lived interpreter whose globals survive between
// evaluations, as used by the REPL.
type Session struct {
	rt     *Runtime
	id     string
	in     *evaluator.Interpreter
	turtle *robot.Turtle
	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewSession starts a session with the libraries imported and the robot
// animator running. Close releases it.
func (rt *Runtime) NewSession(hooks Hooks) (*Session, error) {
	id := rt.runID
	if id == "" {
		id = uuid.New().String()
	}
	logger := rt.logger.New("session", id)

	turtle := robot.New(rt.cfg.Robot.Turtle(), logger)
	if hooks.Shape != nil {
		turtle.OnShape(hooks.Shape)
	}
	in := evaluator.New(evaluator.Options{
		MaxLoopIterations: rt.cfg.Interpreter.MaxLoopIterations,
		MaxCallDepth:      rt.cfg.Interpreter.MaxCallDepth,
		DumpEnvOnError:    rt.cfg.Interpreter.DumpEnvOnError,
		DumpWriter:        rt.dumpWriter,
		Verbose:           rt.cfg.Interpreter.Verbose,
		Output:            hooks.Output,
		Actor:             turtle,
		Logger:            logger,
		Trace:             hooks.Trace,
		RunID:             id,
	})
	if err := rt.importBundles(in, turtle); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	anim := robot.NewAnimator(turtle, rt.cfg.Robot.FrameRate, rt.cfg.Robot.TimeScale)
	g.Go(func() error { return anim.Run(gctx) })

	rt.track(id, in)
	return &Session{rt: rt, id: id, in: in, turtle: turtle, cancel: cancel, group: g}, nil
}

// Eval compiles and runs source against the session's globals. Static
// errors come back as *DiagnosticError and leave the session untouched.
func (s *Session) Eval(ctx context.Context, source string) error {
	c, diags := s.rt.compile(source, "<repl>")
	if len(diags) > 0 {
		return &DiagnosticError{Diagnostics: diags}
	}
	if err := s.in.Interpret(ctx, c.program, c.locals); err != nil {
		return err
	}
	select {
	case <-s.turtle.Done():
	case <-ctx.Done():
		s.turtle.StopGlide()
	}
	return nil
}

// Kill aborts the evaluation in progress.
func (s *Session) Kill() { s.in.Kill() }

// Turtle returns the session's robot.
func (s *Session) Turtle() *robot.Turtle { return s.turtle }

// Globals returns the session's global scope.
func (s *Session) Globals() *evaluator.Env { return s.in.Globals() }

// Close stops the animator and forgets the session.
func (s *Session) Close() error {
	s.rt.untrack(s.id)
	s.turtle.StopGlide()
	s.cancel()
	return s.group.Wait()
}
