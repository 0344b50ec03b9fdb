package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rjeczalik/notify"
	"gopkg.in/urfave/cli.v1"

	"github.com/thomasrohde/botlang/pkg/config"
	"github.com/thomasrohde/botlang/pkg/evaluator"
	"github.com/thomasrohde/botlang/pkg/runtime"
)

// watchSettle is how long file events are collected before a rerun.
const watchSettle = 150 * time.Millisecond

var (
	watchFlag = cli.BoolFlag{
		Name:  "watch",
		Usage: "Rerun the program whenever the file changes",
	}
	traceFlag = cli.StringFlag{
		Name:  "trace",
		Usage: "Write JSONL trace events to `FILE`",
	}
	seedFlag = cli.Int64Flag{
		Name:  "seed",
		Usage: "Seed for random() and randomInt(); 0 uses the clock",
	}
	maxLoopsFlag = cli.IntFlag{
		Name:  "max-loops",
		Usage: "Iterations after which a loop faults",
	}
	inheritFlag = cli.BoolFlag{
		Name:  "inherit",
		Usage: "Allow `class A < B` superclass clauses",
	}
	instantFlag = cli.BoolFlag{
		Name:  "instant",
		Usage: "Move the robot without gliding",
	}
	dumpEnvFlag = cli.BoolFlag{
		Name:  "dump-env",
		Usage: "Print the variables in scope when a program faults",
	}
)

var runCommand = cli.Command{
	Action:    runProgram,
	Name:      "run",
	Usage:     "Run a BotLang program",
	ArgsUsage: "<file.bl|->",
	Flags: []cli.Flag{
		jsonFlag, watchFlag, traceFlag, seedFlag, maxLoopsFlag, inheritFlag, instantFlag, dumpEnvFlag,
	},
	Description: `The run command executes a program. Printed lines go to stdout as they
happen. With --json the whole result, including the robot's shapes, is
printed as one JSON object when the program ends.`,
}

// applyRunFlags copies explicitly set flags over the configuration.
func applyRunFlags(ctx *cli.Context, cfg *config.Config) {
	if ctx.IsSet(seedFlag.Name) {
		cfg.Math.Seed = ctx.Int64(seedFlag.Name)
	}
	if ctx.IsSet(maxLoopsFlag.Name) {
		cfg.Interpreter.MaxLoopIterations = ctx.Int(maxLoopsFlag.Name)
	}
	if ctx.Bool(inheritFlag.Name) {
		cfg.Interpreter.AllowInheritance = true
	}
	if ctx.Bool(instantFlag.Name) {
		cfg.Robot.Animate = false
	}
	if ctx.Bool(dumpEnvFlag.Name) {
		cfg.Interpreter.DumpEnvOnError = true
	}
}

func runProgram(ctx *cli.Context) error {
	file, err := fileArg(ctx)
	if err != nil {
		return err
	}
	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	applyRunFlags(ctx, e.cfg)
	if err := e.cfg.Validate(); err != nil {
		return exitf(runtime.ExitUsage, "%v", err)
	}
	asJSON := ctx.Bool(jsonFlag.Name)

	hooks := runtime.Hooks{}
	if !asJSON {
		hooks.Output = func(line string) { fmt.Println(line) }
	}
	if path := ctx.String(traceFlag.Name); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return exitf(runtime.ExitUsage, "cannot create trace file: %v", err)
		}
		defer f.Close()
		hooks.Trace = traceWriter(f)
	}
	rt := runtime.New(
		runtime.WithConfig(e.cfg),
		runtime.WithLogger(e.logger),
		runtime.WithHooks(hooks),
	)

	sigCtx, stop := signalContext()
	defer stop()

	runOnce := func(runCtx context.Context) error {
		source, filename, err := readSource(file)
		if err != nil {
			return err
		}
		res, err := rt.Run(runCtx, source, filename)
		if asJSON && res != nil {
			out, _ := json.Marshal(res)
			fmt.Println(string(out))
		}
		return reportError(err, asJSON)
	}

	if !ctx.Bool(watchFlag.Name) {
		return runOnce(sigCtx)
	}
	if file == "-" {
		return exitf(runtime.ExitUsage, "--watch needs a file, not stdin")
	}
	return watch(sigCtx, file, func(runCtx context.Context) {
		// faults are reported and the watch goes on
		if err := runOnce(runCtx); err != nil {
			if msg := err.Error(); msg != "" {
				errColor.Fprintln(os.Stderr, msg)
			}
		}
	})
}

// traceWriter encodes trace events as JSON lines.
func traceWriter(f *os.File) func(evaluator.TraceEvent) {
	var mu sync.Mutex
	enc := json.NewEncoder(f)
	return func(ev evaluator.TraceEvent) {
		mu.Lock()
		defer mu.Unlock()
		_ = enc.Encode(ev)
	}
}

// watch runs fn now and again after every change to file, cancelling a run
// still in progress. It returns when ctx is done.
func watch(ctx context.Context, file string, fn func(context.Context)) error {
	abs, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	// Editors often replace files on save, so the directory is watched.
	events := make(chan notify.EventInfo, 16)
	if err := notify.Watch(filepath.Dir(abs), events, notify.Write, notify.Create, notify.Rename); err != nil {
		return exitf(runtime.ExitUsage, "cannot watch %s: %v", file, err)
	}
	defer notify.Stop(events)

	for {
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			fn(runCtx)
		}()

		changed := false
		for !changed {
			select {
			case <-ctx.Done():
				cancel()
				<-done
				return nil
			case ev := <-events:
				changed = ev.Path() == abs
			}
		}
		cancel()
		<-done
		settle(events)
		infoColor.Fprintf(os.Stderr, "--- %s changed, rerunning\n", file)
	}
}

// settle drains events until none arrive for watchSettle.
func settle(events <-chan notify.EventInfo) {
	timer := time.NewTimer(watchSettle)
	defer timer.Stop()
	for {
		select {
		case <-events:
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(watchSettle)
		case <-timer.C:
			return
		}
	}
}
