// Command botlang is the BotLang CLI: it runs, checks and formats programs,
// and hosts the REPL and the canvas server.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/inconshreveable/log15"
	"gopkg.in/urfave/cli.v1"

	"github.com/thomasrohde/botlang/pkg/config"
	"github.com/thomasrohde/botlang/pkg/diagnostics"
	"github.com/thomasrohde/botlang/pkg/help"
	"github.com/thomasrohde/botlang/pkg/logging"
	"github.com/thomasrohde/botlang/pkg/runtime"
)

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	logLevelFlag = cli.StringFlag{
		Name:  "loglevel",
		Usage: "Log level (crit, error, warn, info, debug); overrides the config file",
	}
	jsonFlag = cli.BoolFlag{
		Name:  "json",
		Usage: "Print results and diagnostics as JSON",
	}
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
	infoColor = color.New(color.FgCyan)
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(runtime.ExitUsage)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "botlang"
	app.Usage = "run BotLang robot programs"
	app.Version = help.Version
	app.Flags = []cli.Flag{configFileFlag, logLevelFlag}
	app.Commands = []cli.Command{
		runCommand,
		checkCommand,
		fmtCommand,
		tokensCommand,
		astCommand,
		replCommand,
		serveCommand,
		traceCommand,
		helpTopicCommand,
		dumpConfigCommand,
	}
	return app
}

// env is the per-invocation setup shared by every command.
type env struct {
	cfg    *config.Config
	source string
	logger log15.Logger
}

// loadEnv resolves the configuration and builds the logger.
func loadEnv(ctx *cli.Context) (*env, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, source, err := config.Load(ctx.GlobalString(configFileFlag.Name), cwd)
	if err != nil {
		return nil, exitf(runtime.ExitUsage, "%s", diagnostics.FormatLine(
			diagnostics.MakeDiag(diagnostics.EConfig, err.Error(), nil, "")))
	}
	if lvl := ctx.GlobalString(logLevelFlag.Name); lvl != "" {
		cfg.Log.Level = lvl
	}
	logger, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, exitf(runtime.ExitUsage, "%v", err)
	}
	logger.Debug("Configuration loaded", "source", source)
	return &env{cfg: cfg, source: source, logger: logger}, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// exitf builds an error that makes the app exit with code after printing msg.
func exitf(code int, format string, args ...interface{}) error {
	return cli.NewExitError(fmt.Sprintf(format, args...), code)
}

// exitCode ends the command with code and no further output.
func exitCode(code int) error {
	if code == runtime.ExitOK {
		return nil
	}
	return cli.NewExitError("", code)
}

// readSource reads file, or stdin for "-".
func readSource(file string) (string, string, error) {
	if file == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", exitf(runtime.ExitUsage, "error reading stdin: %v", err)
		}
		return string(data), "<stdin>", nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		return "", "", exitf(runtime.ExitUsage, "%s", diagnostics.FormatLine(diag))
	}
	return string(data), file, nil
}

// fileArg returns the single positional argument.
func fileArg(ctx *cli.Context) (string, error) {
	if ctx.NArg() != 1 {
		return "", exitf(runtime.ExitUsage, "usage: botlang %s %s", ctx.Command.Name, ctx.Command.ArgsUsage)
	}
	return ctx.Args().First(), nil
}

// printDiagnostics writes diags to w, as JSON or as colored console lines.
func printDiagnostics(w io.Writer, diags []diagnostics.Diagnostic, asJSON bool) {
	if asJSON {
		fmt.Fprintln(w, diagnostics.FormatDiagnostics(diags, false))
		return
	}
	for _, d := range diags {
		errColor.Fprintln(w, diagnostics.FormatLine(d))
		if d.Hint != "" {
			infoColor.Fprintf(w, "  hint: %s\n", d.Hint)
		}
	}
}

// reportError prints err the way its kind calls for and returns the exit
// error for it.
func reportError(err error, asJSON bool) error {
	if err == nil {
		return nil
	}
	if diags := runtime.Diagnostics(err); diags != nil {
		printDiagnostics(os.Stderr, diags, asJSON)
		return exitCode(runtime.ExitCode(err))
	}
	return exitf(runtime.ExitCode(err), "%v", err)
}
