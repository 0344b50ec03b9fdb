package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/thomasrohde/botlang/pkg/formatter"
	"github.com/thomasrohde/botlang/pkg/help"
	"github.com/thomasrohde/botlang/pkg/lexer"
	"github.com/thomasrohde/botlang/pkg/parser"
	"github.com/thomasrohde/botlang/pkg/runtime"
	"github.com/thomasrohde/botlang/pkg/server"
)

var (
	checkCommand = cli.Command{
		Action:      checkProgram,
		Name:        "check",
		Usage:       "Scan, parse and resolve a program without running it",
		ArgsUsage:   "<file.bl|->",
		Flags:       []cli.Flag{jsonFlag, inheritFlag},
		Description: `The check command reports every static fault in a program.`,
	}
	fmtCommand = cli.Command{
		Action:    formatProgram,
		Name:      "fmt",
		Usage:     "Print a program in canonical form",
		ArgsUsage: "<file.bl>",
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "write, w", Usage: "Rewrite the file in place"},
			inheritFlag,
		},
		Description: `The fmt command reformats a program. Comments are not preserved.`,
	}
	tokensCommand = cli.Command{
		Action:    printTokens,
		Name:      "tokens",
		Usage:     "Show the tokens the scanner produces",
		ArgsUsage: "<file.bl|->",
		Category:  "DEBUGGING COMMANDS",
	}
	astCommand = cli.Command{
		Action:    printAST,
		Name:      "ast",
		Usage:     "Dump the syntax tree of a program",
		ArgsUsage: "<file.bl|->",
		Flags:     []cli.Flag{inheritFlag},
		Category:  "DEBUGGING COMMANDS",
	}
	serveCommand = cli.Command{
		Action: serve,
		Name:   "serve",
		Usage:  "Serve the run API and live WebSocket stream for a browser canvas",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "addr", Usage: "Listen address; overrides the config file"},
			inheritFlag,
		},
	}
	helpTopicCommand = cli.Command{
		Action:    showHelp,
		Name:      "help",
		Aliases:   []string{"h"},
		Usage:     "Show the language reference, or help for a command",
		ArgsUsage: "[topic|command]",
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "index", Usage: "List every library member (stdlib topic only)"},
		},
	}
	dumpConfigCommand = cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		ArgsUsage:   "[output.toml]",
		Category:    "MISCELLANEOUS COMMANDS",
		Description: `The dumpconfig command shows the effective configuration as TOML.`,
	}
)

func checkProgram(ctx *cli.Context) error {
	file, err := fileArg(ctx)
	if err != nil {
		return err
	}
	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	if ctx.Bool(inheritFlag.Name) {
		e.cfg.Interpreter.AllowInheritance = true
	}
	source, filename, err := readSource(file)
	if err != nil {
		return err
	}
	asJSON := ctx.Bool(jsonFlag.Name)
	diags := runtime.New(runtime.WithConfig(e.cfg), runtime.WithLogger(e.logger)).Check(source, filename)
	if len(diags) > 0 {
		printDiagnostics(os.Stderr, diags, asJSON)
		return exitCode(runtime.ExitStatic)
	}
	if asJSON {
		fmt.Println("[]")
	} else {
		fmt.Println("No errors found.")
	}
	return nil
}

func formatProgram(ctx *cli.Context) error {
	file, err := fileArg(ctx)
	if err != nil {
		return err
	}
	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	if ctx.Bool(inheritFlag.Name) {
		e.cfg.Interpreter.AllowInheritance = true
	}
	source, filename, err := readSource(file)
	if err != nil {
		return err
	}
	formatted, err := runtime.New(runtime.WithConfig(e.cfg)).Format(source, filename)
	if err != nil {
		return reportError(err, false)
	}
	if formatter.HasComments(source) {
		warnColor.Fprintln(os.Stderr, "warning: comments are not preserved by the formatter")
	}
	if ctx.Bool("write") && file != "-" {
		if err := os.WriteFile(file, []byte(formatted), 0644); err != nil {
			return exitf(runtime.ExitUsage, "error writing file: %v", err)
		}
		return nil
	}
	fmt.Print(formatted)
	return nil
}

func printTokens(ctx *cli.Context) error {
	file, err := fileArg(ctx)
	if err != nil {
		return err
	}
	source, filename, err := readSource(file)
	if err != nil {
		return err
	}
	tokens, diags := lexer.Tokenize(source, filename)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Pos", "Type", "Lexeme", "Value"})
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	for _, tok := range tokens {
		table.Append([]string{
			fmt.Sprintf("%d:%d", tok.Span.StartLine, tok.Span.StartCol),
			tok.Type.String(),
			tok.Lexeme,
			tok.Value,
		})
	}
	table.Render()

	if len(diags) > 0 {
		printDiagnostics(os.Stderr, diags, false)
		return exitCode(runtime.ExitStatic)
	}
	return nil
}

func printAST(ctx *cli.Context) error {
	file, err := fileArg(ctx)
	if err != nil {
		return err
	}
	source, filename, err := readSource(file)
	if err != nil {
		return err
	}
	prog, diags := parser.ParseSource(source, filename, parser.Options{
		AllowInheritance: ctx.Bool(inheritFlag.Name),
	})
	cfg := spew.ConfigState{
		Indent:                  "  ",
		DisablePointerAddresses: true,
		DisableCapacities:       true,
		SortKeys:                true,
	}
	cfg.Fdump(os.Stdout, prog)
	if len(diags) > 0 {
		printDiagnostics(os.Stderr, diags, false)
		return exitCode(runtime.ExitStatic)
	}
	return nil
}

func serve(ctx *cli.Context) error {
	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	if addr := ctx.String("addr"); addr != "" {
		e.cfg.Server.Addr = addr
	}
	if ctx.Bool(inheritFlag.Name) {
		e.cfg.Interpreter.AllowInheritance = true
	}
	rt := runtime.New(runtime.WithConfig(e.cfg), runtime.WithLogger(e.logger))

	sigCtx, stop := signalContext()
	defer stop()
	if err := server.New(rt, e.logger).ListenAndServe(sigCtx, e.cfg.Server.Addr); err != nil {
		return exitf(runtime.ExitUsage, "%v", err)
	}
	return nil
}

func showHelp(ctx *cli.Context) error {
	topic := ctx.Args().First()
	if ctx.Bool("index") {
		if topic != "stdlib" {
			return exitf(runtime.ExitUsage, "error: --index is only supported for the stdlib topic")
		}
		fmt.Print(help.StdlibIndex())
		return nil
	}
	if topic == "" {
		fmt.Print(help.QUICKREF)
		fmt.Println("\nRun botlang --help for the list of commands.")
		return nil
	}
	if _, _, err := help.MatchTopic(topic); err != nil && ctx.App.Command(topic) != nil {
		return cli.ShowCommandHelp(ctx, topic)
	}
	_, content, err := help.MatchTopic(topic)
	if err != nil {
		return exitf(runtime.ExitUsage, "%s\nAvailable topics: %s", err, strings.Join(help.TopicList, ", "))
	}
	fmt.Print(content)
	return nil
}

func dumpConfig(ctx *cli.Context) error {
	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	if err := e.cfg.Dump(dump, e.source); err != nil {
		return exitf(runtime.ExitUsage, "%v", err)
	}
	return nil
}
