package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"gopkg.in/urfave/cli.v1"

	"github.com/thomasrohde/botlang/pkg/config"
	"github.com/thomasrohde/botlang/pkg/help"
	"github.com/thomasrohde/botlang/pkg/lexer"
	"github.com/thomasrohde/botlang/pkg/runtime"
)

const (
	historyFile = "history"
	promptMain  = "bot> "
	promptCont  = "...> "
)

const replHelp = `REPL commands:
  :help      Show this list
  :globals   List the variables defined so far
  :robot     Show the robot's state
  :reset     Forget every definition and reset the robot
  :quit      Exit the REPL
`

var replCommand = cli.Command{
	Action: repl,
	Name:   "repl",
	Usage:  "Start an interactive session",
	Flags:  []cli.Flag{seedFlag, maxLoopsFlag, inheritFlag, instantFlag},
	Description: `The repl command evaluates statements one at a time against the same
globals. Input continues over several lines until brackets balance.`,
}

func repl(ctx *cli.Context) error {
	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	applyRunFlags(ctx, e.cfg)
	rt := runtime.New(runtime.WithConfig(e.cfg), runtime.WithLogger(e.logger))
	hooks := runtime.Hooks{Output: func(line string) { fmt.Println(line) }}

	session, err := rt.NewSession(hooks)
	if err != nil {
		return exitf(runtime.ExitInternal, "%v", err)
	}
	defer func() { session.Close() }()

	fmt.Printf("BotLang %s REPL\nCtrl+C cancels input or stops a running program, Ctrl+D exits. Type :help for commands.\n", help.Version)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := historyPath()
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if histPath == "" {
			return
		}
		_ = os.MkdirAll(filepath.Dir(histPath), 0755)
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		code, ok := readStatement(ln)
		if !ok {
			fmt.Println()
			return nil
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			switch strings.ToLower(trimmed) {
			case ":quit", ":q":
				return nil
			case ":help":
				fmt.Print(replHelp)
			case ":globals":
				session.Globals().Dump(os.Stdout)
			case ":robot":
				s := session.Turtle().State()
				fmt.Printf("pos=(%g, %g) angle=%g pen=%v color=%s thickness=%g speed=%g hidden=%v\n",
					s.Pos.X, s.Pos.Y, s.Angle, s.PenDown, s.Color, s.Thickness, s.Speed, s.Hidden)
			case ":reset":
				session.Close()
				if session, err = rt.NewSession(hooks); err != nil {
					return exitf(runtime.ExitInternal, "%v", err)
				}
				fmt.Println("Session reset.")
			default:
				fmt.Println("unknown command. Type :help for the list.")
			}
			continue
		}

		if !strings.HasSuffix(trimmed, ";") && !strings.HasSuffix(trimmed, "}") {
			code += ";"
		}
		evalInterruptible(session, code)
	}
}

// evalInterruptible runs code, cancelling it on Ctrl+C.
func evalInterruptible(session *runtime.Session, code string) {
	sigCtx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()
	if err := session.Eval(ctx, code); err != nil {
		if diags := runtime.Diagnostics(err); diags != nil {
			printDiagnostics(os.Stderr, diags, false)
			return
		}
		errColor.Fprintln(os.Stderr, err)
	}
}

// readStatement reads lines until every bracket opened in the input is
// closed. ok is false at end of input.
func readStatement(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if depth(b.String()) <= 0 {
			return b.String(), true
		}
	}
}

// depth is the count of brackets left open at the end of src. Unterminated
// strings end the input so the scanner can report them.
func depth(src string) int {
	tokens, diags := lexer.Tokenize(src, "<repl>")
	if len(diags) > 0 {
		return 0
	}
	n := 0
	for _, tok := range tokens {
		switch tok.Type {
		case lexer.TokLParen, lexer.TokLBrace, lexer.TokLBracket:
			n++
		case lexer.TokRParen, lexer.TokRBrace, lexer.TokRBracket:
			n--
		}
	}
	return n
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, config.UserDir, historyFile)
}
