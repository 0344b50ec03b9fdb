// Package logging builds the log15 loggers used by the CLI, runtime and server.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/inconshreveable/log15"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/thomasrohde/botlang/pkg/config"
)

// New returns a root logger writing to w at the configured level.
// The terminal format is used only when w is a terminal; otherwise it falls
// back to logfmt.
func New(cfg config.LogConfig, w io.Writer) (log15.Logger, error) {
	lvl, err := log15.LvlFromString(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var format log15.Format
	switch cfg.Format {
	case "", "terminal":
		if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			w = colorable.NewColorable(f)
			format = log15.TerminalFormat()
		} else {
			format = log15.LogfmtFormat()
		}
	case "logfmt":
		format = log15.LogfmtFormat()
	case "json":
		format = log15.JsonFormat()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	logger := log15.New()
	logger.SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(w, format)))
	return logger, nil
}

// Discard returns a logger that drops every record.
func Discard() log15.Logger {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())
	return logger
}
