// Copyright 2024 The ergo-ledger-go Authors
// This file is part of the ergo-ledger-go library.
//
// The ergo-ledger-go library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ergo-ledger-go library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ergo-ledger-go library. If not, see <http://www.gnu.org/licenses/>.

// Package debug wires the logging flags shared by the command line tools.
package debug

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/log"
	colorable "github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/urfave/cli.v1"
)

var (
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	vmoduleFlag = cli.StringFlag{
		Name:  "vmodule",
		Usage: "Per-module verbosity: comma-separated list of <pattern>=<level> (e.g. ledger/*=5,usbwallet=4)",
		Value: "",
	}
	consoleFormatFlag = cli.StringFlag{
		Name:  "consoleformat",
		Usage: "Write console logs as 'json' or 'term'",
	}
	consoleOutputFlag = cli.StringFlag{
		Name: "consoleoutput",
		Usage: "(stderr|stdout|split) By default, console output goes to stderr. " +
			"In stdout mode, write console logs to stdout (not stderr). " +
			"In split mode, write critical (warning, error and critical) console logs to stderr " +
			"and non-critical (info, debug and trace) to stdout",
	}
)

// Flags holds all command-line flags required for logging.
var Flags = []cli.Flag{
	verbosityFlag, vmoduleFlag, consoleFormatFlag, consoleOutputFlag,
}

// StdoutStderrHandler routes warnings and errors to one handler and
// everything else to another.
type StdoutStderrHandler struct {
	stdoutHandler slog.Handler
	stderrHandler slog.Handler
}

func (h StdoutStderrHandler) pick(level slog.Level) slog.Handler {
	if level >= log.LevelWarn {
		return h.stderrHandler
	}
	return h.stdoutHandler
}

// Enabled implements slog.Handler.
func (h StdoutStderrHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.pick(level).Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h StdoutStderrHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.pick(r.Level).Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h StdoutStderrHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return StdoutStderrHandler{
		stdoutHandler: h.stdoutHandler.WithAttrs(attrs),
		stderrHandler: h.stderrHandler.WithAttrs(attrs),
	}
}

// WithGroup implements slog.Handler.
func (h StdoutStderrHandler) WithGroup(name string) slog.Handler {
	return StdoutStderrHandler{
		stdoutHandler: h.stdoutHandler.WithGroup(name),
		stderrHandler: h.stderrHandler.WithGroup(name),
	}
}

// Setup initializes logging based on the CLI flags. It should be called as
// early as possible in the program.
func Setup(ctx *cli.Context) error {
	handler, err := CreateStreamHandler(ctx.GlobalString(consoleFormatFlag.Name), ctx.GlobalString(consoleOutputFlag.Name))
	if err != nil {
		return err
	}
	glogger := log.NewGlogHandler(handler)
	glogger.Verbosity(log.FromLegacyLevel(ctx.GlobalInt(verbosityFlag.Name)))
	if err := glogger.Vmodule(ctx.GlobalString(vmoduleFlag.Name)); err != nil {
		return fmt.Errorf("invalid --%s: %w", vmoduleFlag.Name, err)
	}
	log.SetDefault(log.NewLogger(glogger))
	return nil
}

// CreateStreamHandler builds the console handler for the given format and
// output mode. Empty values select terminal output on stderr.
func CreateStreamHandler(consoleFormat string, consoleOutputMode string) (slog.Handler, error) {
	switch consoleOutputMode {
	case "stdout":
		return newConsoleHandler(os.Stdout, consoleFormat)
	case "stderr", "":
		return newConsoleHandler(os.Stderr, consoleFormat)
	case "split":
		stdout, err := newConsoleHandler(os.Stdout, consoleFormat)
		if err != nil {
			return nil, err
		}
		stderr, err := newConsoleHandler(os.Stderr, consoleFormat)
		if err != nil {
			return nil, err
		}
		return StdoutStderrHandler{stdoutHandler: stdout, stderrHandler: stderr}, nil
	}
	return nil, fmt.Errorf("unexpected value for \"%s\" flag: \"%s\"", consoleOutputFlag.Name, consoleOutputMode)
}

func newConsoleHandler(file *os.File, consoleFormat string) (slog.Handler, error) {
	usecolor := useColor(file)
	output := io.Writer(file)
	if usecolor {
		output = colorable.NewColorable(file)
	}
	switch consoleFormat {
	case "json":
		return log.JSONHandlerWithLevel(output, log.LevelTrace), nil
	case "term", "":
		return log.NewTerminalHandlerWithLevel(output, log.LevelTrace, usecolor), nil
	}
	return nil, fmt.Errorf("unexpected value for \"%s\" flag: \"%s\"", consoleFormatFlag.Name, consoleFormat)
}

func useColor(file *os.File) bool {
	return (isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())) && os.Getenv("TERM") != "dumb"
}
