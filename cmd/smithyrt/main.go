// Package main provides the smithyrt CLI entrypoint.
//
// Usage:
//
//	smithyrt <command> [options]
//
// Exit codes:
//   - 0: success
//   - 1: invocation, decode or publish failure
//   - 2: invalid configuration
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/smithyrt/cli/cmd"
	"github.com/pithecene-io/smithyrt/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "smithyrt",
		Usage:          "Request-execution runtime CLI",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.InvokeCommand(),
			cmd.DecodeCommand(),
			cmd.EncodeCommand(),
			cmd.AttemptsCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		os.Exit(1)
	}
}

// exitErrHandler handles errors from the CLI, preserving exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if code, ok := exitCode(err, os.Stderr); ok {
		os.Exit(code)
	}
}

// exitCode reports the process exit code for err and prints its message to
// w. ok is false for a nil error.
func exitCode(err error, w io.Writer) (code int, ok bool) {
	if err == nil {
		return 0, false
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "" or "exit status N"; skip those.
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(w, msg)
		}
		return code, true
	}

	fmt.Fprintf(w, "Error: %v\n", err)
	return 1, true
}
