// Command silc is the SIL core CLI: assemble, compile, run, info (spec.md
// §6). Subcommand structure grounded on github.com/spf13/cobra in place of
// the teacher's flag package, which only ever drives single-purpose
// binaries (cmd/ie32to64) and has no multi-subcommand convention of its
// own to imitate.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/silvanoneto/sil-core/internal/diaglog"
)

// Exit codes (spec.md §6).
const (
	exitOK            = 0
	exitIOError       = 1
	exitParseError    = 2
	exitTypeError     = 3
	exitRuntimeError  = 4
	exitFormatError   = 5
)

func main() {
	root := &cobra.Command{
		Use:           "silc",
		Short:         "SIL core assembler, compiler, and virtual processor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAssembleCmd())
	root.AddCommand(newCompileCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newInfoCmd())

	if err := root.Execute(); err != nil {
		diaglog.New(false).Errorf("%v", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitKinder is implemented by errors that know their own CLI exit code.
type exitKinder interface{ ExitCode() int }

func exitCodeFor(err error) int {
	if ek, ok := err.(exitKinder); ok {
		return ek.ExitCode()
	}
	return exitIOError
}

// cliError pairs an error message with a specific spec.md §6 exit code.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }
func (e *cliError) ExitCode() int { return e.code }

func wrapExit(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}
