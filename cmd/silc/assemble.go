package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/silvanoneto/sil-core/internal/silasm"
)

func newAssembleCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "assemble <in.asm>",
		Short: "Assemble SIL assembly source into a .silc bytecode container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssemble(args[0], outPath)
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output .silc path (default: input with .silc extension)")
	return cmd
}

func runAssemble(inPath, outPath string) error {
	src, err := os.ReadFile(inPath)
	if err != nil {
		return wrapExit(exitIOError, fmt.Errorf("reading %s: %w", inPath, err))
	}

	lex := silasm.NewLexer(string(src))
	toks := lex.Tokenize()
	if errs := lex.Errors(); len(errs) > 0 {
		return wrapExit(exitParseError, errs[0])
	}

	parser := silasm.NewParser(toks)
	stmts := parser.Parse()
	if errs := parser.Errors(); len(errs) > 0 {
		return wrapExit(exitParseError, errs[0])
	}

	asm := silasm.NewAssembler(stmts)
	assembled, err := asm.Assemble()
	if err != nil {
		return wrapExit(exitParseError, err)
	}

	container := silasm.NewContainer(assembled)
	out := outPath
	if out == "" {
		out = trimExt(inPath) + ".silc"
	}
	if err := os.WriteFile(out, container.Save(), 0o644); err != nil {
		return wrapExit(exitIOError, fmt.Errorf("writing %s: %w", out, err))
	}
	return nil
}

func trimExt(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[:i]
		}
	}
	return path
}
