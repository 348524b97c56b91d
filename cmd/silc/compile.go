package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	compiler "github.com/silvanoneto/sil-core/internal"
	"github.com/silvanoneto/sil-core/internal/compiler/jsil"
	"github.com/silvanoneto/sil-core/internal/compiler/types"
)

func newCompileCmd() *cobra.Command {
	var (
		outPath  string
		asMode   bool
		asSilc   bool
		asJSIL   bool
		jsilMode string
	)
	cmd := &cobra.Command{
		Use:   "compile <in.sil>",
		Short: "Compile SIL source to assembly text, .silc bytecode, or a jsil container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := "silc"
			switch {
			case asMode:
				format = "asm"
			case asJSIL:
				format = "jsil"
			case asSilc:
				format = "silc"
			}
			return runCompile(args[0], outPath, format, jsilMode)
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (default: input with the format's extension)")
	cmd.Flags().BoolVar(&asMode, "asm", false, "emit human-readable assembly text")
	cmd.Flags().BoolVar(&asSilc, "silc", false, "emit a .silc bytecode container (default)")
	cmd.Flags().BoolVar(&asJSIL, "jsil", false, "emit a jsil JSONL container")
	cmd.Flags().StringVar(&jsilMode, "jsil-mode", "adaptive", "jsil compression mode: none|xor|rotate|xorrotate|adaptive")
	return cmd
}

func runCompile(inPath, outPath, format, jsilModeStr string) error {
	src, err := os.ReadFile(inPath)
	if err != nil {
		return wrapExit(exitIOError, fmt.Errorf("reading %s: %w", inPath, err))
	}

	switch format {
	case "asm":
		compiled, bag := compiler.Compile(string(src))
		if err := compileErrExit(bag); err != nil {
			return err
		}
		text := compiled.Bytecode.Text()
		return writeCompileOutput(outPath, inPath, ".asm", []byte(text))

	case "jsil":
		mode, err := jsil.ParseMode(jsilModeStr)
		if err != nil {
			return wrapExit(exitParseError, err)
		}
		// jsil containers are not cached; only .silc is (SPEC_FULL.md §3).
		buf, _, bag := compiler.CompileToContainer(string(src), mode, time.Now().Unix())
		if err := compileErrExit(bag); err != nil {
			return err
		}
		return writeCompileOutput(outPath, inPath, ".jsil", buf)

	default:
		cacheDir := os.Getenv("SIL_CACHE_DIR")
		buf, bag, _ := compiler.CompileToBytecodeCached(string(src), cacheDir)
		if err := compileErrExit(bag); err != nil {
			return err
		}
		return writeCompileOutput(outPath, inPath, ".silc", buf)
	}
}

func compileErrExit(bag interface {
	Empty() bool
	Error() string
	All() []error
}) error {
	if bag == nil || bag.Empty() {
		return nil
	}
	code := exitParseError
	for _, e := range bag.All() {
		if _, ok := e.(*types.TypeError); ok {
			code = exitTypeError
			break
		}
	}
	return wrapExit(code, fmt.Errorf("%s", bag.Error()))
}

func writeCompileOutput(outPath, inPath, ext string, data []byte) error {
	out := outPath
	if out == "" {
		out = trimExt(inPath) + ext
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return wrapExit(exitIOError, fmt.Errorf("writing %s: %w", out, err))
	}
	return nil
}
