package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/silvanoneto/sil-core/internal/silasm"
	"github.com/silvanoneto/sil-core/internal/vsp"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file.silc>",
		Short: "Print a .silc container's header fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args[0])
		},
	}
}

func runInfo(inPath string) error {
	buf, err := os.ReadFile(inPath)
	if err != nil {
		return wrapExit(exitIOError, fmt.Errorf("reading %s: %w", inPath, err))
	}
	container, err := silasm.Load(buf)
	if err != nil {
		return wrapExit(exitFormatError, err)
	}

	fmt.Printf("version=%d.%d\n", container.VersionMajor, container.VersionMinor)
	fmt.Printf("mode=%s\n", container.Mode)
	fmt.Printf("code_size=%d\n", len(container.Code))
	fmt.Printf("data_size=%d\n", len(container.Data))
	fmt.Printf("debug_records=%d\n", len(container.Debug))

	cfg := vsp.DefaultConfig()
	sel := vsp.NewBackendSelector(cfg)
	active := sel.Pick()
	fmt.Printf("backend=%s (%s, available=%t)\n", active.Name(), active.ProcessorType(), active.IsAvailable())
	return nil
}
