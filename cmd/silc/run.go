package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/silvanoneto/sil-core/internal/bytesil"
	"github.com/silvanoneto/sil-core/internal/silasm"
	"github.com/silvanoneto/sil-core/internal/vsp"
)

func newRunCmd() *cobra.Command {
	var (
		maxCycles uint64
		modeStr   string
	)
	cmd := &cobra.Command{
		Use:   "run <in.silc>",
		Short: "Execute a .silc bytecode container on the Virtual SIL Processor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(args[0], maxCycles, modeStr)
		},
	}
	cmd.Flags().Uint64Var(&maxCycles, "max-cycles", 0, "abort with CycleLimitExceeded after this many cycles (0 = unlimited)")
	cmd.Flags().StringVar(&modeStr, "mode", "", "override the container's mode: sil64|sil128")
	return cmd
}

func runRun(inPath string, maxCycles uint64, modeStr string) error {
	buf, err := os.ReadFile(inPath)
	if err != nil {
		return wrapExit(exitIOError, fmt.Errorf("reading %s: %w", inPath, err))
	}

	container, err := silasm.Load(buf)
	if err != nil {
		return wrapExit(exitFormatError, err)
	}

	mode := container.Mode
	switch modeStr {
	case "sil64":
		mode = vsp.SIL64
	case "sil128":
		mode = vsp.SIL128
	case "":
	default:
		return wrapExit(exitParseError, fmt.Errorf("invalid --mode %q: want sil64 or sil128", modeStr))
	}

	cfg := vsp.DefaultConfig()
	cfg.Mode = mode
	cfg.MaxCycles = maxCycles
	if backend := os.Getenv("SIL_BACKEND"); backend != "" {
		switch backend {
		case "gpu":
			cfg.EnableGPU = true
		case "npu":
			cfg.EnableNPU = true
		case "fpga":
			cfg.EnableFPGA = true
		case "cpu":
		default:
			return wrapExit(exitParseError, fmt.Errorf("invalid SIL_BACKEND %q: want cpu, gpu, npu, or fpga", backend))
		}
	}

	machine, err := vsp.New(cfg)
	if err != nil {
		return wrapExit(exitRuntimeError, err)
	}
	machine.LoadBytes(container.Code, container.Data)

	final, err := machine.Run(context.Background())
	if err != nil {
		return wrapExit(exitRuntimeError, err)
	}

	fmt.Printf("cycles=%d pc=%d sp=%d\n", final.Cycles, final.PC, final.SP)
	for i := 0; i < 4; i++ {
		b := final.Regs[i].Get(0)
		fmt.Printf("R%d.L0=%s (0x%02X)\n", i, byteSilString(b), b.ToU8())
	}
	return nil
}

func byteSilString(b bytesil.ByteSil) string {
	if b.IsNull() {
		return "null"
	}
	return fmt.Sprintf("rho=%d theta=%d", b.Rho, b.Theta)
}
