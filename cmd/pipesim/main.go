// Package main provides the entry point for pipesim.
// pipesim runs RISC-V and MIPS programs on a functional emulator or on a
// cycle-accurate in-order pipeline with a bypass network and a late ALU.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/sarchlab/pipesim/insts/mips"
	"github.com/sarchlab/pipesim/insts/riscv"
	"github.com/sarchlab/pipesim/loader"
)

var (
	timing     = flag.Bool("timing", false, "Enable timing simulation mode")
	configPath = flag.String("config", "", "Path to timing configuration JSON or YAML file")
	verbose    = flag.Bool("v", false, "Verbose output, including per-cycle pipeline logs")
	check      = flag.Bool("check", false, "Compare the timing run against the functional emulator")
	maxCycles  = flag.Uint64("max-cycles", 0, "Stop the timing run after this many cycles (0 = config value)")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: pipesim [options] <program.elf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	programPath := flag.Arg(0)

	// Load the ELF program
	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Loaded: %s (%s)\n", programPath, prog.ISAName())
		fmt.Printf("Entry point: 0x%X\n", prog.EntryPoint)
		fmt.Printf("Segments: %d\n", len(prog.Segments))
	}

	opts := options{
		timing:     *timing,
		configPath: *configPath,
		check:      *check,
		maxCycles:  *maxCycles,
		verbose:    *verbose,
		logger:     newLogger(*verbose),
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}

	var exitCode int64
	switch prog.ISAName() {
	case "riscv32":
		exitCode, err = run[uint32](riscv.New[uint32](), prog, programPath, opts)
	case "riscv64":
		exitCode, err = run[uint64](riscv.New[uint64](), prog, programPath, opts)
	case "mips32":
		exitCode, err = run[uint32](mips.New[uint32](), prog, programPath, opts)
	case "mips64":
		exitCode, err = run[uint64](mips.New[uint64](), prog, programPath, opts)
	default:
		err = fmt.Errorf("%w: %s", loader.ErrUnsupported, prog.ISAName())
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	os.Exit(int(exitCode))
}

// newLogger returns a debug-level text logger on stderr when verbose is
// set, and a discarding logger otherwise.
func newLogger(verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}
