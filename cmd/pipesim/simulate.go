package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/loader"
	"github.com/sarchlab/pipesim/timing/core"
	"github.com/sarchlab/pipesim/timing/latency"
	"github.com/sarchlab/pipesim/timing/pipeline"
)

// ErrMismatch is returned when the timing run and the functional emulator
// disagree.
var ErrMismatch = errors.New("timing run differs from emulation")

type options struct {
	timing     bool
	configPath string
	check      bool
	maxCycles  uint64
	verbose    bool
	logger     *slog.Logger
	stdout     io.Writer
	stderr     io.Writer
}

// run executes prog in the mode selected by opts and returns the exit code.
func run[W insts.Word](
	isa insts.ISA[W],
	prog *loader.Program,
	programPath string,
	opts options,
) (int64, error) {
	if !opts.timing {
		e := runEmulation(isa, prog, opts)
		exitCode := e.Run()
		if opts.verbose {
			fmt.Fprintf(opts.stdout, "\nProgram: %s\n", programPath)
			fmt.Fprintf(opts.stdout, "Exit code: %d\n", exitCode)
			fmt.Fprintf(opts.stdout, "Instructions executed: %d\n", e.InstructionCount())
		}
		return exitCode, nil
	}

	config, err := loadTimingConfig(opts)
	if err != nil {
		return -1, err
	}

	c, err := runTiming(isa, prog, config, opts)
	if err != nil {
		return -1, err
	}
	printReport(opts.stdout, programPath, c)

	if c.Err() != nil {
		fmt.Fprintf(opts.stderr, "Simulation error: %v\n", c.Err())
	}

	if opts.check {
		e := runEmulation(isa, prog, opts)
		e.Run()
		if err := compare(c, e); err != nil {
			return -1, err
		}
		fmt.Fprintf(opts.stdout, "\nCheck: timing run matches emulation\n")
	}

	return c.ExitCode(), nil
}

// loadTimingConfig reads the configuration file, if any, and applies the
// command line overrides.
func loadTimingConfig(opts options) (*latency.TimingConfig, error) {
	config := latency.DefaultTimingConfig()
	if opts.configPath != "" {
		var err error
		config, err = latency.LoadConfig(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load timing config: %w", err)
		}
	}

	if opts.maxCycles > 0 {
		config.MaxCycles = opts.maxCycles
	}

	return config, nil
}

// runEmulation prepares a functional emulator for prog.
func runEmulation[W insts.Word](
	isa insts.ISA[W],
	prog *loader.Program,
	opts options,
) *emu.Emulator[W] {
	memory := emu.NewMemory()
	prog.LoadIntoMemory(memory)

	emulator := emu.NewEmulator(isa,
		emu.WithStackPointer(prog.InitialSP),
		emu.WithStdout(opts.stdout),
		emu.WithStderr(opts.stderr),
	)
	emulator.LoadProgram(prog.EntryPoint, memory)

	return emulator
}

// runTiming runs prog to completion on a timing core.
func runTiming[W insts.Word](
	isa insts.ISA[W],
	prog *loader.Program,
	config *latency.TimingConfig,
	opts options,
) (*core.Core[W], error) {
	memory := emu.NewMemory()
	prog.LoadIntoMemory(memory)

	regFile := &emu.RegFile[W]{PC: prog.EntryPoint}
	regFile.WriteReg(isa.ABI().StackPointer, W(prog.InitialSP))

	c, err := core.NewCore(isa, regFile, memory,
		pipeline.WithConfig(config),
		pipeline.WithLogger(opts.logger),
		pipeline.WithOutput(opts.stdout, opts.stderr),
	)
	if err != nil {
		return nil, err
	}

	c.Run()
	return c, nil
}

// compare checks the architectural state of a finished timing run against
// a finished emulation.
func compare[W insts.Word](c *core.Core[W], e *emu.Emulator[W]) error {
	var errs []error

	if want, got := e.InstructionCount(), c.Stats().Instructions; want != got {
		errs = append(errs, fmt.Errorf("%w: retired %d instructions, emulator executed %d",
			ErrMismatch, got, want))
	}

	for r := insts.Register(0); r < insts.NumRegisters; r++ {
		want, got := e.RegFile().ReadReg(r), c.RegFile().ReadReg(r)
		if want != got {
			errs = append(errs, fmt.Errorf("%w: %s is 0x%x, emulator has 0x%x",
				ErrMismatch, r, uint64(got), uint64(want)))
		}
	}

	if want, got := e.RegFile().PC, c.RegFile().PC; want != got {
		errs = append(errs, fmt.Errorf("%w: pc is 0x%x, emulator has 0x%x",
			ErrMismatch, got, want))
	}

	return errors.Join(errs...)
}

// printReport prints the timing report of a finished run.
func printReport[W insts.Word](w io.Writer, programPath string, c *core.Core[W]) {
	stats := c.Pipeline.Stats()
	bpStats := c.Pipeline.BranchPredictor().Stats()

	totalCycles := stats.Cycles
	if totalCycles == 0 {
		totalCycles = 1 // Avoid division by zero
	}
	percent := func(n uint64) float64 {
		return 100.0 * float64(n) / float64(totalCycles)
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Program: %s\n", programPath)
	fmt.Fprintf(w, "Exit code: %d\n", c.ExitCode())
	fmt.Fprintf(w, "Total Instructions: %d\n", stats.Instructions)
	fmt.Fprintf(w, "Total Cycles: %d\n", stats.Cycles)
	fmt.Fprintf(w, "CPI: %.2f\n", stats.CPI())
	fmt.Fprintf(w, "Simulated time: %.3f us at %.2f GHz\n",
		c.SimulatedTime()*1e6, c.Pipeline.Config().ClockFrequencyGHz)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Breakdown:\n")
	fmt.Fprintf(w, "  Decode stalls:  %6d cycles (%5.1f%%)\n", stats.Stalls, percent(stats.Stalls))
	fmt.Fprintf(w, "  Decode bubbles: %6d cycles (%5.1f%%)\n", stats.Bubbles, percent(stats.Bubbles))
	fmt.Fprintf(w, "  Fetch stalls:   %6d cycles (%5.1f%%)\n", stats.FetchStalls, percent(stats.FetchStalls))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Pipeline Events:\n")
	fmt.Fprintf(w, "  Flushes: %d\n", stats.Flushes)
	fmt.Fprintf(w, "  Traps:   %d\n", stats.Traps)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Control Flow:\n")
	fmt.Fprintf(w, "  Jumps:                    %d\n", stats.Jumps)
	fmt.Fprintf(w, "  Decode mispredictions:    %d\n", stats.DecodeMispredictions)
	fmt.Fprintf(w, "  Resolved mispredictions:  %d\n", stats.BranchMispredictions)
	fmt.Fprintf(w, "  Predictor accuracy:       %.1f%%\n", bpStats.Accuracy())
	fmt.Fprintf(w, "  BTB hit rate:             %.1f%%\n", bpStats.BTBHitRate())
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Bypass Network:\n")
	fmt.Fprintf(w, "  Forward commands:   %d\n", stats.ForwardCommands)
	fmt.Fprintf(w, "  Forwarded operands: %d\n", stats.ForwardedOperands)
	fmt.Fprintf(w, "  Late ALU issues:    %d\n", stats.LateIssues)
	fmt.Fprintf(w, "  Long operations:    %d\n", stats.LongOperations)
}
