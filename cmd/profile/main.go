// Package main provides a profiling wrapper for pipesim to identify
// performance bottlenecks.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/insts/mips"
	"github.com/sarchlab/pipesim/insts/riscv"
	"github.com/sarchlab/pipesim/loader"
	"github.com/sarchlab/pipesim/timing/latency"
	"github.com/sarchlab/pipesim/timing/pipeline"
)

var (
	timing      = flag.Bool("timing", false, "Enable timing simulation mode")
	cpuProfile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile  = flag.String("memprofile", "", "write memory profile to file")
	duration    = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	instruction = flag.Uint64("max-instr", 1000000, "max instructions to emulate (0 = unlimited)")
	maxCycles   = flag.Uint64("max-cycles", 10000000, "max cycles to simulate in timing mode (0 = unlimited)")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <program.elf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Start CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	programPath := flag.Arg(0)

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded: %s (%s)\n", programPath, prog.ISAName())
	fmt.Printf("Entry point: 0x%X\n", prog.EntryPoint)

	start := time.Now()

	go func() {
		time.Sleep(*duration)
		fmt.Printf("\nTimeout reached after %v - stopping execution\n", *duration)
		os.Exit(2)
	}()

	var exitCode int64
	var instrCount uint64

	switch prog.ISAName() {
	case "riscv32":
		exitCode, instrCount, err = profile[uint32](riscv.New[uint32](), prog)
	case "riscv64":
		exitCode, instrCount, err = profile[uint64](riscv.New[uint64](), prog)
	case "mips32":
		exitCode, instrCount, err = profile[uint32](mips.New[uint32](), prog)
	case "mips64":
		exitCode, instrCount, err = profile[uint64](mips.New[uint64](), prog)
	default:
		err = fmt.Errorf("%w: %s", loader.ErrUnsupported, prog.ISAName())
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	elapsed := time.Since(start)

	// Write memory profile if requested
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Exit code: %d\n", exitCode)
	fmt.Printf("Instructions executed: %d\n", instrCount)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if instrCount > 0 {
		fmt.Printf("Instructions/second: %.0f\n", float64(instrCount)/elapsed.Seconds())
	}
}

func profile[W insts.Word](isa insts.ISA[W], prog *loader.Program) (int64, uint64, error) {
	if *timing {
		return runTimingProfile(isa, prog)
	}
	exitCode, count := runEmulationProfile(isa, prog)
	return exitCode, count, nil
}

// runEmulationProfile runs the program in functional emulation mode.
func runEmulationProfile[W insts.Word](isa insts.ISA[W], prog *loader.Program) (int64, uint64) {
	memory := emu.NewMemory()
	prog.LoadIntoMemory(memory)

	opts := []emu.EmulatorOption{
		emu.WithStackPointer(prog.InitialSP),
	}
	if *instruction > 0 {
		opts = append(opts, emu.WithMaxInstructions(*instruction))
	}

	emulator := emu.NewEmulator(isa, opts...)
	emulator.LoadProgram(prog.EntryPoint, memory)

	exitCode := emulator.Run()
	return exitCode, emulator.InstructionCount()
}

// runTimingProfile runs the program in timing simulation mode. Program
// output is discarded so it does not distort the measurement.
func runTimingProfile[W insts.Word](isa insts.ISA[W], prog *loader.Program) (int64, uint64, error) {
	config := latency.DefaultTimingConfig()
	config.MaxCycles = *maxCycles

	memory := emu.NewMemory()
	prog.LoadIntoMemory(memory)

	regFile := &emu.RegFile[W]{PC: prog.EntryPoint}
	regFile.WriteReg(isa.ABI().StackPointer, W(prog.InitialSP))

	pipe, err := pipeline.NewPipeline(isa, regFile, memory,
		pipeline.WithConfig(config),
		pipeline.WithOutput(io.Discard, io.Discard),
	)
	if err != nil {
		return -1, 0, err
	}

	exitCode := pipe.Run()
	stats := pipe.Stats()
	fmt.Printf("Cycles simulated: %d (CPI %.2f)\n", stats.Cycles, stats.CPI())

	return exitCode, stats.Instructions, nil
}
