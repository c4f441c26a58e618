// Package benchmarks provides timing benchmark infrastructure for pipesim
// calibration.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/insts/mips"
	"github.com/sarchlab/pipesim/insts/riscv"
	"github.com/sarchlab/pipesim/timing/latency"
	"github.com/sarchlab/pipesim/timing/pipeline"
)

// Load address and initial stack pointer of every benchmark.
const (
	programAddr = 0x1000
	stackTop    = 0x10000
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// ISA is the instruction set the benchmark ran on
	ISA string `json:"isa"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// StallCycles is the number of cycles decode held an instruction back
	StallCycles uint64 `json:"stall_cycles"`

	// Bubbles is the number of cycles decode had nothing to issue
	Bubbles uint64 `json:"bubbles"`

	// ForwardedOperands is the number of operands taken from the bypass network
	ForwardedOperands uint64 `json:"forwarded_operands"`

	// LateIssues is the number of instructions issued to the late ALU
	LateIssues uint64 `json:"late_issues"`

	// LongOperations is the number of long-latency operations
	LongOperations uint64 `json:"long_operations"`

	// PipelineFlushes is the number of pipeline flushes
	PipelineFlushes uint64 `json:"pipeline_flushes"`

	// DecodeMispredictions is the number of redirects issued by decode
	DecodeMispredictions uint64 `json:"decode_mispredictions"`

	// Branch predictor stats
	BranchPredictions     uint64  `json:"branch_predictions,omitempty"`
	BranchCorrect         uint64  `json:"branch_correct,omitempty"`
	BranchMispredictions  uint64  `json:"branch_mispredictions,omitempty"`
	BranchAccuracyPercent float64 `json:"branch_accuracy_percent,omitempty"`
	BTBHitRatePercent     float64 `json:"btb_hit_rate_percent,omitempty"`

	// ExitCode is the program's exit code
	ExitCode int64 `json:"exit_code"`

	// Error is set when the pipeline could not be built or the run failed
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// ISA selects the decoder: riscv32, riscv64, mips32 or mips64
	ISA string

	// Setup prepares the initial state (e.g., initialize registers, memory)
	Setup func(setReg func(insts.Register, uint64), memory *emu.Memory)

	// Program is the machine code to execute, one word per instruction
	Program []uint32

	// ExpectedExit is the expected exit code (for validation)
	ExpectedExit int64
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Timing is the pipeline configuration every benchmark runs with
	Timing *latency.TimingConfig

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	timing := latency.DefaultTimingConfig()
	timing.MaxCycles = 1_000_000

	return HarnessConfig{
		Timing:  timing,
		Output:  os.Stdout,
		Verbose: false,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Timing == nil {
		config.Timing = DefaultConfig().Timing
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result := h.runBenchmark(bench)
		if h.config.Verbose {
			_, _ = fmt.Fprintf(h.config.Output, "ran %s: %d cycles\n",
				result.Name, result.SimulatedCycles)
		}
		results = append(results, result)
	}

	return results
}

// runBenchmark executes a single benchmark on the decoder it names.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	config := h.config.Timing.Clone()

	switch bench.ISA {
	case "riscv32":
		return runOn[uint32](riscv.New[uint32](), config, bench)
	case "mips32":
		return runOn[uint32](mips.New[uint32](), config, bench)
	case "mips64":
		return runOn[uint64](mips.New[uint64](), config, bench)
	default:
		return runOn[uint64](riscv.New[uint64](), config, bench)
	}
}

func runOn[W insts.Word](
	isa insts.ISA[W],
	config *latency.TimingConfig,
	bench Benchmark,
) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
		ISA:         isa.Name(),
		ExitCode:    -1,
	}

	// Create fresh state
	regFile := &emu.RegFile[W]{PC: programAddr}
	memory := emu.NewMemory()
	regFile.WriteReg(isa.ABI().StackPointer, W(stackTop))

	if bench.Setup != nil {
		bench.Setup(func(r insts.Register, v uint64) { regFile.WriteReg(r, W(v)) }, memory)
	}

	memory.LoadWords(programAddr, bench.Program)

	pipe, err := pipeline.NewPipeline(isa, regFile, memory,
		pipeline.WithConfig(config),
		pipeline.WithOutput(io.Discard, io.Discard),
	)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	// Run simulation and measure time
	start := time.Now()
	exitCode := pipe.Run()
	result.WallTime = time.Since(start)

	if pipe.Err() != nil {
		result.Error = pipe.Err().Error()
	}

	stats := pipe.Stats()
	result.ExitCode = exitCode
	result.SimulatedCycles = stats.Cycles
	result.InstructionsRetired = stats.Instructions
	result.CPI = stats.CPI()
	result.StallCycles = stats.Stalls
	result.Bubbles = stats.Bubbles
	result.ForwardedOperands = stats.ForwardedOperands
	result.LateIssues = stats.LateIssues
	result.LongOperations = stats.LongOperations
	result.PipelineFlushes = stats.Flushes
	result.DecodeMispredictions = stats.DecodeMispredictions

	bpStats := pipe.BranchPredictor().Stats()
	result.BranchPredictions = bpStats.Predictions
	result.BranchCorrect = bpStats.Correct
	result.BranchMispredictions = bpStats.Mispredictions
	result.BranchAccuracyPercent = bpStats.Accuracy()
	result.BTBHitRatePercent = bpStats.BTBHitRate()

	return result
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== pipesim Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s (%s)\n", r.Name, r.ISA)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Exit Code: %d\n", r.ExitCode)
		if r.Error != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Error: %s\n", r.Error)
		}
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(h.config.Output, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Bubbles:              %d\n", r.Bubbles)
		_, _ = fmt.Fprintf(h.config.Output, "  Forwarded Operands:   %d\n", r.ForwardedOperands)
		_, _ = fmt.Fprintf(h.config.Output, "  Late ALU Issues:      %d\n", r.LateIssues)
		_, _ = fmt.Fprintf(h.config.Output, "  Long Operations:      %d\n", r.LongOperations)
		_, _ = fmt.Fprintf(h.config.Output, "  Pipeline Flushes:     %d\n", r.PipelineFlushes)
		if r.DecodeMispredictions > 0 {
			_, _ = fmt.Fprintf(h.config.Output, "  Decode Redirects:     %d\n", r.DecodeMispredictions)
		}

		if r.BranchPredictions > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- Branch Predictor ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Predictions:     %d\n", r.BranchPredictions)
			_, _ = fmt.Fprintf(h.config.Output, "  Correct:         %d\n", r.BranchCorrect)
			_, _ = fmt.Fprintf(h.config.Output, "  Mispredictions:  %d\n", r.BranchMispredictions)
			_, _ = fmt.Fprintf(h.config.Output, "  Accuracy:        %.1f%%\n", r.BranchAccuracyPercent)
			_, _ = fmt.Fprintf(h.config.Output, "  BTB Hit Rate:    %.1f%%\n", r.BTBHitRatePercent)
		}

		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,isa,cycles,instructions,cpi,stalls,bubbles,forwarded,late_issues,long_ops,flushes,exit_code")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d\n",
			r.Name,
			r.ISA,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.StallCycles,
			r.Bubbles,
			r.ForwardedOperands,
			r.LateIssues,
			r.LongOperations,
			r.PipelineFlushes,
			r.ExitCode,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Version of the simulator
	Version string `json:"version"`

	// Config is the pipeline configuration used
	Config *latency.TimingConfig `json:"config"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is the average cycles per instruction
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	var totalCycles, totalInstructions uint64
	var totalWallTime time.Duration
	for _, r := range results {
		totalCycles += r.SimulatedCycles
		totalInstructions += r.InstructionsRetired
		totalWallTime += r.WallTime
	}

	avgCPI := float64(0)
	if totalInstructions > 0 {
		avgCPI = float64(totalCycles) / float64(totalInstructions)
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "0.1.0",
			Config:    h.config.Timing,
		},
		Results: results,
		Summary: ReportSummary{
			TotalBenchmarks:   len(results),
			TotalCycles:       totalCycles,
			TotalInstructions: totalInstructions,
			AverageCPI:        avgCPI,
			TotalWallTime:     totalWallTime,
		},
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
