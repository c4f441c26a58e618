package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/bypass"
	"github.com/sarchlab/pipesim/timing/latency"
	"github.com/sarchlab/pipesim/timing/port"
)

// ErrMaxCycles is returned when the simulation reaches the configured cycle
// limit before the program exits.
var ErrMaxCycles = errors.New("max cycles reached")

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions completed (retired).
	Instructions uint64
	// Stalls is the number of cycles decode held an instruction back.
	Stalls uint64
	// FetchStalls is the number of cycles fetch repeated an address.
	FetchStalls uint64
	// Bubbles is the number of cycles decode had nothing to issue.
	Bubbles uint64
	// Flushes is the number of pipeline flushes due to branch mispredictions.
	Flushes uint64
	// Traps is the number of pipeline flushes due to system calls.
	Traps uint64
	// Jumps is the number of control-flow instructions seen by decode.
	Jumps uint64
	// DecodeMispredictions is the number of mispredictions detected at decode.
	DecodeMispredictions uint64
	// BranchPredictions is the total number of branch predictions made.
	BranchPredictions uint64
	// BranchCorrect is the number of control-flow instructions resolved
	// without a flush.
	BranchCorrect uint64
	// BranchMispredictions is the number of mispredictions detected when
	// control flow was resolved.
	BranchMispredictions uint64
	// ForwardCommands is the number of forward commands issued by decode.
	ForwardCommands uint64
	// ForwardedOperands is the number of operands taken from the bypass
	// network.
	ForwardedOperands uint64
	// LateIssues is the number of instructions issued to the late ALU.
	LateIssues uint64
	// LongOperations is the number of long-latency operations executed.
	LongOperations uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Mispredictions returns the number of mispredictions found at decode or at
// resolution.
func (s Statistics) Mispredictions() uint64 {
	return s.DecodeMispredictions + s.BranchMispredictions
}

type pipelineConfig struct {
	timing         *latency.TimingConfig
	logger         *slog.Logger
	syscallHandler emu.SyscallHandler
	predictor      *BranchPredictor
	stdout         io.Writer
	stderr         io.Writer
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*pipelineConfig)

// WithConfig sets the timing configuration.
func WithConfig(config *latency.TimingConfig) PipelineOption {
	return func(c *pipelineConfig) {
		c.timing = config
	}
}

// WithLogger sets the logger of every stage.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(c *pipelineConfig) {
		c.logger = logger
	}
}

// WithSyscallHandler sets a custom syscall handler.
func WithSyscallHandler(handler emu.SyscallHandler) PipelineOption {
	return func(c *pipelineConfig) {
		c.syscallHandler = handler
	}
}

// WithBranchPredictor sets a custom branch predictor.
func WithBranchPredictor(predictor *BranchPredictor) PipelineOption {
	return func(c *pipelineConfig) {
		c.predictor = predictor
	}
}

// WithOutput sets the streams of the default syscall handler.
func WithOutput(stdout, stderr io.Writer) PipelineOption {
	return func(c *pipelineConfig) {
		c.stdout = stdout
		c.stderr = stderr
	}
}

// Pipeline is an in-order pipeline with two functional units:
//
//	fetch -> decode -> execute (unit 0) -> memory ----------> writeback
//	                      |                  \-> branch ---/
//	                      \-> late ALU (unit 1) ------------/
//
// Stages only talk through timed channels. Decode decides at issue time
// where every operand comes from; the ALUs then take them from the named
// stage output or the register file.
type Pipeline[W insts.Word] struct {
	registry *port.Registry
	config   *latency.TimingConfig
	logger   *slog.Logger

	fetchStage     *FetchStage[W]
	decodeStage    *DecodeStage[W]
	executeStage   *ExecuteStage[W]
	lateALUStage   *LateALUStage[W]
	memoryStage    *MemoryStage[W]
	branchStage    *BranchStage[W]
	writebackStage *WritebackStage[W]

	bypass          *bypass.DataBypass
	branchPredictor *BranchPredictor

	regFile *emu.RegFile[W]
	memory  *emu.Memory

	cycle port.Cycle
	stats Statistics

	halted   bool
	exitCode int64
	err      error
}

// NewPipeline creates a pipeline running isa on the given register file
// and memory.
func NewPipeline[W insts.Word](
	isa insts.ISA[W],
	regFile *emu.RegFile[W],
	memory *emu.Memory,
	opts ...PipelineOption,
) (*Pipeline[W], error) {
	cfg := pipelineConfig{stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.timing == nil {
		cfg.timing = latency.DefaultTimingConfig()
	}
	if err := cfg.timing.Validate(); err != nil {
		return nil, err
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.predictor == nil {
		cfg.predictor = NewBranchPredictor(BranchPredictorConfigFrom(cfg.timing))
	}
	if cfg.syscallHandler == nil {
		cfg.syscallHandler = emu.NewDefaultSyscallHandler(
			regFile, memory, isa.ABI(), cfg.stdout, cfg.stderr)
	}

	table := latency.NewTableWithConfig(cfg.timing)
	r := port.NewRegistry()

	p := &Pipeline[W]{
		registry:        r,
		config:          cfg.timing,
		logger:          cfg.logger,
		bypass:          bypass.NewDataBypass(table),
		branchPredictor: cfg.predictor,
		regFile:         regFile,
		memory:          memory,
	}

	lsu := emu.NewLoadStoreUnit[W](memory)
	p.fetchStage = NewFetchStage(r, isa, memory, p.branchPredictor, &p.stats, p.logger)
	p.decodeStage = NewDecodeStage[W](r, p.bypass, &p.stats, p.logger)
	p.executeStage = NewExecuteStage(r, regFile, &p.stats, p.logger)
	p.lateALUStage = NewLateALUStage(r, regFile, table.LoopLatency(), &p.stats, p.logger)
	p.memoryStage = NewMemoryStage(r, lsu, p.logger)
	p.branchStage = NewBranchStage[W](r, &p.stats, p.logger)
	p.writebackStage = NewWritebackStage(r, regFile, lsu, cfg.syscallHandler, &p.stats, p.logger)

	if err := r.Init(); err != nil {
		return nil, fmt.Errorf("failed to wire pipeline: %w", err)
	}
	p.fetchStage.SetPC(regFile.PC)

	return p, nil
}

// PC returns the address of the next instruction to retire.
func (p *Pipeline[W]) PC() insts.Addr {
	return p.regFile.PC
}

// SetPC sets the program counter.
func (p *Pipeline[W]) SetPC(pc insts.Addr) {
	p.fetchStage.SetPC(pc)
	p.regFile.PC = pc
}

// Config returns the timing configuration.
func (p *Pipeline[W]) Config() *latency.TimingConfig {
	return p.config
}

// Cycle returns the number of the next cycle.
func (p *Pipeline[W]) Cycle() port.Cycle {
	return p.cycle
}

// Stats returns pipeline statistics.
func (p *Pipeline[W]) Stats() Statistics {
	return p.stats
}

// BranchPredictor returns the branch predictor.
func (p *Pipeline[W]) BranchPredictor() *BranchPredictor {
	return p.branchPredictor
}

// Bypass returns the forwarding unit.
func (p *Pipeline[W]) Bypass() *bypass.DataBypass {
	return p.bypass
}

// Halted returns true if the pipeline has halted.
func (p *Pipeline[W]) Halted() bool {
	return p.halted
}

// ExitCode returns the exit code if the pipeline has halted.
func (p *Pipeline[W]) ExitCode() int64 {
	return p.exitCode
}

// Err returns the error that halted the pipeline, if any.
func (p *Pipeline[W]) Err() error {
	return p.err
}

// Run executes the pipeline until it halts.
// Returns the exit code.
func (p *Pipeline[W]) Run() int64 {
	for !p.halted {
		p.Tick()
	}
	return p.exitCode
}

// RunCycles executes the pipeline for the specified number of cycles.
// Returns true if still running, false if halted.
func (p *Pipeline[W]) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !p.halted; i++ {
		p.Tick()
	}
	return !p.halted
}

// Tick executes one pipeline cycle.
//
// Stages are evaluated in reverse order (WB→Branch→MEM→LateALU→EX→ID→IF).
// Every value a stage reads was written in an earlier cycle. Writeback
// stores before the memory stage loads, so a load sees every store retired
// in the same cycle. Values that were not consumed are dropped at the end
// of the cycle.
func (p *Pipeline[W]) Tick() {
	if p.halted {
		return
	}

	c := p.cycle
	p.stats.Cycles++

	p.writebackStage.Tick(c)
	if p.writebackStage.Halted() {
		p.halted = true
		p.exitCode = p.writebackStage.ExitCode()
		p.err = p.writebackStage.Err()
		return
	}

	p.branchStage.Tick(c)
	p.memoryStage.Tick(c)
	p.lateALUStage.Tick(c)
	p.executeStage.Tick(c)
	p.decodeStage.Tick(c)
	p.fetchStage.Tick(c)

	p.registry.CleanUp(c)
	p.cycle++

	if p.config.MaxCycles > 0 && p.stats.Cycles >= p.config.MaxCycles {
		p.halted = true
		p.exitCode = -1
		p.err = ErrMaxCycles
	}
}

// Reset clears all pipeline state and restarts fetch at the register file
// PC. The register file and memory are left untouched.
func (p *Pipeline[W]) Reset() {
	p.registry.Reset()
	p.bypass.HandleFlush()
	p.branchPredictor.Reset()
	p.fetchStage.Reset()
	p.fetchStage.SetPC(p.regFile.PC)
	p.lateALUStage.Reset()
	p.writebackStage.Reset()
	p.cycle = 0
	p.stats = Statistics{}
	p.halted = false
	p.exitCode = 0
	p.err = nil
}
