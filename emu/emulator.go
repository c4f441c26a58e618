package emu

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/pipesim/insts"
)

var (
	// ErrIllegalInstruction is returned when an instruction word does not
	// decode.
	ErrIllegalInstruction = errors.New("illegal instruction")

	// ErrMaxInstructions is returned when the instruction limit is reached.
	ErrMaxInstructions = errors.New("max instructions reached")
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Exited is true if the program terminated (via exit syscall).
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int64

	// Err is set if an error occurred during execution.
	Err error
}

// IllegalInstructionError wraps ErrIllegalInstruction with the faulting
// instruction.
func IllegalInstructionError[W insts.Word](inst insts.Instruction[W]) error {
	return fmt.Errorf("%w at %s", ErrIllegalInstruction, inst)
}

type emulatorConfig struct {
	stdout          io.Writer
	stderr          io.Writer
	syscallHandler  SyscallHandler
	stackPointer    *uint64
	maxInstructions uint64
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*emulatorConfig)

// WithStdout sets a custom stdout writer.
func WithStdout(w io.Writer) EmulatorOption {
	return func(c *emulatorConfig) {
		c.stdout = w
	}
}

// WithStderr sets a custom stderr writer.
func WithStderr(w io.Writer) EmulatorOption {
	return func(c *emulatorConfig) {
		c.stderr = w
	}
}

// WithSyscallHandler sets a custom syscall handler.
func WithSyscallHandler(handler SyscallHandler) EmulatorOption {
	return func(c *emulatorConfig) {
		c.syscallHandler = handler
	}
}

// WithStackPointer sets the initial stack pointer value.
func WithStackPointer(sp uint64) EmulatorOption {
	return func(c *emulatorConfig) {
		c.stackPointer = &sp
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(c *emulatorConfig) {
		c.maxInstructions = max
	}
}

// Emulator executes instructions functionally, one per step.
type Emulator[W insts.Word] struct {
	isa            insts.ISA[W]
	regFile        *RegFile[W]
	memory         *Memory
	lsu            *LoadStoreUnit[W]
	syscallHandler SyscallHandler
	customHandler  bool

	stdout io.Writer
	stderr io.Writer

	instructionCount uint64
	maxInstructions  uint64
}

// NewEmulator creates an emulator for isa.
func NewEmulator[W insts.Word](isa insts.ISA[W], opts ...EmulatorOption) *Emulator[W] {
	cfg := emulatorConfig{stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Emulator[W]{
		isa:             isa,
		stdout:          cfg.stdout,
		stderr:          cfg.stderr,
		syscallHandler:  cfg.syscallHandler,
		customHandler:   cfg.syscallHandler != nil,
		maxInstructions: cfg.maxInstructions,
	}
	e.attach(&RegFile[W]{}, NewMemory())

	if cfg.stackPointer != nil {
		e.regFile.WriteReg(isa.ABI().StackPointer, W(*cfg.stackPointer))
	}

	return e
}

func (e *Emulator[W]) attach(regFile *RegFile[W], memory *Memory) {
	e.regFile = regFile
	e.memory = memory
	e.lsu = NewLoadStoreUnit[W](memory)
	if !e.customHandler {
		e.syscallHandler = NewDefaultSyscallHandler(regFile, memory, e.isa.ABI(), e.stdout, e.stderr)
	}
}

// RegFile returns the emulator's register file.
func (e *Emulator[W]) RegFile() *RegFile[W] {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator[W]) Memory() *Memory {
	return e.memory
}

// SyscallHandler returns the handler invoked on syscall traps.
func (e *Emulator[W]) SyscallHandler() SyscallHandler {
	return e.syscallHandler
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator[W]) InstructionCount() uint64 {
	return e.instructionCount
}

// LoadProgram loads a program and sets the entry point. The program can be
// a []byte image, a []uint32 of instruction words or a *Memory.
func (e *Emulator[W]) LoadProgram(entry insts.Addr, program interface{}) {
	switch p := program.(type) {
	case []byte:
		e.memory.LoadProgram(entry, p)
	case []uint32:
		e.memory.LoadWords(entry, p)
	case *Memory:
		e.attach(e.regFile, p)
	}
	e.regFile.PC = entry
}

// Reset resets the emulator to its initial state.
func (e *Emulator[W]) Reset() {
	e.attach(&RegFile[W]{}, NewMemory())
	e.instructionCount = 0
}

// Step executes a single instruction.
func (e *Emulator[W]) Step() StepResult {
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: ErrMaxInstructions}
	}

	inst := e.isa.Decode(e.memory.Read32(e.regFile.PC), e.regFile.PC)
	e.instructionCount++

	switch inst.Trap() {
	case insts.TrapIllegal:
		return StepResult{Exited: true, ExitCode: -1, Err: IllegalInstructionError(inst)}
	case insts.TrapBreakpoint:
		return StepResult{Exited: true}
	case insts.TrapSyscall:
		e.regFile.PC = inst.NextPC()
		res := e.syscallHandler.Handle()
		return StepResult{Exited: res.Exited, ExitCode: res.ExitCode}
	}

	e.regFile.ReadSources(inst)
	inst.Execute()
	e.lsu.Access(inst)
	e.regFile.WriteDestination(inst)
	e.regFile.PC = inst.ActualTarget()

	return StepResult{}
}

// Run executes instructions until the program exits or an error occurs.
// Returns the exit code (-1 if error).
func (e *Emulator[W]) Run() int64 {
	for {
		result := e.Step()
		if result.Err != nil {
			_, _ = fmt.Fprintf(e.stderr, "Emulation error: %v\n", result.Err)
			return -1
		}
		if result.Exited {
			return result.ExitCode
		}
	}
}
