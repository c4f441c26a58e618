// Package core provides the cycle-accurate CPU core model.
// It wraps the pipeline implementation to provide a high-level interface.
package core

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/pipeline"
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of stall cycles.
	Stalls uint64
	// Flushes is the number of pipeline flushes.
	Flushes uint64
	// Traps is the number of system calls that restarted the pipeline.
	Traps uint64
	// Mispredictions counts wrong predictions found at decode or at branch
	// resolution.
	Mispredictions uint64
	// CPI is the number of cycles per retired instruction.
	CPI float64
	// SimulatedTime is the simulated run time in seconds.
	SimulatedTime float64
}

// Core represents a cycle-accurate CPU core model.
// It wraps the pipeline and reports time at the configured clock frequency.
type Core[W insts.Word] struct {
	// Pipeline is the underlying pipeline.
	Pipeline *pipeline.Pipeline[W]

	// Shared resources
	regFile *emu.RegFile[W]
	memory  *emu.Memory

	freq sim.Freq
}

// NewCore creates a new Core running isa on the given register file and
// memory.
func NewCore[W insts.Word](
	isa insts.ISA[W],
	regFile *emu.RegFile[W],
	memory *emu.Memory,
	opts ...pipeline.PipelineOption,
) (*Core[W], error) {
	p, err := pipeline.NewPipeline(isa, regFile, memory, opts...)
	if err != nil {
		return nil, err
	}

	return &Core[W]{
		Pipeline: p,
		regFile:  regFile,
		memory:   memory,
		freq:     sim.Freq(p.Config().ClockFrequencyGHz) * sim.GHz,
	}, nil
}

// RegFile returns the architectural register file.
func (c *Core[W]) RegFile() *emu.RegFile[W] {
	return c.regFile
}

// Memory returns the memory the core runs on.
func (c *Core[W]) Memory() *emu.Memory {
	return c.memory
}

// Freq returns the clock frequency.
func (c *Core[W]) Freq() sim.Freq {
	return c.freq
}

// SetPC sets the program counter.
func (c *Core[W]) SetPC(pc insts.Addr) {
	c.Pipeline.SetPC(pc)
}

// Tick executes one pipeline cycle.
func (c *Core[W]) Tick() {
	c.Pipeline.Tick()
}

// Halted returns true if the core has halted (e.g., due to exit syscall).
func (c *Core[W]) Halted() bool {
	return c.Pipeline.Halted()
}

// ExitCode returns the exit code if the core has halted.
func (c *Core[W]) ExitCode() int64 {
	return c.Pipeline.ExitCode()
}

// Err returns the error that stopped the core, if any.
func (c *Core[W]) Err() error {
	return c.Pipeline.Err()
}

// SimulatedTime returns the time in seconds the simulated cycles take at
// the core frequency.
func (c *Core[W]) SimulatedTime() float64 {
	return float64(c.Pipeline.Stats().Cycles) / float64(c.freq)
}

// Stats returns performance statistics for the core.
func (c *Core[W]) Stats() Stats {
	pipeStats := c.Pipeline.Stats()
	return Stats{
		Cycles:         pipeStats.Cycles,
		Instructions:   pipeStats.Instructions,
		Stalls:         pipeStats.Stalls,
		Flushes:        pipeStats.Flushes,
		Traps:          pipeStats.Traps,
		Mispredictions: pipeStats.Mispredictions(),
		CPI:            pipeStats.CPI(),
		SimulatedTime:  c.SimulatedTime(),
	}
}

// Run executes the core until it halts.
// Returns the exit code.
func (c *Core[W]) Run() int64 {
	return c.Pipeline.Run()
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core[W]) RunCycles(cycles uint64) bool {
	return c.Pipeline.RunCycles(cycles)
}

// Reset clears all core state.
func (c *Core[W]) Reset() {
	c.Pipeline.Reset()
}
