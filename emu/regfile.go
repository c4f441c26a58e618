// Package emu provides functional emulation of the RISC-V and MIPS integer
// subsets. The timing pipeline uses its register file, memory and syscall
// handler, and its results are the reference for timing runs.
package emu

import "github.com/sarchlab/pipesim/insts"

// RegFile is the architectural integer register file.
type RegFile[W insts.Word] struct {
	// X holds the integer registers. X[0] always reads as 0.
	X [insts.NumRegisters]W

	// PC is the program counter.
	PC insts.Addr
}

// ReadReg reads a register value. Register 0 and the RegNone sentinel
// return 0.
func (r *RegFile[W]) ReadReg(reg insts.Register) W {
	if !reg.IsTracked() {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to register 0 and RegNone
// are ignored.
func (r *RegFile[W]) WriteReg(reg insts.Register, value W) {
	if !reg.IsTracked() {
		return
	}
	r.X[reg] = value
}

// ReadSource loads source slot i of inst from the register file.
func (r *RegFile[W]) ReadSource(inst insts.Instruction[W], i int) {
	inst.SetSrcValue(i, r.ReadReg(inst.Src(i)))
}

// ReadSources loads both source slots of inst.
func (r *RegFile[W]) ReadSources(inst insts.Instruction[W]) {
	r.ReadSource(inst, 0)
	r.ReadSource(inst, 1)
}

// WriteDestination commits the result of inst.
func (r *RegFile[W]) WriteDestination(inst insts.Instruction[W]) {
	r.WriteReg(inst.Dst(), inst.Result())
}
